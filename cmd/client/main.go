package main

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"e2ee_keyserver/internal/cryptographic/prekey"
	"e2ee_keyserver/internal/model"
	"e2ee_keyserver/internal/service/auth"
	"e2ee_keyserver/internal/utils/log"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var host = "localhost:9090"

type identityFile struct {
	Name    string `json:"name"`
	PubKey  []byte `json:"pub_key"`
	PrivKey []byte `json:"priv_key"`
}

func main() {
	if v := os.Getenv("KEYSERVER_ADDR"); v != "" {
		host = v
	}

	if len(os.Args) < 2 {
		usage()
	}

	var err error
	switch os.Args[1] {
	case "create-account":
		err = createAccount(os.Args[2:])
	case "register-device":
		err = registerDevice(os.Args[2:])
	case "replenish":
		err = replenish(os.Args[2:])
	case "withdraw":
		err = withdraw(os.Args[2:])
	case "response":
		err = takeResponse(os.Args[2:])
	case "devices":
		err = listDevices(os.Args[2:])
	case "listen":
		err = listen(os.Args[2:])
	default:
		usage()
	}

	if err != nil {
		log.Fatal("command failed", zap.Error(err))
	}
}

func usage() {
	fmt.Println(`usage: client <command> [args]

  create-account  <keyfile> <name>
  register-device <keyfile> <device_id> <num_bundles>
  replenish       <keyfile> <device_id> <num_bundles>
  withdraw        <keyfile> <request_id> <account:device> [...]
  response        <keyfile> <request_id>
  devices         <name>
  listen          <keyfile>`)
	os.Exit(1)
}

// createAccount generates a fresh ed25519 identity, stores it in keyfile and
// registers the account name with the server.
func createAccount(args []string) error {
	if len(args) != 2 {
		usage()
	}
	keyfile, name := args[0], args[1]

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}

	id := &identityFile{
		Name:    name,
		PubKey:  pub,
		PrivKey: priv,
	}
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	if err := os.WriteFile(keyfile, data, 0o600); err != nil {
		return err
	}

	body, err := json.Marshal(&model.CreateAccountRequest{
		Name:        name,
		IdentityKey: pub,
	})
	if err != nil {
		return err
	}

	resp, err := http.Post(apiURL("/accounts"), "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	return checkStatus(resp)
}

func registerDevice(args []string) error {
	if len(args) != 3 {
		usage()
	}

	id, deviceID, n, err := identityDeviceCount(args)
	if err != nil {
		return err
	}

	bundles, err := prekey.GeneratePool(0, n)
	if err != nil {
		return err
	}

	body, err := json.Marshal(&model.RegisterDeviceRequest{
		Device:  deviceID,
		Bundles: bundles,
	})
	if err != nil {
		return err
	}

	resp, err := signedRequest(id, http.MethodPost, "/devices", body)
	if err != nil {
		return err
	}
	return checkStatus(resp)
}

func replenish(args []string) error {
	if len(args) != 3 {
		usage()
	}

	id, deviceID, n, err := identityDeviceCount(args)
	if err != nil {
		return err
	}

	bundles, err := prekey.GeneratePool(0, n)
	if err != nil {
		return err
	}

	body, err := json.Marshal(&model.ReplenishRequest{
		Device:  deviceID,
		Bundles: bundles,
	})
	if err != nil {
		return err
	}

	resp, err := signedRequest(id, http.MethodPost, "/pkbs/replenish", body)
	if err != nil {
		return err
	}
	return checkStatus(resp)
}

func withdraw(args []string) error {
	if len(args) < 3 {
		usage()
	}

	id, err := loadIdentity(args[0])
	if err != nil {
		return err
	}
	requestID := args[1]

	var wanted []model.DeviceKey
	for _, arg := range args[2:] {
		account, device, found := strings.Cut(arg, ":")
		if !found {
			return fmt.Errorf("wanted key %q is not account:device", arg)
		}
		d, err := strconv.ParseUint(device, 10, 32)
		if err != nil {
			return fmt.Errorf("wanted key %q is not account:device", arg)
		}
		wanted = append(wanted, model.DeviceKey{
			Account: model.AccountID(account),
			Device:  model.DeviceID(d),
		})
	}

	body, err := json.Marshal(&model.WithdrawRequest{
		RequestID: requestID,
		Wanted:    wanted,
	})
	if err != nil {
		return err
	}

	resp, err := signedRequest(id, http.MethodPost, "/pkbs/withdraw", body)
	if err != nil {
		return err
	}
	return checkStatus(resp)
}

func takeResponse(args []string) error {
	if len(args) != 2 {
		usage()
	}

	id, err := loadIdentity(args[0])
	if err != nil {
		return err
	}

	resp, err := signedRequest(id, http.MethodGet, fmt.Sprintf("/responses/%s", args[1]), nil)
	if err != nil {
		return err
	}
	if err := checkStatus(resp); err != nil {
		return err
	}

	return printBody(resp)
}

func listDevices(args []string) error {
	if len(args) != 1 {
		usage()
	}

	resp, err := http.Get(apiURL(fmt.Sprintf("/accounts/%s/devices", args[0])))
	if err != nil {
		return err
	}
	if err := checkStatus(resp); err != nil {
		return err
	}

	return printBody(resp)
}

// listen attaches a websocket and prints every withdrawal response pushed to
// this account until interrupted.
func listen(args []string) error {
	if len(args) != 1 {
		usage()
	}

	id, err := loadIdentity(args[0])
	if err != nil {
		return err
	}

	u := url.URL{
		Scheme: "ws",
		Host:   host,
		Path:   "/init",
	}

	header := http.Header{}
	signHeader(header, id, http.MethodGet, "/init", nil)

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		return err
	}
	defer conn.Close()

	for {
		var resp model.WithdrawalResponse
		if err := conn.ReadJSON(&resp); err != nil {
			return err
		}

		data, _ := json.MarshalIndent(&resp, "", "  ")
		fmt.Println(string(data))
	}
}

func identityDeviceCount(args []string) (*identityFile, model.DeviceID, int, error) {
	id, err := loadIdentity(args[0])
	if err != nil {
		return nil, 0, 0, err
	}

	deviceID, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("invalid device id %q", args[1])
	}

	n, err := strconv.Atoi(args[2])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("invalid bundle count %q", args[2])
	}

	return id, model.DeviceID(deviceID), n, nil
}

func loadIdentity(keyfile string) (*identityFile, error) {
	data, err := os.ReadFile(keyfile)
	if err != nil {
		return nil, err
	}

	var id identityFile
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, err
	}

	return &id, nil
}

func signHeader(header http.Header, id *identityFile, method string, path string, body []byte) {
	sig := ed25519.Sign(ed25519.PrivateKey(id.PrivKey), auth.SigningPayload(method, path, body))
	header.Set(auth.AccountHeader, id.Name)
	header.Set(auth.SignatureHeader, base64.StdEncoding.EncodeToString(sig))
}

func signedRequest(id *identityFile, method string, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequest(method, apiURL(path), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	signHeader(req.Header, id, method, path, body)

	return http.DefaultClient.Do(req)
}

func apiURL(path string) string {
	u := url.URL{
		Scheme: "http",
		Host:   host,
		Path:   path,
	}
	return u.String()
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}

func printBody(resp *http.Response) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
