package auth

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"io"
	"net/http"

	"e2ee_keyserver/internal/model"
)

var (
	ErrUnauthenticated = errors.New("request origin could not be authenticated")
	ErrUnknownAccount  = errors.New("account does not exist")
)

const (
	AccountHeader   = "X-Account"
	SignatureHeader = "X-Signature"
)

type (
	// AccountDirectory resolves an account name to its stored record.
	// A nil account with a nil error means the name is unknown.
	AccountDirectory interface {
		GetByName(ctx context.Context, name string) (*model.Account, error)
	}

	// Authenticator resolves the caller of every entry point. A request
	// carries the account name and an ed25519 signature over
	// method|path|body, verified against the account's identity key.
	Authenticator struct {
		accounts AccountDirectory
	}
)

func NewAuthenticator(accounts AccountDirectory) *Authenticator {
	return &Authenticator{
		accounts: accounts,
	}
}

// SigningPayload is the byte string a caller signs for a request.
func SigningPayload(method string, path string, body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(method)
	buf.WriteByte('|')
	buf.WriteString(path)
	buf.WriteByte('|')
	buf.Write(body)
	return buf.Bytes()
}

// Authenticate resolves the caller of r and returns the request body. The
// body is fully consumed here so the signature covers exactly what the
// handler will decode.
func (a *Authenticator) Authenticate(r *http.Request) (model.AccountID, []byte, error) {
	name := r.Header.Get(AccountHeader)
	if name == "" {
		return "", nil, ErrUnauthenticated
	}

	sig, err := base64.StdEncoding.DecodeString(r.Header.Get(SignatureHeader))
	if err != nil {
		return "", nil, ErrUnauthenticated
	}

	var body []byte
	if r.Body != nil {
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return "", nil, err
		}
	}

	account, err := a.accounts.GetByName(r.Context(), name)
	if err != nil {
		return "", nil, err
	}

	if account == nil {
		return "", nil, ErrUnknownAccount
	}

	if len(account.IdentityKey) != ed25519.PublicKeySize {
		return "", nil, ErrUnauthenticated
	}

	payload := SigningPayload(r.Method, r.URL.Path, body)
	if !ed25519.Verify(ed25519.PublicKey(account.IdentityKey), payload, sig) {
		return "", nil, ErrUnauthenticated
	}

	return model.AccountID(account.Name), body, nil
}
