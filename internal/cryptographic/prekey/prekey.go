package prekey

import (
	"crypto/rand"
	"encoding/json"
	"fmt"

	"e2ee_keyserver/internal/model"

	"golang.org/x/crypto/curve25519"
)

type (
	// Bundle is the client-side shape of a one-time pre-key bundle: a key
	// id and a fresh X25519 public key. The server never parses this; it
	// travels as opaque bytes.
	Bundle struct {
		KeyID  uint32 `json:"key_id"`
		PubKey []byte `json:"pub_key"`
	}
)

// Generate creates one serialized pre-key bundle with a fresh X25519 key.
// The private half stays with the caller.
func Generate(keyID uint32) (model.PreKeyBundle, [32]byte, error) {
	var priv, pub [32]byte
	if _, err := rand.Read(priv[:]); err != nil {
		return nil, priv, fmt.Errorf("failed to generate private key: %w", err)
	}
	curve25519.ScalarBaseMult(&pub, &priv)

	data, err := json.Marshal(&Bundle{
		KeyID:  keyID,
		PubKey: pub[:],
	})
	if err != nil {
		return nil, priv, err
	}

	return model.PreKeyBundle(data), priv, nil
}

// GeneratePool creates n bundles with sequential key ids starting at first.
func GeneratePool(first uint32, n int) ([]model.PreKeyBundle, error) {
	bundles := make([]model.PreKeyBundle, 0, n)
	for i := 0; i < n; i++ {
		pkb, _, err := Generate(first + uint32(i))
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, pkb)
	}
	return bundles, nil
}
