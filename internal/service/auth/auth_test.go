package auth

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"net/http/httptest"
	"testing"

	"e2ee_keyserver/internal/model"

	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	accounts map[string]*model.Account
}

func (f *fakeDirectory) GetByName(_ context.Context, name string) (*model.Account, error) {
	return f.accounts[name], nil
}

func newIdentity(t *testing.T, name string) (*fakeDirectory, ed25519.PrivateKey) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	dir := &fakeDirectory{accounts: map[string]*model.Account{
		name: {Name: name, IdentityKey: pub},
	}}
	return dir, priv
}

func TestAuthenticator_ResolvesSignedCaller(t *testing.T) {
	dir, priv := newIdentity(t, "alice")
	a := NewAuthenticator(dir)

	body := []byte(`{"device":1}`)
	r := httptest.NewRequest("POST", "/devices", bytes.NewReader(body))
	sig := ed25519.Sign(priv, SigningPayload("POST", "/devices", body))
	r.Header.Set(AccountHeader, "alice")
	r.Header.Set(SignatureHeader, base64.StdEncoding.EncodeToString(sig))

	account, gotBody, err := a.Authenticate(r)
	require.NoError(t, err)
	require.Equal(t, model.AccountID("alice"), account)
	require.Equal(t, body, gotBody)
}

func TestAuthenticator_MissingAccountHeader(t *testing.T) {
	dir, _ := newIdentity(t, "alice")
	a := NewAuthenticator(dir)

	r := httptest.NewRequest("POST", "/devices", nil)
	_, _, err := a.Authenticate(r)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthenticator_UnknownAccount(t *testing.T) {
	dir, priv := newIdentity(t, "alice")
	a := NewAuthenticator(dir)

	r := httptest.NewRequest("POST", "/devices", nil)
	sig := ed25519.Sign(priv, SigningPayload("POST", "/devices", nil))
	r.Header.Set(AccountHeader, "mallory")
	r.Header.Set(SignatureHeader, base64.StdEncoding.EncodeToString(sig))

	_, _, err := a.Authenticate(r)
	require.ErrorIs(t, err, ErrUnknownAccount)
}

func TestAuthenticator_WrongKeyFails(t *testing.T) {
	dir, _ := newIdentity(t, "alice")
	a := NewAuthenticator(dir)

	_, otherPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	r := httptest.NewRequest("POST", "/devices", nil)
	sig := ed25519.Sign(otherPriv, SigningPayload("POST", "/devices", nil))
	r.Header.Set(AccountHeader, "alice")
	r.Header.Set(SignatureHeader, base64.StdEncoding.EncodeToString(sig))

	_, _, err = a.Authenticate(r)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthenticator_SignatureCoversBody(t *testing.T) {
	dir, priv := newIdentity(t, "alice")
	a := NewAuthenticator(dir)

	signedBody := []byte(`{"device":1}`)
	sentBody := []byte(`{"device":2}`)

	r := httptest.NewRequest("POST", "/devices", bytes.NewReader(sentBody))
	sig := ed25519.Sign(priv, SigningPayload("POST", "/devices", signedBody))
	r.Header.Set(AccountHeader, "alice")
	r.Header.Set(SignatureHeader, base64.StdEncoding.EncodeToString(sig))

	_, _, err := a.Authenticate(r)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthenticator_SignatureCoversPath(t *testing.T) {
	dir, priv := newIdentity(t, "alice")
	a := NewAuthenticator(dir)

	r := httptest.NewRequest("POST", "/pkbs/withdraw", nil)
	sig := ed25519.Sign(priv, SigningPayload("POST", "/pkbs/replenish", nil))
	r.Header.Set(AccountHeader, "alice")
	r.Header.Set(SignatureHeader, base64.StdEncoding.EncodeToString(sig))

	_, _, err := a.Authenticate(r)
	require.ErrorIs(t, err, ErrUnauthenticated)
}
