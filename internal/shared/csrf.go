package shared

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

const (
	// CSRFSessionKey is the session value holding the current token.
	CSRFSessionKey = "csrf_token"
	// CSRFFormField is the hidden form field every POST form carries.
	CSRFFormField = "csrf_token"
	// CSRFHeader is accepted for fetch-style posts.
	CSRFHeader = "X-CSRF-Token"
)

// CSRFManager issues synchronizer tokens. A token is "<nonce>.<mac>" where
// mac signs the session id and nonce, so a token copied into another session
// fails even if it leaked.
type CSRFManager struct {
	secret []byte
}

// NewCSRFManager returns a CSRFManager signing with secret.
func NewCSRFManager(secret string) *CSRFManager {
	return &CSRFManager{secret: []byte(secret)}
}

// EnsureToken returns the session token, minting one on first use.
func (m *CSRFManager) EnsureToken(_ context.Context, sess *Session) (string, error) {
	if sess == nil {
		return "", ErrCSRFTokenMissing
	}
	if token := sess.Get(CSRFSessionKey); token != "" {
		return token, nil
	}
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(nonce)
	token := encoded + "." + m.mac(sess.ID, encoded)
	sess.Set(CSRFSessionKey, token)
	return token, nil
}

// Rotate drops the current token so the next page issues a fresh one.
func (m *CSRFManager) Rotate(sess *Session) {
	if sess != nil {
		sess.Delete(CSRFSessionKey)
	}
}

// VerifyToken checks token against the session copy and its signature.
func (m *CSRFManager) VerifyToken(_ context.Context, sess *Session, token string) error {
	if sess == nil || token == "" {
		return ErrCSRFTokenMissing
	}
	expected := sess.Get(CSRFSessionKey)
	if expected == "" {
		return ErrCSRFTokenMissing
	}
	if !hmac.Equal([]byte(expected), []byte(token)) {
		return ErrCSRFTokenMismatch
	}
	nonce, mac, ok := strings.Cut(token, ".")
	if !ok || !hmac.Equal([]byte(mac), []byte(m.mac(sess.ID, nonce))) {
		return ErrCSRFTokenMismatch
	}
	return nil
}

func (m *CSRFManager) mac(sessionID, nonce string) string {
	h := hmac.New(sha256.New, m.secret)
	_, _ = h.Write([]byte(sessionID))
	_, _ = h.Write([]byte{'|'})
	_, _ = h.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
