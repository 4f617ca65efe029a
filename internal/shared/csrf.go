package shared

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

const (
	// CSRFStateKey is where the token lives inside UIState.
	CSRFStateKey = "csrf_token"
	// CSRFFormField is the form field name carrying the token.
	CSRFFormField = "csrf_token"
	// CSRFHeader is accepted as an alternative to the form field.
	CSRFHeader = "X-CSRF-Token"
)

// CSRFManager issues and verifies tokens bound to a UIState.
type CSRFManager struct {
	secret []byte
}

// NewCSRFManager returns a CSRFManager keyed by secret.
func NewCSRFManager(secret string) *CSRFManager {
	return &CSRFManager{secret: []byte(secret)}
}

// EnsureToken returns the state's token, minting one when absent.
func (m *CSRFManager) EnsureToken(st *UIState) (string, error) {
	if st == nil {
		return "", ErrUIStateMissing
	}
	if token := st.Get(CSRFStateKey); token != "" {
		return token, nil
	}
	token, err := m.generateToken(st.ID)
	if err != nil {
		return "", err
	}
	st.Set(CSRFStateKey, token)
	return token, nil
}

// VerifyToken compares token with the one stored in st.
func (m *CSRFManager) VerifyToken(st *UIState, token string) error {
	if st == nil || token == "" {
		return ErrCSRFTokenMissing
	}
	expected := st.Get(CSRFStateKey)
	if expected == "" {
		return ErrCSRFTokenMissing
	}
	if !hmac.Equal([]byte(expected), []byte(token)) {
		return ErrCSRFTokenMismatch
	}
	return nil
}

func (m *CSRFManager) generateToken(stateID string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, m.secret)
	_, _ = mac.Write([]byte(stateID))
	_, _ = mac.Write([]byte{'|'})
	_, _ = mac.Write(nonce)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}
