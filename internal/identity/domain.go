package identity

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Identity is the authenticated user as reported by the identity service.
type Identity struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Cargo     string `json:"cargo"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// FullName joins first and last name.
func (i Identity) FullName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

// UnmarshalJSON accepts numeric or string ids.
func (i *Identity) UnmarshalJSON(data []byte) error {
	type wire struct {
		ID        json.RawMessage `json:"id"`
		Email     string          `json:"email"`
		Cargo     string          `json:"cargo"`
		FirstName string          `json:"first_name"`
		LastName  string          `json:"last_name"`
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*i = Identity{
		ID:        rawID(w.ID),
		Email:     w.Email,
		Cargo:     w.Cargo,
		FirstName: w.FirstName,
		LastName:  w.LastName,
	}
	return nil
}

func (i Identity) empty() bool {
	return i.ID == "" && i.Email == ""
}

func rawID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Profile carries the registration data forwarded to the identity service.
type Profile struct {
	Email     string
	Cargo     string
	FirstName string
	LastName  string
}

// Endpoints holds one upstream URL per identity operation.
type Endpoints struct {
	Login    string
	Register string
	Me       string
	Logout   string
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	Error string `json:"error"`
}

type registerRequest struct {
	Email        string `json:"email"`
	Cargo        string `json:"cargo"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PasswordHash string `json:"password_hash"`
}

type logoutRequest struct {
	Token string `json:"token"`
}

// decodeIdentity normalises the shapes the service is known to return:
// a bare record, a list whose first element is the record, or a record
// wrapped under "user". Anything else yields nil.
func decodeIdentity(body []byte) (*Identity, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}
	switch body[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, nil
		}
		return decodeIdentity(list[0])
	case '{':
		var envelope struct {
			User json.RawMessage `json:"user"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(envelope.User)) > 0 && !bytes.Equal(bytes.TrimSpace(envelope.User), []byte("null")) {
			return decodeIdentity(envelope.User)
		}
		var ident Identity
		if err := json.Unmarshal(body, &ident); err != nil {
			return nil, err
		}
		if ident.empty() {
			return nil, nil
		}
		return &ident, nil
	default:
		return nil, nil
	}
}
