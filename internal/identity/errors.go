package identity

import (
	"errors"
	"net/http"
)

// ErrorKind classifies identity failures.
type ErrorKind int

const (
	// KindAuthFailure is a generic upstream rejection.
	KindAuthFailure ErrorKind = iota
	// KindUnauthenticated means no usable session; a state, not a fault.
	KindUnauthenticated
	// KindUpstreamUnavailable means the identity service could not be reached.
	KindUpstreamUnavailable
	// KindDuplicateAccount is a registration conflict.
	KindDuplicateAccount
	// KindInvalidCredentials is a rejected login.
	KindInvalidCredentials
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindDuplicateAccount:
		return "duplicate_account"
	case KindInvalidCredentials:
		return "invalid_credentials"
	default:
		return "auth_failure"
	}
}

// User-facing messages.
const (
	MsgLoginFailed    = "Erro ao autenticar"
	MsgRegisterFailed = "Erro no cadastro"
	MsgDuplicate      = "Usuário já existe"
	MsgInternal       = "Erro interno"
)

// Error is returned by every Client operation. Message is safe to show to
// the user; Err holds internals for logging only.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "identity: " + e.Kind.String() + ": " + e.Err.Error()
	}
	if e.Message != "" {
		return "identity: " + e.Kind.String() + ": " + e.Message
	}
	return "identity: " + e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrUnauthenticated) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// ErrUnauthenticated is the canonical anonymous result.
var ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Status: http.StatusUnauthorized}

// KindOf extracts the kind of err, defaulting to KindAuthFailure.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindAuthFailure
}

// StatusOf returns the HTTP status attached to err, or 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Status > 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the user-facing message attached to err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return MsgInternal
}

func unavailable(err error) *Error {
	return &Error{Kind: KindUpstreamUnavailable, Status: http.StatusInternalServerError, Message: MsgInternal, Err: err}
}
