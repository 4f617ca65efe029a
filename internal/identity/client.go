// Package identity forwards authentication operations to the external
// identity service and manages the session cookie that carries its token.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/praiagrande/sst-portal/internal/webhook"
)

// SessionTokenHeader carries the end-user token on identity lookups.
const SessionTokenHeader = "X-Session-Token"

const (
	opLogin    = "auth_login"
	opRegister = "auth_register"
	opMe       = "auth_me"
	opLogout   = "auth_logout"

	maxBodyBytes = 1 << 20
)

// Client is the identity gateway. It keeps no state between calls.
type Client struct {
	caller     *webhook.Caller
	endpoints  Endpoints
	bcryptCost int
	logger     *slog.Logger
}

// NewClient constructs a Client. Costs below 10 are raised to 10.
func NewClient(caller *webhook.Caller, endpoints Endpoints, bcryptCost int, logger *slog.Logger) *Client {
	if bcryptCost < 10 {
		bcryptCost = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{caller: caller, endpoints: endpoints, bcryptCost: bcryptCost, logger: logger}
}

// Authenticate exchanges credentials for a session token.
func (c *Client) Authenticate(ctx context.Context, email, password string) (string, error) {
	resp, err := c.caller.PostJSON(ctx, opLogin, c.endpoints.Login, loginRequest{Email: email, Password: password})
	if err != nil {
		c.logger.Error("identity login", slog.Any("error", err))
		return "", unavailable(err)
	}
	defer webhook.Drain(resp)

	var body loginResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := MsgLoginFailed
		if decodeErr == nil && strings.TrimSpace(body.Error) != "" {
			msg = body.Error
		}
		kind := KindAuthFailure
		switch resp.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			kind = KindInvalidCredentials
		}
		return "", &Error{Kind: kind, Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		c.logger.Error("identity login decode", slog.Any("error", decodeErr))
		return "", unavailable(decodeErr)
	}
	if body.Token == "" {
		return "", &Error{Kind: KindAuthFailure, Status: http.StatusBadGateway, Message: MsgLoginFailed, Err: errors.New("login response without token")}
	}
	return body.Token, nil
}

// Register hashes password and forwards the profile. Plaintext never leaves
// this process.
func (c *Client) Register(ctx context.Context, profile Profile, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.bcryptCost)
	if err != nil {
		return &Error{Kind: KindAuthFailure, Status: http.StatusInternalServerError, Message: MsgInternal, Err: fmt.Errorf("hash password: %w", err)}
	}
	payload := registerRequest{
		Email:        profile.Email,
		Cargo:        profile.Cargo,
		FirstName:    profile.FirstName,
		LastName:     profile.LastName,
		PasswordHash: string(hash),
	}
	resp, err := c.caller.PostJSON(ctx, opRegister, c.endpoints.Register, payload)
	if err != nil {
		c.logger.Error("identity register", slog.Any("error", err))
		return unavailable(err)
	}
	defer webhook.Drain(resp)

	switch {
	case resp.StatusCode == http.StatusConflict:
		return &Error{Kind: KindDuplicateAccount, Status: http.StatusConflict, Message: MsgDuplicate}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &Error{Kind: KindAuthFailure, Status: resp.StatusCode, Message: MsgRegisterFailed}
	}
	return nil
}

// WhoAmI resolves token to an identity. An empty token returns
// ErrUnauthenticated without contacting the service.
func (c *Client) WhoAmI(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoints.Me, nil)
	if err != nil {
		return nil, unavailable(err)
	}
	req.Header.Set(SessionTokenHeader, token)
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Accept", "application/json")

	resp, err := c.caller.Do(ctx, opMe, req)
	if err != nil {
		c.logger.Warn("identity me", slog.Any("error", err))
		return nil, unavailable(err)
	}
	defer webhook.Drain(resp)

	if resp.StatusCode >= 500 {
		return nil, unavailable(fmt.Errorf("identity me: status %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ErrUnauthenticated
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, unavailable(err)
	}
	ident, err := decodeIdentity(data)
	if err != nil {
		c.logger.Warn("identity me decode", slog.Any("error", err))
		return nil, ErrUnauthenticated
	}
	if ident == nil {
		return nil, ErrUnauthenticated
	}
	return ident, nil
}

// Logout asks the service to invalidate token. The result is informational:
// callers must clear the local cookie regardless.
func (c *Client) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	resp, err := c.caller.PostJSON(ctx, opLogout, c.endpoints.Logout, logoutRequest{Token: token})
	if err != nil {
		c.logger.Warn("identity logout", slog.Any("error", err))
		return unavailable(err)
	}
	defer webhook.Drain(resp)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("identity logout rejected", slog.Int("status", resp.StatusCode))
		return &Error{Kind: KindAuthFailure, Status: resp.StatusCode, Message: "Erro ao sair"}
	}
	return nil
}
