package auth_test

import (
	"context"
	"sync"

	"github.com/praiagrande/sst-portal/internal/identity"
)

type fakeGateway struct {
	mu sync.Mutex

	token   string
	authErr error
	regErr  error
	ident   *identity.Identity
	whoErr  error

	logoutErr error

	authCalls   int
	emails      []string
	whoCalls    int
	logoutCalls []string
	profiles    []identity.Profile
}

func (f *fakeGateway) Authenticate(ctx context.Context, email, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls++
	f.emails = append(f.emails, email)
	if f.authErr != nil {
		return "", f.authErr
	}
	return f.token, nil
}

func (f *fakeGateway) Register(ctx context.Context, profile identity.Profile, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles = append(f.profiles, profile)
	return f.regErr
}

func (f *fakeGateway) WhoAmI(ctx context.Context, token string) (*identity.Identity, error) {
	if token == "" {
		return nil, identity.ErrUnauthenticated
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.whoCalls++
	if f.whoErr != nil {
		return nil, f.whoErr
	}
	if f.ident == nil {
		return nil, identity.ErrUnauthenticated
	}
	ident := *f.ident
	return &ident, nil
}

func (f *fakeGateway) Logout(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls = append(f.logoutCalls, token)
	return f.logoutErr
}

func (f *fakeGateway) calls() (auth, who int, logouts []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authCalls, f.whoCalls, append([]string(nil), f.logoutCalls...)
}

func sampleIdentity() *identity.Identity {
	return &identity.Identity{ID: "7", Email: "ana@empresa.com", Cargo: "Técnica de Segurança", FirstName: "Ana", LastName: "Silva"}
}
