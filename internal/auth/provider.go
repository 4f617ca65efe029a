// Package auth exposes the current identity to handlers and serves the
// login, registration and logout flows.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/praiagrande/sst-portal/internal/access"
	"github.com/praiagrande/sst-portal/internal/identity"
)

// Gateway is the subset of identity.Client used by this package.
type Gateway interface {
	Authenticate(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, profile identity.Profile, password string) error
	WhoAmI(ctx context.Context, token string) (*identity.Identity, error)
	Logout(ctx context.Context, token string) error
}

// State of a Provider.
type State int

const (
	StateLoading State = iota
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "loading"
	}
}

// LookupFunc resolves a token to an identity.
type LookupFunc func(ctx context.Context, token string) (*identity.Identity, error)

// Provider holds the identity for one page activation. It never redirects;
// consumers that need an identity decide what to do with Anonymous.
type Provider struct {
	mu           sync.Mutex
	gateway      Gateway
	lookup       LookupFunc
	logger       *slog.Logger
	secureCookie bool

	token      string
	state      State
	ident      *identity.Identity
	failure    error
	generation uint64
}

// ProviderOptions configures NewProvider.
type ProviderOptions struct {
	Logger       *slog.Logger
	SecureCookie bool
	// Lookup overrides gateway.WhoAmI, e.g. to collapse concurrent checks.
	Lookup LookupFunc
}

// NewProvider enters Loading and resolves the identity with exactly one
// lookup.
func NewProvider(ctx context.Context, gateway Gateway, token string, opts ProviderOptions) *Provider {
	p := &Provider{
		gateway:      gateway,
		lookup:       opts.Lookup,
		logger:       opts.Logger,
		secureCookie: opts.SecureCookie,
		token:        token,
		state:        StateLoading,
	}
	if p.lookup == nil {
		p.lookup = gateway.WhoAmI
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.resolve(ctx)
	return p
}

// Refresh re-enters Loading and resolves again.
func (p *Provider) Refresh(ctx context.Context) {
	p.resolve(ctx)
}

func (p *Provider) resolve(ctx context.Context) {
	p.mu.Lock()
	p.generation++
	gen := p.generation
	token := p.token
	p.state = StateLoading
	p.ident = nil
	p.failure = nil
	p.mu.Unlock()

	ident, err := p.lookup(ctx, token)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation {
		return
	}
	if err != nil || ident == nil {
		if err == nil {
			err = identity.ErrUnauthenticated
		}
		if identity.KindOf(err) != identity.KindUnauthenticated {
			p.logger.Warn("identity check failed", slog.Any("error", err))
		}
		p.state = StateAnonymous
		p.failure = err
		return
	}
	p.state = StateAuthenticated
	p.ident = ident
}

// State returns the current state.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Identity returns a copy of the identity when authenticated.
func (p *Provider) Identity() (*identity.Identity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateAuthenticated || p.ident == nil {
		return nil, false
	}
	ident := *p.ident
	return &ident, true
}

// Err returns why the provider is Anonymous, or nil.
func (p *Provider) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failure
}

// Logout notifies the identity service, clears the session cookie whatever
// the upstream said, forces Anonymous and returns where to navigate next.
func (p *Provider) Logout(ctx context.Context, w http.ResponseWriter) string {
	p.mu.Lock()
	token := p.token
	p.generation++
	p.token = ""
	p.state = StateAnonymous
	p.ident = nil
	p.failure = nil
	p.mu.Unlock()

	if err := p.gateway.Logout(ctx, token); err != nil {
		p.logger.Warn("upstream logout", slog.Any("error", err))
	}
	identity.ClearSessionCookie(w, p.secureCookie)
	return access.LoginPath
}

type providerContextKey struct{}

// ContextWithProvider stores p in ctx.
func ContextWithProvider(ctx context.Context, p *Provider) context.Context {
	return context.WithValue(ctx, providerContextKey{}, p)
}

// FromContext returns the request's Provider, or nil.
func FromContext(ctx context.Context) *Provider {
	p, _ := ctx.Value(providerContextKey{}).(*Provider)
	return p
}

// CurrentIdentity is a nil-safe shortcut over FromContext.
func CurrentIdentity(ctx context.Context) (*identity.Identity, bool) {
	p := FromContext(ctx)
	if p == nil {
		return nil, false
	}
	return p.Identity()
}

// RequireIdentity returns the identity or answers the request itself and
// reports false. A rejected token is cleared before redirecting to the login
// page so the guard does not bounce the browser back; an unreachable identity
// service yields 503 and keeps the cookie.
func RequireIdentity(w http.ResponseWriter, r *http.Request) (*identity.Identity, bool) {
	p := FromContext(r.Context())
	if p == nil {
		http.Redirect(w, r, access.LoginPath, http.StatusSeeOther)
		return nil, false
	}
	if ident, ok := p.Identity(); ok {
		return ident, true
	}
	err := p.Err()
	if identity.KindOf(err) == identity.KindUpstreamUnavailable {
		http.Error(w, "Serviço de autenticação indisponível", http.StatusServiceUnavailable)
		return nil, false
	}
	if identity.TokenFromRequest(r) != "" {
		identity.ClearSessionCookie(w, p.secureCookie)
	}
	http.Redirect(w, r, access.LoginPath, http.StatusSeeOther)
	return nil, false
}
