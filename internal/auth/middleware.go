package auth

import (
	"context"
	"log/slog"
	"net/http"

	"golang.org/x/sync/singleflight"

	"github.com/praiagrande/sst-portal/internal/identity"
)

// SessionMiddleware attaches a freshly resolved Provider to every request.
// Identical identity checks that are in flight at the same moment share one
// upstream call; results are never kept once the call returns.
type SessionMiddleware struct {
	gateway      Gateway
	logger       *slog.Logger
	secureCookie bool
	group        singleflight.Group
}

// NewSessionMiddleware constructs a SessionMiddleware.
func NewSessionMiddleware(gateway Gateway, logger *slog.Logger, secureCookie bool) *SessionMiddleware {
	return &SessionMiddleware{gateway: gateway, logger: logger, secureCookie: secureCookie}
}

// Handler implements the middleware.
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := identity.TokenFromRequest(r)
		p := NewProvider(r.Context(), m.gateway, token, ProviderOptions{
			Logger:       m.logger,
			SecureCookie: m.secureCookie,
			Lookup:       m.lookup,
		})
		next.ServeHTTP(w, r.WithContext(ContextWithProvider(r.Context(), p)))
	})
}

func (m *SessionMiddleware) lookup(ctx context.Context, token string) (*identity.Identity, error) {
	if token == "" {
		return m.gateway.WhoAmI(ctx, token)
	}
	// The shared call outlives any single caller; each caller still stops
	// waiting when its own request goes away.
	detached := context.WithoutCancel(ctx)
	ch := m.group.DoChan(token, func() (interface{}, error) {
		return m.gateway.WhoAmI(detached, token)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		ident, _ := res.Val.(*identity.Identity)
		if ident == nil {
			return nil, identity.ErrUnauthenticated
		}
		copied := *ident
		return &copied, nil
	}
}
