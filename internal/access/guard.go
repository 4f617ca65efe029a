// Package access decides, before any handler runs, whether a navigation may
// proceed based only on the presence of a session cookie.
package access

import (
	"net/http"
	"strings"

	"github.com/praiagrande/sst-portal/internal/identity"
)

// PathClass is the static classification of a request path.
type PathClass int

const (
	PathPrivate PathClass = iota
	PathPublic
	PathAPI
)

// Outcome of a guard decision.
type Outcome int

const (
	Allow Outcome = iota
	Redirect
)

// Redirect targets.
const (
	HomePath  = "/"
	LoginPath = "/login"
)

// Decision is the guard result.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Decide maps token presence and path class to a decision. It performs no
// I/O and never looks at the token itself.
func Decide(hasToken bool, class PathClass) Decision {
	switch class {
	case PathAPI:
		return Decision{Outcome: Allow}
	case PathPublic:
		if hasToken {
			return Decision{Outcome: Redirect, Location: HomePath}
		}
		return Decision{Outcome: Allow}
	default:
		if !hasToken {
			return Decision{Outcome: Redirect, Location: LoginPath}
		}
		return Decision{Outcome: Allow}
	}
}

// Classifier holds the static allow-list.
type Classifier struct {
	APIPrefix string
	Public    []string
}

// DefaultClassifier matches the portal routes.
func DefaultClassifier() Classifier {
	return Classifier{APIPrefix: "/api", Public: []string{"/login", "/register"}}
}

// Classify returns the class for path.
func (c Classifier) Classify(path string) PathClass {
	if path == "" {
		path = "/"
	}
	if c.APIPrefix != "" && (path == c.APIPrefix || strings.HasPrefix(path, c.APIPrefix+"/")) {
		return PathAPI
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	for _, p := range c.Public {
		if path == p {
			return PathPublic
		}
	}
	return PathPrivate
}

// Guard is the HTTP middleware form of Decide.
type Guard struct {
	classifier Classifier
	exempt     []string
}

// NewGuard builds a Guard. Paths under exempt prefixes bypass the guard
// entirely (assets, health, metrics).
func NewGuard(classifier Classifier, exempt ...string) *Guard {
	return &Guard{classifier: classifier, exempt: exempt}
}

// Middleware redirects silently according to Decide.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		for _, prefix := range g.exempt {
			if strings.HasPrefix(path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}
		hasToken := identity.TokenFromRequest(r) != ""
		decision := Decide(hasToken, g.classifier.Classify(path))
		if decision.Outcome == Redirect {
			http.Redirect(w, r, decision.Location, redirectStatus(r.Method))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// redirectStatus keeps navigations on 307 and turns form submissions into a
// plain GET of the target so their bodies are never replayed.
func redirectStatus(method string) int {
	if method == http.MethodGet || method == http.MethodHead {
		return http.StatusTemporaryRedirect
	}
	return http.StatusSeeOther
}
