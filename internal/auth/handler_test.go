package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praiagrande/sst-portal/internal/auth"
	"github.com/praiagrande/sst-portal/internal/identity"
	"github.com/praiagrande/sst-portal/internal/shared"
	"github.com/praiagrande/sst-portal/internal/view"
	_ "github.com/praiagrande/sst-portal/testing"
)

func newAPIRouter(t *testing.T, gw *fakeGateway) http.Handler {
	t.Helper()
	templates, err := view.NewEngine()
	require.NoError(t, err)
	h := auth.NewHandler(nil, gw, templates, shared.NewCSRFManager("csrf"), false)
	sessions := auth.NewSessionMiddleware(gw, nil, false)
	r := chi.NewRouter()
	r.Route("/api/auth", func(r chi.Router) {
		h.MountAPIRoutes(r, sessions.Handler)
	})
	return r
}

func doJSON(router http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func sessionCookie(token string) *http.Cookie {
	return &http.Cookie{Name: identity.SessionCookieName, Value: token}
}

func TestAPILoginSetsSessionCookie(t *testing.T) {
	gw := &fakeGateway{token: "tok-123"}
	rec := doJSON(newAPIRouter(t, gw), http.MethodPost, "/api/auth/login", `{"email":"Ana@Empresa.com","password":"segredo1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	c := findCookie(rec, identity.SessionCookieName)
	require.NotNil(t, c)
	assert.Equal(t, "tok-123", c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, []string{"Ana@Empresa.com"}, gw.emails)
}

func TestAPILoginPreservesUpstreamStatusAndMessage(t *testing.T) {
	gw := &fakeGateway{authErr: &identity.Error{Kind: identity.KindInvalidCredentials, Status: http.StatusUnauthorized, Message: "Senha incorreta"}}
	rec := doJSON(newAPIRouter(t, gw), http.MethodPost, "/api/auth/login", `{"email":"ana@empresa.com","password":"segredo1"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Senha incorreta"}`, rec.Body.String())
	assert.Nil(t, findCookie(rec, identity.SessionCookieName))
}

func TestAPILoginUpstreamUnavailableIsGeneric(t *testing.T) {
	gw := &fakeGateway{authErr: &identity.Error{Kind: identity.KindUpstreamUnavailable, Status: http.StatusInternalServerError, Message: identity.MsgInternal}}
	rec := doJSON(newAPIRouter(t, gw), http.MethodPost, "/api/auth/login", `{"email":"ana@empresa.com","password":"segredo1"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Erro interno"}`, rec.Body.String())
}

func TestAPILoginValidation(t *testing.T) {
	gw := &fakeGateway{token: "tok"}
	router := newAPIRouter(t, gw)

	rec := doJSON(router, http.MethodPost, "/api/auth/login", `{"email":"not-an-email","password":"segredo1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Email inválido"}`, rec.Body.String())

	rec = doJSON(router, http.MethodPost, "/api/auth/login", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	authCalls, _, _ := gw.calls()
	assert.Zero(t, authCalls)
}

func TestAPIRegisterForwardsProfile(t *testing.T) {
	gw := &fakeGateway{}
	body := `{"first_name":" Ana ","last_name":"Silva","email":" ANA@empresa.com ","cargo":"Técnica","password":"segredo1"}`
	rec := doJSON(newAPIRouter(t, gw), http.MethodPost, "/api/auth/register", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.Len(t, gw.profiles, 1)
	assert.Equal(t, identity.Profile{Email: "ANA@empresa.com", Cargo: "Técnica", FirstName: "Ana", LastName: "Silva"}, gw.profiles[0])
}

func TestAPIRegisterDuplicate(t *testing.T) {
	gw := &fakeGateway{regErr: &identity.Error{Kind: identity.KindDuplicateAccount, Status: http.StatusConflict, Message: identity.MsgDuplicate}}
	body := `{"first_name":"Ana","last_name":"Silva","email":"ana@empresa.com","cargo":"Técnica","password":"segredo1"}`
	rec := doJSON(newAPIRouter(t, gw), http.MethodPost, "/api/auth/register", body)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"Usuário já existe"}`, rec.Body.String())
}

func TestAPIMeWithoutCookie(t *testing.T) {
	gw := &fakeGateway{ident: sampleIdentity()}
	rec := doJSON(newAPIRouter(t, gw), http.MethodGet, "/api/auth/me", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	_, who, _ := gw.calls()
	assert.Zero(t, who)
}

func TestAPIMeInvalidSession(t *testing.T) {
	gw := &fakeGateway{}
	rec := doJSON(newAPIRouter(t, gw), http.MethodGet, "/api/auth/me", "", sessionCookie("stale"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid session"}`, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestAPIMeReturnsIdentity(t *testing.T) {
	gw := &fakeGateway{ident: sampleIdentity()}
	rec := doJSON(newAPIRouter(t, gw), http.MethodGet, "/api/auth/me", "", sessionCookie("tok"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), `"user"`)
	assert.Contains(t, rec.Body.String(), `"email":"ana@empresa.com"`)
	_, who, _ := gw.calls()
	assert.Equal(t, 1, who)
}

func TestAPILogoutClearsCookieEvenWhenUpstreamFails(t *testing.T) {
	gw := &fakeGateway{logoutErr: assert.AnError}
	rec := doJSON(newAPIRouter(t, gw), http.MethodPost, "/api/auth/logout", "", sessionCookie("tok"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	c := findCookie(rec, identity.SessionCookieName)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.Less(t, c.MaxAge, 0)
	_, _, logouts := gw.calls()
	assert.Equal(t, []string{"tok"}, logouts)
}

func TestAPILoginRateLimited(t *testing.T) {
	gw := &fakeGateway{authErr: &identity.Error{Kind: identity.KindInvalidCredentials, Status: http.StatusUnauthorized, Message: "Senha incorreta"}}
	router := newAPIRouter(t, gw)

	var last *httptest.ResponseRecorder
	for i := 0; i < 11; i++ {
		last = doJSON(router, http.MethodPost, "/api/auth/login", `{"email":"ana@empresa.com","password":"segredo1"}`)
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
}

func TestPasswordLongerThanBcryptLimitIsRejected(t *testing.T) {
	gw := &fakeGateway{token: "tok"}
	router := newAPIRouter(t, gw)
	long := strings.Repeat("a", 73)

	rec := doJSON(router, http.MethodPost, "/api/auth/register",
		`{"first_name":"Ana","last_name":"Silva","email":"ana@empresa.com","cargo":"Técnica","password":"`+long+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Senha máxima de 72 caracteres"}`, rec.Body.String())
	assert.Empty(t, gw.profiles)

	rec = doJSON(router, http.MethodPost, "/api/auth/login", `{"email":"ana@empresa.com","password":"`+long+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Senha máxima de 72 caracteres"}`, rec.Body.String())

	// 40 runes but 80 bytes.
	rec = doJSON(router, http.MethodPost, "/api/auth/register",
		`{"first_name":"Ana","last_name":"Silva","email":"ana@empresa.com","cargo":"Técnica","password":"`+strings.Repeat("é", 40)+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(router, http.MethodPost, "/api/auth/register",
		`{"first_name":"Ana","last_name":"Silva","email":"ana@empresa.com","cargo":"Técnica","password":"`+strings.Repeat("a", 72)+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}
