package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/praiagrande/sst-portal/internal/access"
	"github.com/praiagrande/sst-portal/internal/identity"
	"github.com/praiagrande/sst-portal/internal/shared"
	"github.com/praiagrande/sst-portal/internal/view"
)

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

type registerPageData struct {
	Form   registerForm
	Errors map[string]string
}

// MountPublicPages registers the login and registration forms.
func (h *Handler) MountPublicPages(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.With(h.limiter).Post("/login", h.handleLogin)
	r.Get("/register", h.showRegister)
	r.With(h.limiter).Post("/register", h.handleRegister)
}

// MountPrivatePages registers pages that need a Provider in context.
func (h *Handler) MountPrivatePages(r chi.Router) {
	r.Get("/", h.showHome)
	r.Post("/logout", h.handleLogout)
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/login.html", "Login", loginPageData{}, "")
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := loginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	form.normalize()
	if errs := validationErrors(h.validator, form); len(errs) > 0 {
		form.Password = ""
		h.render(w, r, http.StatusBadRequest, "pages/login.html", "Login", loginPageData{Form: form, Errors: errs}, "")
		return
	}

	token, err := h.gateway.Authenticate(r.Context(), form.Email, form.Password)
	if err != nil {
		h.logFailure("login", err)
		form.Password = ""
		h.render(w, r, identity.StatusOf(err), "pages/login.html", "Login", loginPageData{Form: form}, identity.MessageOf(err))
		return
	}

	identity.SetSessionCookie(w, token, h.secureCookie)
	if st := shared.UIStateFromContext(r.Context()); st != nil {
		st.AddFlash(shared.FlashMessage{Kind: "success", Message: "Login realizado com sucesso!"})
	}
	http.Redirect(w, r, access.HomePath, http.StatusSeeOther)
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/register.html", "Cadastro", registerPageData{}, "")
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := registerForm{
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Email:     r.PostFormValue("email"),
		Cargo:     r.PostFormValue("cargo"),
		Password:  r.PostFormValue("password"),
	}
	form.normalize()
	if errs := validationErrors(h.validator, form); len(errs) > 0 {
		form.Password = ""
		h.render(w, r, http.StatusBadRequest, "pages/register.html", "Cadastro", registerPageData{Form: form, Errors: errs}, "")
		return
	}

	if err := h.gateway.Register(r.Context(), form.profile(), form.Password); err != nil {
		h.logFailure("register", err)
		form.Password = ""
		h.render(w, r, identity.StatusOf(err), "pages/register.html", "Cadastro", registerPageData{Form: form}, identity.MessageOf(err))
		return
	}

	if st := shared.UIStateFromContext(r.Context()); st != nil {
		st.AddFlash(shared.FlashMessage{Kind: "success", Message: "Cadastro realizado com sucesso! Faça login."})
	}
	http.Redirect(w, r, access.LoginPath, http.StatusSeeOther)
}

func (h *Handler) showHome(w http.ResponseWriter, r *http.Request) {
	if _, ok := RequireIdentity(w, r); !ok {
		return
	}
	h.render(w, r, http.StatusOK, "pages/home.html", "Início", nil, "")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	next := access.LoginPath
	if p := FromContext(r.Context()); p != nil {
		next = p.Logout(r.Context(), w)
	} else {
		identity.ClearSessionCookie(w, h.secureCookie)
	}
	shared.UIStateFromContext(r.Context()).Destroy()
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any, errMsg string) {
	td := view.NewTemplateData(r, h.csrfManager, title, data)
	td.Error = errMsg
	if ident, ok := CurrentIdentity(r.Context()); ok {
		td.Identity = ident
	}
	if status != http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, name, td); err != nil {
		h.logger.Error("render page", slog.String("template", name), slog.Any("error", err))
		if status == http.StatusOK {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}
