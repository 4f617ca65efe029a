package mailing

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/praiagrande/sst-portal/internal/auth"
	"github.com/praiagrande/sst-portal/internal/identity"
	"github.com/praiagrande/sst-portal/internal/platform/httpx"
	"github.com/praiagrande/sst-portal/internal/shared"
	"github.com/praiagrande/sst-portal/internal/view"
)

// PagePath is where the dispatch form lives.
const PagePath = "/email_acesso_soc"

const (
	msgNoRecipients = "Destinatários obrigatórios"
	msgNoValidLines = "Nenhum destinatário válido encontrado."
	msgSendFailed   = "Erro ao enviar e-mails"
	msgSent         = "E-mails enviados com sucesso!"
	msgAnonymous    = "Usuário não autenticado"
)

// Handler exposes the e-mail dispatch form and API.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	templates   *view.Engine
	csrfManager *shared.CSRFManager
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrfManager: csrf}
}

// MountAPIRoutes registers POST /envio-email on an /api router.
func (h *Handler) MountAPIRoutes(r chi.Router) {
	r.Post("/envio-email", h.apiSend)
}

// MountPages registers the form routes.
func (h *Handler) MountPages(r chi.Router) {
	r.Get(PagePath, h.showForm)
	r.Post(PagePath, h.handleForm)
}

type pageData struct {
	Destinatarios string
	Errors        map[string]string
}

func senderFrom(ident *identity.Identity) Sender {
	return Sender{Nome: ident.FirstName, Cargo: ident.Cargo}
}

func (h *Handler) apiSend(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.CurrentIdentity(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, msgAnonymous)
		return
	}
	var d Dispatch
	if err := httpx.DecodeJSON(r, &d); err != nil {
		httpx.Error(w, http.StatusBadRequest, msgNoRecipients)
		return
	}
	d.Remetente = senderFrom(ident)

	if err := h.service.Send(r.Context(), d); err != nil {
		if errors.Is(err, ErrNoRecipients) {
			httpx.Error(w, http.StatusBadRequest, msgNoRecipients)
			return
		}
		h.logger.Error("send e-mails", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, msgSendFailed)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	h.render(w, r, ident, http.StatusOK, pageData{}, "")
}

func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	raw := r.PostFormValue("destinatarios")
	recipients := ParseRecipients(raw)
	if len(recipients) == 0 {
		data := pageData{Destinatarios: raw, Errors: map[string]string{"Destinatarios": msgNoValidLines}}
		h.render(w, r, ident, http.StatusBadRequest, data, "")
		return
	}

	// Sender always comes from the identity, never from the form.
	err := h.service.Send(r.Context(), Dispatch{Remetente: senderFrom(ident), Destinatarios: recipients})
	if err != nil {
		h.logger.Error("send e-mails", slog.Any("error", err))
		h.render(w, r, ident, http.StatusBadGateway, pageData{Destinatarios: raw}, msgSendFailed)
		return
	}
	if st := shared.UIStateFromContext(r.Context()); st != nil {
		st.AddFlash(shared.FlashMessage{Kind: "success", Message: msgSent})
	}
	http.Redirect(w, r, PagePath, http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, ident *identity.Identity, status int, data pageData, errMsg string) {
	td := view.NewTemplateData(r, h.csrfManager, "E-mail de acesso SOC", data)
	td.Identity = ident
	td.Error = errMsg
	if status != http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, "pages/email.html", td); err != nil {
		h.logger.Error("render e-mail page", slog.Any("error", err))
	}
}
