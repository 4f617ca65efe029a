package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/praiagrande/sst-portal/internal/auth"
	"github.com/praiagrande/sst-portal/internal/identity"
	"github.com/praiagrande/sst-portal/internal/platform/httpx"
	"github.com/praiagrande/sst-portal/internal/shared"
	"github.com/praiagrande/sst-portal/internal/view"
)

// Page paths.
const (
	LTCATPath        = "/ltcat"
	LTCATDocxPath    = "/ltcat/docx"
	PsychosocialPath = "/relatorio_psicossocial"
)

const (
	msgNoFile        = "Nenhum arquivo enviado."
	msgTooLarge      = "Arquivo muito grande."
	msgUpstream      = "Erro no n8n"
	msgInvalidFields = "Dados do LTCAT inválidos."
	msgAnonymous     = "Usuário não autenticado"

	multipartMemory = 8 << 20
)

var errNoFile = errors.New("report: no file")

// Handler manages document endpoints.
type Handler struct {
	client      *Client
	logger      *slog.Logger
	templates   *view.Engine
	csrfManager *shared.CSRFManager
	maxUpload   int64
}

// NewHandler creates a report handler.
func NewHandler(client *Client, logger *slog.Logger, templates *view.Engine, csrf *shared.CSRFManager, maxUpload int64) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUpload <= 0 {
		maxUpload = 20 << 20
	}
	return &Handler{client: client, logger: logger, templates: templates, csrfManager: csrf, maxUpload: maxUpload}
}

// MountAPIRoutes registers the JSON/binary endpoints on an /api router.
func (h *Handler) MountAPIRoutes(r chi.Router) {
	r.Post("/upload", h.apiUpload)
	r.Post("/gerar-docx", h.apiGenerateDOCX)
	r.Post("/upload-pdf", h.apiUploadPDF)
}

// MountPages registers the upload forms.
func (h *Handler) MountPages(r chi.Router) {
	r.Get(LTCATPath, h.showLTCAT)
	r.Post(LTCATPath, h.handleLTCAT)
	r.Post(LTCATDocxPath, h.handleLTCATDocx)
	r.Get(PsychosocialPath, h.showPsychosocial)
	r.Post(PsychosocialPath, h.handlePsychosocial)
}

func (h *Handler) apiUpload(w http.ResponseWriter, r *http.Request) {
	if !h.requireAPIIdentity(w, r) {
		return
	}
	file, header, err := h.formFile(w, r)
	if err != nil {
		h.respondUploadError(w, err)
		return
	}
	defer file.Close()

	res, err := h.client.ExtractLTCAT(r.Context(), header.Filename, file)
	if err != nil {
		h.respondAPIError(w, "ltcat extract", err, true)
		return
	}
	if !res.IsFile() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(res.JSON)
		return
	}
	writeFile(w, res, false)
}

func (h *Handler) apiGenerateDOCX(w http.ResponseWriter, r *http.Request) {
	if !h.requireAPIIdentity(w, r) {
		return
	}
	var fields json.RawMessage
	if err := httpx.DecodeJSON(r, &fields); err != nil {
		httpx.Error(w, http.StatusBadRequest, msgInvalidFields)
		return
	}
	res, err := h.client.GenerateDOCX(r.Context(), fields)
	if err != nil {
		h.respondAPIError(w, "ltcat docx", err, false)
		return
	}
	writeFile(w, res, false)
}

func (h *Handler) apiUploadPDF(w http.ResponseWriter, r *http.Request) {
	if !h.requireAPIIdentity(w, r) {
		return
	}
	file, header, err := h.formFile(w, r)
	if err != nil {
		h.respondUploadError(w, err)
		return
	}
	defer file.Close()

	res, err := h.client.GeneratePsychosocial(r.Context(), header.Filename, file)
	if err != nil {
		h.respondAPIError(w, "psychosocial report", err, false)
		return
	}
	writeFile(w, res, true)
}

type ltcatPageData struct {
	Empresa string
	Fields  string
}

func (h *Handler) showLTCAT(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	h.render(w, r, ident, http.StatusOK, "pages/ltcat.html", "LTCAT", ltcatPageData{}, "")
}

func (h *Handler) handleLTCAT(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	file, header, err := h.formFile(w, r)
	if err != nil {
		status, msg := uploadErrorStatus(err)
		h.render(w, r, ident, status, "pages/ltcat.html", "LTCAT", ltcatPageData{}, msg)
		return
	}
	defer file.Close()

	res, err := h.client.ExtractLTCAT(r.Context(), header.Filename, file)
	if err != nil {
		h.logger.Error("ltcat extract", slog.Any("error", err))
		h.render(w, r, ident, pageErrorStatus(err), "pages/ltcat.html", "LTCAT", ltcatPageData{}, "Falha ao processar o PDF.")
		return
	}
	if res.IsFile() {
		writeFile(w, res, false)
		return
	}

	data := ltcatPageData{Fields: string(res.JSON)}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, res.JSON, "", "  "); err == nil {
		data.Fields = pretty.String()
	}
	var summary struct {
		NomeEmpresa string `json:"nome_empresa"`
	}
	_ = json.Unmarshal(res.JSON, &summary)
	data.Empresa = summary.NomeEmpresa
	if st := shared.UIStateFromContext(r.Context()); st != nil {
		st.AddFlash(shared.FlashMessage{Kind: "success", Message: "Os dados foram extraídos com sucesso!"})
	}
	h.render(w, r, ident, http.StatusOK, "pages/ltcat.html", "LTCAT", data, "")
}

func (h *Handler) handleLTCATDocx(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	fields := r.PostFormValue("dados")
	if !json.Valid([]byte(fields)) {
		h.render(w, r, ident, http.StatusBadRequest, "pages/ltcat.html", "LTCAT", ltcatPageData{}, msgInvalidFields)
		return
	}
	res, err := h.client.GenerateDOCX(r.Context(), json.RawMessage(fields))
	if err != nil {
		h.logger.Error("ltcat docx", slog.Any("error", err))
		h.render(w, r, ident, pageErrorStatus(err), "pages/ltcat.html", "LTCAT", ltcatPageData{Fields: fields}, "Erro ao gerar documento")
		return
	}
	writeFile(w, res, false)
}

func (h *Handler) showPsychosocial(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	h.render(w, r, ident, http.StatusOK, "pages/psicossocial.html", "Relatório psicossocial", nil, "")
}

func (h *Handler) handlePsychosocial(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	file, header, err := h.formFile(w, r)
	if err != nil {
		status, msg := uploadErrorStatus(err)
		h.render(w, r, ident, status, "pages/psicossocial.html", "Relatório psicossocial", nil, msg)
		return
	}
	defer file.Close()

	res, err := h.client.GeneratePsychosocial(r.Context(), header.Filename, file)
	if err != nil {
		h.logger.Error("psychosocial report", slog.Any("error", err))
		h.render(w, r, ident, pageErrorStatus(err), "pages/psicossocial.html", "Relatório psicossocial", nil, "Erro ao gerar relatório")
		return
	}
	writeFile(w, res, true)
}

func (h *Handler) requireAPIIdentity(w http.ResponseWriter, r *http.Request) bool {
	if _, ok := auth.CurrentIdentity(r.Context()); ok {
		return true
	}
	httpx.Error(w, http.StatusUnauthorized, msgAnonymous)
	return false
}

func (h *Handler) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, err
		}
		return nil, nil, errNoFile
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, errNoFile
	}
	return file, header, nil
}

func uploadErrorStatus(err error) (int, string) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge, msgTooLarge
	}
	return http.StatusBadRequest, msgNoFile
}

func (h *Handler) respondUploadError(w http.ResponseWriter, err error) {
	status, msg := uploadErrorStatus(err)
	httpx.Error(w, status, msg)
}

// respondAPIError maps client failures to {error} bodies. Upstream statuses
// pass through; verbose echoes the backend's own text.
func (h *Handler) respondAPIError(w http.ResponseWriter, op string, err error, verbose bool) {
	h.logger.Error(op, slog.Any("error", err))
	var upstream *UpstreamError
	switch {
	case errors.As(err, &upstream):
		msg := msgUpstream
		if verbose && upstream.Body != "" {
			msg = upstream.Body
		}
		httpx.Error(w, upstream.Status, msg)
	case errors.Is(err, ErrMissingData):
		httpx.Error(w, http.StatusInternalServerError, "Campo 'dados.data' ausente no JSON.")
	default:
		httpx.Error(w, http.StatusInternalServerError, identity.MsgInternal)
	}
}

func pageErrorStatus(err error) int {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Status
	}
	return http.StatusBadGateway
}

// writeFile streams res as an attachment. rfc5987 selects the
// filename*=UTF-8'' form and exposes the name to scripts.
func writeFile(w http.ResponseWriter, res *Result, rfc5987 bool) {
	header := w.Header()
	header.Set("Content-Type", res.ContentType)
	header.Set("Content-Length", strconv.Itoa(len(res.Body)))
	if rfc5987 {
		name := res.FileName
		if unescaped, err := url.PathUnescape(name); err == nil {
			name = unescaped
		}
		escaped := url.PathEscape(name)
		header.Set("Content-Disposition", "attachment; filename*=UTF-8''"+escaped)
		header.Set("Access-Control-Expose-Headers", "Content-Disposition, filename")
		header.Set("filename", escaped)
	} else {
		header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.FileName}))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Body)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, ident *identity.Identity, status int, name, title string, data any, errMsg string) {
	td := view.NewTemplateData(r, h.csrfManager, title, data)
	td.Identity = ident
	td.Error = errMsg
	if status != http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, name, td); err != nil {
		h.logger.Error("render report page", slog.String("template", name), slog.Any("error", err))
	}
}
