package view

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/praiagrande/sst-portal/internal/identity"
	"github.com/praiagrande/sst-portal/internal/shared"
	"github.com/praiagrande/sst-portal/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	Identity    *identity.Identity
	Error       string
	Data        any
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"initials": func(ident *identity.Identity) string {
			if ident == nil {
				return ""
			}
			var b strings.Builder
			for _, part := range []string{ident.FirstName, ident.LastName} {
				if r := []rune(strings.TrimSpace(part)); len(r) > 0 {
					b.WriteRune(r[0])
				}
			}
			return strings.ToUpper(b.String())
		},
		"active": func(current, path string) bool {
			return current == path
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}

// NewTemplateData fills the per-request fields: CSRF token, pending flash
// and current path.
func NewTemplateData(r *http.Request, csrf *shared.CSRFManager, title string, data any) TemplateData {
	st := shared.UIStateFromContext(r.Context())
	var token string
	if csrf != nil && st != nil {
		token, _ = csrf.EnsureToken(st)
	}
	return TemplateData{
		Title:       title,
		CSRFToken:   token,
		Flash:       st.PopFlash(),
		CurrentPath: r.URL.Path,
		Data:        data,
	}
}
