package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/medflow/medflow-dispensary/internal/dashboard/domain"
	"github.com/medflow/medflow-dispensary/internal/dosage"
	"github.com/medflow/medflow-dispensary/pkg/i18n"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page template names, one file each under templates/.
const (
	pageStock           = "stock"
	pageDispensation    = "dispensation"
	pageDispensationDay = "dispensation_day"
	pageUnits           = "units"
	pageRestock         = "restock"
	pageHistory         = "history"
	pageSettings        = "settings"
	pageMissing         = "missing"
	pageAnalysis        = "analysis"
	pageCalculator      = "calculator"
)

var pageNames = []string{
	pageStock, pageDispensation, pageDispensationDay, pageUnits, pageRestock,
	pageHistory, pageSettings, pageMissing, pageAnalysis, pageCalculator,
}

// Navigation entries, in menu order. Help is the i18n key of the text shown
// in the page's help box.
type navLink struct {
	Key  string
	Href string
	Help string
}

var navLinks = []navLink{
	{Key: "nav.stock", Href: "/", Help: "help.stock"},
	{Key: "nav.dispensation", Href: "/dispensacao", Help: "help.dispensation"},
	{Key: "nav.dispensation_day", Href: "/dispensacao/dia", Help: "help.dispensation_day"},
	{Key: "nav.restock", Href: "/pedidos", Help: "help.restock"},
	{Key: "nav.history", Href: "/historico", Help: "help.history"},
	{Key: "nav.options", Href: "/opcoes", Help: "help.options"},
	{Key: "nav.missing", Href: "/faltas", Help: "help.missing"},
	{Key: "nav.analysis", Href: "/analise", Help: "help.analysis"},
	{Key: "nav.calculator", Href: "/calculadora", Help: "help.calculator"},
}

// helpFor returns the help key of the menu entry at href, if any.
func helpFor(href string) string {
	for _, n := range navLinks {
		if n.Href == href {
			return n.Help
		}
	}
	return ""
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"qty":     domain.FormatQuantity,
	"days":    dosage.FormatDays,
	"isoDate": func(t time.Time) string { return t.Format("2006-01-02") },
	"brDate":  func(t time.Time) string { return t.Format("02/01/2006") },
}

// NewRenderer parses the embedded templates. Every page is parsed with the
// layout and the shared partials and must define "content".
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// PageData is what every page template receives.
type PageData struct {
	Title  string
	Active string
	Locale string
	Nav    []navLink
	// Notice and Error are banners above the content.
	Notice string
	Error  string
	Data   any
	// Help is the page's help text, empty when it has none.
	Help string
	// Path is sent along with feedback to name the page.
	Path string

	loc *i18n.Localizer
}

// T translates key for the request's locale.
func (p *PageData) T(key string) string {
	return p.loc.T(key)
}

// Tf translates key substituting name/value pairs.
func (p *PageData) Tf(key string, kv ...string) string {
	params := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		params[kv[i]] = kv[i+1]
	}
	return p.loc.T(key, params)
}

// page starts the data for a page titled by the i18n key title.
func (h *DashboardHandler) page(r *http.Request, title, active string) *PageData {
	loc := i18n.LocalizerFromContext(r.Context())
	pd := &PageData{
		Title:  loc.T(title),
		Active: active,
		Locale: loc.Locale(),
		Nav:    navLinks,
		Path:   r.URL.Path,
		loc:    loc,
	}
	if key := helpFor(active); key != "" {
		pd.Help = loc.T(key)
	}

	switch r.URL.Query().Get("feedback") {
	case feedbackSent:
		pd.Notice = loc.T("feedback.sent")
	case feedbackInvalid:
		pd.Error = loc.T("feedback.invalid")
	case feedbackFailed:
		pd.Error = loc.T("feedback.failed")
	}
	return pd
}

// render executes a page into a buffer first so a template error never
// leaves a half-written response.
func (h *DashboardHandler) render(w http.ResponseWriter, r *http.Request, name string, status int, pd *PageData) {
	t, ok := h.pages.pages[name]
	if !ok {
		h.logger.Error().Str("page", name).Msg("unknown page template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", pd); err != nil {
		h.logger.Error().Err(err).Str("page", name).Str("path", r.URL.Path).Msg("failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
