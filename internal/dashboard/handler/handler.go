package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/medflow/medflow-dispensary/internal/dashboard/domain"
	"github.com/medflow/medflow-dispensary/internal/dashboard/service"
	"github.com/medflow/medflow-dispensary/internal/dosage"
	"github.com/medflow/medflow-dispensary/internal/tablesort"
	"github.com/medflow/medflow-dispensary/pkg/i18n"
	"github.com/medflow/medflow-dispensary/pkg/logger"
)

// DashboardHandler serves the dashboard pages and their JSON counterparts.
type DashboardHandler struct {
	svc     *service.DashboardService
	catalog *dosage.Catalog
	pages   *Renderer
	logger  *logger.Logger

	trackViews bool
}

// HandlerOption configures a DashboardHandler.
type HandlerOption func(*DashboardHandler)

// WithPageTracking reports every page view to the inventory service.
func WithPageTracking(enabled bool) HandlerOption {
	return func(h *DashboardHandler) {
		h.trackViews = enabled
	}
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(svc *service.DashboardService, catalog *dosage.Catalog, log *logger.Logger, opts ...HandlerOption) (*DashboardHandler, error) {
	pages, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	h := &DashboardHandler{
		svc:     svc,
		catalog: catalog,
		pages:   pages,
		logger:  log.WithComponent("handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Routes mounts the HTML pages.
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	if h.trackViews {
		r.Use(h.trackPages)
	}

	r.Get("/", h.StockPage)

	r.Route("/dispensacao", func(r chi.Router) {
		r.Get("/", h.DispensationPage)
		r.Get("/dia", h.DispensationDayPage)
	})

	r.Route("/pedidos", func(r chi.Router) {
		r.Get("/", h.RestockUnitsPage)
		r.Get("/{unitID}", h.RestockPage)
	})
	r.Get("/historico", h.HistoryPage)

	r.Route("/opcoes", func(r chi.Router) {
		r.Get("/", h.SettingsUnitsPage)
		r.Get("/{unitID}", h.SettingsPage)
		r.Post("/{unitID}", h.SaveSettingForm)
		r.Post("/{unitID}/reset", h.ResetSettingForm)
	})

	r.Route("/faltas", func(r chi.Router) {
		r.Get("/", h.MissingUnitsPage)
		r.Get("/{unitID}", h.MissingPage)
	})

	r.Route("/analise", func(r chi.Router) {
		r.Get("/", h.AnalysisUnitsPage)
		r.Get("/{unitID}", h.AnalysisPage)
	})

	r.Get("/calculadora", h.CalculatorPage)
	r.Post("/calculadora", h.CalculatorForm)

	r.Post("/feedback", h.FeedbackForm)

	return r
}

// APIRoutes mounts the JSON API, meant to live under /api/v1.
func (h *DashboardHandler) APIRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/units", h.ListUnits)
	r.Get("/items", h.ListItems)

	r.Route("/stock", func(r chi.Router) {
		r.Get("/items/{itemID}", h.GetItemStock)
		r.Get("/units/{unitID}", h.GetUnitStock)
	})

	r.Route("/dispensation", func(r chi.Router) {
		r.Get("/hourly", h.GetDispensationByHour)
		r.Get("/daily", h.GetDispensationByDay)
	})

	r.Route("/restock", func(r chi.Router) {
		r.Get("/units", h.ListRestockUnits)
		r.Get("/units/{unitID}", h.GetRestockSuggestion)
		r.Get("/history", h.GetRestockHistory)
	})

	r.Route("/settings/{unitID}", func(r chi.Router) {
		r.Get("/", h.GetSettings)
		r.Post("/overrides", h.SaveOverride)
		r.Delete("/overrides/{itemID}/{field}", h.ResetOverrideField)
		r.Get("/audit", h.ListAudit)
	})

	r.Get("/out-of-stock/{unitID}", h.GetOutOfStock)
	r.Get("/days-left/{unitID}", h.GetDaysLeft)

	r.Get("/medications", h.ListMedications)
	r.Post("/calculations", h.Calculate)

	r.Post("/feedback", h.SubmitFeedback)

	return r
}

// lookup loads the id→name tables. On failure the page still renders, with
// empty tables and an error banner.
func (h *DashboardHandler) lookup(r *http.Request, pd *PageData) *domain.Lookup {
	lk, err := h.svc.Lookup(r.Context())
	if err != nil {
		pd.Error = pd.T("common.load_error")
		return domain.NewLookup(nil, nil)
	}
	return lk
}

// TableView is a sorted table ready for the datatable template.
type TableView struct {
	Headers []tablesort.Header
	Rows    [][]string
	Empty   string
	// ClearHref drops the sort, shown when any column is sorting.
	ClearHref  string
	ClearLabel string
}

// buildTable sorts rows by state and renders them with localized headers.
// Header links keep the page's other query parameters.
func buildTable[R any](l *i18n.Localizer, table *tablesort.Table[R], rows []R, state tablesort.State, u *url.URL) *TableView {
	link := sortLink(u)

	headers := table.Headers(state, link)
	for i := range headers {
		headers[i].Label = l.T(headers[i].Label)
	}

	sorted := tablesort.Sort(rows, state, table)
	cells := make([][]string, len(sorted))
	for i, row := range sorted {
		cells[i] = table.Cells(row)
	}

	v := &TableView{
		Headers:    headers,
		Rows:       cells,
		Empty:      l.T("common.no_data"),
		ClearLabel: l.T("common.clear_sort"),
	}
	if state.Active() {
		v.ClearHref = link(nil)
	}
	return v
}

// sortLink returns a function building the current page's URL with its sort
// replaced. Commas stay readable: ?sort=batch.1,quantity.2
func sortLink(u *url.URL) func(tablesort.State) string {
	q := u.Query()
	q.Del("sort")
	q.Del("feedback")
	base := q.Encode()

	return func(s tablesort.State) string {
		var params []string
		if base != "" {
			params = append(params, base)
		}
		if enc := s.Encode(); enc != "" {
			params = append(params, "sort="+strings.ReplaceAll(url.QueryEscape(enc), "%2C", ","))
		}
		if len(params) == 0 {
			return u.Path
		}
		return u.Path + "?" + strings.Join(params, "&")
	}
}

// sortedRows applies the ?sort query to rows for JSON responses.
func sortedRows[R any](r *http.Request, table *tablesort.Table[R], rows []R) []R {
	return tablesort.Sort(rows, tablesort.ParseState(r.URL.Query().Get("sort")), table)
}
