package handler

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/medflow/medflow-dispensary/internal/dashboard/domain"
	"github.com/medflow/medflow-dispensary/internal/dashboard/service"
	"github.com/medflow/medflow-dispensary/internal/tablesort"
	"github.com/medflow/medflow-dispensary/pkg/errors"
)

// Stock search modes.
const (
	searchByMedication = "medication"
	searchByUnit       = "unit"
)

type stockView struct {
	By     string
	ItemID string
	UnitID string
	Items  []domain.Item
	Units  []domain.Unit
	Table  *TableView
}

// StockPage searches stock by medication or by unit.
// GET /?by=medication&item=10&sort=batch.1
func (h *DashboardHandler) StockPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pd := h.page(r, "stock.title", "/")
	lk := h.lookup(r, pd)

	v := &stockView{
		By:     q.Get("by"),
		ItemID: q.Get("item"),
		UnitID: q.Get("unit"),
		Items:  lk.SortedItems(),
		Units:  lk.SortedUnits(),
	}
	if v.By != searchByUnit {
		v.By = searchByMedication
	}
	state := tablesort.ParseState(q.Get("sort"))

	switch {
	case v.By == searchByMedication && v.ItemID != "":
		rows, err := h.svc.StockByMedication(r.Context(), domain.ID(v.ItemID))
		if err != nil {
			pd.Error = pd.T("common.load_error")
		}
		v.Table = buildTable(pd.loc, domain.MedicationStockTable, rows, state, r.URL)
	case v.By == searchByUnit && v.UnitID != "":
		rows, err := h.svc.StockByUnit(r.Context(), domain.ID(v.UnitID), lk)
		if err != nil {
			pd.Error = pd.T("common.load_error")
		}
		v.Table = buildTable(pd.loc, domain.UnitStockTable, rows, state, r.URL)
	}

	pd.Data = v
	h.render(w, r, pageStock, http.StatusOK, pd)
}

type dispensationView struct {
	UnitID string
	ItemID string
	Date   time.Time
	Units  []domain.Unit
	Items  []domain.Item
	Table  *TableView
}

// DispensationPage lists one item's movements at a unit during a day.
// GET /dispensacao?unit=1&item=10&date=2024-05-07
func (h *DashboardHandler) DispensationPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pd := h.page(r, "dispensation.title", "/dispensacao")
	lk := h.lookup(r, pd)

	v := &dispensationView{
		UnitID: q.Get("unit"),
		ItemID: q.Get("item"),
		Date:   h.svc.ParseDay(q.Get("date")),
		Units:  lk.SortedUnits(),
		Items:  lk.SortedItems(),
	}
	if v.UnitID != "" && v.ItemID != "" {
		rows, err := h.svc.DispensationByHour(r.Context(), domain.ID(v.UnitID), domain.ID(v.ItemID), v.Date, lk)
		if err != nil {
			pd.Error = pd.T("common.load_error")
		}
		v.Table = buildTable(pd.loc, domain.DispensationHourTable, rows, tablesort.ParseState(q.Get("sort")), r.URL)
	}

	pd.Data = v
	h.render(w, r, pageDispensation, http.StatusOK, pd)
}

// DispensationDayPage lists per-item totals at a unit for a day.
// GET /dispensacao/dia?unit=1&date=2024-05-07
func (h *DashboardHandler) DispensationDayPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pd := h.page(r, "dispensation.day_title", "/dispensacao/dia")
	lk := h.lookup(r, pd)

	v := &dispensationView{
		UnitID: q.Get("unit"),
		Date:   h.svc.ParseDay(q.Get("date")),
		Units:  lk.SortedUnits(),
	}
	if v.UnitID != "" {
		rows, err := h.svc.DispensationByDay(r.Context(), domain.ID(v.UnitID), v.Date, lk)
		if err != nil {
			pd.Error = pd.T("common.load_error")
		}
		v.Table = buildTable(pd.loc, domain.DispensationDayTable, rows, tablesort.ParseState(q.Get("sort")), r.URL)
	}

	pd.Data = v
	h.render(w, r, pageDispensationDay, http.StatusOK, pd)
}

type unitLink struct {
	Name string
	Href string
}

type unitsView struct {
	Units []unitLink
}

func unitLinks(base string, units []domain.Unit, id func(domain.Unit) domain.ID) *unitsView {
	v := &unitsView{Units: make([]unitLink, 0, len(units))}
	for _, u := range units {
		v.Units = append(v.Units, unitLink{Name: u.Name, Href: base + "/" + url.PathEscape(string(id(u)))})
	}
	return v
}

func publicID(u domain.Unit) domain.ID { return u.ID }

func settingsID(u domain.Unit) domain.ID { return u.SettingsID() }

// RestockUnitsPage lists the units with a suggested order.
// GET /pedidos
func (h *DashboardHandler) RestockUnitsPage(w http.ResponseWriter, r *http.Request) {
	pd := h.page(r, "restock.units_title", "/pedidos")
	lk := h.lookup(r, pd)

	units, err := h.svc.RestockUnits(r.Context(), lk)
	if err != nil {
		pd.Error = pd.T("common.load_error")
	}

	pd.Data = unitLinks("/pedidos", units, publicID)
	h.render(w, r, pageUnits, http.StatusOK, pd)
}

type variantLink struct {
	Label  string
	Href   string
	Active bool
}

type restockSection struct {
	Title string
	Lines []service.RestockLine
}

type restockView struct {
	Suggestion *service.RestockSuggestion
	Variants   []variantLink
	Sections   []restockSection
}

var restockVariants = []domain.RestockVariant{domain.RestockSmall, domain.RestockNormal, domain.RestockBig}

// RestockPage shows a unit's suggested order, split into common, controlled
// and special program items.
// GET /pedidos/{unitID}?variant=small
func (h *DashboardHandler) RestockPage(w http.ResponseWriter, r *http.Request) {
	unitID := domain.ID(chi.URLParam(r, "unitID"))
	variant := domain.ParseRestockVariant(r.URL.Query().Get("variant"))
	pd := h.page(r, "restock.units_title", "/pedidos")
	lk := h.lookup(r, pd)

	s, err := h.svc.RestockSuggestions(r.Context(), unitID, variant, lk)
	if err != nil {
		pd.Error = pd.T("common.load_error")
		s = &service.RestockSuggestion{UnitID: unitID, UnitName: lk.UnitName(unitID), Variant: variant}
	}

	v := &restockView{Suggestion: s}
	for _, vv := range restockVariants {
		v.Variants = append(v.Variants, variantLink{
			Label:  pd.T("restock.variant_" + string(vv)),
			Href:   "/pedidos/" + url.PathEscape(string(unitID)) + "?variant=" + string(vv),
			Active: vv == variant,
		})
	}
	for _, sec := range []restockSection{
		{Title: pd.T("restock.common"), Lines: s.Common},
		{Title: pd.T("restock.controlled"), Lines: s.Controlled},
		{Title: pd.T("restock.special_program"), Lines: s.SpecialProgram},
	} {
		if len(sec.Lines) > 0 {
			v.Sections = append(v.Sections, sec)
		}
	}

	pd.Title = pd.Tf("restock.title", "unit", s.UnitName)
	pd.Data = v
	h.render(w, r, pageRestock, http.StatusOK, pd)
}

// HistoryPage shows what every unit ordered on a day.
// GET /historico?date=2024-05-07
func (h *DashboardHandler) HistoryPage(w http.ResponseWriter, r *http.Request) {
	pd := h.page(r, "history.title", "/historico")
	lk := h.lookup(r, pd)
	day := h.svc.ParseDay(r.URL.Query().Get("date"))

	hist, err := h.svc.RestockHistory(r.Context(), day, lk)
	if err != nil {
		pd.Error = pd.T("common.load_error")
		hist = &service.RestockHistory{Date: day, Previous: day.AddDate(0, 0, -1), Next: day.AddDate(0, 0, 1)}
	}

	pd.Data = hist
	h.render(w, r, pageHistory, http.StatusOK, pd)
}

// SettingsUnitsPage lists the units whose settings can be edited.
// GET /opcoes
func (h *DashboardHandler) SettingsUnitsPage(w http.ResponseWriter, r *http.Request) {
	pd := h.page(r, "settings.title", "/opcoes")
	lk := h.lookup(r, pd)

	pd.Data = unitLinks("/opcoes", lk.SortedUnits(), settingsID)
	h.render(w, r, pageUnits, http.StatusOK, pd)
}

type auditView struct {
	When   string
	Action string
	Item   string
	Detail string
}

type settingsView struct {
	UnitID   string
	UnitName string
	Fields   []string
	Rows     []service.SettingRow
	Audit    []auditView
}

// Flash values passed back after a form post.
const (
	flashSaved = "saved"
	flashReset = "reset"
)

// SettingsPage shows a unit's effective restock parameters with forms to
// override or reset them.
// GET /opcoes/{unitID}
func (h *DashboardHandler) SettingsPage(w http.ResponseWriter, r *http.Request) {
	pd := h.page(r, "settings.title", "/opcoes")
	switch r.URL.Query().Get("ok") {
	case flashSaved:
		pd.Notice = pd.T("settings.saved")
	case flashReset:
		pd.Notice = pd.T("settings.reset_done")
	}
	h.renderSettings(w, r, pd, http.StatusOK)
}

func (h *DashboardHandler) renderSettings(w http.ResponseWriter, r *http.Request, pd *PageData, status int) {
	unitID := domain.ID(chi.URLParam(r, "unitID"))
	lk := h.lookup(r, pd)

	v := &settingsView{
		UnitID:   string(unitID),
		UnitName: lk.UnitName(unitID),
		Fields:   domain.SettingFields,
	}

	rows, err := h.svc.Settings(r.Context(), unitID, lk)
	if err != nil && pd.Error == "" {
		pd.Error = pd.T("common.load_error")
	}
	v.Rows = rows

	entries, err := h.svc.AuditEntries(r.Context(), unitID, 20)
	if err == nil {
		for _, e := range entries {
			a := auditView{
				When:   e.CreatedAt.In(h.svc.Location()).Format(service.TimestampLayout),
				Action: pd.T("settings.audit_" + string(e.Action)),
				Item:   lk.ItemName(domain.ID(e.ItemID), "{id}"),
			}
			switch {
			case e.Field != nil:
				a.Detail = pd.T("settings." + *e.Field)
			case e.Values != nil:
				a.Detail = *e.Values
			}
			v.Audit = append(v.Audit, a)
		}
	}

	pd.Data = v
	h.render(w, r, pageSettings, status, pd)
}

// SaveSettingForm overrides the fields filled in on one item's row. Empty
// inputs keep their current value.
// POST /opcoes/{unitID}
func (h *DashboardHandler) SaveSettingForm(w http.ResponseWriter, r *http.Request) {
	unitID := chi.URLParam(r, "unitID")
	pd := h.page(r, "settings.title", "/opcoes")

	if err := r.ParseForm(); err != nil {
		pd.Error = pd.T("errors.bad_request")
		h.renderSettings(w, r, pd, http.StatusBadRequest)
		return
	}

	o := domain.SettingOverride{
		UnitID: domain.ID(unitID),
		ItemID: domain.ID(strings.TrimSpace(r.PostForm.Get("item_id"))),
	}
	for _, f := range domain.SettingFields {
		raw := strings.TrimSpace(r.PostForm.Get(f))
		if raw == "" {
			continue
		}
		v := parseFormNumber(raw)
		o.Set(f, &v)
	}

	if err := h.svc.SaveOverride(r.Context(), o); err != nil {
		pd.Error = errorText(r, err)
		h.renderSettings(w, r, pd, formStatus(err))
		return
	}

	http.Redirect(w, r, "/opcoes/"+url.PathEscape(unitID)+"?ok="+flashSaved, http.StatusSeeOther)
}

// ResetSettingForm drops one override field of one item.
// POST /opcoes/{unitID}/reset
func (h *DashboardHandler) ResetSettingForm(w http.ResponseWriter, r *http.Request) {
	unitID := chi.URLParam(r, "unitID")
	pd := h.page(r, "settings.title", "/opcoes")

	if err := r.ParseForm(); err != nil {
		pd.Error = pd.T("errors.bad_request")
		h.renderSettings(w, r, pd, http.StatusBadRequest)
		return
	}

	itemID := domain.ID(strings.TrimSpace(r.PostForm.Get("item_id")))
	field := r.PostForm.Get("field")
	if err := h.svc.ResetOverrideField(r.Context(), domain.ID(unitID), itemID, field); err != nil {
		pd.Error = errorText(r, err)
		h.renderSettings(w, r, pd, formStatus(err))
		return
	}

	http.Redirect(w, r, "/opcoes/"+url.PathEscape(unitID)+"?ok="+flashReset, http.StatusSeeOther)
}

// MissingUnitsPage lists units to check for missing items.
// GET /faltas
func (h *DashboardHandler) MissingUnitsPage(w http.ResponseWriter, r *http.Request) {
	pd := h.page(r, "missing.title", "/faltas")
	lk := h.lookup(r, pd)

	pd.Data = unitLinks("/faltas", lk.SortedUnits(), publicID)
	h.render(w, r, pageUnits, http.StatusOK, pd)
}

type missingView struct {
	UnitName string
	Date     time.Time
	Items    []domain.MissingItem
}

// MissingPage lists what a unit has run out of today.
// GET /faltas/{unitID}
func (h *DashboardHandler) MissingPage(w http.ResponseWriter, r *http.Request) {
	unitID := domain.ID(chi.URLParam(r, "unitID"))
	pd := h.page(r, "missing.title", "/faltas")
	lk := h.lookup(r, pd)

	items, err := h.svc.OutOfStock(r.Context(), unitID)
	if err != nil {
		pd.Error = pd.T("common.load_error")
	}

	pd.Data = &missingView{UnitName: lk.UnitName(unitID), Date: h.svc.Today(), Items: items}
	h.render(w, r, pageMissing, http.StatusOK, pd)
}

// AnalysisUnitsPage lists units for the days-left analysis.
// GET /analise
func (h *DashboardHandler) AnalysisUnitsPage(w http.ResponseWriter, r *http.Request) {
	pd := h.page(r, "analysis.title", "/analise")
	lk := h.lookup(r, pd)

	pd.Data = unitLinks("/analise", lk.SortedUnits(), settingsID)
	h.render(w, r, pageUnits, http.StatusOK, pd)
}

type analysisView struct {
	UnitName string
	Rows     []service.DaysLeftRow
}

// AnalysisPage shows how many days each item's stock lasts at a unit.
// GET /analise/{unitID}
func (h *DashboardHandler) AnalysisPage(w http.ResponseWriter, r *http.Request) {
	unitID := domain.ID(chi.URLParam(r, "unitID"))
	pd := h.page(r, "analysis.title", "/analise")
	lk := h.lookup(r, pd)

	rows, err := h.svc.DaysLeft(r.Context(), unitID, lk)
	if err != nil {
		pd.Error = pd.T("common.load_error")
	}

	pd.Data = &analysisView{UnitName: lk.UnitName(unitID), Rows: rows}
	h.render(w, r, pageAnalysis, http.StatusOK, pd)
}

// parseFormNumber accepts a decimal comma. Unparsable input becomes NaN so
// it fails validation alongside negative values.
func parseFormNumber(raw string) float64 {
	v, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// errorText renders err for a page banner, validation details included.
func errorText(r *http.Request, err error) string {
	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		return errors.Internal(err.Error()).Localize(r.Context())
	}
	msg := appErr.Localize(r.Context())
	if len(appErr.Details) == 0 {
		return msg
	}
	keys := make([]string, 0, len(appErr.Details))
	for k := range appErr.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, appErr.Details[k])
	}
	return msg + " (" + strings.Join(parts, "; ") + ")"
}

// formStatus keeps a rejected form at its 4xx status. Anything else,
// upstream failures included, renders 200 with the banner like every page.
func formStatus(err error) int {
	var appErr *errors.AppError
	if errors.As(err, &appErr) && appErr.StatusCode >= 400 && appErr.StatusCode < 500 {
		return appErr.StatusCode
	}
	return http.StatusOK
}
