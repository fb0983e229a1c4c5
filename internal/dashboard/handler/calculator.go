package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/medflow/medflow-dispensary/internal/dashboard/domain"
	"github.com/medflow/medflow-dispensary/internal/dosage"
	"github.com/medflow/medflow-dispensary/pkg/httputil"
)

const dateInputLayout = "2006-01-02"

// Calculator form actions.
const (
	actionAdd       = "add"
	actionCalculate = "calculate"
	actionRemove    = "remove:"
)

type calcRowView struct {
	Index        int
	Medication   string
	DeliveryDate string
	Containers   string
	Dose         string
	DoseLabel    string
	DropsHint    string
	Schedule     string
	ReturnDate   string
	Days         string
	Advisory     string
}

type calculatorView struct {
	Medications []dosage.Profile
	Rows        []calcRowView
}

// calcRow builds and recalculates one calculator row. An unknown medication
// leaves the row without a result.
func (h *DashboardHandler) calcRow(name string, delivery *time.Time, containers, dose float64) dosage.Row {
	row := dosage.Row{DeliveryDate: delivery, Containers: containers, DailyDose: dose}.Clamp()
	if p, ok := h.catalog.Lookup(name); ok {
		row.Medication = &p
	}
	return dosage.Recalculate(row)
}

func (h *DashboardHandler) parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.ParseInLocation(dateInputLayout, raw, h.svc.Location())
	if err != nil {
		return nil
	}
	return &t
}

func rowView(pd *PageData, i int, row dosage.Row) calcRowView {
	v := calcRowView{
		Index:      i,
		Containers: domain.FormatQuantity(row.Containers),
		Dose:       domain.FormatQuantity(row.DailyDose),
		DoseLabel:  pd.T("calculator.dose_drops"),
		ReturnDate: dosage.FormatDate(row.ReturnDate),
		Days:       dosage.FormatDays(row.DaysCovered),
	}
	if row.DeliveryDate != nil {
		v.DeliveryDate = row.DeliveryDate.Format(dateInputLayout)
	}
	if p := row.Medication; p != nil {
		v.Medication = p.Name
		v.Schedule = pd.T("calculator.schedule") + ": " + pd.T("schedule."+string(p.Schedule))
		if p.MeasuredInML() {
			v.DoseLabel = pd.T("calculator.dose_ml")
		} else {
			v.DropsHint = pd.Tf("calculator.drops_per_container", "name", p.Name) + ": " + domain.FormatQuantity(p.DosesPerContainer)
		}
	}
	if row.Advisory != nil {
		v.Advisory = pd.T(row.Advisory.MessageKey)
	}
	return v
}

// CalculatorPage starts the calculator with one blank row delivered today.
// GET /calculadora
func (h *DashboardHandler) CalculatorPage(w http.ResponseWriter, r *http.Request) {
	pd := h.page(r, "calculator.title", "/calculadora")
	pd.Data = &calculatorView{
		Medications: h.catalog.Profiles(),
		Rows:        []calcRowView{rowView(pd, 0, dosage.NewRow(h.svc.Today()))},
	}
	h.render(w, r, pageCalculator, http.StatusOK, pd)
}

// CalculatorForm recalculates every posted row, then applies the action:
// add a blank row, remove one, or just recalculate.
// POST /calculadora
func (h *DashboardHandler) CalculatorForm(w http.ResponseWriter, r *http.Request) {
	pd := h.page(r, "calculator.title", "/calculadora")
	if err := r.ParseForm(); err != nil {
		pd.Error = pd.T("errors.bad_request")
		pd.Data = &calculatorView{Medications: h.catalog.Profiles()}
		h.render(w, r, pageCalculator, http.StatusBadRequest, pd)
		return
	}

	f := r.PostForm
	names := f["medication"]
	dates := f["delivery_date"]
	containers := f["containers"]
	doses := f["dose"]

	rows := make([]dosage.Row, 0, len(names)+1)
	for i := range names {
		rows = append(rows, h.calcRow(
			names[i],
			h.parseDate(at(dates, i)),
			parseFormNumber(at(containers, i)),
			parseFormNumber(at(doses, i)),
		))
	}

	action := f.Get("action")
	switch {
	case action == actionAdd:
		rows = append(rows, dosage.NewRow(h.svc.Today()))
	case strings.HasPrefix(action, actionRemove):
		if i, err := strconv.Atoi(strings.TrimPrefix(action, actionRemove)); err == nil && i >= 0 && i < len(rows) {
			rows = append(rows[:i], rows[i+1:]...)
		}
	}
	if len(rows) == 0 {
		rows = append(rows, dosage.NewRow(h.svc.Today()))
	}

	v := &calculatorView{Medications: h.catalog.Profiles(), Rows: make([]calcRowView, len(rows))}
	for i, row := range rows {
		v.Rows[i] = rowView(pd, i, row)
	}
	pd.Data = v
	h.render(w, r, pageCalculator, http.StatusOK, pd)
}

func at(vals []string, i int) string {
	if i < len(vals) {
		return vals[i]
	}
	return ""
}

type calculationInput struct {
	Medication   string   `json:"medication"`
	DeliveryDate string   `json:"delivery_date" validate:"omitempty,datetime=2006-01-02"`
	Containers   *float64 `json:"containers"`
	DailyDose    *float64 `json:"daily_dose"`
}

type calculationRequest struct {
	Rows []calculationInput `json:"rows" validate:"required,min=1,max=100,dive"`
}

type advisoryResult struct {
	Schedule   dosage.Schedule `json:"schedule"`
	MessageKey string          `json:"message_key"`
	Message    string          `json:"message"`
}

type calculationResult struct {
	Medication   *dosage.Profile `json:"medication"`
	DeliveryDate *string         `json:"delivery_date"`
	Containers   float64         `json:"containers"`
	DailyDose    float64         `json:"daily_dose"`
	ReturnDate   *string         `json:"return_date"`
	DaysCovered  *float64        `json:"days_covered"`
	DaysLabel    string          `json:"days_label"`
	Advisory     *advisoryResult `json:"advisory"`
}

// Calculate runs the calculator over a batch of rows. Rows that cannot be
// computed come back with null results rather than an error. Missing
// counts default to one and a missing date to today.
// POST /api/v1/calculations
func (h *DashboardHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req calculationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	pd := h.page(r, "calculator.title", "")
	today := h.svc.Today()

	out := make([]calculationResult, len(req.Rows))
	for i, in := range req.Rows {
		delivery := &today
		if in.DeliveryDate != "" {
			delivery = h.parseDate(in.DeliveryDate)
		}
		containers, dose := 1.0, 1.0
		if in.Containers != nil {
			containers = *in.Containers
		}
		if in.DailyDose != nil {
			dose = *in.DailyDose
		}

		row := h.calcRow(in.Medication, delivery, containers, dose)
		res := calculationResult{
			Medication:  row.Medication,
			Containers:  row.Containers,
			DailyDose:   row.DailyDose,
			DaysCovered: row.DaysCovered,
			DaysLabel:   dosage.FormatDays(row.DaysCovered),
		}
		if row.DeliveryDate != nil {
			s := row.DeliveryDate.Format(dateInputLayout)
			res.DeliveryDate = &s
		}
		if row.ReturnDate != nil {
			s := row.ReturnDate.Format(time.RFC3339)
			res.ReturnDate = &s
		}
		if row.Advisory != nil {
			res.Advisory = &advisoryResult{
				Schedule:   row.Advisory.Schedule,
				MessageKey: row.Advisory.MessageKey,
				Message:    pd.T(row.Advisory.MessageKey),
			}
		}
		out[i] = res
	}

	httputil.JSONList(w, out)
}

// ListMedications returns the calculator's medication catalog.
// GET /api/v1/medications
func (h *DashboardHandler) ListMedications(w http.ResponseWriter, r *http.Request) {
	httputil.JSONList(w, h.catalog.Profiles())
}
