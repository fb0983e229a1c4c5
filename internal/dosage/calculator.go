package dosage

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// DispensingLimitDays is the longest treatment a B1 or C1 prescription may
// be dispensed for.
const DispensingLimitDays = 60

// Advisory message keys, resolved through i18n.
const (
	AdvisoryB1 = "advisory.b1"
	AdvisoryC1 = "advisory.c1"
)

// Advisory is a regulatory warning attached to a calculation.
type Advisory struct {
	Schedule   Schedule `json:"schedule"`
	MessageKey string   `json:"message_key"`
}

// Row is one line of the calculator. Medication, DeliveryDate, Containers
// and DailyDose are inputs; the rest is derived by Recalculate and is nil
// whenever the inputs cannot produce a result.
type Row struct {
	Medication   *Profile   `json:"medication"`
	DeliveryDate *time.Time `json:"delivery_date"`
	Containers   float64    `json:"containers"`
	DailyDose    float64    `json:"daily_dose"`

	ReturnDate  *time.Time `json:"return_date"`
	DaysCovered *float64   `json:"days_covered"`
	Advisory    *Advisory  `json:"advisory"`
}

// NewRow returns a blank row: one container, a dose of one, delivered today.
func NewRow(today time.Time) Row {
	d := startOfDay(today)
	return Row{DeliveryDate: &d, Containers: 1, DailyDose: 1}
}

// Clamp forces the numeric inputs to be non-negative. NaN becomes zero.
func (r Row) Clamp() Row {
	r.Containers = nonNegative(r.Containers)
	r.DailyDose = nonNegative(r.DailyDose)
	return r
}

// Recalculate derives days covered, return date and advisory from the row's
// inputs. It needs a medication, a delivery date and a positive daily dose.
func Recalculate(r Row) Row {
	r.ReturnDate, r.DaysCovered, r.Advisory = nil, nil, nil
	if r.Medication == nil || r.DeliveryDate == nil || !(r.DailyDose > 0) {
		return r
	}

	total := r.Containers * r.Medication.DosesPerContainer
	days := total / r.DailyDose
	if math.IsNaN(days) || math.IsInf(days, 0) {
		return r
	}

	ret, ok := addDays(*r.DeliveryDate, days)
	if !ok {
		return r
	}
	r.DaysCovered = &days
	r.ReturnDate = &ret
	r.Advisory = AdvisoryFor(r.Medication.Schedule, days)
	return r
}

// AdvisoryFor returns the warning for a treatment of days under schedule.
// C1 carries the same 60 day threshold as B1; its text mentions the six
// month exception for anticonvulsants but the check does not depend on it.
func AdvisoryFor(s Schedule, days float64) *Advisory {
	if !(days > DispensingLimitDays) {
		return nil
	}
	switch s {
	case ScheduleB1:
		return &Advisory{Schedule: s, MessageKey: AdvisoryB1}
	case ScheduleC1:
		return &Advisory{Schedule: s, MessageKey: AdvisoryC1}
	default:
		return nil
	}
}

// FormatDays renders days covered with one decimal, or "-" when unknown.
func FormatDays(days *float64) string {
	if days == nil {
		return "-"
	}
	return decimal.NewFromFloat(*days).StringFixed(1)
}

// FormatDate renders a date as dd/mm/yyyy, or "-" when unknown.
func FormatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("02/01/2006")
}

// addDays shifts t by a fractional number of days. Whole days go through
// the calendar and the remainder as a duration, so long treatments cannot
// overflow time.Duration.
func addDays(t time.Time, days float64) (time.Time, bool) {
	whole := math.Floor(days)
	if whole > math.MaxInt32 || whole < math.MinInt32 {
		return time.Time{}, false
	}
	frac := days - whole
	return t.AddDate(0, 0, int(whole)).Add(time.Duration(frac * float64(24*time.Hour))), true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
