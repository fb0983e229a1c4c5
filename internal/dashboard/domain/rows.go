package domain

import (
	"github.com/medflow/medflow-dispensary/internal/tablesort"
)

// MedicationStockRow is one batch of the searched medication at a unit.
type MedicationStockRow struct {
	Unit       string  `json:"unit"`
	Batch      string  `json:"batch"`
	ExpiryDate string  `json:"expiry_date"`
	Quantity   float64 `json:"quantity"`
}

// UnitStockRow is one batch of an item held by the searched unit.
type UnitStockRow struct {
	Name       string  `json:"name"`
	Batch      string  `json:"batch"`
	ExpiryDate string  `json:"expiry_date"`
	Quantity   float64 `json:"quantity"`
}

// DispensationHourRow is one stock movement. Timestamp is the upstream value
// used for ordering; LocalTime is what the page shows.
type DispensationHourRow struct {
	Batch         string  `json:"batch"`
	Timestamp     string  `json:"timestamp"`
	LocalTime     string  `json:"local_time"`
	Quantity      float64 `json:"quantity"`
	OperationType string  `json:"operation_type"`
	ItemName      string  `json:"item_name"`
}

// DispensationDayRow is an item's movement totals for one day.
type DispensationDayRow struct {
	ItemName          string   `json:"item_name"`
	QuantityReceived  *float64 `json:"quantity_received"`
	QuantityDispensed *float64 `json:"quantity_dispensed"`
}

// Column keys, shared by the sort query and the JSON field names.
const (
	ColUnit              = "unit"
	ColName              = "name"
	ColBatch             = "batch"
	ColExpiryDate        = "expiry_date"
	ColQuantity          = "quantity"
	ColTimestamp         = "timestamp"
	ColOperationType     = "operation_type"
	ColItemName          = "item_name"
	ColQuantityReceived  = "quantity_received"
	ColQuantityDispensed = "quantity_dispensed"
)

func label(key string) string { return "columns." + key }

func present(s string) (string, bool) { return s, s != "" }

func optional(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

// expiryCell shows expiry dates as dd/mm/yyyy when they parse, else as sent.
func expiryCell(s string) string {
	t := tablesort.ISODate.Parse(s)
	if t.IsZero() {
		return s
	}
	return t.Format("02/01/2006")
}

// MedicationStockTable lists a medication's batches across units.
var MedicationStockTable = tablesort.NewTable(
	tablesort.StringColumn(ColUnit, label(ColUnit), func(r MedicationStockRow) (string, bool) { return present(r.Unit) }),
	tablesort.StringColumn(ColBatch, label(ColBatch), func(r MedicationStockRow) (string, bool) { return r.Batch, true }),
	tablesort.DateColumn(ColExpiryDate, label(ColExpiryDate), tablesort.ISODate, func(r MedicationStockRow) string { return r.ExpiryDate }).
		WithCell(func(r MedicationStockRow) string { return expiryCell(r.ExpiryDate) }),
	tablesort.NumberColumn(ColQuantity, label(ColQuantity), func(r MedicationStockRow) (float64, bool) { return r.Quantity, true }),
)

// UnitStockTable lists a unit's batches across items.
var UnitStockTable = tablesort.NewTable(
	tablesort.StringColumn(ColName, label(ColName), func(r UnitStockRow) (string, bool) { return present(r.Name) }),
	tablesort.StringColumn(ColBatch, label(ColBatch), func(r UnitStockRow) (string, bool) { return r.Batch, true }),
	tablesort.DateColumn(ColExpiryDate, label(ColExpiryDate), tablesort.ISODate, func(r UnitStockRow) string { return r.ExpiryDate }).
		WithCell(func(r UnitStockRow) string { return expiryCell(r.ExpiryDate) }),
	tablesort.NumberColumn(ColQuantity, label(ColQuantity), func(r UnitStockRow) (float64, bool) { return r.Quantity, true }),
)

// DispensationHourTable lists individual movements of one item at a unit.
var DispensationHourTable = tablesort.NewTable(
	tablesort.StringColumn(ColBatch, label(ColBatch), func(r DispensationHourRow) (string, bool) { return r.Batch, true }),
	tablesort.DateColumn(ColTimestamp, label(ColTimestamp), tablesort.ISOTimestamp, func(r DispensationHourRow) string { return r.Timestamp }).
		WithCell(func(r DispensationHourRow) string { return r.LocalTime }),
	tablesort.NumberColumn(ColQuantity, label(ColQuantity), func(r DispensationHourRow) (float64, bool) { return r.Quantity, true }),
	tablesort.StringColumn(ColOperationType, label(ColOperationType), func(r DispensationHourRow) (string, bool) { return r.OperationType, true }),
)

// DispensationDayTable lists per-item totals for one day at a unit.
var DispensationDayTable = tablesort.NewTable(
	tablesort.StringColumn(ColItemName, label(ColItemName), func(r DispensationDayRow) (string, bool) { return present(r.ItemName) }),
	tablesort.NumberColumn(ColQuantityReceived, label(ColQuantityReceived), func(r DispensationDayRow) (float64, bool) { return optional(r.QuantityReceived) }),
	tablesort.NumberColumn(ColQuantityDispensed, label(ColQuantityDispensed), func(r DispensationDayRow) (float64, bool) { return optional(r.QuantityDispensed) }),
)
