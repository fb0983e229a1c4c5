// Package domain holds the dispensary's data shapes: what the inventory API
// returns and the table rows the dashboard renders from it.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ID identifies a unit or item. The inventory API sends ids as numbers in
// some endpoints and strings in others, so ID accepts both.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Unit is a health facility.
type Unit struct {
	ID         ID     `json:"id"`
	InternalID ID     `json:"internal_id,omitempty"`
	Name       string `json:"name"`
}

// SettingsID is the id the restock endpoints key a unit by.
func (u Unit) SettingsID() ID {
	if u.InternalID != "" {
		return u.InternalID
	}
	return u.ID
}

// Item is a medication or supply.
type Item struct {
	ID               ID     `json:"id"`
	Name             string `json:"name"`
	IsControlled     bool   `json:"is_controlled"`
	IsSpecialProgram bool   `json:"is_special_program"`
}

// Batch is one lot of an item held somewhere.
type Batch struct {
	Batch      string  `json:"batch"`
	ExpiryDate string  `json:"expiry_date"`
	Quantity   float64 `json:"quantity"`
}

// ItemStock maps unit name to the batches of one item held there.
type ItemStock map[string][]Batch

// UnitStock maps item id to the batches one unit holds.
type UnitStock map[string][]Batch

// DispensationEvent is one stock movement decoded from the by-hour feed.
type DispensationEvent struct {
	ItemID        ID
	Timestamp     string
	Quantity      float64
	OperationType string
	Batch         string
}

// DailyDispensation is the per-item total for one day. Either count may be
// missing from the feed.
type DailyDispensation struct {
	ItemID    ID
	Received  *float64
	Dispensed *float64
}

// Active reports whether anything moved that day.
func (d DailyDispensation) Active() bool {
	return (d.Received != nil && *d.Received > 0) || (d.Dispensed != nil && *d.Dispensed > 0)
}

// RestockVariant selects which restock suggestion cache to read.
type RestockVariant string

const (
	RestockNormal RestockVariant = "normal"
	RestockSmall  RestockVariant = "small"
	RestockBig    RestockVariant = "big"
)

// ParseRestockVariant maps a query value to a variant, defaulting to normal.
func ParseRestockVariant(s string) RestockVariant {
	switch RestockVariant(s) {
	case RestockSmall:
		return RestockSmall
	case RestockBig:
		return RestockBig
	default:
		return RestockNormal
	}
}

// RestockDetail is one suggested order line.
type RestockDetail struct {
	ItemID    ID      `json:"item_id"`
	Quantity  float64 `json:"restock_request_quantity"`
	Timestamp string  `json:"timestamp"`
}

// RestockSummary is the total ordered for an item by a unit on one day.
type RestockSummary struct {
	UnitID        ID      `json:"unit_id"`
	ItemID        ID      `json:"item_id"`
	TotalQuantity float64 `json:"total_quantity"`
}

// DaysLeft is the stock coverage estimate for one item.
type DaysLeft struct {
	ItemID               ID      `json:"item_id"`
	DaysLeft             float64 `json:"days_left"`
	MeanDailyConsumption float64 `json:"mean_daily_consumption"`
	TotalQuantity        float64 `json:"total_quantity"`
}

// MissingItem is an item a unit has run out of.
type MissingItem struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Setting field names, as the API and the override endpoints use them.
const (
	FieldMinStock                = "min_stock"
	FieldMaxStock                = "max_stock"
	FieldMeanDailyConsumption    = "mean_daily_consumption"
	FieldMinimumPossibleQuantity = "minimum_possible_quantity"
)

// SettingFields lists the overridable fields in display order.
var SettingFields = []string{
	FieldMinStock,
	FieldMaxStock,
	FieldMeanDailyConsumption,
	FieldMinimumPossibleQuantity,
}

// IsSettingField reports whether name is an overridable field.
func IsSettingField(name string) bool {
	for _, f := range SettingFields {
		if f == name {
			return true
		}
	}
	return false
}

// Thresholds are the restock parameters of one item at one unit. A nil
// field is unknown or not overridden.
type Thresholds struct {
	MinStock                *float64 `json:"min_stock,omitempty"`
	MaxStock                *float64 `json:"max_stock,omitempty"`
	MeanDailyConsumption    *float64 `json:"mean_daily_consumption,omitempty"`
	MinimumPossibleQuantity *float64 `json:"minimum_possible_quantity,omitempty"`
}

// Field returns the named field.
func (t *Thresholds) Field(name string) *float64 {
	switch name {
	case FieldMinStock:
		return t.MinStock
	case FieldMaxStock:
		return t.MaxStock
	case FieldMeanDailyConsumption:
		return t.MeanDailyConsumption
	case FieldMinimumPossibleQuantity:
		return t.MinimumPossibleQuantity
	}
	return nil
}

// Set assigns the named field; unknown names are ignored.
func (t *Thresholds) Set(name string, v *float64) {
	switch name {
	case FieldMinStock:
		t.MinStock = v
	case FieldMaxStock:
		t.MaxStock = v
	case FieldMeanDailyConsumption:
		t.MeanDailyConsumption = v
	case FieldMinimumPossibleQuantity:
		t.MinimumPossibleQuantity = v
	}
}

// Merge returns t with every field o sets taking precedence.
func (t Thresholds) Merge(o Thresholds) Thresholds {
	for _, f := range SettingFields {
		if v := o.Field(f); v != nil {
			t.Set(f, v)
		}
	}
	return t
}

// Values returns the set fields by name.
func (t Thresholds) Values() map[string]float64 {
	out := make(map[string]float64, len(SettingFields))
	for _, f := range SettingFields {
		if v := t.Field(f); v != nil {
			out[f] = *v
		}
	}
	return out
}

// InventorySetting is an item's computed restock parameters at a unit.
type InventorySetting struct {
	ItemID ID `json:"item_id"`
	Thresholds
	// Overridden lists the fields whose value came from an override.
	Overridden []string `json:"overridden,omitempty"`
}

// SettingOverride replaces some of an item's parameters at one unit.
type SettingOverride struct {
	UnitID ID `json:"unit_id"`
	ItemID ID `json:"item_id"`
	Thresholds
}

// AuditAction is what an audit entry records.
type AuditAction string

const (
	AuditOverride AuditAction = "override"
	AuditReset    AuditAction = "reset"
)

// AuditEntry records one change to a unit's restock parameters. Entries are
// append-only.
type AuditEntry struct {
	ID        string      `db:"id" json:"id"`
	UnitID    string      `db:"unit_id" json:"unit_id"`
	ItemID    string      `db:"item_id" json:"item_id"`
	Action    AuditAction `db:"action" json:"action"`
	Field     *string     `db:"field" json:"field,omitempty"`
	Values    *string     `db:"field_values" json:"field_values,omitempty"`
	RequestID *string     `db:"request_id" json:"request_id,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// FormatQuantity renders a count without a trailing ".0".
func FormatQuantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
