package service

import (
	"context"
	"math"

	"github.com/shopspring/decimal"

	"github.com/medflow/medflow-dispensary/internal/dashboard/domain"
	"github.com/medflow/medflow-dispensary/pkg/errors"
)

// SettingRow is an item's effective restock parameters at a unit.
type SettingRow struct {
	domain.InventorySetting
	ItemName string `json:"item_name"`
}

// IsOverridden reports whether field came from a manual override.
func (r SettingRow) IsOverridden(field string) bool {
	for _, f := range r.Overridden {
		if f == field {
			return true
		}
	}
	return false
}

// Value renders field for an input box, empty when unknown.
func (r SettingRow) Value(field string) string {
	v := r.Field(field)
	if v == nil {
		return ""
	}
	return domain.FormatQuantity(*v)
}

// Settings loads the unit's computed parameters and lays its overrides on
// top; an override's fields win over the computed ones.
func (s *DashboardService) Settings(ctx context.Context, unitID domain.ID, lk *domain.Lookup) ([]SettingRow, error) {
	settings, err := s.upstream.Settings(ctx, unitID)
	if err != nil {
		return nil, s.upstreamError(err, "failed to load inventory settings")
	}
	overrides, err := s.upstream.Overrides(ctx)
	if err != nil {
		return nil, s.upstreamError(err, "failed to load setting overrides")
	}

	mine := make(map[domain.ID]domain.Thresholds)
	for _, o := range overrides {
		if o.UnitID != unitID {
			continue
		}
		mine[o.ItemID] = mine[o.ItemID].Merge(o.Thresholds)
	}

	rows := make([]SettingRow, 0, len(settings))
	for _, st := range settings {
		if o, ok := mine[st.ItemID]; ok {
			st.Thresholds = st.Thresholds.Merge(o)
			for _, f := range domain.SettingFields {
				if o.Field(f) != nil {
					st.Overridden = append(st.Overridden, f)
				}
			}
		}
		rows = append(rows, SettingRow{InventorySetting: st, ItemName: lk.ItemName(st.ItemID, fallbackRawID)})
	}
	return rows, nil
}

// SaveOverride stores the fields set on o. Values must be finite and
// non-negative and at least one field must be set.
func (s *DashboardService) SaveOverride(ctx context.Context, o domain.SettingOverride) error {
	details := map[string]string{}
	if o.UnitID == "" {
		details["unit_id"] = "is required"
	}
	if o.ItemID == "" {
		details["item_id"] = "is required"
	}
	set := 0
	for _, f := range domain.SettingFields {
		v := o.Field(f)
		if v == nil {
			continue
		}
		set++
		if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
			details[f] = "must be a non-negative number"
		}
	}
	if set == 0 {
		details["fields"] = "at least one setting is required"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}

	if err := s.upstream.SaveOverride(ctx, o); err != nil {
		return s.upstreamError(err, "failed to save setting override")
	}

	s.logger.WithUnit(string(o.UnitID)).Info().
		Str("item_id", string(o.ItemID)).
		Strs("fields", sortedKeys(o.Values())).
		Msg("setting override saved")

	s.record(ctx, domain.AuditEntry{
		UnitID: string(o.UnitID),
		ItemID: string(o.ItemID),
		Action: domain.AuditOverride,
		Values: valuesJSON(o.Values()),
	}, func() { s.events.PublishOverridden(ctx, o) })
	return nil
}

// ResetOverrideField restores one field to its computed value.
func (s *DashboardService) ResetOverrideField(ctx context.Context, unitID, itemID domain.ID, field string) error {
	details := map[string]string{}
	if unitID == "" {
		details["unit_id"] = "is required"
	}
	if itemID == "" {
		details["item_id"] = "is required"
	}
	if !domain.IsSettingField(field) {
		details["field"] = "must be one of: min_stock, max_stock, mean_daily_consumption, minimum_possible_quantity"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}

	if err := s.upstream.ResetOverrideField(ctx, unitID, itemID, field); err != nil {
		return s.upstreamError(err, "failed to reset setting override")
	}

	s.logger.WithUnit(string(unitID)).Info().
		Str("item_id", string(itemID)).
		Str("field", field).
		Msg("setting override reset")

	s.record(ctx, domain.AuditEntry{
		UnitID: string(unitID),
		ItemID: string(itemID),
		Action: domain.AuditReset,
		Field:  &field,
	}, func() { s.events.PublishReset(ctx, unitID, itemID, field) })
	return nil
}

// formatFixed renders v rounded half away from zero to places decimals.
func formatFixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}
