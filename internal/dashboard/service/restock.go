package service

import (
	"context"
	"time"

	"github.com/medflow/medflow-dispensary/internal/dashboard/domain"
)

// RestockLine is one item and the quantity to order.
type RestockLine struct {
	ItemID   domain.ID `json:"item_id"`
	ItemName string    `json:"item_name"`
	Quantity float64   `json:"quantity"`
}

// RestockSuggestion is a unit's suggested order split by how the items are
// regulated.
type RestockSuggestion struct {
	UnitID         domain.ID             `json:"unit_id"`
	UnitName       string                `json:"unit_name"`
	Variant        domain.RestockVariant `json:"variant"`
	Common         []RestockLine         `json:"common"`
	Controlled     []RestockLine         `json:"controlled"`
	SpecialProgram []RestockLine         `json:"special_program"`
	// LastUpdated is when the suggestion was computed, in the dashboard's
	// zone, or empty when there is nothing to order.
	LastUpdated string `json:"last_updated"`
}

// Empty reports whether nothing needs ordering.
func (r *RestockSuggestion) Empty() bool {
	return len(r.Common) == 0 && len(r.Controlled) == 0 && len(r.SpecialProgram) == 0
}

// RestockSuggestions loads a unit's suggested order. Items the item list
// does not know and lines with nothing to order are dropped; controlled
// items are never also listed under special programs.
func (s *DashboardService) RestockSuggestions(ctx context.Context, unitID domain.ID, variant domain.RestockVariant, lk *domain.Lookup) (*RestockSuggestion, error) {
	details, err := s.upstream.RestockDetails(ctx, unitID, variant)
	if err != nil {
		return nil, s.upstreamError(err, "failed to load restock suggestions")
	}

	out := &RestockSuggestion{
		UnitID:         unitID,
		UnitName:       lk.UnitName(unitID),
		Variant:        variant,
		Common:         []RestockLine{},
		Controlled:     []RestockLine{},
		SpecialProgram: []RestockLine{},
	}
	if len(details) > 0 {
		out.LastUpdated = s.LocalTime(details[0].Timestamp)
	}

	for _, d := range details {
		item, ok := lk.Item(d.ItemID)
		if !ok || !(d.Quantity > 0) {
			continue
		}
		line := RestockLine{ItemID: item.ID, ItemName: item.Name, Quantity: d.Quantity}
		switch {
		case item.IsControlled:
			out.Controlled = append(out.Controlled, line)
		case item.IsSpecialProgram:
			out.SpecialProgram = append(out.SpecialProgram, line)
		default:
			out.Common = append(out.Common, line)
		}
	}
	return out, nil
}

// RestockUnits lists the units that have a suggestion, in API order. Units
// the unit list does not know are shown by id.
func (s *DashboardService) RestockUnits(ctx context.Context, lk *domain.Lookup) ([]domain.Unit, error) {
	ids, err := s.upstream.RestockUnits(ctx)
	if err != nil {
		return nil, s.upstreamError(err, "failed to load restock units")
	}

	units := make([]domain.Unit, 0, len(ids))
	for _, id := range ids {
		if u, ok := lk.Unit(id); ok {
			units = append(units, u)
			continue
		}
		units = append(units, domain.Unit{ID: id, Name: string(id)})
	}
	return units, nil
}

// RestockHistoryUnit is what one unit ordered on the day.
type RestockHistoryUnit struct {
	UnitID   domain.ID     `json:"unit_id"`
	UnitName string        `json:"unit_name"`
	Lines    []RestockLine `json:"lines"`
}

// RestockHistory is every unit's orders on one day.
type RestockHistory struct {
	Date     time.Time            `json:"date"`
	Previous time.Time            `json:"previous"`
	Next     time.Time            `json:"next"`
	Units    []RestockHistoryUnit `json:"units"`
}

// RestockHistory groups the day's ordered totals by unit. Units come in the
// order of the unit list, followed by any it does not know.
func (s *DashboardService) RestockHistory(ctx context.Context, date time.Time, lk *domain.Lookup) (*RestockHistory, error) {
	sums, err := s.upstream.RestockSummed(ctx, date)
	if err != nil {
		return nil, s.upstreamError(err, "failed to load restock history")
	}

	byUnit := make(map[domain.ID][]RestockLine)
	var unknown []domain.ID
	for _, sum := range sums {
		if _, seen := byUnit[sum.UnitID]; !seen {
			if _, ok := lk.Unit(sum.UnitID); !ok {
				unknown = append(unknown, sum.UnitID)
			}
		}
		byUnit[sum.UnitID] = append(byUnit[sum.UnitID], RestockLine{
			ItemID:   sum.ItemID,
			ItemName: lk.ItemName(sum.ItemID, fallbackHistoryItem),
			Quantity: sum.TotalQuantity,
		})
	}

	h := &RestockHistory{
		Date:     date,
		Previous: date.AddDate(0, 0, -1),
		Next:     date.AddDate(0, 0, 1),
		Units:    []RestockHistoryUnit{},
	}
	for _, u := range lk.Units() {
		if lines, ok := byUnit[u.ID]; ok {
			h.Units = append(h.Units, RestockHistoryUnit{UnitID: u.ID, UnitName: u.Name, Lines: lines})
			delete(byUnit, u.ID)
		}
	}
	// summaries keyed by internal id
	for _, u := range lk.Units() {
		if u.InternalID == "" {
			continue
		}
		if lines, ok := byUnit[u.InternalID]; ok {
			h.Units = append(h.Units, RestockHistoryUnit{UnitID: u.InternalID, UnitName: u.Name, Lines: lines})
			delete(byUnit, u.InternalID)
		}
	}
	for _, id := range unknown {
		h.Units = append(h.Units, RestockHistoryUnit{UnitID: id, UnitName: string(id), Lines: byUnit[id]})
	}
	return h, nil
}

// DaysLeftRow is a days-left estimate with the item's name resolved.
type DaysLeftRow struct {
	domain.DaysLeft
	ItemName string `json:"item_name"`
}

// DaysLeftCell renders days left with two decimals.
func (r DaysLeftRow) DaysLeftCell() string {
	return formatFixed(r.DaysLeft.DaysLeft, 2)
}

// DaysLeft loads a unit's coverage estimates. Unknown items show their id.
func (s *DashboardService) DaysLeft(ctx context.Context, unitID domain.ID, lk *domain.Lookup) ([]DaysLeftRow, error) {
	left, err := s.upstream.DaysLeft(ctx, unitID)
	if err != nil {
		return nil, s.upstreamError(err, "failed to load days left")
	}

	rows := make([]DaysLeftRow, 0, len(left))
	for _, d := range left {
		rows = append(rows, DaysLeftRow{DaysLeft: d, ItemName: lk.ItemName(d.ItemID, fallbackRawID)})
	}
	return rows, nil
}

// OutOfStock lists what a unit has run out of today, in the dashboard's
// zone.
func (s *DashboardService) OutOfStock(ctx context.Context, unitID domain.ID) ([]domain.MissingItem, error) {
	items, err := s.upstream.OutOfStock(ctx, unitID, s.Today())
	if err != nil {
		return nil, s.upstreamError(err, "failed to load out of stock items")
	}
	if items == nil {
		items = []domain.MissingItem{}
	}
	return items, nil
}

// ParseDay reads a yyyy-mm-dd query value in the dashboard's zone, falling
// back to today.
func (s *DashboardService) ParseDay(v string) time.Time {
	if v == "" {
		return s.Today()
	}
	t, err := time.ParseInLocation("2006-01-02", v, s.loc)
	if err != nil {
		return s.Today()
	}
	return t
}
