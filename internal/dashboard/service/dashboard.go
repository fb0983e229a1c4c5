package service

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medflow/medflow-dispensary/internal/dashboard/domain"
	"github.com/medflow/medflow-dispensary/internal/tablesort"
	"github.com/medflow/medflow-dispensary/pkg/errors"
	"github.com/medflow/medflow-dispensary/pkg/httputil"
	"github.com/medflow/medflow-dispensary/pkg/logger"
)

// TimestampLayout is how upstream instants are shown.
const TimestampLayout = "02/01/2006, 15:04:05"

// Operation labels shown in the dispensation table.
const (
	OperationDispensation = "dispensation"
	OperationOutLabel     = "Saída"
)

// Fallback names for items the item list does not know, per view.
const (
	fallbackHourItem    = "Item {id}"
	fallbackDayItem     = "ID: {id}"
	fallbackRawID       = "{id}"
	fallbackHistoryItem = "Desconhecido"
)

// Upstream is the part of the inventory API the dashboard reads and writes.
type Upstream interface {
	ListUnits(ctx context.Context) ([]domain.Unit, error)
	ListItems(ctx context.Context) ([]domain.Item, error)
	ItemStock(ctx context.Context, itemID domain.ID) (domain.ItemStock, error)
	UnitStock(ctx context.Context, unitID domain.ID) (domain.UnitStock, error)
	DispensationByHour(ctx context.Context, unitID, itemID domain.ID, date time.Time) ([]domain.DispensationEvent, error)
	DispensationByDay(ctx context.Context, unitID domain.ID, date time.Time) ([]domain.DailyDispensation, error)
	RestockDetails(ctx context.Context, unitID domain.ID, variant domain.RestockVariant) ([]domain.RestockDetail, error)
	RestockUnits(ctx context.Context) ([]domain.ID, error)
	RestockSummed(ctx context.Context, date time.Time) ([]domain.RestockSummary, error)
	DaysLeft(ctx context.Context, unitID domain.ID) ([]domain.DaysLeft, error)
	Settings(ctx context.Context, unitID domain.ID) ([]domain.InventorySetting, error)
	Overrides(ctx context.Context) ([]domain.SettingOverride, error)
	SaveOverride(ctx context.Context, o domain.SettingOverride) error
	ResetOverrideField(ctx context.Context, unitID, itemID domain.ID, field string) error
	OutOfStock(ctx context.Context, unitID domain.ID, date time.Time) ([]domain.MissingItem, error)
	SubmitFeedback(ctx context.Context, fb domain.Feedback) error
	TrackPage(ctx context.Context, page string) error
}

// AuditLog stores threshold changes.
type AuditLog interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	ListByUnit(ctx context.Context, unitID string, limit int) ([]domain.AuditEntry, error)
}

// EventPublisher announces threshold changes.
type EventPublisher interface {
	PublishOverridden(ctx context.Context, o domain.SettingOverride)
	PublishReset(ctx context.Context, unitID, itemID domain.ID, field string)
}

// DashboardService turns inventory API data into the dashboard's views.
type DashboardService struct {
	upstream Upstream
	audit    AuditLog
	events   EventPublisher
	loc      *time.Location
	now      func() time.Time
	logger   *logger.Logger
}

// Option configures optional collaborators.
type Option func(*DashboardService)

// WithAudit records every threshold change in a.
func WithAudit(a AuditLog) Option {
	return func(s *DashboardService) { s.audit = a }
}

// WithEvents publishes every threshold change through p.
func WithEvents(p EventPublisher) Option {
	return func(s *DashboardService) { s.events = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *DashboardService) { s.now = now }
}

// NewDashboardService creates a service rendering times in loc.
func NewDashboardService(up Upstream, loc *time.Location, log *logger.Logger, opts ...Option) *DashboardService {
	s := &DashboardService{
		upstream: up,
		loc:      loc,
		now:      time.Now,
		logger:   log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location is the dashboard's time zone.
func (s *DashboardService) Location() *time.Location {
	return s.loc
}

// Today is midnight of the current day in the dashboard's time zone.
func (s *DashboardService) Today() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// Lookup fetches units and items concurrently and indexes them.
func (s *DashboardService) Lookup(ctx context.Context) (*domain.Lookup, error) {
	var (
		units []domain.Unit
		items []domain.Item
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		units, err = s.upstream.ListUnits(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.upstream.ListItems(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.upstreamError(err, "failed to load units and items")
	}

	return domain.NewLookup(units, items), nil
}

// StockByMedication lists one item's batches across units, grouped by unit
// name.
func (s *DashboardService) StockByMedication(ctx context.Context, itemID domain.ID) ([]domain.MedicationStockRow, error) {
	stock, err := s.upstream.ItemStock(ctx, itemID)
	if err != nil {
		return nil, s.upstreamError(err, "failed to load item stock")
	}

	rows := []domain.MedicationStockRow{}
	for _, unit := range sortedKeys(stock) {
		for _, b := range stock[unit] {
			rows = append(rows, domain.MedicationStockRow{
				Unit:       unit,
				Batch:      b.Batch,
				ExpiryDate: b.ExpiryDate,
				Quantity:   b.Quantity,
			})
		}
	}
	return rows, nil
}

// StockByUnit lists every batch a unit holds. Unknown items show their id.
func (s *DashboardService) StockByUnit(ctx context.Context, unitID domain.ID, lk *domain.Lookup) ([]domain.UnitStockRow, error) {
	stock, err := s.upstream.UnitStock(ctx, unitID)
	if err != nil {
		return nil, s.upstreamError(err, "failed to load unit stock")
	}

	rows := []domain.UnitStockRow{}
	for _, itemID := range sortedKeys(stock) {
		name := lk.ItemName(domain.ID(itemID), fallbackRawID)
		for _, b := range stock[itemID] {
			rows = append(rows, domain.UnitStockRow{
				Name:       name,
				Batch:      b.Batch,
				ExpiryDate: b.ExpiryDate,
				Quantity:   b.Quantity,
			})
		}
	}
	return rows, nil
}

// DispensationByHour lists one item's movements at a unit on date.
func (s *DashboardService) DispensationByHour(ctx context.Context, unitID, itemID domain.ID, date time.Time, lk *domain.Lookup) ([]domain.DispensationHourRow, error) {
	events, err := s.upstream.DispensationByHour(ctx, unitID, itemID, date)
	if err != nil {
		return nil, s.upstreamError(err, "failed to load dispensations by hour")
	}

	rows := make([]domain.DispensationHourRow, 0, len(events))
	for _, ev := range events {
		op := ev.OperationType
		if op == OperationDispensation {
			op = OperationOutLabel
		}
		rows = append(rows, domain.DispensationHourRow{
			Batch:         ev.Batch,
			Timestamp:     ev.Timestamp,
			LocalTime:     s.LocalTime(ev.Timestamp),
			Quantity:      ev.Quantity,
			OperationType: op,
			ItemName:      lk.ItemName(ev.ItemID, fallbackHourItem),
		})
	}
	return rows, nil
}

// DispensationByDay lists per-item totals at a unit on date, leaving out
// items that neither came in nor went out.
func (s *DashboardService) DispensationByDay(ctx context.Context, unitID domain.ID, date time.Time, lk *domain.Lookup) ([]domain.DispensationDayRow, error) {
	days, err := s.upstream.DispensationByDay(ctx, unitID, date)
	if err != nil {
		return nil, s.upstreamError(err, "failed to load dispensations by day")
	}

	rows := []domain.DispensationDayRow{}
	for _, d := range days {
		if !d.Active() {
			continue
		}
		rows = append(rows, domain.DispensationDayRow{
			ItemName:          lk.ItemName(d.ItemID, fallbackDayItem),
			QuantityReceived:  d.Received,
			QuantityDispensed: d.Dispensed,
		})
	}
	return rows, nil
}

// LocalTime renders an upstream timestamp in the dashboard's zone. Values
// without a zone are shown as sent; unparsable values are returned as is.
func (s *DashboardService) LocalTime(ts string) string {
	t := tablesort.ISOTimestamp.ParseIn(ts, s.loc)
	if t.IsZero() {
		return ts
	}
	return t.In(s.loc).Format(TimestampLayout)
}

// AuditEntries returns a unit's recent threshold changes, or none when no
// audit log is configured.
func (s *DashboardService) AuditEntries(ctx context.Context, unitID domain.ID, limit int) ([]domain.AuditEntry, error) {
	if s.audit == nil {
		return []domain.AuditEntry{}, nil
	}
	entries, err := s.audit.ListByUnit(ctx, string(unitID), limit)
	if err != nil {
		s.logger.Error().Err(err).Str("unit_id", string(unitID)).Msg("failed to list audit entries")
		return nil, errors.Internal("failed to list audit entries")
	}
	return entries, nil
}

// upstreamError logs err and converts it for the caller.
func (s *DashboardService) upstreamError(err error, msg string) error {
	s.logger.Error().Err(err).Msg(msg)
	return errors.UpstreamUnavailable(err)
}

// record appends to the audit log and publishes the matching event. Neither
// can fail the change, which the inventory API has already accepted.
func (s *DashboardService) record(ctx context.Context, entry domain.AuditEntry, publish func()) {
	if reqID := httputil.GetRequestID(ctx); reqID != "" {
		entry.RequestID = &reqID
	}
	if s.audit != nil {
		if err := s.audit.Append(ctx, &entry); err != nil {
			s.logger.Warn().Err(err).
				Str("unit_id", entry.UnitID).
				Str("item_id", entry.ItemID).
				Str("action", string(entry.Action)).
				Msg("failed to record threshold change")
		}
	}
	if s.events != nil {
		publish()
	}
}

func valuesJSON(v map[string]float64) *string {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	out := string(b)
	return &out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
