// Package client talks to the inventory API that owns every stock, restock
// and dispensation record the dashboard shows.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/medflow/medflow-dispensary/internal/dashboard/domain"
	"github.com/medflow/medflow-dispensary/pkg/logger"
	"github.com/medflow/medflow-dispensary/pkg/metrics"
)

// DateLayout is how the API expects calendar days in paths.
const DateLayout = "2006-01-02"

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// InventoryClient provides typed access to the inventory API. Each call is a
// single request; there are no retries and nothing is cached.
type InventoryClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
	metrics    *metrics.Upstream
}

// NewInventoryClient creates a client. m may be nil.
func NewInventoryClient(baseURL string, timeout time.Duration, log *logger.Logger, m *metrics.Upstream) *InventoryClient {
	return &InventoryClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
		metrics:    m,
	}
}

// ListUnits fetches every health unit.
func (c *InventoryClient) ListUnits(ctx context.Context) ([]domain.Unit, error) {
	var units []domain.Unit
	if err := c.get(ctx, "units", "/units", &units); err != nil {
		return nil, err
	}
	return units, nil
}

// ListItems fetches every item.
func (c *InventoryClient) ListItems(ctx context.Context) ([]domain.Item, error) {
	var items []domain.Item
	if err := c.get(ctx, "items", "/items", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ItemStock fetches the batches of one item grouped by unit name.
func (c *InventoryClient) ItemStock(ctx context.Context, itemID domain.ID) (domain.ItemStock, error) {
	var stock domain.ItemStock
	if err := c.get(ctx, "item_lookup", "/item/lookup/"+seg(itemID), &stock); err != nil {
		return nil, err
	}
	return stock, nil
}

// UnitStock fetches the batches one unit holds grouped by item id.
func (c *InventoryClient) UnitStock(ctx context.Context, unitID domain.ID) (domain.UnitStock, error) {
	var stock domain.UnitStock
	if err := c.get(ctx, "unit_lookup", "/unit/lookup/"+seg(unitID), &stock); err != nil {
		return nil, err
	}
	return stock, nil
}

// DispensationByHour fetches the movements of one item at a unit on date.
// The API answers with positional arrays.
func (c *InventoryClient) DispensationByHour(ctx context.Context, unitID, itemID domain.ID, date time.Time) ([]domain.DispensationEvent, error) {
	path := fmt.Sprintf("/dispensation/by_hour/unit_item/%s/%s/%s", seg(unitID), seg(itemID), date.Format(DateLayout))

	var raw [][]json.RawMessage
	if err := c.get(ctx, "dispensation_by_hour", path, &raw); err != nil {
		return nil, err
	}

	events := make([]domain.DispensationEvent, 0, len(raw))
	for i, row := range raw {
		var (
			ev    domain.DispensationEvent
			batch domain.ID
			qty   *float64
		)
		if err := decodeAt(row, 1, &ev.ItemID); err != nil {
			return nil, fmt.Errorf("dispensation_by_hour row %d: %w", i, err)
		}
		if err := decodeAt(row, 4, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("dispensation_by_hour row %d: %w", i, err)
		}
		if err := decodeAt(row, 5, &qty); err != nil {
			return nil, fmt.Errorf("dispensation_by_hour row %d: %w", i, err)
		}
		if err := decodeAt(row, 6, &ev.OperationType); err != nil {
			return nil, fmt.Errorf("dispensation_by_hour row %d: %w", i, err)
		}
		if err := decodeAt(row, 7, &batch); err != nil {
			return nil, fmt.Errorf("dispensation_by_hour row %d: %w", i, err)
		}
		if qty != nil {
			ev.Quantity = *qty
		}
		ev.Batch = string(batch)
		events = append(events, ev)
	}
	return events, nil
}

// DispensationByDay fetches per-item totals for a unit on date.
func (c *InventoryClient) DispensationByDay(ctx context.Context, unitID domain.ID, date time.Time) ([]domain.DailyDispensation, error) {
	path := fmt.Sprintf("/dispensation/by_day/unit/%s/%s", seg(unitID), date.Format(DateLayout))

	var raw [][]json.RawMessage
	if err := c.get(ctx, "dispensation_by_day", path, &raw); err != nil {
		return nil, err
	}

	out := make([]domain.DailyDispensation, 0, len(raw))
	for i, row := range raw {
		var d domain.DailyDispensation
		if err := decodeAt(row, 0, &d.ItemID); err != nil {
			return nil, fmt.Errorf("dispensation_by_day row %d: %w", i, err)
		}
		if err := decodeAt(row, 1, &d.Received); err != nil {
			return nil, fmt.Errorf("dispensation_by_day row %d: %w", i, err)
		}
		if err := decodeAt(row, 2, &d.Dispensed); err != nil {
			return nil, fmt.Errorf("dispensation_by_day row %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// RestockDetails fetches the suggested order for a unit.
func (c *InventoryClient) RestockDetails(ctx context.Context, unitID domain.ID, variant domain.RestockVariant) ([]domain.RestockDetail, error) {
	path := "/restock/cache/" + seg(unitID)
	switch variant {
	case domain.RestockSmall:
		path = "/restock/cache/small/" + seg(unitID)
	case domain.RestockBig:
		path = "/restock/cache/big/" + seg(unitID)
	}

	var details []domain.RestockDetail
	if err := c.get(ctx, "restock_cache_"+string(variant), path, &details); err != nil {
		return nil, err
	}
	return details, nil
}

// RestockUnits lists the units that have a cached restock suggestion.
func (c *InventoryClient) RestockUnits(ctx context.Context) ([]domain.ID, error) {
	var resp struct {
		UniqueUnitIDs []domain.ID `json:"unique_unit_ids"`
	}
	if err := c.get(ctx, "restock_units", "/restock/cache/unique-units", &resp); err != nil {
		return nil, err
	}
	return resp.UniqueUnitIDs, nil
}

// RestockSummed fetches every unit's ordered totals for date.
func (c *InventoryClient) RestockSummed(ctx context.Context, date time.Time) ([]domain.RestockSummary, error) {
	var out []domain.RestockSummary
	if err := c.get(ctx, "restock_summed", "/restock/summed/"+date.Format(DateLayout), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DaysLeft fetches stock coverage estimates for a unit.
func (c *InventoryClient) DaysLeft(ctx context.Context, unitID domain.ID) ([]domain.DaysLeft, error) {
	var out []domain.DaysLeft
	if err := c.get(ctx, "days_left", "/restock/days_left/"+seg(unitID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Settings fetches the computed restock parameters for a unit.
func (c *InventoryClient) Settings(ctx context.Context, unitID domain.ID) ([]domain.InventorySetting, error) {
	var out []domain.InventorySetting
	if err := c.get(ctx, "restock_settings", "/restock/settings/"+seg(unitID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Overrides fetches every manual override across all units.
func (c *InventoryClient) Overrides(ctx context.Context) ([]domain.SettingOverride, error) {
	var resp struct {
		Overrides []domain.SettingOverride `json:"overrides"`
	}
	if err := c.get(ctx, "settings_override_all", "/settings_override/all", &resp); err != nil {
		return nil, err
	}
	return resp.Overrides, nil
}

// SaveOverride stores the fields set on o for its unit and item.
func (c *InventoryClient) SaveOverride(ctx context.Context, o domain.SettingOverride) error {
	return c.do(ctx, "settings_override_save", http.MethodPost, "/settings_override", o, nil)
}

// ResetOverrideField drops one overridden field, restoring the computed value.
func (c *InventoryClient) ResetOverrideField(ctx context.Context, unitID, itemID domain.ID, field string) error {
	q := url.Values{}
	q.Set("unit_id", string(unitID))
	q.Set("item_id", string(itemID))
	q.Set("field", field)
	return c.do(ctx, "settings_override_reset", http.MethodDelete, "/settings_override/field?"+q.Encode(), nil, nil)
}

// OutOfStock lists the items a unit has run out of on date.
func (c *InventoryClient) OutOfStock(ctx context.Context, unitID domain.ID, date time.Time) ([]domain.MissingItem, error) {
	var resp struct {
		MissingItems []domain.MissingItem `json:"missing_items"`
	}
	path := fmt.Sprintf("/stock/out_of_stock/%s/%s", seg(unitID), date.Format(DateLayout))
	if err := c.get(ctx, "out_of_stock", path, &resp); err != nil {
		return nil, err
	}
	return resp.MissingItems, nil
}

// SubmitFeedback forwards a staff message to the inventory API's inbox.
func (c *InventoryClient) SubmitFeedback(ctx context.Context, fb domain.Feedback) error {
	return c.do(ctx, "add_message", http.MethodPost, "/add_message", fb, nil)
}

// TrackPage records a page view.
func (c *InventoryClient) TrackPage(ctx context.Context, page string) error {
	return c.do(ctx, "track_page", http.MethodPost, "/track_page", domain.PageView{Page: page}, nil)
}

func (c *InventoryClient) get(ctx context.Context, endpoint, path string, out any) error {
	return c.do(ctx, endpoint, http.MethodGet, path, nil, out)
}

// do sends one request and decodes a 2xx body into out when out is non-nil.
// endpoint names the call in logs and metrics.
func (c *InventoryClient) do(ctx context.Context, endpoint, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", method).
		Str("path", path).
		Msg("calling inventory API")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.Observe(endpoint, "error", time.Since(start))
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("failed to call inventory API")
		return fmt.Errorf("failed to call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	c.metrics.Observe(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Msg("inventory API request failed")
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

// decodeAt decodes row[i] into v, leaving v untouched when the row is
// shorter or the value is null.
func decodeAt(row []json.RawMessage, i int, v any) error {
	if i >= len(row) || len(row[i]) == 0 || string(row[i]) == "null" {
		return nil
	}
	if err := json.Unmarshal(row[i], v); err != nil {
		return fmt.Errorf("column %d: %w", i, err)
	}
	return nil
}

func seg(id domain.ID) string {
	return url.PathEscape(string(id))
}
