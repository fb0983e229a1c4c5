package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/medflow/medflow-dispensary/internal/dashboard/domain"
	"github.com/medflow/medflow-dispensary/pkg/errors"
	"github.com/medflow/medflow-dispensary/pkg/httputil"
)

// ListUnits returns units in API order, or those matching ?q by name.
// GET /api/v1/units
func (h *DashboardHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	lk, err := h.svc.Lookup(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	if q := r.URL.Query().Get("q"); q != "" {
		httputil.JSONList(w, lk.SearchUnits(q))
		return
	}
	httputil.JSONList(w, lk.Units())
}

// ListItems returns items ordered by name, filtered by ?q ignoring case and
// accents.
// GET /api/v1/items
func (h *DashboardHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	lk, err := h.svc.Lookup(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSONList(w, lk.SearchItems(r.URL.Query().Get("q")))
}

// GetItemStock lists an item's batches across units.
// GET /api/v1/stock/items/{itemID}?sort=unit.1
func (h *DashboardHandler) GetItemStock(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.StockByMedication(r.Context(), domain.ID(chi.URLParam(r, "itemID")))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSONList(w, sortedRows(r, domain.MedicationStockTable, rows))
}

// GetUnitStock lists every batch held by a unit.
// GET /api/v1/stock/units/{unitID}?sort=name.1
func (h *DashboardHandler) GetUnitStock(w http.ResponseWriter, r *http.Request) {
	lk, err := h.svc.Lookup(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	rows, err := h.svc.StockByUnit(r.Context(), domain.ID(chi.URLParam(r, "unitID")), lk)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSONList(w, sortedRows(r, domain.UnitStockTable, rows))
}

// GetDispensationByHour lists one item's movements at a unit on a day.
// GET /api/v1/dispensation/hourly?unit=1&item=10&date=2024-05-07
func (h *DashboardHandler) GetDispensationByHour(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	unitID, itemID := q.Get("unit"), q.Get("item")
	if details := required(map[string]string{"unit": unitID, "item": itemID}); details != nil {
		httputil.Error(w, r, errors.Validation(details))
		return
	}

	lk, err := h.svc.Lookup(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	rows, err := h.svc.DispensationByHour(r.Context(), domain.ID(unitID), domain.ID(itemID), h.svc.ParseDay(q.Get("date")), lk)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSONList(w, sortedRows(r, domain.DispensationHourTable, rows))
}

// GetDispensationByDay lists per-item totals at a unit on a day.
// GET /api/v1/dispensation/daily?unit=1&date=2024-05-07
func (h *DashboardHandler) GetDispensationByDay(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	unitID := q.Get("unit")
	if details := required(map[string]string{"unit": unitID}); details != nil {
		httputil.Error(w, r, errors.Validation(details))
		return
	}

	lk, err := h.svc.Lookup(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	rows, err := h.svc.DispensationByDay(r.Context(), domain.ID(unitID), h.svc.ParseDay(q.Get("date")), lk)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSONList(w, sortedRows(r, domain.DispensationDayTable, rows))
}

// ListRestockUnits lists units with a suggested order.
// GET /api/v1/restock/units
func (h *DashboardHandler) ListRestockUnits(w http.ResponseWriter, r *http.Request) {
	lk, err := h.svc.Lookup(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	units, err := h.svc.RestockUnits(r.Context(), lk)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSONList(w, units)
}

// GetRestockSuggestion returns a unit's categorised order suggestion.
// GET /api/v1/restock/units/{unitID}?variant=big
func (h *DashboardHandler) GetRestockSuggestion(w http.ResponseWriter, r *http.Request) {
	lk, err := h.svc.Lookup(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	s, err := h.svc.RestockSuggestions(r.Context(),
		domain.ID(chi.URLParam(r, "unitID")),
		domain.ParseRestockVariant(r.URL.Query().Get("variant")),
		lk)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, s)
}

// GetRestockHistory returns every unit's orders on a day.
// GET /api/v1/restock/history?date=2024-05-07
func (h *DashboardHandler) GetRestockHistory(w http.ResponseWriter, r *http.Request) {
	lk, err := h.svc.Lookup(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	hist, err := h.svc.RestockHistory(r.Context(), h.svc.ParseDay(r.URL.Query().Get("date")), lk)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, hist)
}

// GetSettings returns a unit's restock parameters with overrides applied.
// GET /api/v1/settings/{unitID}
func (h *DashboardHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	lk, err := h.svc.Lookup(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	rows, err := h.svc.Settings(r.Context(), domain.ID(chi.URLParam(r, "unitID")), lk)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSONList(w, rows)
}

type overrideRequest struct {
	ItemID                  string   `json:"item_id" validate:"required"`
	MinStock                *float64 `json:"min_stock" validate:"omitempty,gte=0"`
	MaxStock                *float64 `json:"max_stock" validate:"omitempty,gte=0"`
	MeanDailyConsumption    *float64 `json:"mean_daily_consumption" validate:"omitempty,gte=0"`
	MinimumPossibleQuantity *float64 `json:"minimum_possible_quantity" validate:"omitempty,gte=0"`
}

// SaveOverride overrides some of an item's parameters at a unit.
// POST /api/v1/settings/{unitID}/overrides
func (h *DashboardHandler) SaveOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	o := domain.SettingOverride{
		UnitID: domain.ID(chi.URLParam(r, "unitID")),
		ItemID: domain.ID(req.ItemID),
		Thresholds: domain.Thresholds{
			MinStock:                req.MinStock,
			MaxStock:                req.MaxStock,
			MeanDailyConsumption:    req.MeanDailyConsumption,
			MinimumPossibleQuantity: req.MinimumPossibleQuantity,
		},
	}
	if err := h.svc.SaveOverride(r.Context(), o); err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, o)
}

// ResetOverrideField restores one field of an item to its computed value.
// DELETE /api/v1/settings/{unitID}/overrides/{itemID}/{field}
func (h *DashboardHandler) ResetOverrideField(w http.ResponseWriter, r *http.Request) {
	err := h.svc.ResetOverrideField(r.Context(),
		domain.ID(chi.URLParam(r, "unitID")),
		domain.ID(chi.URLParam(r, "itemID")),
		chi.URLParam(r, "field"))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.NoContent(w)
}

// ListAudit returns a unit's recent parameter changes.
// GET /api/v1/settings/{unitID}/audit?limit=20
func (h *DashboardHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	entries, err := h.svc.AuditEntries(r.Context(), domain.ID(chi.URLParam(r, "unitID")), limit)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSONList(w, entries)
}

// GetOutOfStock lists what a unit has run out of today.
// GET /api/v1/out-of-stock/{unitID}
func (h *DashboardHandler) GetOutOfStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.OutOfStock(r.Context(), domain.ID(chi.URLParam(r, "unitID")))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSONList(w, items)
}

// GetDaysLeft returns the stock coverage estimates of a unit.
// GET /api/v1/days-left/{unitID}
func (h *DashboardHandler) GetDaysLeft(w http.ResponseWriter, r *http.Request) {
	lk, err := h.svc.Lookup(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	rows, err := h.svc.DaysLeft(r.Context(), domain.ID(chi.URLParam(r, "unitID")), lk)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSONList(w, rows)
}

// required reports the empty values of params, nil when all are set.
func required(params map[string]string) map[string]string {
	var details map[string]string
	for k, v := range params {
		if v != "" {
			continue
		}
		if details == nil {
			details = make(map[string]string)
		}
		details[k] = "this field is required"
	}
	return details
}
