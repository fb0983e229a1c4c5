package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medflow/medflow-dispensary/internal/dashboard/client"
	"github.com/medflow/medflow-dispensary/internal/dashboard/service"
	"github.com/medflow/medflow-dispensary/internal/dosage"
	"github.com/medflow/medflow-dispensary/internal/tablesort"
	"github.com/medflow/medflow-dispensary/pkg/i18n"
	"github.com/medflow/medflow-dispensary/pkg/logger"
	"github.com/medflow/medflow-dispensary/pkg/testutil"
)

var brt = time.FixedZone("BRT", -3*60*60)

// 22:30 on 7 May in the dashboard's zone.
var fixedNow = time.Date(2024, 5, 8, 1, 30, 0, 0, time.UTC)

func newRouter(t *testing.T, opts ...HandlerOption) (http.Handler, *testutil.FakeUpstream) {
	t.Helper()
	up := testutil.NewFakeUpstream(t)
	c := client.NewInventoryClient(up.URL(), 5*time.Second, logger.Nop(), nil)
	svc := service.NewDashboardService(c, brt, logger.Nop(),
		service.WithClock(func() time.Time { return fixedNow }))

	h, err := NewDashboardHandler(svc, dosage.DefaultCatalog(), logger.Nop(), opts...)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(i18n.Middleware)
	r.Mount("/api/v1", h.APIRoutes())
	r.Mount("/", h.Routes())
	return r, up
}

func seedLookup(up *testutil.FakeUpstream) {
	up.Raw(http.MethodGet, "/units", http.StatusOK,
		`[{"id": 1, "internal_id": "101", "name": "UBS Centro"}, {"id": 2, "name": "UBS Norte"}]`)
	up.Raw(http.MethodGet, "/items", http.StatusOK, `[
		{"id": 10, "name": "Clonazepam", "is_controlled": true},
		{"id": 11, "name": "Ácido Fólico"},
		{"id": 12, "name": "Insulina", "is_special_program": true}
	]`)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	Meta *struct {
		Total int `json:"total"`
	} `json:"meta"`
}

func decode(t *testing.T, body []byte) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	return env
}

func TestSortLink(t *testing.T) {
	u, err := url.Parse("/?by=unit&unit=1&sort=name.1")
	require.NoError(t, err)
	link := sortLink(u)

	state := tablesort.State{{Key: "batch", Order: tablesort.Ascending}, {Key: "quantity", Order: tablesort.Descending}}
	assert.Equal(t, "/?by=unit&unit=1&sort=batch.1,quantity.2", link(state))
	assert.Equal(t, "/?by=unit&unit=1", link(nil))

	flashed, err := url.Parse("/faltas/1?date=2024-05-07&feedback=sent")
	require.NoError(t, err)
	assert.Equal(t, "/faltas/1?date=2024-05-07", sortLink(flashed)(nil))

	bare := sortLink(&url.URL{Path: "/dispensacao/dia"})
	assert.Equal(t, "/dispensacao/dia?sort=item_name.1", bare(tablesort.State{{Key: "item_name", Order: tablesort.Ascending}}))
}

func TestStockPage_SortsByQuery(t *testing.T) {
	h, up := newRouter(t)
	seedLookup(up)
	up.Raw(http.MethodGet, "/item/lookup/10", http.StatusOK, `{
		"UBS Centro": [{"batch": "A", "expiry_date": "2025-01-01", "quantity": 9}],
		"UBS Norte": [{"batch": "B", "expiry_date": "2025-02-01", "quantity": 5}]
	}`)

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodGet, "/?by=medication&item=10&sort=quantity.1", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	body := rr.Body.String()
	assert.Less(t, strings.Index(body, "UBS Norte</td>"), strings.Index(body, "UBS Centro</td>"))
	assert.Contains(t, body, "Quantidade ↑")
	assert.Contains(t, body, "sort=quantity.2")
	assert.Contains(t, body, "01/01/2025")
	assert.Contains(t, body, "Limpar ordenação")
}

func TestStockPage_ByUnitFallsBackToItemID(t *testing.T) {
	h, up := newRouter(t)
	seedLookup(up)
	up.Raw(http.MethodGet, "/unit/lookup/2", http.StatusOK,
		`{"10": [{"batch": "L1", "expiry_date": "2025-01-01", "quantity": 1}], "99": [{"batch": "L2", "expiry_date": "bad", "quantity": 2}]}`)

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodGet, "/?by=unit&unit=2", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertBodyContains(t, rr, "<td>Clonazepam</td>")
	testutil.AssertBodyContains(t, rr, "<td>99</td>")
	testutil.AssertBodyContains(t, rr, "<td>bad</td>")
}

func TestStockPage_UpstreamDownRendersEmpty(t *testing.T) {
	h, _ := newRouter(t)

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodGet, "/?by=medication&item=10", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertBodyContains(t, rr, "Não foi possível carregar os dados do estoque")
	testutil.AssertBodyContains(t, rr, "Nenhum dado encontrado")
}

func TestPages_English(t *testing.T) {
	h, up := newRouter(t)
	seedLookup(up)

	req := testutil.NewHTTPRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en-US")
	rr := testutil.ExecuteRequest(h, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertBodyContains(t, rr, "Stock lookup")
	testutil.AssertBodyContains(t, rr, `<html lang="en">`)
}

func TestDispensationPage_DefaultsToToday(t *testing.T) {
	h, up := newRouter(t)
	seedLookup(up)
	up.Raw(http.MethodGet, "/dispensation/by_hour/unit_item/1/10/2024-05-07", http.StatusOK, `[
		[1, 10, 1, "x", "2024-05-07T13:05:00", 3, "dispensation", "L9"],
		[2, 10, 1, "x", "2024-05-07T09:00:00", 8, "entrada", "L8"]
	]`)

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodGet, "/dispensacao?unit=1&item=10&sort=timestamp.1", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	body := rr.Body.String()
	assert.Contains(t, body, `value="2024-05-07"`)
	assert.Contains(t, body, "<td>Saída</td>")
	assert.Contains(t, body, "07/05/2024, 13:05:00")
	assert.Less(t, strings.Index(body, "09:00:00"), strings.Index(body, "13:05:00"))
}

func TestDispensationDayPage_HidesInactiveItems(t *testing.T) {
	h, up := newRouter(t)
	seedLookup(up)
	up.Raw(http.MethodGet, "/dispensation/by_day/unit/1/2024-05-01", http.StatusOK,
		`[[10, 5, 2], [11, 0, 0], [77, null, 4]]`)

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodGet, "/dispensacao/dia?unit=1&date=2024-05-01", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	body := rr.Body.String()
	assert.Contains(t, body, "<td>Clonazepam</td>")
	assert.Contains(t, body, "<td>ID: 77</td>")
	assert.NotContains(t, body, "<td>Ácido Fólico</td>")
}

func TestRestockPage_Categorises(t *testing.T) {
	h, up := newRouter(t)
	seedLookup(up)
	up.Raw(http.MethodGet, "/restock/cache/small/1", http.StatusOK, `[
		{"item_id": 10, "restock_request_quantity": 5, "timestamp": "2024-05-07T12:00:00"},
		{"item_id": 11, "restock_request_quantity": 0, "timestamp": "2024-05-07T12:00:00"},
		{"item_id": 12, "restock_request_quantity": 3, "timestamp": "2024-05-07T12:00:00"}
	]`)

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodGet, "/pedidos/1?variant=small", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	body := rr.Body.String()
	assert.Contains(t, body, "Sugestões de pedido para UBS Centro")
	assert.Contains(t, body, "07/05/2024, 12:00:00")
	assert.Contains(t, body, "Medicamentos controlados")
	assert.Contains(t, body, "Medicamentos de programas especiais")
	assert.NotContains(t, body, "Medicamentos comuns")
	assert.Contains(t, body, `class="active">Pedido pequeno`)
}

func TestRestockUnitsPage(t *testing.T) {
	h, up := newRouter(t)
	seedLookup(up)
	up.Raw(http.MethodGet, "/restock/cache/unique-units", http.StatusOK, `{"unique_unit_ids": [2, 55]}`)

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodGet, "/pedidos", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertBodyContains(t, rr, `<a href="/pedidos/2">UBS Norte</a>`)
	testutil.AssertBodyContains(t, rr, `<a href="/pedidos/55">55</a>`)
}

func TestHistoryPage_Navigation(t *testing.T) {
	h, up := newRouter(t)
	seedLookup(up)
	up.JSON(http.MethodGet, "/restock/summed/2024-05-01", http.StatusOK, []any{})

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodGet, "/historico?date=2024-05-01", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	body := rr.Body.String()
	assert.Contains(t, body, "/historico?date=2024-04-30")
	assert.Contains(t, body, "/historico?date=2024-05-02")
	assert.Contains(t, body, "01/05/2024")
	assert.Contains(t, body, "Nenhuma entrada nesta data")
}

func seedSettings(up *testutil.FakeUpstream) {
	up.Raw(http.MethodGet, "/restock/settings/101", http.StatusOK,
		`[{"item_id": 10, "min_stock": 5, "max_stock": 50, "mean_daily_consumption": 1.5, "minimum_possible_quantity": 2}]`)
	up.Raw(http.MethodGet, "/settings_override/all", http.StatusOK,
		`{"overrides": [{"unit_id": "101", "item_id": 10, "max_stock": 80}, {"unit_id": "202", "item_id": 10, "min_stock": 1}]}`)
}

func TestSettingsPage_ShowsOverrides(t *testing.T) {
	h, up := newRouter(t)
	seedLookup(up)
	seedSettings(up)

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodGet, "/opcoes/101", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	body := rr.Body.String()
	assert.Contains(t, body, "<h2>UBS Centro</h2>")
	assert.Contains(t, body, `placeholder="80"`)
	assert.Contains(t, body, `placeholder="5"`)
	assert.Contains(t, body, "Resetar Max")
	assert.NotContains(t, body, "Resetar Min")
}

func TestSaveSettingForm_SendsFilledFields(t *testing.T) {
	h, up := newRouter(t)
	up.JSON(http.MethodPost, "/settings_override", http.StatusOK, map[string]string{"status": "ok"})

	form := url.Values{"item_id": {"10"}, "max_stock": {"80,5"}, "min_stock": {""}}
	rr := testutil.ExecuteRequest(h, testutil.NewFormRequest("/opcoes/101", form))

	testutil.AssertStatus(t, rr, http.StatusSeeOther)
	assert.Equal(t, "/opcoes/101?ok=saved", rr.Header().Get("Location"))

	var sent map[string]any
	for _, req := range up.Requests() {
		if req.Method == http.MethodPost {
			require.NoError(t, json.Unmarshal(req.Body, &sent))
		}
	}
	assert.Equal(t, map[string]any{"unit_id": "101", "item_id": "10", "max_stock": 80.5}, sent)
}

func TestSaveSettingForm_RejectsNegative(t *testing.T) {
	h, up := newRouter(t)
	seedLookup(up)
	seedSettings(up)

	form := url.Values{"item_id": {"10"}, "max_stock": {"-1"}}
	rr := testutil.ExecuteRequest(h, testutil.NewFormRequest("/opcoes/101", form))

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	testutil.AssertBodyContains(t, rr, "Falha na validação")
	testutil.AssertBodyContains(t, rr, "max_stock: must be a non-negative number")
	assert.Zero(t, up.Count(http.MethodPost, "/settings_override"))
}

func TestResetSettingForm(t *testing.T) {
	h, up := newRouter(t)
	up.JSON(http.MethodDelete, "/settings_override/field", http.StatusOK, nil)

	form := url.Values{"item_id": {"10"}, "field": {"max_stock"}}
	rr := testutil.ExecuteRequest(h, testutil.NewFormRequest("/opcoes/101/reset", form))

	testutil.AssertStatus(t, rr, http.StatusSeeOther)
	assert.Equal(t, "/opcoes/101?ok=reset", rr.Header().Get("Location"))
	assert.Equal(t, 1, up.Count(http.MethodDelete, "/settings_override/field"))
}

func TestSettingForms_UpstreamDownRendersBanner(t *testing.T) {
	h, up := newRouter(t)
	seedLookup(up)
	seedSettings(up)
	up.Fail(http.MethodPost, "/settings_override", http.StatusServiceUnavailable)
	up.Fail(http.MethodDelete, "/settings_override/field", http.StatusServiceUnavailable)

	tests := map[string]struct {
		path string
		form url.Values
	}{
		"save":  {path: "/opcoes/101", form: url.Values{"item_id": {"10"}, "max_stock": {"80"}}},
		"reset": {path: "/opcoes/101/reset", form: url.Values{"item_id": {"10"}, "field": {"max_stock"}}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rr := testutil.ExecuteRequest(h, testutil.NewFormRequest(tt.path, tt.form))

			testutil.AssertStatus(t, rr, http.StatusOK)
			testutil.AssertBodyContains(t, rr, `<div class="banner error" role="alert">O serviço de estoque está indisponível</div>`)
			testutil.AssertBodyContains(t, rr, "<h2>UBS Centro</h2>")
		})
	}
}

func TestMissingPage_UsesDashboardToday(t *testing.T) {
	h, up := newRouter(t)
	seedLookup(up)
	up.Raw(http.MethodGet, "/stock/out_of_stock/1/2024-05-07", http.StatusOK,
		`{"missing_items": [{"id": 11, "name": "Ácido Fólico"}]}`)

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodGet, "/faltas/1", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertBodyContains(t, rr, "<li>Ácido Fólico</li>")
	testutil.AssertBodyContains(t, rr, "UBS Centro · 07/05/2024")
}

func TestAnalysisPage(t *testing.T) {
	h, up := newRouter(t)
	seedLookup(up)
	up.Raw(http.MethodGet, "/restock/days_left/101", http.StatusOK,
		`[{"item_id": 10, "days_left": 12.345, "mean_daily_consumption": 2, "total_quantity": 24.69}]`)

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodGet, "/analise/101", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertBodyContains(t, rr, "<td>Clonazepam</td><td>12.35</td><td>2</td><td>24.69</td>")
}

func TestCalculatorPage_StartsWithOneRow(t *testing.T) {
	h, _ := newRouter(t)

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodGet, "/calculadora", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	body := rr.Body.String()
	assert.Equal(t, 1, strings.Count(body, `<select name="medication">`))
	assert.Contains(t, body, `name="delivery_date" value="2024-05-07"`)
	assert.Contains(t, body, "Clonazepam 2,5mg/mL")
}

func TestCalculatorForm_ComputesAndAddsRow(t *testing.T) {
	h, _ := newRouter(t)

	form := url.Values{
		"medication":    {"Clonazepam 2,5mg/mL"},
		"delivery_date": {"2024-05-07"},
		"containers":    {"1"},
		"dose":          {"5"},
		"action":        {"add"},
	}
	rr := testutil.ExecuteRequest(h, testutil.NewFormRequest("/calculadora", form))

	testutil.AssertStatus(t, rr, http.StatusOK)
	body := rr.Body.String()
	assert.Equal(t, 2, strings.Count(body, `<select name="medication">`))
	assert.Contains(t, body, "<td>15/08/2024</td>")
	assert.Contains(t, body, "<td>100.0</td>")
	assert.Contains(t, body, "Medicamento da Lista B1")
	assert.Contains(t, body, "Total de gotas em 1 frasco de Clonazepam 2,5mg/mL segundo bula: 500")
	assert.Contains(t, body, "<small>Tipo de controle: Lista B1</small>")
	// the added row has no medication yet
	assert.Equal(t, 1, strings.Count(body, "Tipo de controle"))
}

func TestCalculatorForm_RemoveRow(t *testing.T) {
	h, _ := newRouter(t)

	form := url.Values{
		"medication":    {"Clonazepam 2,5mg/mL", "Carbamazepina 20mg/mL"},
		"delivery_date": {"2024-05-07", "2024-05-07"},
		"containers":    {"1", "2"},
		"dose":          {"5", "10"},
		"action":        {"remove:0"},
	}
	rr := testutil.ExecuteRequest(h, testutil.NewFormRequest("/calculadora", form))

	testutil.AssertStatus(t, rr, http.StatusOK)
	body := rr.Body.String()
	assert.Equal(t, 1, strings.Count(body, `<select name="medication">`))
	assert.Contains(t, body, "Dose diária (em mL)")
	assert.Contains(t, body, "<td>20.0</td>")
	assert.NotContains(t, body, "Medicamento da Lista B1")
	assert.Contains(t, body, "<small>Tipo de controle: Lista C1</small>")
}

func TestCalculateAPI(t *testing.T) {
	h, _ := newRouter(t)

	req := testutil.NewHTTPRequest(http.MethodPost, "/api/v1/calculations", map[string]any{
		"rows": []map[string]any{
			{"medication": "Fenobarbital 40 mg/mL", "delivery_date": "2024-05-07", "containers": 1, "daily_dose": 10},
			{"medication": "Unknown"},
			{"medication": "Insulina Caneta", "daily_dose": 0},
			{"medication": "insulina frasco", "containers": -3},
		},
	})
	rr := testutil.ExecuteRequest(h, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	env := decode(t, rr.Body.Bytes())
	require.True(t, env.Success)
	assert.Equal(t, 4, env.Meta.Total)

	var rows []calculationResult
	require.NoError(t, json.Unmarshal(env.Data, &rows))

	require.NotNil(t, rows[0].DaysCovered)
	assert.Equal(t, 80.0, *rows[0].DaysCovered)
	assert.Equal(t, "2024-07-26T00:00:00-03:00", *rows[0].ReturnDate)
	require.NotNil(t, rows[0].Advisory)
	assert.Equal(t, dosage.ScheduleC1, rows[0].Advisory.Schedule)
	assert.Contains(t, rows[0].Advisory.Message, "Portaria 344/98 Art. 59")

	assert.Nil(t, rows[1].Medication)
	assert.Nil(t, rows[1].DaysCovered)
	assert.Equal(t, "2024-05-07", *rows[1].DeliveryDate)

	assert.Nil(t, rows[2].DaysCovered)
	assert.Nil(t, rows[2].ReturnDate)

	assert.Equal(t, 0.0, rows[3].Containers)
	require.NotNil(t, rows[3].DaysCovered)
	assert.Equal(t, 0.0, *rows[3].DaysCovered)
	assert.Nil(t, rows[3].Advisory)
}

func TestCalculateAPI_Validation(t *testing.T) {
	h, _ := newRouter(t)

	tests := map[string]any{
		"empty":    map[string]any{"rows": []any{}},
		"bad date": map[string]any{"rows": []map[string]any{{"medication": "x", "delivery_date": "07/05/2024"}}},
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodPost, "/api/v1/calculations", body))
			testutil.AssertStatus(t, rr, http.StatusBadRequest)
			env := decode(t, rr.Body.Bytes())
			assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
		})
	}
}

func TestAPI_UpstreamDownIs502(t *testing.T) {
	h, _ := newRouter(t)

	for _, path := range []string{"/api/v1/units", "/api/v1/stock/items/10", "/api/v1/out-of-stock/1"} {
		rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodGet, path, nil))
		testutil.AssertStatus(t, rr, http.StatusBadGateway)
		env := decode(t, rr.Body.Bytes())
		assert.Equal(t, "UPSTREAM_UNAVAILABLE", env.Error.Code, path)
		assert.Equal(t, "O serviço de estoque está indisponível", env.Error.Message, path)
	}
}

func TestAPI_ItemSearchIgnoresAccents(t *testing.T) {
	h, up := newRouter(t)
	seedLookup(up)

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodGet, "/api/v1/items?q=ACIDO", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	env := decode(t, rr.Body.Bytes())
	assert.Equal(t, 1, env.Meta.Total)
	assert.Contains(t, string(env.Data), "Ácido Fólico")
}

func TestAPI_UnitStockSorted(t *testing.T) {
	h, up := newRouter(t)
	seedLookup(up)
	up.Raw(http.MethodGet, "/unit/lookup/1", http.StatusOK,
		`{"10": [{"batch": "L1", "expiry_date": "2025-01-01", "quantity": 1}], "11": [{"batch": "L2", "expiry_date": "2025-03-01", "quantity": 2}]}`)

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodGet, "/api/v1/stock/units/1?sort=name.1", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	var rows []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rr.Body.Bytes()).Data, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "Ácido Fólico", rows[0].Name)
	assert.Equal(t, "Clonazepam", rows[1].Name)
}

func TestAPI_DispensationRequiresUnit(t *testing.T) {
	h, _ := newRouter(t)

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodGet, "/api/v1/dispensation/hourly?unit=1", nil))

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	env := decode(t, rr.Body.Bytes())
	assert.Equal(t, "this field is required", env.Error.Details["item"])
}

func TestAPI_SaveOverride(t *testing.T) {
	h, up := newRouter(t)
	up.JSON(http.MethodPost, "/settings_override", http.StatusOK, map[string]string{"status": "ok"})

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodPost, "/api/v1/settings/101/overrides",
		map[string]any{"item_id": "10", "min_stock": 3}))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, 1, up.Count(http.MethodPost, "/settings_override"))

	rr = testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodPost, "/api/v1/settings/101/overrides",
		map[string]any{"item_id": "10", "min_stock": -2}))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	assert.Equal(t, "must be greater than or equal to 0", decode(t, rr.Body.Bytes()).Error.Details["min_stock"])

	rr = testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodPost, "/api/v1/settings/101/overrides",
		map[string]any{"item_id": "10"}))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	assert.Equal(t, 1, up.Count(http.MethodPost, "/settings_override"))
}

func TestAPI_ResetOverrideField(t *testing.T) {
	h, up := newRouter(t)
	up.JSON(http.MethodDelete, "/settings_override/field", http.StatusOK, nil)

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodDelete, "/api/v1/settings/101/overrides/10/min_stock", nil))
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	rr = testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodDelete, "/api/v1/settings/101/overrides/10/color", nil))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	assert.Equal(t, 1, up.Count(http.MethodDelete, "/settings_override/field"))
}

func TestAPI_AuditWithoutStoreIsEmpty(t *testing.T) {
	h, _ := newRouter(t)

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodGet, "/api/v1/settings/101/audit", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, 0, decode(t, rr.Body.Bytes()).Meta.Total)
}

func TestAPI_Medications(t *testing.T) {
	h, _ := newRouter(t)

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodGet, "/api/v1/medications", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, len(dosage.DefaultCatalog().Profiles()), decode(t, rr.Body.Bytes()).Meta.Total)
}
