package httputil

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medflow/medflow-dispensary/pkg/errors"
	"github.com/medflow/medflow-dispensary/pkg/i18n"
)

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestJSONList_NilIsEmpty(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONList[string](rec, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":[],"meta":{"total":0}}`, rec.Body.String())
}

func TestError_HidesUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), stderrors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestError_LocalizesAppErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(i18n.WithLocale(req.Context(), i18n.LocalePortuguese))
	rec := httptest.NewRecorder()

	Error(rec, req, errors.Validation(map[string]string{"min_stock": "must be at least 0"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "Falha na validação", resp.Error.Message)
	assert.Equal(t, map[string]string{"min_stock": "must be at least 0"}, resp.Error.Details)
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		ItemID string `json:"item_id"`
	}

	tests := map[string]struct {
		raw     string
		wantErr bool
	}{
		"ok":            {raw: `{"item_id":"10"}`},
		"unknown field": {raw: `{"item_id":"10","price":3}`, wantErr: true},
		"malformed":     {raw: `{"item_id":`, wantErr: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.raw))
			req = req.WithContext(i18n.WithLocale(context.Background(), i18n.LocaleEnglish))

			var b body
			err := DecodeJSON(req, &b)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "10", b.ItemID)
				return
			}

			var appErr *errors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
			assert.Equal(t, i18n.NewLocalizer(i18n.LocaleEnglish).T("errors.invalid_json"), appErr.Localize(req.Context()))
		})
	}
}
