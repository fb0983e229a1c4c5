package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestT_DefaultsToPortuguese(t *testing.T) {
	assert.Equal(t, "Lote", T("columns.batch"))
	assert.Equal(t, "Sugestões de pedido para UBS Centro", T("restock.title", map[string]string{"unit": "UBS Centro"}))
}

func TestLocalizer_FallsBack(t *testing.T) {
	en := NewLocalizer(LocaleEnglish)
	assert.Equal(t, "Batch", en.T("columns.batch"))
	assert.Equal(t, "missing.key", en.T("missing.key"))

	unknown := NewLocalizer("fr")
	assert.Equal(t, LocalePortuguese, unknown.Locale())
}

func TestLocaleFilesHaveTheSameKeys(t *testing.T) {
	loadCatalogs()
	require.NoError(t, catalogErr)
	pt, en := catalogs[LocalePortuguese], catalogs[LocaleEnglish]

	assert.NotEmpty(t, pt)
	for k := range pt {
		assert.Contains(t, en, k)
	}
	for k := range en {
		assert.Contains(t, pt, k)
	}
}

func TestParseAcceptLanguage(t *testing.T) {
	tests := map[string]string{
		"":                       LocalePortuguese,
		"en-US,en;q=0.9":         LocaleEnglish,
		"pt-PT":                  LocalePortuguese,
		"de-DE":                  LocalePortuguese,
		"fr;q=0.9, en-GB;q=0.8":  LocaleEnglish,
		"not a language header!": LocalePortuguese,
	}
	for header, want := range tests {
		assert.Equal(t, want, ParseAcceptLanguage(header), header)
	}
}

func TestMiddleware(t *testing.T) {
	var got string
	h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = GetLocaleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, LocaleEnglish, got)

	req = httptest.NewRequest(http.MethodGet, "/?lang=pt-BR", nil)
	req.Header.Set("Accept-Language", "en")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, LocalePortuguese, got)

	assert.Equal(t, DefaultLocale, GetLocaleFromContext(context.Background()))
}
