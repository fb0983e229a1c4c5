// Package i18n translates dashboard labels, column headers and error
// messages. Brazilian Portuguese is the default; English is the only other
// locale.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed messages/*.json
var messagesFS embed.FS

const (
	LocalePortuguese = "pt-BR"
	LocaleEnglish    = "en"
	DefaultLocale    = LocalePortuguese
)

// supported is indexed by the matcher's result, so the default comes first.
var (
	supported = []string{LocalePortuguese, LocaleEnglish}
	matcher   = language.NewMatcher([]language.Tag{language.BrazilianPortuguese, language.English})
)

// catalogs maps locale to flattened "section.key" messages.
var (
	catalogs    map[string]map[string]string
	catalogErr  error
	catalogOnce sync.Once
)

func loadCatalogs() {
	catalogOnce.Do(func() {
		catalogs = make(map[string]map[string]string, len(supported))
		for _, locale := range supported {
			raw, err := messagesFS.ReadFile("messages/" + locale + ".json")
			if err != nil {
				catalogErr = err
				continue
			}
			var tree map[string]any
			if err := json.Unmarshal(raw, &tree); err != nil {
				catalogErr = fmt.Errorf("messages/%s.json: %w", locale, err)
				continue
			}
			flat := make(map[string]string)
			flattenInto(flat, "", tree)
			catalogs[locale] = flat
		}
	})
}

func flattenInto(dst map[string]string, prefix string, tree map[string]any) {
	for k, v := range tree {
		if prefix != "" {
			k = prefix + "." + k
		}
		switch v := v.(type) {
		case string:
			dst[k] = v
		case map[string]any:
			flattenInto(dst, k, v)
		}
	}
}

// Localizer translates keys for one locale.
type Localizer struct {
	locale string
}

// NewLocalizer returns a localizer for locale, or for DefaultLocale when
// locale is not supported.
func NewLocalizer(locale string) *Localizer {
	loadCatalogs()
	if _, ok := catalogs[locale]; !ok {
		locale = DefaultLocale
	}
	return &Localizer{locale: locale}
}

// LocalizerFromContext uses the locale stored by Middleware.
func LocalizerFromContext(ctx context.Context) *Localizer {
	return NewLocalizer(GetLocaleFromContext(ctx))
}

func (l *Localizer) Locale() string { return l.locale }

// T looks up key, then the same key in DefaultLocale, and finally returns
// the key itself. {name} placeholders are filled from params.
func (l *Localizer) T(key string, params ...map[string]string) string {
	msg, ok := catalogs[l.locale][key]
	if !ok {
		msg, ok = catalogs[DefaultLocale][key]
	}
	if !ok {
		return key
	}
	if len(params) == 0 || len(params[0]) == 0 {
		return msg
	}
	pairs := make([]string, 0, 2*len(params[0]))
	for k, v := range params[0] {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

type localeKey struct{}

func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey{}, locale)
}

// GetLocaleFromContext returns DefaultLocale when ctx carries none.
func GetLocaleFromContext(ctx context.Context) string {
	if locale, _ := ctx.Value(localeKey{}).(string); locale != "" {
		return locale
	}
	return DefaultLocale
}

// ParseAcceptLanguage picks the supported locale closest to an
// Accept-Language header. A bare tag such as "en" works too.
func ParseAcceptLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	if _, idx, conf := matcher.Match(tags...); conf != language.No {
		return supported[idx]
	}
	return DefaultLocale
}

// T translates key in DefaultLocale.
func T(key string, params ...map[string]string) string {
	return NewLocalizer(DefaultLocale).T(key, params...)
}

func TFromContext(ctx context.Context, key string, params ...map[string]string) string {
	return LocalizerFromContext(ctx).T(key, params...)
}
