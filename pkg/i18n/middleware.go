package i18n

import "net/http"

// Middleware stores the request's locale in its context. ?lang=en beats the
// Accept-Language header so a page can be linked in a given language.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pref := r.URL.Query().Get("lang")
		if pref == "" {
			pref = r.Header.Get("Accept-Language")
		}
		next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), ParseAcceptLanguage(pref))))
	})
}
