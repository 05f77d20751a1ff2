package i18n

import "net/http"

// CookieName holds an explicit language choice made through ?lang=.
const CookieName = "lang"

// Middleware negotiates the request language and injects its localizer.
// Precedence: ?lang= query, lang cookie, Accept-Language, then def.
func Middleware(def string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var prefs []string
			if q := r.URL.Query().Get("lang"); q != "" {
				prefs = append(prefs, q)
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    Negotiate(q),
					Path:     "/",
					MaxAge:   365 * 24 * 3600,
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			if c, err := r.Cookie(CookieName); err == nil {
				prefs = append(prefs, c.Value)
			}
			prefs = append(prefs, r.Header.Get("Accept-Language"), def)

			ctx := WithLocalizer(r.Context(), Negotiate(prefs...))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
