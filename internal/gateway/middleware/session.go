package middleware

import (
	"context"
	"net/http"
	"strings"

	"cppolygon/internal/api"
	"cppolygon/internal/session"
)

// CookieName is the browser cookie holding the session id.
const CookieName = "polygon_session"

type sessionKey struct{}

// Session resolves the caller's session from the session header or cookie,
// creating one when neither names a live session, and stores it in the
// request context. The effective id is echoed in the header and cookie.
func Session(reg *session.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			st, created := reg.Resolve(requestedID(r))
			w.Header().Set(api.SessionHeader, st.ID())
			if created {
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    st.ID(),
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), st)))
		})
	}
}

// WithSession stores st in ctx.
func WithSession(ctx context.Context, st *session.Store) context.Context {
	return context.WithValue(ctx, sessionKey{}, st)
}

// SessionFrom returns the session stored by Session.
func SessionFrom(ctx context.Context) (*session.Store, bool) {
	st, ok := ctx.Value(sessionKey{}).(*session.Store)
	return st, ok && st != nil
}

func requestedID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(api.SessionHeader)); id != "" {
		return id
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}
