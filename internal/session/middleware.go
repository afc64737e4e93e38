package session

import (
	"context"
	"net/http"
	"strings"

	"FurniStore/pkg/kit"
)

type ctxKey string

const sessionKey ctxKey = "session"

func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionKey).(string)
	return id, ok && id != ""
}

func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey, id)
}

// Require resolves the bearer token into a session id. Browsers cannot set
// headers on websocket handshakes, so ?token= is accepted as well.
func Require(tm *TokenMaker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				raw = r.URL.Query().Get("token")
			}
			if raw == "" {
				kit.WriteError(w, r, http.StatusUnauthorized, "missing session token", nil)
				return
			}

			claims, err := tm.Parse(raw)
			if err != nil {
				kit.WriteError(w, r, http.StatusUnauthorized, "invalid session token", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), claims.SessionID)))
		})
	}
}
