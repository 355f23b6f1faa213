package api

import (
	"context"
	"net/http"
	"strings"

	"arena-shooter/internal/game"
)

// UserIDHeader carries the acting user. Authentication happens upstream;
// the arena trusts whatever identity the gateway forwards.
const UserIDHeader = "X-User-ID"

// userIDQueryParam is the WebSocket fallback, since browsers cannot set
// headers on the upgrade request.
const userIDQueryParam = "userId"

const maxUserIDLength = 64

type ctxKey int

const userIDKey ctxKey = iota

// UserIDFromRequest extracts the acting user from the header or, failing
// that, the userId query parameter.
func UserIDFromRequest(r *http.Request) (game.UserID, bool) {
	id := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get(userIDQueryParam))
	}
	if id == "" || len(id) > maxUserIDLength {
		return "", false
	}
	return game.UserID(id), true
}

// RequireUser rejects requests without a user id and stores it in the
// request context.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFromRequest(r)
		if !ok {
			writeError(w, "Missing "+UserIDHeader+" header", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext returns the user stored by RequireUser.
func UserIDFromContext(ctx context.Context) game.UserID {
	id, _ := ctx.Value(userIDKey).(game.UserID)
	return id
}
