package identity

import (
	"net/http"
	"strings"

	"github.com/anved/listkeeper/internal/api"
	"github.com/anved/listkeeper/internal/appctx"
	"github.com/anved/listkeeper/internal/store"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "listkeeper_session"

// NewAuthGate returns a middleware that enforces session authentication on
// every wrapped route. The authenticated user is attached to the request
// context and the request logger is enriched with the user id.
func NewAuthGate(sessions SessionRepo, users store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractSessionToken(r)
			if token == "" {
				api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
				return
			}

			session, err := sessions.Get(r.Context(), token)
			if err != nil {
				if err == ErrSessionExpired {
					api.WriteUnauthorized(w, api.ReasonSessionExpired, "session has expired")
					return
				}
				api.WriteUnauthorized(w, api.ReasonUnauthenticated, "session not found or expired")
				return
			}

			user, err := users.GetUser(r.Context(), session.UserID)
			if err != nil {
				api.WriteUnauthorized(w, api.ReasonUnauthenticated, "session user not found")
				return
			}

			ctx := WithUser(r.Context(), user)
			reqLogger := appctx.GetLogger(ctx).With("user_id", user.ID)
			ctx = appctx.WithLogger(ctx, reqLogger)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractSessionToken gets the session token from cookie or Authorization
// header, cookie first.
func ExtractSessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookie)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
