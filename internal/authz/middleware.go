package authz

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/velvetcask/velvetcask/internal/platform/httpx"
	"github.com/velvetcask/velvetcask/internal/shared"
)

// Middleware wires permission checks into HTTP handlers.
type Middleware struct {
	Logger      *slog.Logger
	IdleTimeout time.Duration

	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time
}

func (m Middleware) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// RequireSession rejects unauthenticated or idle-expired requests and
// attaches the actor snapshot to the request context. A surviving
// session has its activity refreshed.
func (m Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store := shared.SessionFromContext(r.Context())
		if store == nil || store.UserID() == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
			return
		}
		sess := Session{
			UserID:       store.UserID(),
			DisplayName:  store.DisplayName(),
			Role:         ParseRole(store.Role()),
			LastActivity: store.LastActivity(),
		}
		now := m.now()
		if IsSessionExpired(sess, m.IdleTimeout, now) {
			if m.Logger != nil {
				m.Logger.Info("session expired", slog.String("user_id", sess.UserID))
			}
			store.Destroy()
			httpx.Problem(w, http.StatusUnauthorized, "Session Expired", "please sign in again")
			return
		}
		store.Touch(now)
		sess.LastActivity = now
		next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), sess)))
	})
}

// RequireRoute denies requests whose path falls outside the actor's
// allowed route prefixes.
func (m Middleware) RequireRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
			return
		}
		if !CanAccessRoute(sess.Role, r.URL.Path) {
			if m.Logger != nil {
				m.Logger.Warn("route denied",
					slog.String("user_id", sess.UserID),
					slog.String("role", string(sess.Role)),
					slog.String("path", r.URL.Path))
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "not authorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAction denies requests whose actor may not perform the action
// on the resource.
func (m Middleware) RequireAction(resource Resource, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			if !CanPerformAction(sess.Role, resource, action) {
				if m.Logger != nil {
					m.Logger.Warn("action denied",
						slog.String("user_id", sess.UserID),
						slog.String("role", string(sess.Role)),
						slog.String("resource", string(resource)),
						slog.String("action", string(action)))
				}
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "not authorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
