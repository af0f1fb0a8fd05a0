package auth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/velvetcask/velvetcask/internal/audit"
	"github.com/velvetcask/velvetcask/internal/authz"
	"github.com/velvetcask/velvetcask/internal/platform/httpx"
	"github.com/velvetcask/velvetcask/internal/shared"
)

// AuditRecorder appends audit records for login/logout events.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) (string, error)
}

// Handler serves the authentication endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	sessions *shared.SessionManager
	csrf     *shared.CSRFManager
	recorder AuditRecorder
	now      func() time.Time
}

// NewHandler constructs the auth Handler.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, recorder AuditRecorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		sessions: sessions,
		csrf:     csrf,
		recorder: recorder,
		now:      time.Now,
	}
}

// MountRoutes registers the auth endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
	r.With(limiter).Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/session", h.handleSession)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	CSRFToken   string `json:"csrfToken"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "email and password required")
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
			return
		}
		h.logger.Error("authenticate", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	now := h.now()
	sess.SetIdentity(user.ID, user.DisplayName, user.Role, now)
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, now.Add(h.sessions.TTL()), clientIP(r), r.UserAgent()); err != nil {
		h.logger.Error("register session", slog.Any("error", err))
	}
	token, err := h.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Error("issue csrf token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	if _, err := h.recorder.Record(r.Context(), audit.Entry{
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Action:    audit.ActionLogin,
		Resource:  string(authz.ResourceCompliance),
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}); err != nil {
		h.logger.Error("record login", slog.Any("error", err))
	}

	httpx.JSON(w, http.StatusOK, sessionResponse{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		CSRFToken:   token,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.UserID() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "not signed in")
		return
	}
	if _, err := h.recorder.Record(r.Context(), audit.Entry{
		UserID:    sess.UserID(),
		UserName:  sess.DisplayName(),
		Action:    audit.ActionLogout,
		Resource:  string(authz.ResourceCompliance),
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}); err != nil {
		h.logger.Error("record logout", slog.Any("error", err))
	}
	if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
		h.logger.Error("remove session", slog.Any("error", err))
	}
	sess.Destroy()
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.UserID() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "not signed in")
		return
	}
	token, err := h.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Error("issue csrf token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{
		UserID:      sess.UserID(),
		DisplayName: sess.DisplayName(),
		Role:        sess.Role(),
		CSRFToken:   token,
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
