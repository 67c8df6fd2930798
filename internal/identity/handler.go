package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/anved/listkeeper/internal/api"
	"github.com/anved/listkeeper/internal/cache"
	"github.com/anved/listkeeper/internal/logutil"
	"github.com/anved/listkeeper/internal/store"
)

// DefaultSessionTTL is how long a session stays valid.
const DefaultSessionTTL = 24 * time.Hour

// loginRateLimit is the number of login attempts allowed per client IP in
// one rate-limit window.
const loginRateLimit = 10

// Handler exposes the auth endpoints: register, login, logout, me.
type Handler struct {
	users      store.UserStore
	auth       *UserAuth
	sessions   SessionRepo
	limiter    cache.Counter
	logger     *slog.Logger
	sessionTTL time.Duration
	secure     bool
}

// NewHandler creates an auth handler. The limiter may be nil to disable
// login rate limiting (tests).
func NewHandler(users store.UserStore, auth *UserAuth, sessions SessionRepo, limiter cache.Counter, logger *slog.Logger) *Handler {
	return &Handler{
		users:      users,
		auth:       auth,
		sessions:   sessions,
		limiter:    limiter,
		logger:     logutil.NoopIfNil(logger),
		sessionTTL: DefaultSessionTTL,
	}
}

// WithSessionTTL overrides the session lifetime.
func (h *Handler) WithSessionTTL(ttl time.Duration) *Handler {
	h.sessionTTL = ttl
	return h
}

// WithSecureCookies marks session cookies Secure; enable when serving TLS.
func (h *Handler) WithSecureCookies(secure bool) *Handler {
	h.secure = secure
	return h
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User  *store.User `json:"user"`
	Token string      `json:"token"`
}

// HandleRegister handles POST /api/auth/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		api.WriteBadRequest(w, "name is required")
		return
	}
	email := NormalizeEmail(req.Email)
	if email == "" {
		api.WriteBadRequest(w, "email is required")
		return
	}
	if len(req.Password) < 8 {
		api.WriteBadRequest(w, "password must be at least 8 characters")
		return
	}

	hash, err := h.auth.HashPassword(req.Password)
	if err != nil {
		api.WriteInternalError(w, "failed to process password")
		return
	}

	user := &store.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := h.users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			api.WriteErr(w, api.Conflict("Email already registered"))
			return
		}
		api.WriteErr(w, err)
		return
	}

	session, err := h.sessions.Create(r.Context(), user.ID, h.sessionTTL)
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	h.setSessionCookie(w, session)

	h.logger.Info("user registered", "user_id", user.ID)
	api.WriteJSON(w, http.StatusCreated, authResponse{User: user, Token: session.Token})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin handles POST /api/auth/login. Attempts are rate limited per
// client IP; failures return a deliberately vague message.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil {
		key := fmt.Sprintf("ratelimit:login:%s", clientIP(r))
		count, _, err := h.limiter.Increment(r.Context(), key, 1, cache.TTLRateLimit)
		if err == nil && count > loginRateLimit {
			api.WriteTooManyRequests(w, "too many login attempts, try again later")
			return
		}
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "invalid JSON body")
		return
	}

	user, err := h.auth.Authenticate(r.Context(), h.users, req.Email, req.Password)
	if err != nil {
		api.WriteUnauthorized(w, api.ReasonInvalidCredentials, "Invalid credentials")
		return
	}

	session, err := h.sessions.Create(r.Context(), user.ID, h.sessionTTL)
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	h.setSessionCookie(w, session)

	h.logger.Info("user logged in", "user_id", user.ID)
	api.WriteJSON(w, http.StatusOK, authResponse{User: user, Token: session.Token})
}

// HandleLogout handles POST /api/auth/logout. With ?all=true every
// session the user holds is ended, not just the presented one.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("all") == "true" {
		if user := UserFromContext(r.Context()); user != nil {
			if err := h.sessions.DeleteByUser(r.Context(), user.ID); err != nil {
				h.logger.Warn("session purge failed", "error", err)
			}
		}
	} else if token := ExtractSessionToken(r); token != "" {
		if err := h.sessions.Delete(r.Context(), token); err != nil {
			h.logger.Warn("session delete failed", "error", err)
		}
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe handles GET /api/auth/me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	api.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
