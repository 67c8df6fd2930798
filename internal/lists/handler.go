package lists

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anved/listkeeper/internal/api"
	"github.com/anved/listkeeper/internal/identity"
	"github.com/anved/listkeeper/internal/store"
)

type accessKey struct{}

// WithAccess attaches a resolved access check result to the context.
func WithAccess(ctx context.Context, access *Access) context.Context {
	return context.WithValue(ctx, accessKey{}, access)
}

// AccessFromContext returns the access resolved by RequireAccess, or nil.
func AccessFromContext(ctx context.Context) *Access {
	access, _ := ctx.Value(accessKey{}).(*Access)
	return access
}

// Handler exposes list CRUD endpoints and the authorization middleware
// shared by every list-scoped route group.
type Handler struct {
	svc     *Service
	checker *Checker
}

// NewHandler creates a list handler.
func NewHandler(svc *Service, checker *Checker) *Handler {
	return &Handler{svc: svc, checker: checker}
}

// RequireAccess is the first-stage gate: it resolves the list and the
// caller's membership from the {listId} route param and stores them in the
// request context. Routes without a listId param pass through untouched.
func (h *Handler) RequireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := identity.UserFromContext(r.Context())
		if user == nil {
			api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
			return
		}

		listID := chi.URLParam(r, "listId")
		access, err := h.checker.CheckAccess(r.Context(), user.ID, listID)
		if err != nil {
			api.WriteErr(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAccess(r.Context(), access)))
	})
}

// RequireRole is the second-stage gate: it enforces a minimum role against
// the membership resolved by RequireAccess.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access := AccessFromContext(r.Context())
			var membership *store.Membership
			if access != nil {
				membership = access.Membership
			}
			if err := CheckRole(membership, roles...); err != nil {
				api.WriteErr(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type createListRequest struct {
	Name string `json:"name"`
}

// HandleCreate handles POST /api/lists.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())

	var req createListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		api.WriteBadRequest(w, "name is required")
		return
	}

	view, err := h.svc.Create(r.Context(), user.ID, req.Name)
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, view)
}

// HandleList handles GET /api/lists.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())

	views, err := h.svc.FindAllForUser(r.Context(), user.ID)
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, views)
}

// HandleGet handles GET /api/lists/{listId}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	access := AccessFromContext(r.Context())

	view, err := h.svc.FindOne(r.Context(), access)
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, view)
}

type updateListRequest struct {
	Name string `json:"name"`
}

// HandleUpdate handles PATCH /api/lists/{listId}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	access := AccessFromContext(r.Context())

	var req updateListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		api.WriteBadRequest(w, "name is required")
		return
	}

	view, err := h.svc.Update(r.Context(), access, req.Name)
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, view)
}

// HandleDelete handles DELETE /api/lists/{listId}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	access := AccessFromContext(r.Context())

	if err := h.svc.Delete(r.Context(), access.List.ID); err != nil {
		api.WriteErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
