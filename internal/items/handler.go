package items

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anved/listkeeper/internal/api"
	"github.com/anved/listkeeper/internal/identity"
	"github.com/anved/listkeeper/internal/lists"
)

// Handler exposes item CRUD endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an item handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// HandleCreate handles POST /api/lists/{listId}/items.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	access := lists.AccessFromContext(r.Context())

	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		api.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if in.Title == "" {
		api.WriteBadRequest(w, "title is required")
		return
	}

	view, err := h.svc.Create(r.Context(), access.List.ID, user.ID, in)
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, view)
}

// HandleList handles GET /api/lists/{listId}/items.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	access := lists.AccessFromContext(r.Context())

	views, err := h.svc.FindAll(r.Context(), access.List.ID)
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, views)
}

// HandleGet handles GET /api/lists/{listId}/items/{itemId}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	access := lists.AccessFromContext(r.Context())
	itemID := chi.URLParam(r, "itemId")

	view, err := h.svc.FindOne(r.Context(), access.List.ID, itemID)
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, view)
}

// HandleUpdate handles PATCH /api/lists/{listId}/items/{itemId}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	access := lists.AccessFromContext(r.Context())
	itemID := chi.URLParam(r, "itemId")

	var in UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		api.WriteBadRequest(w, "invalid JSON body")
		return
	}

	view, err := h.svc.Update(r.Context(), access.List.ID, itemID, in)
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, view)
}

// HandleDelete handles DELETE /api/lists/{listId}/items/{itemId}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	access := lists.AccessFromContext(r.Context())
	itemID := chi.URLParam(r, "itemId")

	if err := h.svc.Delete(r.Context(), access.List.ID, itemID); err != nil {
		api.WriteErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
