package invites

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anved/listkeeper/internal/api"
	"github.com/anved/listkeeper/internal/identity"
	"github.com/anved/listkeeper/internal/lists"
)

// Handler exposes the invite and membership administration endpoints.
type Handler struct {
	svc      *Service
	listsSvc *lists.Service
}

// NewHandler creates an invite handler.
func NewHandler(svc *Service, listsSvc *lists.Service) *Handler {
	return &Handler{svc: svc, listsSvc: listsSvc}
}

type createInviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// HandleCreate handles POST /api/lists/{listId}/invites.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	access := lists.AccessFromContext(r.Context())

	var req createInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" {
		api.WriteBadRequest(w, "email is required")
		return
	}
	role := lists.RoleViewer
	if req.Role != "" {
		parsed, err := lists.ParseAssignableRole(req.Role)
		if err != nil {
			api.WriteBadRequest(w, err.Error())
			return
		}
		role = parsed
	}

	view, err := h.svc.Create(r.Context(), access.List.ID, user.ID, req.Email, role)
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, view)
}

// HandlePendingForList handles GET /api/lists/{listId}/invites.
func (h *Handler) HandlePendingForList(w http.ResponseWriter, r *http.Request) {
	access := lists.AccessFromContext(r.Context())

	views, err := h.svc.PendingForList(r.Context(), access.List.ID)
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, views)
}

// HandleCancel handles DELETE /api/lists/{listId}/invites/{inviteId}.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	access := lists.AccessFromContext(r.Context())
	inviteID := chi.URLParam(r, "inviteId")

	if err := h.svc.Cancel(r.Context(), access.List.ID, inviteID); err != nil {
		api.WriteErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePendingForUser handles GET /api/invites/pending.
func (h *Handler) HandlePendingForUser(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())

	views, err := h.svc.PendingForUser(r.Context(), user)
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, views)
}

// HandleAccept handles POST /api/invites/{inviteId}/accept.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	inviteID := chi.URLParam(r, "inviteId")

	result, err := h.svc.AcceptByID(r.Context(), inviteID, user.ID)
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, result)
}

// HandleAcceptByToken handles POST /api/invites/accept-by-token/{token}.
func (h *Handler) HandleAcceptByToken(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	token := chi.URLParam(r, "token")

	result, err := h.svc.AcceptByToken(r.Context(), token, user.ID)
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, result)
}

// HandleReject handles POST /api/invites/{inviteId}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	inviteID := chi.URLParam(r, "inviteId")

	if err := h.svc.Reject(r.Context(), inviteID, user.ID); err != nil {
		api.WriteErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Invite rejected"})
}

// HandleMembers handles GET /api/lists/{listId}/members.
func (h *Handler) HandleMembers(w http.ResponseWriter, r *http.Request) {
	access := lists.AccessFromContext(r.Context())

	views, err := h.listsSvc.Members(r.Context(), access.List.ID)
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, views)
}

type updateMemberRequest struct {
	Role string `json:"role"`
}

// HandleUpdateMember handles PATCH /api/lists/{listId}/members/{userId}.
func (h *Handler) HandleUpdateMember(w http.ResponseWriter, r *http.Request) {
	access := lists.AccessFromContext(r.Context())
	targetUserID := chi.URLParam(r, "userId")

	var req updateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "invalid JSON body")
		return
	}
	role, err := lists.ParseAssignableRole(req.Role)
	if err != nil {
		api.WriteBadRequest(w, err.Error())
		return
	}

	view, err := h.svc.UpdateMemberRole(r.Context(), access.List.ID, targetUserID, role)
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, view)
}

// HandleRemoveMember handles DELETE /api/lists/{listId}/members/{userId}.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	access := lists.AccessFromContext(r.Context())
	targetUserID := chi.URLParam(r, "userId")

	if err := h.svc.RemoveMember(r.Context(), access.List.ID, targetUserID); err != nil {
		api.WriteErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
