package catalog

import (
	"net/http"

	"github.com/anved/listkeeper/internal/api"
)

// Handler exposes the catalog suggestions endpoint.
type Handler struct {
	svc *Service
}

// NewHandler creates a catalog handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// HandleSuggestions handles GET /api/catalog/suggestions?q=.
func (h *Handler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	api.WriteJSON(w, http.StatusOK, h.svc.Suggest(r.Context(), query))
}
