package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/anved/listkeeper/internal/api"
	"github.com/anved/listkeeper/internal/identity"
	"github.com/anved/listkeeper/internal/lists"
)

// setupRoutes builds the route tree. List-scoped routes run through the
// access gate first and a role gate where the operation requires one.
func (s *Server) setupRoutes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(requestLoggerMiddleware(s.logger))
	r.Use(s.accessLogMiddleware)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.authHandler.HandleRegister)
		r.Post("/auth/login", s.authHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(identity.NewAuthGate(s.sessions, s.driver))

			r.Post("/auth/logout", s.authHandler.HandleLogout)
			r.Get("/auth/me", s.authHandler.HandleMe)

			r.Get("/invites/pending", s.invitesHandler.HandlePendingForUser)
			r.Post("/invites/{inviteId}/accept", s.invitesHandler.HandleAccept)
			r.Post("/invites/{inviteId}/reject", s.invitesHandler.HandleReject)
			r.Post("/invites/accept-by-token/{token}", s.invitesHandler.HandleAcceptByToken)

			r.Get("/lists", s.listsHandler.HandleList)
			r.Post("/lists", s.listsHandler.HandleCreate)

			r.Route("/lists/{listId}", func(r chi.Router) {
				r.Use(s.listsHandler.RequireAccess)

				r.Get("/", s.listsHandler.HandleGet)
				r.With(lists.RequireRole(lists.RoleEditor)).Patch("/", s.listsHandler.HandleUpdate)
				r.With(lists.RequireRole(lists.RoleOwner)).Delete("/", s.listsHandler.HandleDelete)

				r.Get("/members", s.invitesHandler.HandleMembers)
				r.With(lists.RequireRole(lists.RoleOwner)).Patch("/members/{userId}", s.invitesHandler.HandleUpdateMember)
				r.With(lists.RequireRole(lists.RoleOwner)).Delete("/members/{userId}", s.invitesHandler.HandleRemoveMember)

				r.With(lists.RequireRole(lists.RoleOwner)).Get("/invites", s.invitesHandler.HandlePendingForList)
				r.With(lists.RequireRole(lists.RoleOwner)).Post("/invites", s.invitesHandler.HandleCreate)
				r.With(lists.RequireRole(lists.RoleOwner)).Delete("/invites/{inviteId}", s.invitesHandler.HandleCancel)

				r.Get("/items", s.itemsHandler.HandleList)
				r.With(lists.RequireRole(lists.RoleEditor)).Post("/items", s.itemsHandler.HandleCreate)
				r.Get("/items/{itemId}", s.itemsHandler.HandleGet)
				r.With(lists.RequireRole(lists.RoleEditor)).Patch("/items/{itemId}", s.itemsHandler.HandleUpdate)
				r.With(lists.RequireRole(lists.RoleEditor)).Delete("/items/{itemId}", s.itemsHandler.HandleDelete)
			})

			if s.catalogHandler != nil {
				r.Get("/catalog/suggestions", s.catalogHandler.HandleSuggestions)
			}
		})
	})

	return r
}

type healthResponse struct {
	Status string `json:"status"`
	Driver string `json:"driver"`
}

// handleHealthz handles GET /healthz.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Driver: s.driver.Name(),
	})
}
