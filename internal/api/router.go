package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the dashboard HTTP surface. Every endpoint is a thin
// wrapper over the capability adapter, the message log, or the aggregator.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Get("/dashboard", h.Dashboard)

		r.Get("/config", h.GetConfig)
		r.Post("/config", h.SetConfig)

		r.Get("/users", h.Users)
		r.Get("/users/{player}", h.UserInfo)
		r.Post("/users/{player}/unbind", h.UnbindUser)
		r.Post("/users/{player}/ban", h.BanUser)
		r.Post("/users/{player}/unban", h.UnbanUser)

		r.Get("/stats", h.Statistics)
		r.Get("/audit", h.AuditLogs)

		r.Post("/messages/send", h.SendToQQ)
		r.Post("/messages/send_game", h.SendToGame)
		r.Post("/messages/console", h.ConsoleCommand)
		r.Get("/messages/recent", h.RecentMessages)
		r.Get("/messages/stats", h.MessageStats)

		r.Post("/websocket/restart", h.RestartTransport)
	})

	return r
}
