package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/micro-nova/avdecc-fastconnect/internal/controller"
)

// NewRouter creates and returns the main HTTP router. conn is used by
// POST /api/restore; backup may be nil to disable the backup routes.
func NewRouter(ctrl Controller, bus EventBus, conn controller.Connector, backup Backups) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.CleanPath)

	h := &Handlers{ctrl: ctrl, events: bus, backup: backup}
	if conn == nil {
		conn = controller.LogConnector{}
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/info", h.getInfo)

		// Saved states
		r.Get("/saved", h.getSavedStates)
		r.Post("/saved", h.saveConnection)
		r.Get("/saved/{idx}", h.getSavedState)
		r.Delete("/saved/{idx}", h.deleteSavedState)

		// Listeners
		r.Get("/listeners", h.getListeners)
		r.Delete("/listeners/{name}/saved", h.clearConnection)

		// Settings
		r.Get("/settings", h.getSettings)
		r.Put("/settings", h.putSettings)

		r.Post("/restore", h.restore(conn))

		if backup != nil {
			r.Post("/backup", h.createBackup)
			r.Get("/backups", h.listBackups)
		}

		// SSE
		r.Get("/subscribe", h.sseEvents)
	})

	return r
}
