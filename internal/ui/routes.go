package ui

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"snowmon/internal/ui/assets"
)

func MountRoutes(r chi.Router, h *Handler) {
	staticFS, err := fs.Sub(assets.StaticFS(), "static")
	if err == nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	}

	r.Get("/", h.Overview)
	r.Get("/live", h.LiveQueries)
	r.Get("/cost", h.CostMonitor)
	r.Get("/history", h.RawHistory)
}
