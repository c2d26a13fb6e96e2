// Package ui renders the browser dashboard: filter sidebar, tables, and
// charts over the monitor service.
package ui

import (
	"log/slog"
	"net/http"

	gomponents "maragu.dev/gomponents"

	"snowmon/internal/live"
	"snowmon/internal/service/monitor"
)

type Handler struct {
	Monitor         *monitor.Service
	Live            *live.Adapter
	FallbackMinutes int // default sidebar value for the live fallback window
	Logger          *slog.Logger
}

func NewHandler(monitorSvc *monitor.Service, liveAdapter *live.Adapter, fallbackMinutes int, logger *slog.Logger) *Handler {
	return &Handler{
		Monitor:         monitorSvc,
		Live:            liveAdapter,
		FallbackMinutes: fallbackMinutes,
		Logger:          logger,
	}
}

func renderHTML(w http.ResponseWriter, status int, node gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}

// warehouseOptions lists the sidebar's warehouse choices: ALL plus whatever
// SHOW WAREHOUSES returned. A listing failure degrades to just the current
// selection rather than failing the page.
func (h *Handler) warehouseOptions(r *http.Request, f filterState) []string {
	options := []string{"ALL"}
	names, err := h.Monitor.Warehouses(r.Context())
	if err != nil {
		h.Logger.Warn("list warehouses failed", "error", err)
		names = nil
	}
	options = append(options, names...)
	for _, selected := range f.Warehouses {
		if selected != "ALL" && !contains(options, selected) {
			options = append(options, selected)
		}
	}
	return options
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
