// Package live wraps the warehouse's live-queries command with a bounded
// fallback onto the low-latency history table function.
package live

import (
	"context"
	"log/slog"

	"snowmon/internal/catalog"
	"snowmon/internal/config"
	"snowmon/internal/domain"
)

// Mode labels which path produced a snapshot so the UI can distinguish
// genuinely live data from lagged fallback data.
type Mode string

const (
	ModeLive     Mode = "LIVE"
	ModeFallback Mode = "FALLBACK"
)

// Snapshot is the result of one live-view request.
type Snapshot struct {
	Mode      Mode
	Warehouse string
	Records   []domain.QueryRecord
}

// Querier is the slice of the snowflake client the adapter needs.
type Querier interface {
	LiveQueries(ctx context.Context, warehouse string) ([]domain.QueryRecord, error)
	HistoryRecords(ctx context.Context, stmt string, args []any) ([]domain.QueryRecord, error)
}

// Adapter serves the currently-running view for a single warehouse.
type Adapter struct {
	q      Querier
	logger *slog.Logger
}

func NewAdapter(q Querier, logger *slog.Logger) *Adapter {
	return &Adapter{q: q, logger: logger}
}

// Running returns the queries currently executing on the selected
// warehouse. Exactly one concrete warehouse must be selected; zero,
// multiple, or ALL is an InvalidSelectionError surfaced to the caller.
//
// The primary path issues the live queries command. If the command errors
// (e.g. the role lacks MONITOR privilege) or reports no running queries,
// the adapter falls back to a bounded recent window of the history table
// function and labels the snapshot accordingly.
func (a *Adapter) Running(ctx context.Context, f domain.QueryFilter, fallbackMinutes int) (*Snapshot, error) {
	warehouse, ok := f.SingleWarehouse()
	if !ok {
		return nil, domain.ErrInvalidSelection(
			"live running queries need exactly one warehouse selected (got %d)", len(f.Warehouses))
	}
	if !config.ValidFallbackMinutes(fallbackMinutes) {
		return nil, domain.ErrInvalidSelection(
			"fallback window must be one of 15, 30, 60, or 120 minutes; got %d", fallbackMinutes)
	}

	records, err := a.q.LiveQueries(ctx, warehouse)
	if err == nil {
		running := records[:0:0]
		for _, r := range records {
			if r.Status == domain.StatusRunning {
				running = append(running, r)
			}
		}
		if len(running) > 0 {
			return &Snapshot{Mode: ModeLive, Warehouse: warehouse, Records: running}, nil
		}
		a.logger.Warn("live queries command returned no running rows, using fallback",
			"warehouse", warehouse, "window_minutes", fallbackMinutes)
	} else {
		a.logger.Warn("live queries command unavailable, using fallback",
			"warehouse", warehouse, "window_minutes", fallbackMinutes, "error", err)
	}

	stmt, args := catalog.RunningFallback(warehouse, fallbackMinutes)
	fallback, ferr := a.q.HistoryRecords(ctx, stmt, args)
	if ferr != nil {
		return nil, ferr
	}
	return &Snapshot{Mode: ModeFallback, Warehouse: warehouse, Records: fallback}, nil
}
