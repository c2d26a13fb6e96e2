// Package monitor orchestrates the query catalog, the warehouse client, and
// the result shaper for the presentation layer.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"snowmon/internal/catalog"
	"snowmon/internal/domain"
	"snowmon/internal/usage"
)

// TopQueryCount is the fixed N for the top-query rankings.
const TopQueryCount = 10

// Store is the slice of the snowflake client the service needs.
type Store interface {
	StatusCounts(ctx context.Context, stmt string, args []any) (map[domain.QueryStatus]int, error)
	HistoryRecords(ctx context.Context, stmt string, args []any) ([]domain.QueryRecord, error)
	CreditRows(ctx context.Context, stmt string, args []any) ([]domain.CreditRow, error)
	Warehouses(ctx context.Context) ([]string, error)
}

// TopQueries bundles the three top-10 rankings computed from one history fetch.
type TopQueries struct {
	ByElapsed      []domain.QueryRecord
	ByBytesScanned []domain.QueryRecord
	ByCredits      []domain.QueryRecord
}

// WarehouseCredits bundles the hourly and daily metered credit series.
type WarehouseCredits struct {
	Hourly []domain.CreditRow
	Daily  []domain.CreditRow
}

// Service executes catalog statements and shapes the results. One Service
// per user session; calls are sequential per the interaction model.
type Service struct {
	store  Store
	logger *slog.Logger

	cacheTTL     time.Duration
	mu           sync.Mutex
	warehouses   []string
	warehousesAt time.Time
}

func NewService(store Store, cacheTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{store: store, cacheTTL: cacheTTL, logger: logger}
}

// StatusOverview returns the per-status query counts for the filter window.
func (s *Service) StatusOverview(ctx context.Context, f domain.QueryFilter) (map[domain.QueryStatus]int, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	stmt, args := catalog.StatusBreakdown(f)
	return s.store.StatusCounts(ctx, stmt, args)
}

// TopQueries fetches the window's history once and ranks it by all three
// metrics.
func (s *Service) TopQueries(ctx context.Context, f domain.QueryFilter) (*TopQueries, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	stmt, args := catalog.History(f)
	records, err := s.store.HistoryRecords(ctx, stmt, args)
	if err != nil {
		return nil, err
	}
	return &TopQueries{
		ByElapsed:      usage.TopN(records, TopQueryCount, usage.ByElapsed),
		ByBytesScanned: usage.TopN(records, TopQueryCount, usage.ByBytesScanned),
		ByCredits:      usage.TopN(records, TopQueryCount, usage.ByCredits),
	}, nil
}

// LongRunning returns the window's queries over the fixed 10-minute
// threshold, filtered server-side and ordered longest first.
func (s *Service) LongRunning(ctx context.Context, f domain.QueryFilter) ([]domain.QueryRecord, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	stmt, args := catalog.LongRunning(f)
	return s.store.HistoryRecords(ctx, stmt, args)
}

// RawHistory returns the newest rows in the window for the raw table view.
func (s *Service) RawHistory(ctx context.Context, f domain.QueryFilter) ([]domain.QueryRecord, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	stmt, args := catalog.RawHistory(f)
	return s.store.HistoryRecords(ctx, stmt, args)
}

// Credits returns the metered credit series grouped per hour and per day.
func (s *Service) Credits(ctx context.Context, f domain.QueryFilter) (*WarehouseCredits, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	hourStmt, hourArgs := catalog.WarehouseCreditsHourly(f)
	hourly, err := s.store.CreditRows(ctx, hourStmt, hourArgs)
	if err != nil {
		return nil, err
	}
	dayStmt, dayArgs := catalog.WarehouseCreditsDaily(f)
	daily, err := s.store.CreditRows(ctx, dayStmt, dayArgs)
	if err != nil {
		return nil, err
	}
	return &WarehouseCredits{Hourly: hourly, Daily: daily}, nil
}

// EstimatedQueryCost apportions each warehouse-hour's metered credits
// across the queries that ran in it, proportional to elapsed-time overlap,
// and returns the most expensive allocations.
func (s *Service) EstimatedQueryCost(ctx context.Context, f domain.QueryFilter) ([]domain.AllocatedCost, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	histStmt, histArgs := catalog.History(f)
	records, err := s.store.HistoryRecords(ctx, histStmt, histArgs)
	if err != nil {
		return nil, err
	}
	credStmt, credArgs := catalog.WarehouseCreditsHourly(f)
	credits, err := s.store.CreditRows(ctx, credStmt, credArgs)
	if err != nil {
		return nil, err
	}
	buckets := usage.BucketRecords(records, credits)
	return usage.TopAllocations(usage.AllocateCredits(buckets), catalog.EstimatedCostLimit), nil
}

// Warehouses lists the account's warehouses, cached for the configured TTL
// because the sidebar needs it on every render.
func (s *Service) Warehouses(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	if s.warehouses != nil && time.Since(s.warehousesAt) < s.cacheTTL {
		cached := s.warehouses
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	names, err := s.store.Warehouses(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.warehouses = names
	s.warehousesAt = time.Now()
	s.mu.Unlock()
	return names, nil
}
