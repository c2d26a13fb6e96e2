package monitor

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snowmon/internal/domain"
)

type fakeStore struct {
	counts  map[domain.QueryStatus]int
	records []domain.QueryRecord
	credits []domain.CreditRow
	names   []string
	err     error

	historyStmts   []string
	creditStmts    []string
	warehouseCalls int
}

func (f *fakeStore) StatusCounts(ctx context.Context, stmt string, args []any) (map[domain.QueryStatus]int, error) {
	return f.counts, f.err
}

func (f *fakeStore) HistoryRecords(ctx context.Context, stmt string, args []any) ([]domain.QueryRecord, error) {
	f.historyStmts = append(f.historyStmts, stmt)
	return f.records, f.err
}

func (f *fakeStore) CreditRows(ctx context.Context, stmt string, args []any) ([]domain.CreditRow, error) {
	f.creditStmts = append(f.creditStmts, stmt)
	return f.credits, f.err
}

func (f *fakeStore) Warehouses(ctx context.Context) ([]string, error) {
	f.warehouseCalls++
	return f.names, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func weekFilter() domain.QueryFilter {
	end := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	return domain.QueryFilter{Start: end.AddDate(0, 0, -7), End: end, Warehouses: []string{domain.AllWarehouses}}
}

func ptr(v float64) *float64 { return &v }

func TestServiceValidatesFilter(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, time.Minute, discardLogger())
	bad := domain.QueryFilter{} // zero window

	var selection *domain.InvalidSelectionError

	_, err := svc.StatusOverview(context.Background(), bad)
	require.ErrorAs(t, err, &selection)
	_, err = svc.TopQueries(context.Background(), bad)
	require.ErrorAs(t, err, &selection)
	_, err = svc.LongRunning(context.Background(), bad)
	require.ErrorAs(t, err, &selection)
	_, err = svc.RawHistory(context.Background(), bad)
	require.ErrorAs(t, err, &selection)
	_, err = svc.Credits(context.Background(), bad)
	require.ErrorAs(t, err, &selection)
	_, err = svc.EstimatedQueryCost(context.Background(), bad)
	require.ErrorAs(t, err, &selection)

	assert.Empty(t, store.historyStmts)
	assert.Empty(t, store.creditStmts)
}

func TestTopQueriesSharesOneFetch(t *testing.T) {
	store := &fakeStore{records: []domain.QueryRecord{
		{QueryID: "q1", ElapsedMS: 10, BytesScanned: 900, CreditsUsed: ptr(0.1)},
		{QueryID: "q2", ElapsedMS: 50, BytesScanned: 100, CreditsUsed: ptr(0.9)},
	}}
	svc := NewService(store, time.Minute, discardLogger())

	top, err := svc.TopQueries(context.Background(), weekFilter())
	require.NoError(t, err)
	require.Len(t, store.historyStmts, 1)

	assert.Equal(t, "q2", top.ByElapsed[0].QueryID)
	assert.Equal(t, "q1", top.ByBytesScanned[0].QueryID)
	assert.Equal(t, "q2", top.ByCredits[0].QueryID)
}

func TestEstimatedQueryCost(t *testing.T) {
	hour := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{
		records: []domain.QueryRecord{{
			QueryID:   "q1",
			Warehouse: "ETL_WH",
			StartTime: hour,
			EndTime:   hour.Add(30 * time.Minute),
			ElapsedMS: (30 * time.Minute).Milliseconds(),
		}},
		credits: []domain.CreditRow{{Warehouse: "ETL_WH", PeriodStart: hour, Credits: 4.0}},
	}
	svc := NewService(store, time.Minute, discardLogger())

	costs, err := svc.EstimatedQueryCost(context.Background(), weekFilter())
	require.NoError(t, err)
	require.Len(t, costs, 1)
	assert.Equal(t, "q1", costs[0].QueryID)
	// Sole query in the bucket gets the full hour's credits.
	assert.InDelta(t, 4.0, costs[0].EstimatedCredits, 1e-9)
}

func TestCreditsFetchesBothGrains(t *testing.T) {
	store := &fakeStore{credits: []domain.CreditRow{{Warehouse: "ETL_WH"}}}
	svc := NewService(store, time.Minute, discardLogger())

	series, err := svc.Credits(context.Background(), weekFilter())
	require.NoError(t, err)
	require.Len(t, store.creditStmts, 2)
	assert.Contains(t, store.creditStmts[0], "'hour'")
	assert.Contains(t, store.creditStmts[1], "'day'")
	assert.Len(t, series.Hourly, 1)
	assert.Len(t, series.Daily, 1)
}

func TestLongRunningUsesThresholdStatement(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, time.Minute, discardLogger())

	_, err := svc.LongRunning(context.Background(), weekFilter())
	require.NoError(t, err)
	require.Len(t, store.historyStmts, 1)
	assert.True(t, strings.Contains(store.historyStmts[0], "TOTAL_ELAPSED_TIME > ?"))
}

func TestWarehousesCached(t *testing.T) {
	store := &fakeStore{names: []string{"A_WH", "B_WH"}}
	svc := NewService(store, time.Hour, discardLogger())

	first, err := svc.Warehouses(context.Background())
	require.NoError(t, err)
	second, err := svc.Warehouses(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.warehouseCalls)
}

func TestWarehousesCacheExpires(t *testing.T) {
	store := &fakeStore{names: []string{"A_WH"}}
	svc := NewService(store, time.Nanosecond, discardLogger())

	_, err := svc.Warehouses(context.Background())
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = svc.Warehouses(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, store.warehouseCalls)
}
