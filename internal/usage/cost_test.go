package usage

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snowmon/internal/domain"
)

var hour10 = time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

func rec(id, wh string, start time.Time, d time.Duration) domain.QueryRecord {
	return domain.QueryRecord{
		QueryID:   id,
		Warehouse: wh,
		StartTime: start,
		EndTime:   start.Add(d),
		ElapsedMS: d.Milliseconds(),
	}
}

func TestAllocateCreditsProportional(t *testing.T) {
	// One bucket with 12.0 credits; overlaps of 600s, 300s and 300s give a
	// 1200s total, so the split is 6.0 / 3.0 / 3.0.
	records := []domain.QueryRecord{
		rec("q1", "ETL_WH", hour10, 600*time.Second),
		rec("q2", "ETL_WH", hour10.Add(20*time.Minute), 300*time.Second),
		rec("q3", "ETL_WH", hour10.Add(40*time.Minute), 300*time.Second),
	}
	credits := []domain.CreditRow{{Warehouse: "ETL_WH", PeriodStart: hour10, Credits: 12.0}}

	costs := AllocateCredits(BucketRecords(records, credits))
	require.Len(t, costs, 3)

	byID := map[string]float64{}
	var sum float64
	for _, c := range costs {
		byID[c.QueryID] = c.EstimatedCredits
		sum += c.EstimatedCredits
		assert.Equal(t, "ETL_WH", c.Warehouse)
		assert.True(t, c.HourStart.Equal(hour10))
	}
	assert.InDelta(t, 6.0, byID["q1"], 1e-9)
	assert.InDelta(t, 3.0, byID["q2"], 1e-9)
	assert.InDelta(t, 3.0, byID["q3"], 1e-9)

	// Allocations within the bucket conserve the bucket's total.
	assert.InDelta(t, 12.0, sum, 1e-9)
}

func TestAllocateCreditsOrderIndependent(t *testing.T) {
	records := []domain.QueryRecord{
		rec("q1", "ETL_WH", hour10.Add(5*time.Minute), 10*time.Minute),
		rec("q2", "ETL_WH", hour10.Add(30*time.Minute), 7*time.Minute),
		rec("q3", "BI_WH", hour10.Add(10*time.Minute), 45*time.Minute),
		rec("q4", "ETL_WH", hour10.Add(50*time.Minute), 25*time.Minute),
	}
	credits := []domain.CreditRow{
		{Warehouse: "ETL_WH", PeriodStart: hour10, Credits: 4.0},
		{Warehouse: "ETL_WH", PeriodStart: hour10.Add(time.Hour), Credits: 2.0},
		{Warehouse: "BI_WH", PeriodStart: hour10, Credits: 1.5},
	}

	want := AllocateCredits(BucketRecords(records, credits))
	require.NotEmpty(t, want)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffledRecords := append([]domain.QueryRecord(nil), records...)
		shuffledCredits := append([]domain.CreditRow(nil), credits...)
		rng.Shuffle(len(shuffledRecords), func(a, b int) {
			shuffledRecords[a], shuffledRecords[b] = shuffledRecords[b], shuffledRecords[a]
		})
		rng.Shuffle(len(shuffledCredits), func(a, b int) {
			shuffledCredits[a], shuffledCredits[b] = shuffledCredits[b], shuffledCredits[a]
		})

		got := AllocateCredits(BucketRecords(shuffledRecords, shuffledCredits))
		require.Len(t, got, len(want))
		for j := range want {
			assert.Equal(t, want[j].QueryID, got[j].QueryID)
			assert.Equal(t, want[j].Warehouse, got[j].Warehouse)
			assert.True(t, want[j].HourStart.Equal(got[j].HourStart))
			assert.InDelta(t, want[j].EstimatedCredits, got[j].EstimatedCredits, 1e-9)
		}
	}
}

func TestAllocateCreditsCrossHourSplit(t *testing.T) {
	// 10:30 to 11:30 splits evenly across two metered hours.
	records := []domain.QueryRecord{
		rec("q1", "ETL_WH", hour10.Add(30*time.Minute), time.Hour),
	}
	credits := []domain.CreditRow{
		{Warehouse: "ETL_WH", PeriodStart: hour10, Credits: 6.0},
		{Warehouse: "ETL_WH", PeriodStart: hour10.Add(time.Hour), Credits: 8.0},
	}

	costs := AllocateCredits(BucketRecords(records, credits))
	require.Len(t, costs, 2)
	assert.InDelta(t, 6.0, costs[0].EstimatedCredits, 1e-9)
	assert.InDelta(t, 8.0, costs[1].EstimatedCredits, 1e-9)
}

func TestAllocateCreditsEmptyBucket(t *testing.T) {
	// A metered hour with no overlapping queries yields no allocations.
	records := []domain.QueryRecord{
		rec("q1", "ETL_WH", hour10.Add(3*time.Hour), 5*time.Minute),
	}
	credits := []domain.CreditRow{{Warehouse: "ETL_WH", PeriodStart: hour10, Credits: 9.0}}

	assert.Empty(t, AllocateCredits(BucketRecords(records, credits)))
}

func TestBucketRecordsMatchesWarehouse(t *testing.T) {
	records := []domain.QueryRecord{
		rec("q1", "ETL_WH", hour10, 10*time.Minute),
		rec("q2", "BI_WH", hour10, 10*time.Minute),
	}
	credits := []domain.CreditRow{{Warehouse: "ETL_WH", PeriodStart: hour10, Credits: 1.0}}

	buckets := BucketRecords(records, credits)
	require.Len(t, buckets, 1)
	require.Len(t, buckets[0].Records, 1)
	assert.Equal(t, "q1", buckets[0].Records[0].QueryID)
}

func TestBucketRecordsMergesDuplicateCreditRows(t *testing.T) {
	credits := []domain.CreditRow{
		{Warehouse: "ETL_WH", PeriodStart: hour10, Credits: 1.0},
		{Warehouse: "ETL_WH", PeriodStart: hour10.Add(15 * time.Minute), Credits: 2.5},
	}

	buckets := BucketRecords(nil, credits)
	require.Len(t, buckets, 1)
	assert.InDelta(t, 3.5, buckets[0].TotalCredits, 1e-9)
	assert.True(t, buckets[0].HourStart.Equal(hour10))
}

func TestTopAllocations(t *testing.T) {
	costs := []domain.AllocatedCost{
		{QueryID: "q-b", EstimatedCredits: 2.0},
		{QueryID: "q-a", EstimatedCredits: 2.0},
		{QueryID: "q-c", EstimatedCredits: 5.0},
		{QueryID: "q-d", EstimatedCredits: 0.5},
	}

	got := TopAllocations(costs, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "q-c", got[0].QueryID)
	assert.Equal(t, "q-a", got[1].QueryID)
	assert.Equal(t, "q-b", got[2].QueryID)
}
