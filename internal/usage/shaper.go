// Package usage post-processes raw warehouse rows: status bucketing, top-N
// ranking, long-running flagging, and proportional credit allocation.
package usage

import (
	"sort"

	"snowmon/internal/domain"
)

// Metric selects which field TopN ranks by.
type Metric int

const (
	ByElapsed Metric = iota
	ByBytesScanned
	ByCredits
)

// Label returns the display name for a ranking metric.
func (m Metric) Label() string {
	switch m {
	case ByBytesScanned:
		return "bytes scanned"
	case ByCredits:
		return "cloud services credits"
	default:
		return "total runtime (ms)"
	}
}

func metricValue(r domain.QueryRecord, m Metric) float64 {
	switch m {
	case ByBytesScanned:
		return float64(r.BytesScanned)
	case ByCredits:
		if r.CreditsUsed == nil {
			return 0
		}
		return *r.CreditsUsed
	default:
		return float64(r.ElapsedMS)
	}
}

// StatusBreakdown partitions records by status and counts each partition.
// The counts always sum to len(records).
func StatusBreakdown(records []domain.QueryRecord) map[domain.QueryStatus]int {
	counts := map[domain.QueryStatus]int{}
	for _, r := range records {
		counts[r.Status]++
	}
	return counts
}

// TopN returns up to n records sorted descending by the metric. Ties are
// broken by query ID ascending so the ranking is deterministic. Fewer than
// n inputs simply return all of them, sorted.
func TopN(records []domain.QueryRecord, n int, m Metric) []domain.QueryRecord {
	out := make([]domain.QueryRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		vi, vj := metricValue(out[i], m), metricValue(out[j], m)
		if vi != vj {
			return vi > vj
		}
		return out[i].QueryID < out[j].QueryID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// IsLongRunning reports whether the record crossed the fixed 10-minute
// threshold. The boundary is exclusive: exactly 10 minutes is not flagged.
func IsLongRunning(r domain.QueryRecord) bool {
	return r.ElapsedMS > domain.LongRunningThreshold.Milliseconds()
}

// LongRunning filters the records down to those over the threshold, longest
// first, ties by query ID ascending.
func LongRunning(records []domain.QueryRecord) []domain.QueryRecord {
	var out []domain.QueryRecord
	for _, r := range records {
		if IsLongRunning(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ElapsedMS != out[j].ElapsedMS {
			return out[i].ElapsedMS > out[j].ElapsedMS
		}
		return out[i].QueryID < out[j].QueryID
	})
	return out
}
