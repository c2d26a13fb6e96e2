package usage

import (
	"sort"
	"time"

	"snowmon/internal/domain"
)

// BucketRecords derives warehouse-hour buckets from metered credit rows and
// the query records whose [start, end) interval overlaps each hour. Buckets
// exist only for hours with a known credit total; queries outside every
// metered hour are simply not allocated. Records still running (zero end
// time) are treated as ending now.
func BucketRecords(records []domain.QueryRecord, credits []domain.CreditRow) []domain.WarehouseHourBucket {
	type key struct {
		warehouse string
		hour      time.Time
	}

	byKey := map[key]*domain.WarehouseHourBucket{}
	var order []key
	for _, cr := range credits {
		k := key{cr.Warehouse, cr.PeriodStart.Truncate(time.Hour)}
		if b, ok := byKey[k]; ok {
			b.TotalCredits += cr.Credits
			continue
		}
		byKey[k] = &domain.WarehouseHourBucket{
			Warehouse:    cr.Warehouse,
			HourStart:    k.hour,
			TotalCredits: cr.Credits,
		}
		order = append(order, k)
	}

	now := time.Now()
	for _, r := range records {
		if r.Warehouse == "" || r.StartTime.IsZero() {
			continue
		}
		end := r.EndTime
		if end.IsZero() {
			end = now
		}
		// Walk every hour the query's interval touches.
		for h := r.StartTime.Truncate(time.Hour); h.Before(end); h = h.Add(time.Hour) {
			if b, ok := byKey[key{r.Warehouse, h}]; ok {
				b.Records = append(b.Records, r)
			}
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].warehouse != order[j].warehouse {
			return order[i].warehouse < order[j].warehouse
		}
		return order[i].hour.Before(order[j].hour)
	})

	out := make([]domain.WarehouseHourBucket, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out
}

// AllocateCredits apportions each bucket's credit total across its queries
// proportional to their overlap duration with the hour. A bucket whose
// summed overlap is zero produces no allocations; that is "nothing to
// allocate", not a fault. Results are sorted by (warehouse, hour, query ID)
// so the output is identical regardless of input row order.
func AllocateCredits(buckets []domain.WarehouseHourBucket) []domain.AllocatedCost {
	var out []domain.AllocatedCost
	now := time.Now()

	for _, b := range buckets {
		hourEnd := b.HourStart.Add(time.Hour)
		overlaps := make([]time.Duration, len(b.Records))
		var sum time.Duration
		for i, r := range b.Records {
			overlaps[i] = overlap(r, b.HourStart, hourEnd, now)
			sum += overlaps[i]
		}
		if sum <= 0 {
			continue
		}
		for i, r := range b.Records {
			if overlaps[i] <= 0 {
				continue
			}
			out = append(out, domain.AllocatedCost{
				QueryID:          r.QueryID,
				Warehouse:        b.Warehouse,
				User:             r.User,
				HourStart:        b.HourStart,
				ElapsedMS:        r.ElapsedMS,
				EstimatedCredits: b.TotalCredits * (float64(overlaps[i]) / float64(sum)),
				QueryText:        r.QueryText,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Warehouse != out[j].Warehouse {
			return out[i].Warehouse < out[j].Warehouse
		}
		if !out[i].HourStart.Equal(out[j].HourStart) {
			return out[i].HourStart.Before(out[j].HourStart)
		}
		return out[i].QueryID < out[j].QueryID
	})
	return out
}

// TopAllocations returns the n most expensive allocations, credits
// descending, ties by query ID ascending.
func TopAllocations(costs []domain.AllocatedCost, n int) []domain.AllocatedCost {
	out := make([]domain.AllocatedCost, len(costs))
	copy(out, costs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EstimatedCredits != out[j].EstimatedCredits {
			return out[i].EstimatedCredits > out[j].EstimatedCredits
		}
		return out[i].QueryID < out[j].QueryID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// overlap computes how much of the record's [start, end) interval falls
// inside [hourStart, hourEnd). A zero end time means the query is still
// running and is clamped to now.
func overlap(r domain.QueryRecord, hourStart, hourEnd, now time.Time) time.Duration {
	start, end := r.StartTime, r.EndTime
	if end.IsZero() {
		end = now
	}
	if start.Before(hourStart) {
		start = hourStart
	}
	if end.After(hourEnd) {
		end = hourEnd
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}
