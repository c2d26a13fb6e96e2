package domain

import "time"

// QueryStatus is the execution status reported by the warehouse for a query.
type QueryStatus string

const (
	StatusSuccess  QueryStatus = "SUCCESS"
	StatusFailed   QueryStatus = "FAILED"
	StatusCanceled QueryStatus = "CANCELED"
	StatusRunning  QueryStatus = "RUNNING"
)

// NormalizeStatus maps the warehouse's execution status strings onto the
// four statuses the monitor distinguishes. Unknown values pass through
// unchanged so they still show up in the breakdown.
func NormalizeStatus(raw string) QueryStatus {
	switch raw {
	case "SUCCESS":
		return StatusSuccess
	case "FAIL", "FAILED", "FAILED_WITH_ERROR", "FAILED_WITH_INCIDENT":
		return StatusFailed
	case "CANCELED", "CANCELLED":
		return StatusCanceled
	case "RUNNING", "RESUMING_WAREHOUSE", "QUEUED", "BLOCKED":
		return StatusRunning
	}
	return QueryStatus(raw)
}

// QueryRecord is one row of query metadata from the account-usage view or
// the live queries command. Read-only; never mutated after scanning.
// CreditsUsed is nil for rows from the live command, which carries no cost data.
type QueryRecord struct {
	QueryID      string
	Warehouse    string
	User         string
	Database     string
	Schema       string
	Status       QueryStatus
	StartTime    time.Time
	EndTime      time.Time // zero while the query is still running
	ElapsedMS    int64
	BytesScanned int64
	RowsProduced int64
	CreditsUsed  *float64
	QueryTag     string
	QueryText    string
}

// LongRunningThreshold is the fixed cutoff for flagging long-running
// queries. A query is flagged only when its elapsed time is strictly
// greater than 10 minutes.
const LongRunningThreshold = 10 * time.Minute

// CreditRow is one hourly (or daily) credit total from the warehouse
// metering view.
type CreditRow struct {
	Warehouse   string
	PeriodStart time.Time
	Credits     float64
}

// WarehouseHourBucket groups the queries overlapping one warehouse clock
// hour together with that hour's metered credit total. Derived transiently
// for cost allocation; never persisted.
type WarehouseHourBucket struct {
	Warehouse    string
	HourStart    time.Time
	TotalCredits float64
	Records      []QueryRecord
}

// AllocatedCost is the share of a warehouse-hour's credits attributed to a
// single query. Within one bucket the estimated credits of all entries sum
// to the bucket's total (up to floating-point rounding).
type AllocatedCost struct {
	QueryID          string
	Warehouse        string
	User             string
	HourStart        time.Time
	ElapsedMS        int64
	EstimatedCredits float64
	QueryText        string
}
