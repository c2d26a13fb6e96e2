// Package catalog holds the fixed set of parameterized statements the
// monitor issues against the warehouse. Every entry is a pure function from
// a QueryFilter to a statement string plus bound arguments; filter values
// are never interpolated into the SQL text.
package catalog

import (
	"fmt"
	"strings"

	"snowmon/internal/domain"
)

// historyColumns is the canonical select list for query-history statements.
// The snowflake client scans rows in exactly this order.
const historyColumns = `  QUERY_ID,
  USER_NAME,
  WAREHOUSE_NAME,
  DATABASE_NAME,
  SCHEMA_NAME,
  START_TIME,
  END_TIME,
  TOTAL_ELAPSED_TIME,
  BYTES_SCANNED,
  ROWS_PRODUCED,
  CREDITS_USED_CLOUD_SERVICES,
  EXECUTION_STATUS,
  QUERY_TAG,
  QUERY_TEXT`

// RawHistoryLimit bounds the raw history view.
const RawHistoryLimit = 500

// EstimatedCostLimit bounds the estimated per-query cost view.
const EstimatedCostLimit = 50

// whereClause builds the shared predicate for ACCOUNT_USAGE.QUERY_HISTORY
// statements. The time window is always applied server-side; an ALL
// warehouse selection omits the warehouse predicate entirely.
func whereClause(f domain.QueryFilter) (string, []any) {
	conds := []string{"START_TIME >= ?", "START_TIME <= ?"}
	args := []any{f.Start, f.End}

	if cond, whArgs := warehousePredicate(f, "WAREHOUSE_NAME"); cond != "" {
		conds = append(conds, cond)
		args = append(args, whArgs...)
	}
	if f.User != "" {
		conds = append(conds, "USER_NAME = ?")
		args = append(args, f.User)
	}
	if f.QueryTag != "" {
		conds = append(conds, "QUERY_TAG = ?")
		args = append(args, f.QueryTag)
	}
	return strings.Join(conds, "\n  AND "), args
}

// warehousePredicate returns an equality or IN-list predicate for the
// selected warehouses, or an empty condition for ALL.
func warehousePredicate(f domain.QueryFilter, column string) (string, []any) {
	if f.AllSelected() {
		return "", nil
	}
	if len(f.Warehouses) == 1 {
		return column + " = ?", []any{f.Warehouses[0]}
	}
	placeholders := make([]string, len(f.Warehouses))
	args := make([]any, len(f.Warehouses))
	for i, wh := range f.Warehouses {
		placeholders[i] = "?"
		args[i] = wh
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")), args
}

// StatusBreakdown counts queries per execution status inside the window.
func StatusBreakdown(f domain.QueryFilter) (string, []any) {
	where, args := whereClause(f)
	stmt := fmt.Sprintf(`SELECT
  EXECUTION_STATUS,
  COUNT(*) AS QUERY_COUNT
FROM SNOWFLAKE.ACCOUNT_USAGE.QUERY_HISTORY
WHERE %s
GROUP BY 1
ORDER BY QUERY_COUNT DESC`, where)
	return stmt, args
}

// History selects the full record set for the window; top-N ranking and
// cost allocation shape these rows locally.
func History(f domain.QueryFilter) (string, []any) {
	where, args := whereClause(f)
	stmt := fmt.Sprintf(`SELECT
%s
FROM SNOWFLAKE.ACCOUNT_USAGE.QUERY_HISTORY
WHERE %s`, historyColumns, where)
	return stmt, args
}

// LongRunning selects queries strictly over the 10-minute threshold,
// longest first. The threshold is fixed; only the window filter varies.
func LongRunning(f domain.QueryFilter) (string, []any) {
	where, args := whereClause(f)
	stmt := fmt.Sprintf(`SELECT
%s
FROM SNOWFLAKE.ACCOUNT_USAGE.QUERY_HISTORY
WHERE %s
  AND TOTAL_ELAPSED_TIME > ?
ORDER BY TOTAL_ELAPSED_TIME DESC`, historyColumns, where)
	return stmt, append(args, domain.LongRunningThreshold.Milliseconds())
}

// RawHistory selects the newest rows in the window for the raw table view.
func RawHistory(f domain.QueryFilter) (string, []any) {
	where, args := whereClause(f)
	stmt := fmt.Sprintf(`SELECT
%s
FROM SNOWFLAKE.ACCOUNT_USAGE.QUERY_HISTORY
WHERE %s
ORDER BY START_TIME DESC
LIMIT %d`, historyColumns, where, RawHistoryLimit)
	return stmt, args
}

// WarehouseCreditsHourly sums metered credits per warehouse-hour. The
// metering view has no user or tag columns, so only the window and
// warehouse filters apply.
func WarehouseCreditsHourly(f domain.QueryFilter) (string, []any) {
	return warehouseCredits(f, "hour")
}

// WarehouseCreditsDaily sums metered credits per warehouse-day.
func WarehouseCreditsDaily(f domain.QueryFilter) (string, []any) {
	return warehouseCredits(f, "day")
}

func warehouseCredits(f domain.QueryFilter, grain string) (string, []any) {
	conds := []string{"START_TIME >= ?", "START_TIME <= ?"}
	args := []any{f.Start, f.End}
	if cond, whArgs := warehousePredicate(f, "WAREHOUSE_NAME"); cond != "" {
		conds = append(conds, cond)
		args = append(args, whArgs...)
	}
	stmt := fmt.Sprintf(`SELECT
  DATE_TRUNC('%s', START_TIME) AS PERIOD_START,
  WAREHOUSE_NAME,
  SUM(CREDITS_USED) AS CREDITS_USED
FROM SNOWFLAKE.ACCOUNT_USAGE.WAREHOUSE_METERING_HISTORY
WHERE %s
GROUP BY 1, 2
ORDER BY 1 DESC, 2`, grain, strings.Join(conds, "\n  AND "))
	return stmt, args
}

// RunningFallback selects still-running queries for one warehouse from the
// low-latency INFORMATION_SCHEMA table function, bounded to a recent
// window. Used when the live queries command is unavailable.
func RunningFallback(warehouse string, minutes int) (string, []any) {
	stmt := fmt.Sprintf(`SELECT
%s
FROM TABLE(
  INFORMATION_SCHEMA.QUERY_HISTORY(
    END_TIME_RANGE_START=>DATEADD('minute', -?, CURRENT_TIMESTAMP())
  )
)
WHERE WAREHOUSE_NAME = ?
  AND END_TIME IS NULL
ORDER BY START_TIME DESC`, historyColumns)
	return stmt, []any{minutes, warehouse}
}
