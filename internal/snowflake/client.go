// Package snowflake owns the database session against the warehouse and the
// row scanning for the monitor's statements.
package snowflake

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	sf "github.com/snowflakedb/gosnowflake"

	"snowmon/internal/config"
	"snowmon/internal/domain"
)

// Client wraps a single database/sql session scoped to the resolved
// credentials and default warehouse/role/database/schema. Sequential use
// only; each user session owns its own Client.
type Client struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open builds a DSN from the connection config, opens the session, and
// verifies connectivity. Failures surface as ConnectionError.
func Open(ctx context.Context, cfg *config.ConnectionConfig, logger *slog.Logger) (*Client, error) {
	dsn, err := sf.DSN(&sf.Config{
		Account:   cfg.Account,
		User:      cfg.User,
		Password:  cfg.Password,
		Warehouse: cfg.Warehouse,
		Role:      cfg.Role,
		Database:  cfg.Database,
		Schema:    cfg.Schema,
	})
	if err != nil {
		return nil, domain.ErrConnection(err, "invalid Snowflake connection settings: %v", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, domain.ErrConnection(err, "open Snowflake session: %v", err)
	}
	// One interaction at a time; the UI model is request-per-interaction.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, domain.ErrConnection(err, "cannot reach Snowflake account %s: %v", cfg.Account, err)
	}

	logger.Info("snowflake session established", "summary", cfg.Redacted())
	return &Client{db: db, logger: logger}, nil
}

// Close releases the underlying session.
func (c *Client) Close() error { return c.db.Close() }

// query runs one parameterized statement and wraps driver failures so the
// presentation layer can show the underlying message.
func (c *Client) query(ctx context.Context, stmt string, args []any) (*sql.Rows, error) {
	rows, err := c.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, domain.ErrQueryExecution(err, "query failed: %v", err)
	}
	return rows, nil
}

// exec runs a statement whose result set is not consumed (SHOW commands
// preceding a RESULT_SCAN).
func (c *Client) exec(ctx context.Context, stmt string, args []any) error {
	if _, err := c.db.ExecContext(ctx, stmt, args...); err != nil {
		return domain.ErrQueryExecution(err, "command failed: %v", err)
	}
	return nil
}

// StatusCounts scans (status, count) rows from the status breakdown statement.
func (c *Client) StatusCounts(ctx context.Context, stmt string, args []any) (map[domain.QueryStatus]int, error) {
	rows, err := c.query(ctx, stmt, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	counts := map[domain.QueryStatus]int{}
	for rows.Next() {
		var status sql.NullString
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrQueryExecution(err, "scan status row: %v", err)
		}
		counts[domain.NormalizeStatus(status.String)] += int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrQueryExecution(err, "read status rows: %v", err)
	}
	return counts, nil
}

// HistoryRecords scans full query-history rows. The statement must select
// the canonical history column list (see catalog.historyColumns).
func (c *Client) HistoryRecords(ctx context.Context, stmt string, args []any) ([]domain.QueryRecord, error) {
	rows, err := c.query(ctx, stmt, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.QueryRecord
	for rows.Next() {
		var (
			queryID, user, warehouse, database, schema sql.NullString
			status, tag, text                          sql.NullString
			start, end                                 sql.NullTime
			elapsed, bytesScanned, rowsProduced        sql.NullInt64
			credits                                    sql.NullFloat64
		)
		if err := rows.Scan(&queryID, &user, &warehouse, &database, &schema,
			&start, &end, &elapsed, &bytesScanned, &rowsProduced,
			&credits, &status, &tag, &text); err != nil {
			return nil, domain.ErrQueryExecution(err, "scan history row: %v", err)
		}
		rec := domain.QueryRecord{
			QueryID:      queryID.String,
			Warehouse:    warehouse.String,
			User:         user.String,
			Database:     database.String,
			Schema:       schema.String,
			Status:       domain.NormalizeStatus(status.String),
			ElapsedMS:    elapsed.Int64,
			BytesScanned: bytesScanned.Int64,
			RowsProduced: rowsProduced.Int64,
			QueryTag:     tag.String,
			QueryText:    text.String,
		}
		if start.Valid {
			rec.StartTime = start.Time
		}
		if end.Valid {
			rec.EndTime = end.Time
		}
		if credits.Valid {
			v := credits.Float64
			rec.CreditsUsed = &v
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrQueryExecution(err, "read history rows: %v", err)
	}
	return out, nil
}

// CreditRows scans (period, warehouse, credits) rows from the metering
// statements.
func (c *Client) CreditRows(ctx context.Context, stmt string, args []any) ([]domain.CreditRow, error) {
	rows, err := c.query(ctx, stmt, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.CreditRow
	for rows.Next() {
		var period sql.NullTime
		var warehouse sql.NullString
		var credits sql.NullFloat64
		if err := rows.Scan(&period, &warehouse, &credits); err != nil {
			return nil, domain.ErrQueryExecution(err, "scan credit row: %v", err)
		}
		out = append(out, domain.CreditRow{
			Warehouse:   warehouse.String,
			PeriodStart: period.Time,
			Credits:     credits.Float64,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrQueryExecution(err, "read credit rows: %v", err)
	}
	return out, nil
}

// Warehouses runs SHOW WAREHOUSES and returns the warehouse names sorted by
// the server.
func (c *Client) Warehouses(ctx context.Context) ([]string, error) {
	if err := c.exec(ctx, "SHOW WAREHOUSES", nil); err != nil {
		return nil, err
	}
	rows, err := c.query(ctx,
		`SELECT "name" FROM TABLE(RESULT_SCAN(LAST_QUERY_ID())) ORDER BY "name"`, nil)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, domain.ErrQueryExecution(err, "scan warehouse name: %v", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrQueryExecution(err, "read warehouse names: %v", err)
	}
	return names, nil
}

// LiveQueries runs SHOW QUERIES IN WAREHOUSE for one warehouse and scans the
// result set into records. The live command carries no credit data, so
// CreditsUsed stays nil. Column positions are resolved by name because SHOW
// output ordering is not contractual.
func (c *Client) LiveQueries(ctx context.Context, warehouse string) ([]domain.QueryRecord, error) {
	if err := c.exec(ctx, "SHOW QUERIES IN WAREHOUSE IDENTIFIER(?)", []any{warehouse}); err != nil {
		return nil, err
	}
	rows, err := c.query(ctx, "SELECT * FROM TABLE(RESULT_SCAN(LAST_QUERY_ID()))", nil)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, domain.ErrQueryExecution(err, "live query columns: %v", err)
	}
	idx := map[string]int{}
	for i, col := range cols {
		idx[strings.ToLower(col)] = i
	}

	var out []domain.QueryRecord
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, domain.ErrQueryExecution(err, "scan live row: %v", err)
		}
		rec := domain.QueryRecord{
			QueryID:   stringAt(vals, idx, "query_id", "id"),
			Warehouse: stringAt(vals, idx, "warehouse_name", "warehouse"),
			User:      stringAt(vals, idx, "user_name"),
			Status:    domain.NormalizeStatus(strings.ToUpper(stringAt(vals, idx, "execution_status", "status"))),
			StartTime: timeAt(vals, idx, "start_time"),
			QueryText: stringAt(vals, idx, "query_text", "sql_text"),
		}
		if !rec.StartTime.IsZero() {
			rec.ElapsedMS = time.Since(rec.StartTime).Milliseconds()
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrQueryExecution(err, "read live rows: %v", err)
	}
	return out, nil
}

func stringAt(vals []any, idx map[string]int, names ...string) string {
	for _, name := range names {
		i, ok := idx[name]
		if !ok {
			continue
		}
		switch v := vals[i].(type) {
		case string:
			return v
		case []byte:
			return string(v)
		}
	}
	return ""
}

func timeAt(vals []any, idx map[string]int, name string) time.Time {
	i, ok := idx[name]
	if !ok {
		return time.Time{}
	}
	if t, ok := vals[i].(time.Time); ok {
		return t
	}
	return time.Time{}
}
