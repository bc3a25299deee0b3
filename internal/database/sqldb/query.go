package sqldb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/talkdb/talkdb/internal/database"
	"github.com/talkdb/talkdb/internal/observability"
)

// Query runs one read-only statement and returns at most the configured
// number of rows.
func (h *Handle) Query(ctx context.Context, sqlText string) (database.Result, error) {
	start := time.Now()
	if err := database.CheckReadOnly(sqlText); err != nil {
		observability.ObserveSQLQuery("rejected", -1, time.Since(start))
		return database.Result{}, err
	}
	result, err := h.runQuery(ctx, database.StripTrailingSemicolons(sqlText), h.maxRows)
	if err != nil {
		observability.ObserveSQLQuery("error", -1, time.Since(start))
		return database.Result{}, err
	}
	observability.ObserveSQLQuery("ok", len(result.Rows), result.Duration)
	return result, nil
}

// Check asks the database to plan the statement without running it.
func (h *Handle) Check(ctx context.Context, sqlText string) error {
	if err := database.CheckReadOnly(sqlText); err != nil {
		return err
	}
	statement := database.StripTrailingSemicolons(sqlText)
	if !strings.HasPrefix(strings.ToUpper(statement), "EXPLAIN") {
		statement = h.explainPrefix() + " " + statement
	}
	rows, err := h.db.QueryContext(ctx, statement)
	if err != nil {
		return fmt.Errorf("check query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("check query: %w", err)
	}
	return nil
}

func (h *Handle) explainPrefix() string {
	if h.dialect == database.DialectSQLite {
		return "EXPLAIN QUERY PLAN"
	}
	return "EXPLAIN"
}

func (h *Handle) runQuery(ctx context.Context, statement string, limit int) (database.Result, error) {
	start := time.Now()
	rows, err := h.db.QueryContext(ctx, statement)
	if err != nil {
		return database.Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return database.Result{}, fmt.Errorf("query columns: %w", err)
	}

	result := database.Result{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		if len(result.Rows) >= limit {
			result.Truncated = true
			break
		}
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return database.Result{}, fmt.Errorf("scan row: %w", err)
		}
		result.Rows = append(result.Rows, database.NormalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return database.Result{}, fmt.Errorf("iterate rows: %w", err)
	}
	result.Duration = time.Since(start)
	return result, nil
}
