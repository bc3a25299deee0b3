package sqldb

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/talkdb/talkdb/internal/database"
)

const (
	sqliteListTablesSQL = `SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' ORDER BY name`
	schemaListTablesSQL = `SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() ORDER BY table_name`
	schemaColumnsSQL    = `SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position`
)

func (h *Handle) ListTables(ctx context.Context) ([]string, error) {
	statement := schemaListTablesSQL
	if h.dialect == database.DialectSQLite {
		statement = sqliteListTablesSQL
	}
	rows, err := h.db.QueryContext(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return tables, nil
}

// Describe returns columns and up to sampleRows rows for each requested
// table, or for every table when none are named. Names match case
// insensitively; unknown names fail with database.ErrTableNotFound.
func (h *Handle) Describe(ctx context.Context, tables []string, sampleRows int) ([]database.Table, error) {
	available, err := h.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	names, err := resolveTables(available, tables)
	if err != nil {
		return nil, err
	}

	out := make([]database.Table, 0, len(names))
	for _, name := range names {
		columns, err := h.columns(ctx, name)
		if err != nil {
			return nil, err
		}
		table := database.Table{Name: name, Columns: columns}
		if sampleRows > 0 {
			sample, err := h.runQuery(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", database.QuoteIdent(name), sampleRows), sampleRows)
			if err != nil {
				return nil, fmt.Errorf("sample rows from %q: %w", name, err)
			}
			table.SampleRows = sample.Rows
		}
		out = append(out, table)
	}
	return out, nil
}

func (h *Handle) columns(ctx context.Context, table string) ([]database.Column, error) {
	if h.dialect == database.DialectSQLite {
		return h.sqliteColumns(ctx, table)
	}
	rows, err := h.db.QueryContext(ctx, schemaColumnsSQL, table)
	if err != nil {
		return nil, fmt.Errorf("describe table %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]database.Column, 0)
	for rows.Next() {
		var column database.Column
		if err := rows.Scan(&column.Name, &column.Type); err != nil {
			return nil, fmt.Errorf("scan column of %q: %w", table, err)
		}
		column.Type = strings.ToUpper(column.Type)
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns of %q: %w", table, err)
	}
	return columns, nil
}

func (h *Handle) sqliteColumns(ctx context.Context, table string) ([]database.Column, error) {
	rows, err := h.db.QueryContext(ctx, "PRAGMA table_info("+database.QuoteIdent(table)+")")
	if err != nil {
		return nil, fmt.Errorf("describe table %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]database.Column, 0)
	for rows.Next() {
		var (
			cid          int
			column       database.Column
			notNull      int
			defaultValue any
			primaryKey   int
		)
		if err := rows.Scan(&cid, &column.Name, &column.Type, &notNull, &defaultValue, &primaryKey); err != nil {
			return nil, fmt.Errorf("scan column of %q: %w", table, err)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns of %q: %w", table, err)
	}
	return columns, nil
}

func resolveTables(available, requested []string) ([]string, error) {
	if len(requested) == 0 {
		out := append([]string(nil), available...)
		sort.Strings(out)
		return out, nil
	}
	byLower := make(map[string]string, len(available))
	for _, name := range available {
		byLower[strings.ToLower(name)] = name
	}

	seen := map[string]bool{}
	out := make([]string, 0, len(requested))
	missing := make([]string, 0)
	for _, raw := range requested {
		name := strings.Trim(strings.TrimSpace(raw), `"`+"`")
		if name == "" {
			continue
		}
		actual, ok := byLower[strings.ToLower(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		if seen[actual] {
			continue
		}
		seen[actual] = true
		out = append(out, actual)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", database.ErrTableNotFound, strings.Join(missing, ", "))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no table names given", database.ErrTableNotFound)
	}
	return out, nil
}
