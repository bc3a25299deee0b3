package seed

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/talkdb/talkdb/internal/database"
)

type Writer struct{}

// Write replaces the demo tables in db with the dataset. All statements run in
// one transaction, so a failed seed leaves the previous tables in place.
func (Writer) Write(ctx context.Context, db *sql.DB, dialect database.Dialect, ds Dataset) (err error) {
	if db == nil {
		return fmt.Errorf("database is required")
	}
	tables, err := ds.Tables()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range tables {
		if err = writeTable(ctx, tx, dialect, table); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit seed transaction: %w", err)
	}
	return nil
}

func writeTable(ctx context.Context, tx *sql.Tx, dialect database.Dialect, table Table) error {
	name := database.QuoteIdent(table.Name)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return fmt.Errorf("drop %s: %w", table.Name, err)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(table)); err != nil {
		return fmt.Errorf("create %s: %w", table.Name, err)
	}
	if len(table.Rows) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(dialect, table))
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", table.Name, err)
	}
	defer func() { _ = stmt.Close() }()

	for i, row := range table.Rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("insert %s row %d: %w", table.Name, i+1, err)
		}
	}
	return nil
}

func createTableSQL(table Table) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(database.QuoteIdent(table.Name))
	b.WriteString(" (\n")
	for i, column := range table.Columns {
		b.WriteString("\t")
		b.WriteString(database.QuoteIdent(column.Name))
		b.WriteString(" ")
		b.WriteString(column.Type)
		if i == 0 {
			b.WriteString(" PRIMARY KEY")
		}
		if i < len(table.Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String()
}

func insertSQL(dialect database.Dialect, table Table) string {
	columns := make([]string, 0, len(table.Columns))
	placeholders := make([]string, 0, len(table.Columns))
	for i, column := range table.Columns {
		columns = append(columns, database.QuoteIdent(column.Name))
		placeholders = append(placeholders, placeholder(dialect, i+1))
	}
	return "INSERT INTO " + database.QuoteIdent(table.Name) +
		" (" + strings.Join(columns, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"
}

func placeholder(dialect database.Dialect, position int) string {
	if dialect == database.DialectPostgres {
		return "$" + strconv.Itoa(position)
	}
	return "?"
}
