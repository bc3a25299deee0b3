package database

import (
	"fmt"
	"strings"
	"time"
)

// FormatTables renders table definitions and sample rows the way SQL agents
// expect to read a schema.
func FormatTables(tables []Table) string {
	var b strings.Builder
	for i, table := range tables {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "CREATE TABLE %s (\n", QuoteIdent(table.Name))
		for j, column := range table.Columns {
			separator := ","
			if j == len(table.Columns)-1 {
				separator = ""
			}
			fmt.Fprintf(&b, "\t%s %s%s\n", QuoteIdent(column.Name), column.Type, separator)
		}
		b.WriteString(")")
		if len(table.SampleRows) == 0 {
			continue
		}
		names := make([]string, 0, len(table.Columns))
		for _, column := range table.Columns {
			names = append(names, column.Name)
		}
		fmt.Fprintf(&b, "\n\n/*\n%d rows from %s table:\n", len(table.SampleRows), table.Name)
		b.WriteString(strings.Join(names, "\t"))
		b.WriteString("\n")
		for _, row := range table.SampleRows {
			b.WriteString(joinValues(row, "\t"))
			b.WriteString("\n")
		}
		b.WriteString("*/")
	}
	return b.String()
}

// FormatResult renders a result as a pipe separated table followed by a row
// count line.
func FormatResult(result Result) string {
	var b strings.Builder
	b.WriteString(strings.Join(result.Columns, " | "))
	b.WriteString("\n")
	for _, row := range result.Rows {
		b.WriteString(joinValues(row, " | "))
		b.WriteString("\n")
	}
	switch {
	case result.Truncated:
		fmt.Fprintf(&b, "(%d rows, truncated)", len(result.Rows))
	case len(result.Rows) == 1:
		b.WriteString("(1 row)")
	default:
		fmt.Fprintf(&b, "(%d rows)", len(result.Rows))
	}
	return b.String()
}

func FormatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(typed)
	case string:
		return typed
	case time.Time:
		if typed.Hour() == 0 && typed.Minute() == 0 && typed.Second() == 0 && typed.Nanosecond() == 0 {
			return typed.Format(time.DateOnly)
		}
		return typed.Format(time.RFC3339)
	case float32:
		return fmt.Sprintf("%g", typed)
	case float64:
		return fmt.Sprintf("%g", typed)
	default:
		return fmt.Sprint(typed)
	}
}

// NormalizeValues converts driver specific values into JSON friendly ones.
func NormalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func joinValues(row []any, separator string) string {
	parts := make([]string, 0, len(row))
	for _, value := range row {
		parts = append(parts, FormatValue(value))
	}
	return strings.Join(parts, separator)
}
