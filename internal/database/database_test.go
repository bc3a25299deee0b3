package database

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		raw  string
		want Source
	}{
		{raw: "sqlite:///meaningful_database_1.db", want: Source{Dialect: DialectSQLite, Driver: "sqlite3", DSN: "meaningful_database_1.db"}},
		{raw: "sqlite:////var/data/hospital.db", want: Source{Dialect: DialectSQLite, Driver: "sqlite3", DSN: "/var/data/hospital.db"}},
		{raw: "sqlite://", want: Source{Dialect: DialectSQLite, Driver: "sqlite3", Memory: true}},
		{raw: "sqlite:///:memory:", want: Source{Dialect: DialectSQLite, Driver: "sqlite3", Memory: true}},
		{raw: "duckdb:///warehouse.duckdb", want: Source{Dialect: DialectDuckDB, Driver: "duckdb", DSN: "warehouse.duckdb"}},
		{raw: "duckdb://", want: Source{Dialect: DialectDuckDB, Driver: "duckdb", Memory: true}},
		{raw: "postgres://u:p@localhost:5432/db?sslmode=disable", want: Source{Dialect: DialectPostgres, Driver: "pgx", DSN: "postgres://u:p@localhost:5432/db?sslmode=disable"}},
		{raw: "postgresql://localhost/db", want: Source{Dialect: DialectPostgres, Driver: "pgx", DSN: "postgresql://localhost/db"}},
	}
	for _, tt := range tests {
		got, err := ParseURL(tt.raw)
		if err != nil {
			t.Fatalf("ParseURL(%q) error = %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("ParseURL(%q) = %#v, want %#v", tt.raw, got, tt.want)
		}
	}
}

func TestParseURLRejectsUnsupportedInputs(t *testing.T) {
	for _, raw := range []string{"", "hospital.db", "mysql://localhost/db", "sqlite://host/file.db", "sqlite:///file.db?mode=rw"} {
		if _, err := ParseURL(raw); err == nil {
			t.Fatalf("ParseURL(%q) expected error", raw)
		}
	}
}

func TestIsReadOnlyStatement(t *testing.T) {
	allowed := []string{
		"SELECT COUNT(*) FROM Hospitals",
		"select SUM(TotalBeds) from Hospitals;",
		"  WITH t AS (SELECT 1 AS x) SELECT x FROM t ;; ",
		"EXPLAIN QUERY PLAN SELECT * FROM Patients",
		"-- leading comment\nSELECT Weight FROM Patients WHERE PatientID = 9",
		"SELECT 'DELETE FROM x; DROP TABLE y' AS note",
		`SELECT "Update" FROM "Insert"`,
		"/* DROP */ SELECT 1",
	}
	for _, sqlText := range allowed {
		if !IsReadOnlyStatement(sqlText) {
			t.Fatalf("IsReadOnlyStatement(%q) = false, want true (%v)", sqlText, CheckReadOnly(sqlText))
		}
	}

	rejected := []string{
		"",
		";",
		"DELETE FROM Patients",
		"DROP TABLE Doctors",
		"SELECT 1; DROP TABLE Doctors",
		"WITH gone AS (DELETE FROM Patients RETURNING *) SELECT * FROM gone",
		"EXPLAIN ANALYZE DELETE FROM Patients",
		"SELECT * INTO backup FROM Patients",
		"PRAGMA table_info(Patients)",
		"ATTACH DATABASE 'x.db' AS x",
	}
	for _, sqlText := range rejected {
		err := CheckReadOnly(sqlText)
		if err == nil {
			t.Fatalf("CheckReadOnly(%q) expected error", sqlText)
		}
		if !errors.Is(err, ErrStatementNotAllowed) {
			t.Fatalf("CheckReadOnly(%q) error = %v, want ErrStatementNotAllowed", sqlText, err)
		}
	}
}

func TestStripTrailingSemicolons(t *testing.T) {
	if got := StripTrailingSemicolons(" SELECT 1 ; ; "); got != "SELECT 1" {
		t.Fatalf("StripTrailingSemicolons() = %q", got)
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := QuoteIdent(`we"ird`); got != `"we""ird"` {
		t.Fatalf("QuoteIdent() = %q", got)
	}
}

func TestFormatTables(t *testing.T) {
	out := FormatTables([]Table{{
		Name:       "Hospitals",
		Columns:    []Column{{Name: "HospitalID", Type: "INTEGER"}, {Name: "TotalBeds", Type: "INTEGER"}},
		SampleRows: [][]any{{int64(1), int64(120)}, {int64(2), nil}},
	}})
	for _, want := range []string{
		"CREATE TABLE \"Hospitals\" (\n\t\"HospitalID\" INTEGER,\n\t\"TotalBeds\" INTEGER\n)",
		"2 rows from Hospitals table:",
		"HospitalID\tTotalBeds",
		"1\t120",
		"2\tNULL",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("FormatTables() missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatResult(t *testing.T) {
	out := FormatResult(Result{
		Columns: []string{"total"},
		Rows:    [][]any{{int64(1540)}},
	})
	if out != "total\n1540\n(1 row)" {
		t.Fatalf("FormatResult() = %q", out)
	}

	out = FormatResult(Result{Columns: []string{"a", "b"}, Rows: [][]any{{"x", 1.5}, {"y", 2.0}}, Truncated: true})
	if !strings.HasSuffix(out, "(2 rows, truncated)") || !strings.Contains(out, "x | 1.5") {
		t.Fatalf("FormatResult() = %q", out)
	}
}

func TestFormatValue(t *testing.T) {
	if got := FormatValue(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)); got != "2024-03-01" {
		t.Fatalf("FormatValue(date) = %q", got)
	}
	if got := FormatValue([]byte("abc")); got != "abc" {
		t.Fatalf("FormatValue([]byte) = %q", got)
	}
	if got := FormatValue(nil); got != "NULL" {
		t.Fatalf("FormatValue(nil) = %q", got)
	}
}
