package database

import (
	"fmt"
	"strings"
)

// Source is a parsed database URL ready for database/sql.
type Source struct {
	Dialect Dialect
	Driver  string
	// DSN is a file path for sqlite and duckdb and the full URL for postgres.
	DSN    string
	Memory bool
}

// ParseURL accepts sqlite:///relative.db, sqlite:////absolute.db, sqlite://
// for an in-memory database, the same forms for duckdb:// and any
// postgres:// or postgresql:// URL.
func ParseURL(raw string) (Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Source{}, fmt.Errorf("database url is required")
	}
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return Source{}, fmt.Errorf("invalid database url %q: missing scheme", raw)
	}
	switch strings.ToLower(scheme) {
	case "sqlite", "sqlite3":
		return fileSource(DialectSQLite, "sqlite3", rest)
	case "duckdb":
		return fileSource(DialectDuckDB, "duckdb", rest)
	case "postgres", "postgresql":
		return Source{Dialect: DialectPostgres, Driver: "pgx", DSN: raw}, nil
	default:
		return Source{}, fmt.Errorf("unsupported database url scheme %q", scheme)
	}
}

func fileSource(dialect Dialect, driver, rest string) (Source, error) {
	if rest == "" || rest == "/" || rest == "/:memory:" || rest == ":memory:" {
		return Source{Dialect: dialect, Driver: driver, Memory: true}, nil
	}
	if !strings.HasPrefix(rest, "/") {
		return Source{}, fmt.Errorf("invalid %s url: host component %q is not supported", dialect, rest)
	}
	path := strings.TrimPrefix(rest, "/")
	if strings.ContainsAny(path, "?#") {
		return Source{}, fmt.Errorf("invalid %s url: query parameters are not supported", dialect)
	}
	return Source{Dialect: dialect, Driver: driver, DSN: path}, nil
}
