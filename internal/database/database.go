package database

import (
	"context"
	"errors"
	"time"
)

var (
	ErrStatementNotAllowed = errors.New("only a single read-only statement is allowed")
	ErrTableNotFound       = errors.New("table not found")
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectDuckDB   Dialect = "duckdb"
	DialectPostgres Dialect = "postgres"
)

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Table struct {
	Name       string   `json:"name"`
	Columns    []Column `json:"columns"`
	SampleRows [][]any  `json:"sample_rows,omitempty"`
}

type Result struct {
	Columns   []string
	Rows      [][]any
	Truncated bool
	Duration  time.Duration
}

// Handle is the connection the agent uses to explore and query the data.
type Handle interface {
	Dialect() Dialect
	ListTables(ctx context.Context) ([]string, error)
	Describe(ctx context.Context, tables []string, sampleRows int) ([]Table, error)
	Check(ctx context.Context, sqlText string) error
	Query(ctx context.Context, sqlText string) (Result, error)
	Ping(ctx context.Context) error
	Close() error
}
