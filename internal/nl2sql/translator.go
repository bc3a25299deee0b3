package nl2sql

import "context"

type TableContext struct {
	TableName  string   `json:"table_name"`
	Columns    []string `json:"columns"`
	SampleRows [][]any  `json:"sample_rows"`
}

// Request carries the question plus, on a retry, the statement that failed
// and the database error it produced.
type Request struct {
	Dialect         string         `json:"dialect"`
	NaturalLanguage string         `json:"natural_language"`
	Tables          []TableContext `json:"tables"`
	RowLimit        int            `json:"row_limit"`
	PreviousSQL     string         `json:"previous_sql,omitempty"`
	PreviousError   string         `json:"previous_error,omitempty"`
}

type Result struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}

type SummaryRequest struct {
	Question  string
	SQL       string
	Columns   []string
	Rows      [][]any
	Truncated bool
}

// Summarizer turns a query result into a natural language answer.
type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}
