package translate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/talkdb/talkdb/internal/database"
	"github.com/talkdb/talkdb/internal/nl2sql"
)

func TestAnswerTranslatesQueriesAndSummarizes(t *testing.T) {
	translator := &fakeTranslator{sql: []string{"SELECT SUM(TotalBeds) FROM Hospitals"}}
	summarizer := &fakeSummarizer{answer: "There are 245 beds in total."}
	db := &fakeHandle{results: map[string]database.Result{
		"SELECT SUM(TotalBeds) FROM Hospitals": {Columns: []string{"SUM(TotalBeds)"}, Rows: [][]any{{int64(245)}}},
	}}

	a, err := New(Config{Translator: translator, Summarizer: summarizer, Database: db, SampleRows: 3, TopK: 5})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	resp, err := a.Answer(context.Background(), "User: How many beds there are in total?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if resp.Output != "There are 245 beds in total." {
		t.Fatalf("Output = %q", resp.Output)
	}
	if len(resp.Steps) != 3 || resp.Steps[0].Tool != StepTranslate || resp.Steps[1].Tool != StepQuery || resp.Steps[2].Tool != StepSummarize {
		t.Fatalf("steps = %#v", resp.Steps)
	}

	req := translator.requests[0]
	if req.Dialect != "sqlite" || req.RowLimit != 5 {
		t.Fatalf("request = %#v", req)
	}
	if len(req.Tables) != 1 || req.Tables[0].Columns[0] != "TotalBeds INTEGER" {
		t.Fatalf("tables = %#v", req.Tables)
	}
	if summarizer.request.Rows[0][0] != int64(245) {
		t.Fatalf("summary request = %#v", summarizer.request)
	}
}

func TestAnswerRetriesOnceWithError(t *testing.T) {
	translator := &fakeTranslator{sql: []string{"SELECT Wieght FROM Patients", "SELECT Weight FROM Patients WHERE PatientID = 9"}}
	db := &fakeHandle{
		results: map[string]database.Result{
			"SELECT Weight FROM Patients WHERE PatientID = 9": {Columns: []string{"Weight"}, Rows: [][]any{{71.5}}},
		},
		errs: map[string]error{"SELECT Wieght FROM Patients": errors.New("no such column: Wieght")},
	}
	a, err := New(Config{Translator: translator, Summarizer: &fakeSummarizer{answer: "71.5"}, Database: db})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	resp, err := a.Answer(context.Background(), "User: What is the weight of patient9?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(translator.requests) != 2 {
		t.Fatalf("translate calls = %d", len(translator.requests))
	}
	retry := translator.requests[1]
	if retry.PreviousSQL != "SELECT Wieght FROM Patients" || !strings.Contains(retry.PreviousError, "no such column") {
		t.Fatalf("retry request = %#v", retry)
	}
	if len(resp.Steps) != 5 || !strings.HasPrefix(resp.Steps[1].Output, "Error:") {
		t.Fatalf("steps = %#v", resp.Steps)
	}
}

func TestAnswerFailsAfterSecondQueryError(t *testing.T) {
	translator := &fakeTranslator{sql: []string{"SELECT x", "SELECT y"}}
	db := &fakeHandle{errs: map[string]error{
		"SELECT x": errors.New("bad x"),
		"SELECT y": errors.New("bad y"),
	}}
	a, err := New(Config{Translator: translator, Summarizer: &fakeSummarizer{}, Database: db})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = a.Answer(context.Background(), "User: ?")
	if err == nil || !strings.Contains(err.Error(), "bad y") {
		t.Fatalf("Answer() error = %v", err)
	}
}

func TestAnswerPropagatesTranslatorError(t *testing.T) {
	a, err := New(Config{Translator: &fakeTranslator{err: errors.New("status=500")}, Summarizer: &fakeSummarizer{}, Database: &fakeHandle{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := a.Answer(context.Background(), "User: ?"); err == nil || !strings.Contains(err.Error(), "status=500") {
		t.Fatalf("Answer() error = %v", err)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected validation error")
	}
}

type fakeTranslator struct {
	sql      []string
	err      error
	requests []nl2sql.Request
}

func (f *fakeTranslator) Translate(_ context.Context, req nl2sql.Request) (nl2sql.Result, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nl2sql.Result{}, f.err
	}
	next := f.sql[0]
	f.sql = f.sql[1:]
	return nl2sql.Result{SQL: next, Provider: "fake", Model: "fake"}, nil
}

type fakeSummarizer struct {
	answer  string
	request nl2sql.SummaryRequest
}

func (f *fakeSummarizer) Summarize(_ context.Context, req nl2sql.SummaryRequest) (string, error) {
	f.request = req
	return f.answer, nil
}

type fakeHandle struct {
	results map[string]database.Result
	errs    map[string]error
}

func (f *fakeHandle) Dialect() database.Dialect { return database.DialectSQLite }

func (f *fakeHandle) ListTables(context.Context) ([]string, error) { return []string{"Hospitals"}, nil }

func (f *fakeHandle) Describe(context.Context, []string, int) ([]database.Table, error) {
	return []database.Table{{Name: "Hospitals", Columns: []database.Column{{Name: "TotalBeds", Type: "INTEGER"}}}}, nil
}

func (f *fakeHandle) Check(context.Context, string) error { return nil }

func (f *fakeHandle) Query(_ context.Context, sqlText string) (database.Result, error) {
	if err, ok := f.errs[sqlText]; ok {
		return database.Result{}, err
	}
	return f.results[sqlText], nil
}

func (f *fakeHandle) Ping(context.Context) error { return nil }

func (f *fakeHandle) Close() error { return nil }
