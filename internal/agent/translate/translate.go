package translate

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/talkdb/talkdb/internal/agent"
	"github.com/talkdb/talkdb/internal/database"
	"github.com/talkdb/talkdb/internal/nl2sql"
)

const (
	StepTranslate = "translate"
	StepQuery     = "query"
	StepSummarize = "summarize"
)

type Config struct {
	Translator nl2sql.Translator
	Summarizer nl2sql.Summarizer
	Database   database.Handle
	SampleRows int
	TopK       int
	Logger     *slog.Logger
}

// Agent answers with one generated statement. When that statement fails it
// asks the translator once more with the error attached.
type Agent struct {
	translator nl2sql.Translator
	summarizer nl2sql.Summarizer
	db         database.Handle
	sampleRows int
	topK       int
	logger     *slog.Logger
}

var _ agent.Agent = (*Agent)(nil)

func New(cfg Config) (*Agent, error) {
	if cfg.Translator == nil {
		return nil, fmt.Errorf("translator is required")
	}
	if cfg.Summarizer == nil {
		return nil, fmt.Errorf("summarizer is required")
	}
	if cfg.Database == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 10
	}
	return &Agent{
		translator: cfg.Translator,
		summarizer: cfg.Summarizer,
		db:         cfg.Database,
		sampleRows: cfg.SampleRows,
		topK:       topK,
		logger:     logger,
	}, nil
}

func (a *Agent) Answer(ctx context.Context, instruction string) (agent.Response, error) {
	steps := make([]agent.Step, 0, 5)

	tables, err := a.db.Describe(ctx, nil, a.sampleRows)
	if err != nil {
		return agent.Response{}, fmt.Errorf("describe database: %w", err)
	}
	req := nl2sql.Request{
		Dialect:         string(a.db.Dialect()),
		NaturalLanguage: instruction,
		Tables:          tableContexts(tables),
		RowLimit:        a.topK,
	}

	translated, err := a.translator.Translate(ctx, req)
	if err != nil {
		return agent.Response{Steps: steps}, fmt.Errorf("translate question: %w", err)
	}
	steps = append(steps, agent.Step{Tool: StepTranslate, Input: instruction, Output: translated.SQL})

	result, err := a.db.Query(ctx, translated.SQL)
	if err != nil {
		steps = append(steps, agent.Step{Tool: StepQuery, Input: translated.SQL, Output: "Error: " + err.Error()})
		if ctxErr := ctx.Err(); ctxErr != nil {
			return agent.Response{Steps: steps}, ctxErr
		}
		a.logger.DebugContext(ctx, "translated_sql_failed",
			slog.String("sql", translated.SQL),
			slog.String("error", err.Error()),
		)

		req.PreviousSQL = translated.SQL
		req.PreviousError = err.Error()
		translated, err = a.translator.Translate(ctx, req)
		if err != nil {
			return agent.Response{Steps: steps}, fmt.Errorf("translate question: %w", err)
		}
		steps = append(steps, agent.Step{Tool: StepTranslate, Input: instruction, Output: translated.SQL})

		result, err = a.db.Query(ctx, translated.SQL)
		if err != nil {
			steps = append(steps, agent.Step{Tool: StepQuery, Input: translated.SQL, Output: "Error: " + err.Error()})
			return agent.Response{Steps: steps}, fmt.Errorf("execute translated sql: %w", err)
		}
	}
	steps = append(steps, agent.Step{Tool: StepQuery, Input: translated.SQL, Output: database.FormatResult(result)})

	answer, err := a.summarizer.Summarize(ctx, nl2sql.SummaryRequest{
		Question:  instruction,
		SQL:       translated.SQL,
		Columns:   result.Columns,
		Rows:      result.Rows,
		Truncated: result.Truncated,
	})
	if err != nil {
		return agent.Response{Steps: steps}, fmt.Errorf("summarize result: %w", err)
	}
	if answer == "" {
		return agent.Response{Steps: steps}, agent.ErrEmptyAnswer
	}
	steps = append(steps, agent.Step{Tool: StepSummarize, Input: translated.SQL, Output: answer})
	return agent.Response{Output: answer, Steps: steps}, nil
}

func tableContexts(tables []database.Table) []nl2sql.TableContext {
	out := make([]nl2sql.TableContext, 0, len(tables))
	for _, table := range tables {
		columns := make([]string, 0, len(table.Columns))
		for _, column := range table.Columns {
			columns = append(columns, column.Name+" "+column.Type)
		}
		out = append(out, nl2sql.TableContext{
			TableName:  table.Name,
			Columns:    columns,
			SampleRows: table.SampleRows,
		})
	}
	return out
}
