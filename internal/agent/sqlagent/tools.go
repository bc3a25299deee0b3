package sqlagent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"

	"github.com/talkdb/talkdb/internal/agent"
	"github.com/talkdb/talkdb/internal/database"
)

const (
	ListTablesToolName   = "sql_db_list_tables"
	SchemaToolName       = "sql_db_schema"
	QueryCheckerToolName = "sql_db_query_checker"
	QueryToolName        = "sql_db_query"
)

type listTablesInput struct{}

type schemaInput struct {
	Tables string `json:"tables" jsonschema_description:"Comma separated list of table names. Call sql_db_list_tables first to be sure the tables exist."`
}

type queryInput struct {
	Query string `json:"query" jsonschema_description:"A single read-only SQL statement."`
}

// NewTools builds the database tools the agent can call. Database errors are
// handed back to the model as text so it can correct itself.
func NewTools(db database.Handle, sampleRows int) ([]tool.BaseTool, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}

	listTables, err := utils.InferTool(ListTablesToolName,
		"Input is an empty object, output is a comma separated list of tables in the database.",
		func(ctx context.Context, _ listTablesInput) (string, error) {
			tables, err := db.ListTables(ctx)
			if err != nil {
				return record(ctx, ListTablesToolName, "", errorText(err)), nil
			}
			return record(ctx, ListTablesToolName, "", strings.Join(tables, ", ")), nil
		})
	if err != nil {
		return nil, fmt.Errorf("build %s tool: %w", ListTablesToolName, err)
	}

	describe, err := utils.InferTool(SchemaToolName,
		"Output is the schema and sample rows for the given tables.",
		func(ctx context.Context, in schemaInput) (string, error) {
			names := splitTables(in.Tables)
			tables, err := db.Describe(ctx, names, sampleRows)
			if err != nil {
				if errors.Is(err, database.ErrTableNotFound) {
					return record(ctx, SchemaToolName, in.Tables, errorText(err)+". Use sql_db_list_tables to see the available tables."), nil
				}
				return record(ctx, SchemaToolName, in.Tables, errorText(err)), nil
			}
			return record(ctx, SchemaToolName, in.Tables, database.FormatTables(tables)), nil
		})
	if err != nil {
		return nil, fmt.Errorf("build %s tool: %w", SchemaToolName, err)
	}

	checker, err := utils.InferTool(QueryCheckerToolName,
		"Use this tool to double check that a query is correct before executing it with sql_db_query.",
		func(ctx context.Context, in queryInput) (string, error) {
			if err := db.Check(ctx, in.Query); err != nil {
				return record(ctx, QueryCheckerToolName, in.Query, errorText(err)), nil
			}
			return record(ctx, QueryCheckerToolName, in.Query, "ok"), nil
		})
	if err != nil {
		return nil, fmt.Errorf("build %s tool: %w", QueryCheckerToolName, err)
	}

	query, err := utils.InferTool(QueryToolName,
		"Execute a SQL query against the database and get back the result. "+
			"If the query is not correct an error message is returned; rewrite the query, check it and try again. "+
			"If you get an unknown column error, use sql_db_schema to query the correct table fields.",
		func(ctx context.Context, in queryInput) (string, error) {
			result, err := db.Query(ctx, in.Query)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return "", ctxErr
				}
				return record(ctx, QueryToolName, in.Query, errorText(err)), nil
			}
			return record(ctx, QueryToolName, in.Query, database.FormatResult(result)), nil
		})
	if err != nil {
		return nil, fmt.Errorf("build %s tool: %w", QueryToolName, err)
	}

	return []tool.BaseTool{listTables, describe, checker, query}, nil
}

func record(ctx context.Context, toolName, input, output string) string {
	agent.Record(ctx, agent.Step{Tool: toolName, Input: input, Output: output})
	return output
}

func errorText(err error) string {
	return "Error: " + err.Error()
}

func splitTables(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
