package nl2sql

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const maxErrorBodyBytes = 512

type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// OpenAIClient talks to any OpenAI compatible chat completions endpoint.
type OpenAIClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	client      *resty.Client
}

var (
	_ Translator = (*OpenAIClient)(nil)
	_ Summarizer = (*OpenAIClient)(nil)
)

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		temperature: cfg.Temperature,
		client:      resty.New().SetTimeout(timeout),
	}, nil
}

func (c *OpenAIClient) Translate(ctx context.Context, req Request) (Result, error) {
	systemPrompt, userPrompt, err := buildTranslatePrompts(req)
	if err != nil {
		return Result{}, err
	}
	content, err := c.complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return Result{}, err
	}
	sql := stripMarkdownSQL(content)
	if strings.TrimSpace(sql) == "" {
		return Result{}, fmt.Errorf("model returned empty SQL")
	}
	return Result{
		SQL:      sql,
		Provider: "openai-compatible",
		Model:    c.model,
	}, nil
}

func (c *OpenAIClient) Summarize(ctx context.Context, req SummaryRequest) (string, error) {
	systemPrompt, userPrompt, err := buildSummaryPrompts(req)
	if err != nil {
		return "", err
	}
	content, err := c.complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}
	answer := strings.TrimSpace(content)
	if answer == "" {
		return "", fmt.Errorf("model returned empty answer")
	}
	return answer, nil
}

func (c *OpenAIClient) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"temperature": c.temperature,
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetBody(payload).
		Post(c.baseURL + "/chat/completions")
	if err != nil {
		return "", fmt.Errorf("request chat completion: %w", err)
	}
	if resp.StatusCode() >= 400 {
		return "", fmt.Errorf("chat completion failed status=%d body=%s", resp.StatusCode(), truncate(resp.String(), maxErrorBodyBytes))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty chat completion choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func buildTranslatePrompts(req Request) (string, string, error) {
	tablesJSON, err := json.Marshal(req.Tables)
	if err != nil {
		return "", "", fmt.Errorf("marshal table context: %w", err)
	}
	dialect := strings.TrimSpace(req.Dialect)
	if dialect == "" {
		dialect = "sqlite"
	}
	rowLimit := req.RowLimit
	if rowLimit <= 0 {
		rowLimit = 10
	}
	systemPrompt := fmt.Sprintf("You convert natural language questions about a database into a single read-only %s SQL query. "+
		"Return ONLY SQL. No markdown, no explanation.", dialect)

	var user strings.Builder
	fmt.Fprintf(&user, "Schema and sample context (JSON):\n%s\n\nQuestion:\n%s\n", string(tablesJSON), strings.TrimSpace(req.NaturalLanguage))
	if strings.TrimSpace(req.PreviousSQL) != "" {
		fmt.Fprintf(&user, "\nThe previous attempt failed.\nSQL:\n%s\nError:\n%s\nFix the query.\n", req.PreviousSQL, req.PreviousError)
	}
	fmt.Fprintf(&user, "\nRules:\n- Use only listed tables and columns.\n- Never modify data.\n- Add LIMIT %d unless the question asks for more rows.\n- Output a single SQL query only.", rowLimit)
	return systemPrompt, user.String(), nil
}

func buildSummaryPrompts(req SummaryRequest) (string, string, error) {
	rowsJSON, err := json.Marshal(req.Rows)
	if err != nil {
		return "", "", fmt.Errorf("marshal result rows: %w", err)
	}
	systemPrompt := "You answer questions about a database using the result of a SQL query. " +
		"Answer in one or two sentences of plain text. Use only the data provided."

	var user strings.Builder
	fmt.Fprintf(&user, "Question:\n%s\n\nSQL:\n%s\n\nColumns: %s\nRows (JSON):\n%s", strings.TrimSpace(req.Question), req.SQL, strings.Join(req.Columns, ", "), string(rowsJSON))
	if req.Truncated {
		user.WriteString("\n(The result was truncated.)")
	}
	return systemPrompt, user.String(), nil
}

func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
