package talkdbctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type Options struct {
	BaseURL string
	Timeout time.Duration
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

type chatResponse struct {
	SessionID string            `json:"session_id"`
	Answer    string            `json:"answer"`
	Steps     []json.RawMessage `json:"steps"`
	ErrorCode string            `json:"error_code"`
	Message   string            `json:"message"`
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	stdin := defaults.Stdin
	if stdin == nil {
		stdin = strings.NewReader("")
	}

	fs := flag.NewFlagSet("talkdbctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:7860"), "talkdb API base URL")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 3*time.Minute), "HTTP timeout (e.g. 90s)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(*baseURL, "/")).
		SetTimeout(*timeout).
		SetHeader("Accept", "application/json")

	command := strings.TrimSpace(fs.Arg(0))
	rest := fs.Args()[1:]
	switch command {
	case "health":
		return printRequest(ctx, client.R(), http.MethodGet, "/v1/health", stdout, stderr)
	case "ready":
		return printRequest(ctx, client.R(), http.MethodGet, "/v1/ready", stdout, stderr)
	case "schema":
		return printRequest(ctx, client.R(), http.MethodGet, "/v1/ui/schema", stdout, stderr)
	case "new-session":
		return printRequest(ctx, client.R(), http.MethodPost, "/v1/sessions", stdout, stderr)
	case "transcript":
		if len(rest) != 1 || strings.TrimSpace(rest[0]) == "" {
			_, _ = fmt.Fprintln(stderr, "usage: talkdbctl transcript <session-id>")
			return 2
		}
		return printRequest(ctx, client.R(), http.MethodGet, "/v1/sessions/"+strings.TrimSpace(rest[0])+"/transcript", stdout, stderr)
	case "ask":
		return runAsk(ctx, client, rest, stdout, stderr)
	case "chat":
		return runChat(ctx, *baseURL, rest, stdin, stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}
}

func printRequest(ctx context.Context, req *resty.Request, method, path string, stdout, stderr io.Writer) int {
	resp, err := req.SetContext(ctx).Execute(method, path)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}
	if resp.StatusCode() >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", resp.StatusCode(), strings.TrimSpace(resp.String()))
		return 1
	}

	if pretty, ok := prettyJSON(resp.Body()); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(resp.Body()) > 0 {
		_, _ = fmt.Fprintln(stdout, resp.String())
	}
	return 0
}

func runAsk(ctx context.Context, client *resty.Client, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(stderr)
	sessionID := fs.String("session", "", "session id to continue")
	steps := fs.Bool("steps", false, "print the agent's tool steps")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		_, _ = fmt.Fprintln(stderr, "usage: talkdbctl ask [-session id] [-steps] <question...>")
		return 2
	}

	payload := map[string]any{
		"session_id":    strings.TrimSpace(*sessionID),
		"message":       strings.Join(fs.Args(), " "),
		"include_steps": *steps,
	}
	var out chatResponse
	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("/v1/chat")
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", resp.StatusCode(), strings.TrimSpace(resp.String()))
		return 1
	}
	if out.SessionID != "" {
		_, _ = fmt.Fprintf(stderr, "session: %s\n", out.SessionID)
	}
	if resp.StatusCode() >= 400 {
		_, _ = fmt.Fprintf(stderr, "%s: %s\n", out.ErrorCode, out.Message)
		return 1
	}

	for _, step := range out.Steps {
		if pretty, ok := prettyJSON(step); ok {
			_, _ = fmt.Fprintln(stderr, pretty)
		}
	}
	_, _ = fmt.Fprintln(stdout, out.Answer)
	return 0
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: talkdbctl [flags] <command>")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health                     GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                      GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  schema                     GET /v1/ui/schema")
	_, _ = fmt.Fprintln(w, "  new-session                POST /v1/sessions")
	_, _ = fmt.Fprintln(w, "  transcript <id>            GET /v1/sessions/{id}/transcript")
	_, _ = fmt.Fprintln(w, "  ask [-session id] <text>   POST /v1/chat")
	_, _ = fmt.Fprintln(w, "  chat [-session id]         interactive chat over /v1/chat/ws")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
