package talkdbctl

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type socketMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message,omitempty"`
	Answer    string `json:"answer,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// runChat reads one question per stdin line and prints each reply before
// sending the next line.
func runChat(ctx context.Context, baseURL string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(stderr)
	sessionID := fs.String("session", "", "session id to continue")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	endpoint, err := socketEndpoint(baseURL, strings.TrimSpace(*sessionID))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "invalid base url: %v\n", err)
		return 2
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			_, _ = fmt.Fprintf(stderr, "http %d: websocket handshake failed\n", resp.StatusCode)
		} else {
			_, _ = fmt.Fprintf(stderr, "connect failed: %v\n", err)
		}
		return 1
	}
	defer func() { _ = conn.Close() }()

	var hello socketMessage
	if err := conn.ReadJSON(&hello); err != nil {
		_, _ = fmt.Fprintf(stderr, "read session: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stderr, "session: %s\n", hello.SessionID)

	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if err := conn.WriteJSON(socketMessage{Type: "message", Message: line}); err != nil {
			_, _ = fmt.Fprintf(stderr, "send failed: %v\n", err)
			return 1
		}
		var reply socketMessage
		if err := conn.ReadJSON(&reply); err != nil {
			_, _ = fmt.Fprintf(stderr, "read failed: %v\n", err)
			return 1
		}
		if reply.Type == "error" {
			_, _ = fmt.Fprintf(stdout, "! %s\n", reply.Message)
			continue
		}
		_, _ = fmt.Fprintln(stdout, reply.Answer)
	}
	if err := scanner.Err(); err != nil {
		_, _ = fmt.Fprintf(stderr, "read input: %v\n", err)
		return 1
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return 0
}

func socketEndpoint(baseURL, sessionID string) (string, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	parsed.Path += "/v1/chat/ws"
	if sessionID != "" {
		parsed.RawQuery = url.Values{"session_id": []string{sessionID}}.Encode()
	}
	return parsed.String(), nil
}
