package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talkdb/talkdb/internal/agent"
	"github.com/talkdb/talkdb/internal/chat"
	"github.com/talkdb/talkdb/internal/config"
)

func TestChatSocketAnswersInOrder(t *testing.T) {
	gateway := newTestGateway(t, func(_ context.Context, instruction string) (agent.Response, error) {
		lines := strings.Split(instruction, "\n")
		last := strings.TrimPrefix(lines[len(lines)-1], "User: ")
		if last == "fail" {
			return agent.Response{}, errors.New("upstream reset")
		}
		return agent.Response{Output: strings.ToLower(last)}, nil
	})
	server := httptest.NewServer(NewHandler(testConfig(t, nil), Dependencies{Gateway: gateway}))
	defer server.Close()

	conn := dialSocket(t, server.URL+"/v1/chat/ws")
	defer func() { _ = conn.Close() }()

	hello := readSocket(t, conn)
	if hello.Type != "session" || hello.SessionID == "" || hello.Turns == nil || *hello.Turns != 0 {
		t.Fatalf("hello = %#v", hello)
	}

	for _, message := range []string{"A", "fail", "B", "C"} {
		if err := conn.WriteJSON(socketClientMessage{Type: "message", Message: message}); err != nil {
			t.Fatalf("WriteJSON() error = %v", err)
		}
	}
	replies := []socketServerMessage{readSocket(t, conn), readSocket(t, conn), readSocket(t, conn), readSocket(t, conn)}
	if replies[0].Type != "answer" || replies[0].Answer != "a" {
		t.Fatalf("reply 0 = %#v", replies[0])
	}
	if replies[1].Type != "error" || replies[1].ErrorCode != "AGENT_FAILED" || replies[1].Message != config.DefaultFailureMessage {
		t.Fatalf("reply 1 = %#v", replies[1])
	}
	if replies[2].Answer != "b" || replies[3].Answer != "c" {
		t.Fatalf("replies = %#v", replies)
	}

	turns, err := gateway.Transcript(hello.SessionID)
	if err != nil {
		t.Fatalf("Transcript() error = %v", err)
	}
	if len(turns) != 3 || turns[2].UserMessage != "C" {
		t.Fatalf("turns = %#v", turns)
	}
}

func TestChatSocketResumesSession(t *testing.T) {
	gateway := newTestGateway(t, func(context.Context, string) (agent.Response, error) {
		return agent.Response{Output: "ok"}, nil
	})
	session := gateway.NewSession()
	if _, err := gateway.HandleTurn(context.Background(), session.ID, "first"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	server := httptest.NewServer(NewHandler(testConfig(t, nil), Dependencies{Gateway: gateway}))
	defer server.Close()

	conn := dialSocket(t, server.URL+"/v1/chat/ws?session_id="+session.ID)
	defer func() { _ = conn.Close() }()
	hello := readSocket(t, conn)
	if hello.SessionID != session.ID || hello.Turns == nil || *hello.Turns != 1 {
		t.Fatalf("hello = %#v", hello)
	}
}

func TestChatSocketRejectsUnknownSession(t *testing.T) {
	gateway, _ := chat.NewGateway(agent.Func(func(context.Context, string) (agent.Response, error) {
		return agent.Response{}, nil
	}), nil, chat.GatewayConfig{})
	server := httptest.NewServer(NewHandler(testConfig(t, nil), Dependencies{Gateway: gateway}))
	defer server.Close()

	_, resp, err := websocket.DefaultDialer.Dial(socketURL(server.URL+"/v1/chat/ws?session_id=missing"), nil)
	if err == nil {
		t.Fatal("expected dial failure")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("response = %#v", resp)
	}
}

func TestChatSocketReportsInvalidMessages(t *testing.T) {
	gateway := newTestGateway(t, func(context.Context, string) (agent.Response, error) {
		return agent.Response{Output: "ok"}, nil
	})
	server := httptest.NewServer(NewHandler(testConfig(t, nil), Dependencies{Gateway: gateway}))
	defer server.Close()

	conn := dialSocket(t, server.URL+"/v1/chat/ws")
	defer func() { _ = conn.Close() }()
	_ = readSocket(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	if reply := readSocket(t, conn); reply.ErrorCode != "INVALID_MESSAGE" {
		t.Fatalf("reply = %#v", reply)
	}
	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if reply := readSocket(t, conn); reply.ErrorCode != "INVALID_MESSAGE" || !strings.Contains(reply.Message, "ping") {
		t.Fatalf("reply = %#v", reply)
	}
}

func TestChatSocketSurvivesFullQueueBehindSlowAgent(t *testing.T) {
	gateway := newTestGateway(t, func(ctx context.Context, instruction string) (agent.Response, error) {
		select {
		case <-time.After(600 * time.Millisecond):
		case <-ctx.Done():
			return agent.Response{}, ctx.Err()
		}
		lines := strings.Split(instruction, "\n")
		return agent.Response{Output: strings.TrimPrefix(lines[len(lines)-1], "User: ")}, nil
	})
	socket := newChatSocket(testConfig(t, nil), Dependencies{Gateway: gateway})
	socket.pongWait = 250 * time.Millisecond
	socket.pingInterval = 200 * time.Millisecond
	socket.queueSize = 1
	server := httptest.NewServer(socket)
	defer server.Close()

	conn := dialSocket(t, server.URL)
	defer func() { _ = conn.Close() }()
	_ = readSocket(t, conn)

	// The third message waits in the reader longer than the pong window.
	for _, message := range []string{"one", "two", "three"} {
		if err := conn.WriteJSON(socketClientMessage{Type: "message", Message: message}); err != nil {
			t.Fatalf("WriteJSON() error = %v", err)
		}
	}
	for _, want := range []string{"one", "two", "three"} {
		reply := readSocket(t, conn)
		if reply.Type != "answer" || reply.Answer != want {
			t.Fatalf("reply = %#v, want answer %q", reply, want)
		}
	}
}

func dialSocket(t *testing.T, rawURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(socketURL(rawURL), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	return conn
}

func socketURL(rawURL string) string {
	return "ws" + strings.TrimPrefix(rawURL, "http")
}

func readSocket(t *testing.T, conn *websocket.Conn) socketServerMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg socketServerMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}
