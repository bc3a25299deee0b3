package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talkdb/talkdb/internal/agent"
	"github.com/talkdb/talkdb/internal/config"
	"github.com/talkdb/talkdb/internal/observability"
)

const (
	socketWriteWait      = 10 * time.Second
	socketPongWait       = 60 * time.Second
	socketPingInterval   = (socketPongWait * 9) / 10
	socketMaxMessageSize = 64 << 10
	socketQueueSize      = 16
)

type socketClientMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type socketServerMessage struct {
	Type      string       `json:"type"`
	SessionID string       `json:"session_id,omitempty"`
	Turns     *int         `json:"turns,omitempty"`
	Answer    string       `json:"answer,omitempty"`
	Steps     []agent.Step `json:"steps,omitempty"`
	ErrorCode string       `json:"error_code,omitempty"`
	Message   string       `json:"message,omitempty"`
}

// chatSocket runs chat turns over a websocket. Each connection is bound to one
// session and its turns are handled one at a time in arrival order.
type chatSocket struct {
	cfg          config.Config
	deps         Dependencies
	logger       *slog.Logger
	upgrader     websocket.Upgrader
	pongWait     time.Duration
	pingInterval time.Duration
	queueSize    int
}

func newChatSocket(cfg config.Config, deps Dependencies) *chatSocket {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &chatSocket{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		pongWait:     socketPongWait,
		pingInterval: socketPingInterval,
		queueSize:    socketQueueSize,
	}
}

func (s *chatSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.deps.Gateway == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "chat gateway is not configured", false, nil)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	var turns int
	if sessionID == "" {
		sessionID = s.deps.Gateway.NewSession().ID
	} else {
		existing, err := s.deps.Gateway.Transcript(sessionID)
		if err != nil {
			writeSessionError(w, r, sessionID, err)
			return
		}
		turns = len(existing)
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WarnContext(r.Context(), "websocket_upgrade_failed", slog.String("error", err.Error()))
		return
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outgoing := make(chan socketServerMessage, s.queueSize)
	incoming := make(chan socketClientMessage, s.queueSize)
	writerDone := make(chan struct{})
	outgoing <- socketServerMessage{Type: "session", SessionID: sessionID, Turns: &turns}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer close(writerDone)
		s.writePump(ctx, conn, outgoing, cancel)
	}()
	go func() {
		defer wg.Done()
		defer close(outgoing)
		s.turnLoop(ctx, sessionID, incoming, outgoing, writerDone)
	}()

	s.readPump(ctx, conn, incoming)
	cancel()
	close(incoming)
	wg.Wait()
}

func (s *chatSocket) readPump(ctx context.Context, conn *websocket.Conn, incoming chan<- socketClientMessage) {
	conn.SetReadLimit(socketMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.WarnContext(ctx, "websocket_read_failed", slog.String("error", err.Error()))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))

		var msg socketClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			msg = socketClientMessage{Type: "invalid"}
		}
		select {
		case incoming <- msg:
		case <-ctx.Done():
			return
		}
		// Pongs are not read while the queue is full; the wait must not
		// count against the client.
		_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))
	}
}

func (s *chatSocket) turnLoop(ctx context.Context, sessionID string, incoming <-chan socketClientMessage, outgoing chan<- socketServerMessage, writerDone <-chan struct{}) {
	send := func(msg socketServerMessage) bool {
		select {
		case outgoing <- msg:
			return true
		case <-writerDone:
			return false
		}
	}

	for msg := range incoming {
		if ctx.Err() != nil {
			return
		}
		switch msg.Type {
		case "message":
		case "invalid":
			if !send(socketServerMessage{Type: "error", SessionID: sessionID, ErrorCode: "INVALID_MESSAGE", Message: "invalid JSON message"}) {
				return
			}
			continue
		default:
			if !send(socketServerMessage{Type: "error", SessionID: sessionID, ErrorCode: "INVALID_MESSAGE", Message: "unknown message type: " + msg.Type}) {
				return
			}
			continue
		}

		outcome, err := s.deps.Gateway.HandleTurn(ctx, sessionID, msg.Message)
		var reply socketServerMessage
		switch {
		case err != nil:
			reply = socketServerMessage{Type: "error", SessionID: sessionID, ErrorCode: "SESSION_NOT_FOUND", Message: "session not found"}
		case !outcome.OK():
			reply = socketServerMessage{Type: "error", SessionID: sessionID, ErrorCode: string(outcome.Failure.Kind), Message: outcome.Failure.Message}
		default:
			reply = socketServerMessage{Type: "answer", SessionID: sessionID, Answer: outcome.Answer}
			if s.cfg.Chat.IncludeSteps {
				reply.Steps = outcome.Steps
			}
		}
		if !send(reply) {
			return
		}
	}
}

func (s *chatSocket) writePump(ctx context.Context, conn *websocket.Conn, outgoing <-chan socketServerMessage, cancel context.CancelFunc) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	// A failed write leaves the connection unusable; closing it unblocks the reader.
	defer func() {
		cancel()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-outgoing:
			_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.WarnContext(ctx, "websocket_write_failed",
					slog.String("trace_id", observability.TraceIDFromContext(ctx)),
					slog.String("error", err.Error()),
				)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
