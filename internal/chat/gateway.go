package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/talkdb/talkdb/internal/agent"
	"github.com/talkdb/talkdb/internal/config"
	"github.com/talkdb/talkdb/internal/observability"
)

type FailureKind string

const (
	FailureAgentFailed  FailureKind = "AGENT_FAILED"
	FailureAgentTimeout FailureKind = "AGENT_TIMEOUT"
	FailureCanceled     FailureKind = "CANCELED"
)

// Failure never carries error detail; Message is the configured generic text.
type Failure struct {
	Kind    FailureKind
	Message string
}

type Outcome struct {
	SessionID string
	Answer    string
	Steps     []agent.Step
	Failure   *Failure
}

func (o Outcome) OK() bool {
	return o.Failure == nil
}

// Text is what a user should see: the answer, or the generic failure message.
func (o Outcome) Text() string {
	if o.Failure != nil {
		return o.Failure.Message
	}
	return o.Answer
}

type GatewayConfig struct {
	FailureMessage string
	Logger         *slog.Logger
}

// Gateway runs chat turns against the answering agent and records the
// successful ones in the session transcript.
type Gateway struct {
	agent          agent.Agent
	store          *Store
	failureMessage string
	logger         *slog.Logger
	now            func() time.Time
}

func NewGateway(a agent.Agent, store *Store, cfg GatewayConfig) (*Gateway, error) {
	if a == nil {
		return nil, fmt.Errorf("agent is required")
	}
	if store == nil {
		store = NewStore()
	}
	failureMessage := strings.TrimSpace(cfg.FailureMessage)
	if failureMessage == "" {
		failureMessage = config.DefaultFailureMessage
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Gateway{
		agent:          a,
		store:          store,
		failureMessage: failureMessage,
		logger:         logger,
		now:            time.Now,
	}, nil
}

func (g *Gateway) NewSession() *Session {
	return g.store.Create()
}

func (g *Gateway) Transcript(sessionID string) ([]Turn, error) {
	session, err := g.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return session.Turns(), nil
}

// Respond handles one message on the shared default session and returns the
// text to display.
func (g *Gateway) Respond(ctx context.Context, message string) string {
	session := g.store.GetOrCreate(DefaultSessionID)
	outcome, err := g.HandleTurn(ctx, session.ID, message)
	if err != nil {
		return g.failureMessage
	}
	return outcome.Text()
}

// HandleTurn runs one turn. An empty sessionID starts a new session. The only
// error is ErrSessionNotFound; agent failures come back as an Outcome with a
// Failure and leave the transcript untouched.
func (g *Gateway) HandleTurn(ctx context.Context, sessionID, message string) (Outcome, error) {
	var session *Session
	if strings.TrimSpace(sessionID) == "" {
		session = g.store.Create()
	} else {
		var err error
		session, err = g.store.Get(sessionID)
		if err != nil {
			return Outcome{}, err
		}
	}

	start := time.Now()
	if err := session.acquire(ctx); err != nil {
		return g.fail(ctx, session.ID, message, err, time.Since(start)), nil
	}
	defer session.release()

	request := BuildQueryRequest(session.Turns(), message)
	resp, err := g.agent.Answer(ctx, request)
	elapsed := time.Since(start)
	if err != nil {
		return g.fail(ctx, session.ID, message, err, elapsed), nil
	}

	session.transcript.Append(Turn{UserMessage: message, AgentAnswer: resp.Output, CreatedAt: g.now().UTC()})
	observability.ObserveChatTurn("ok", elapsed)
	g.logger.InfoContext(ctx, "chat_turn_completed",
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.String("session_id", session.ID),
		slog.Int("steps", len(resp.Steps)),
		slog.Int("turns", session.transcript.Len()),
		slog.String("duration", elapsed.String()),
	)
	return Outcome{SessionID: session.ID, Answer: resp.Output, Steps: resp.Steps}, nil
}

func (g *Gateway) fail(ctx context.Context, sessionID, message string, err error, elapsed time.Duration) Outcome {
	kind := classifyFailure(ctx, err)
	observability.ObserveChatTurn(string(kind), elapsed)
	g.logger.ErrorContext(ctx, "chat_turn_failed",
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.String("session_id", sessionID),
		slog.String("failure_kind", string(kind)),
		slog.String("error", err.Error()),
		slog.Int("message_length", len(message)),
		slog.String("duration", elapsed.String()),
	)
	return Outcome{
		SessionID: sessionID,
		Failure:   &Failure{Kind: kind, Message: g.failureMessage},
	}
}

func classifyFailure(ctx context.Context, err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return FailureAgentTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureAgentTimeout
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return FailureCanceled
	}
	return FailureAgentFailed
}
