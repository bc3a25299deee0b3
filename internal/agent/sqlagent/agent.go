package sqlagent

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/talkdb/talkdb/internal/agent"
	"github.com/talkdb/talkdb/internal/database"
)

const (
	agentName        = "sql_agent"
	agentDescription = "Answers questions about a SQL database by listing tables, reading schemas and running read-only queries."
)

type Config struct {
	Model         model.ToolCallingChatModel
	Database      database.Handle
	TopK          int
	MaxIterations int
	SampleRows    int
	Logger        *slog.Logger
}

// Agent is a tool calling agent that explores the database on its own.
type Agent struct {
	runner *adk.Runner
	logger *slog.Logger
}

var _ agent.Agent = (*Agent)(nil)

func New(ctx context.Context, cfg Config) (*Agent, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if cfg.Database == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 15
	}
	if cfg.SampleRows < 0 {
		cfg.SampleRows = 0
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	tools, err := NewTools(cfg.Database, cfg.SampleRows)
	if err != nil {
		return nil, err
	}
	chatAgent, err := adk.NewChatModelAgent(ctx, &adk.ChatModelAgentConfig{
		Name:        agentName,
		Description: agentDescription,
		Instruction: buildInstruction(cfg.Database.Dialect(), cfg.TopK),
		Model:       cfg.Model,
		ToolsConfig: adk.ToolsConfig{
			ToolsNodeConfig: compose.ToolsNodeConfig{Tools: tools},
		},
		MaxIterations: cfg.MaxIterations,
	})
	if err != nil {
		return nil, fmt.Errorf("create sql agent: %w", err)
	}

	return &Agent{
		runner: adk.NewRunner(ctx, adk.RunnerConfig{Agent: chatAgent}),
		logger: logger,
	}, nil
}

// Answer runs the agent until it produces an assistant message without tool
// calls and returns that message.
func (a *Agent) Answer(ctx context.Context, instruction string) (agent.Response, error) {
	ctx, recorder := agent.WithRecorder(ctx)
	iter := a.runner.Query(ctx, instruction)

	answer := ""
	for {
		event, ok := iter.Next()
		if !ok {
			break
		}
		if event.Err != nil {
			return agent.Response{Steps: recorder.Steps()}, fmt.Errorf("run sql agent: %w", event.Err)
		}
		msg, err := assistantMessage(event)
		if err != nil {
			return agent.Response{Steps: recorder.Steps()}, err
		}
		if msg == nil {
			continue
		}
		if len(msg.ToolCalls) > 0 {
			for _, call := range msg.ToolCalls {
				a.logger.DebugContext(ctx, "agent_tool_call",
					slog.String("tool", call.Function.Name),
					slog.String("arguments", call.Function.Arguments),
				)
			}
			continue
		}
		answer = msg.Content
	}

	steps := recorder.Steps()
	if answer == "" {
		return agent.Response{Steps: steps}, agent.ErrEmptyAnswer
	}
	return agent.Response{Output: answer, Steps: steps}, nil
}

func assistantMessage(event *adk.AgentEvent) (*schema.Message, error) {
	if event.Output == nil || event.Output.MessageOutput == nil {
		return nil, nil
	}
	variant := event.Output.MessageOutput
	if variant.Role != schema.Assistant {
		return nil, nil
	}
	if variant.IsStreaming {
		msg, err := schema.ConcatMessageStream(variant.MessageStream)
		if err != nil {
			return nil, fmt.Errorf("read agent message stream: %w", err)
		}
		return msg, nil
	}
	return variant.Message, nil
}
