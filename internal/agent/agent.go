package agent

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

var ErrEmptyAnswer = errors.New("agent finished without an answer")

// Step is one tool invocation made while answering.
type Step struct {
	Tool   string `json:"tool"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

type Response struct {
	Output string
	Steps  []Step
}

// Agent answers one instruction, which already contains any conversation
// history, against the configured database.
type Agent interface {
	Answer(ctx context.Context, instruction string) (Response, error)
}

type Func func(ctx context.Context, instruction string) (Response, error)

func (f Func) Answer(ctx context.Context, instruction string) (Response, error) {
	return f(ctx, instruction)
}

// RateLimited delays calls to next so that at most rps calls start per
// second. A non-positive rps disables limiting.
func RateLimited(next Agent, rps float64, burst int) Agent {
	if rps <= 0 || next == nil {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &rateLimitedAgent{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

type rateLimitedAgent struct {
	next    Agent
	limiter *rate.Limiter
}

func (a *rateLimitedAgent) Answer(ctx context.Context, instruction string) (Response, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return Response{}, fmt.Errorf("wait for agent rate limit: %w", err)
	}
	return a.next.Answer(ctx, instruction)
}
