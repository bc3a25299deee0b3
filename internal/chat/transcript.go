package chat

import (
	"strings"
	"sync"
	"time"
)

// Turn is one completed exchange.
type Turn struct {
	UserMessage string    `json:"user_message"`
	AgentAnswer string    `json:"agent_answer"`
	CreatedAt   time.Time `json:"created_at"`
}

// Transcript is the ordered history of completed turns. It only grows.
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
}

func (t *Transcript) Append(turn Turn) {
	t.mu.Lock()
	t.turns = append(t.turns, turn)
	t.mu.Unlock()
}

func (t *Transcript) Turns() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Turn(nil), t.turns...)
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// BuildQueryRequest serializes turns as "User: ..." and "Agent: ..." line
// pairs and appends the new message as the final "User: ..." line.
func BuildQueryRequest(turns []Turn, message string) string {
	var b strings.Builder
	for _, turn := range turns {
		b.WriteString("User: ")
		b.WriteString(turn.UserMessage)
		b.WriteString("\nAgent: ")
		b.WriteString(turn.AgentAnswer)
		b.WriteString("\n")
	}
	b.WriteString("User: ")
	b.WriteString(message)
	return b.String()
}
