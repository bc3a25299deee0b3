package chat

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStoreCreateAndGet(t *testing.T) {
	store := NewStore()
	session := store.Create()
	if session.ID == "" {
		t.Fatal("expected generated session id")
	}
	got, err := store.Get(session.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != session {
		t.Fatal("Get() returned a different session")
	}
	if _, err := store.Get("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get() error = %v, want ErrSessionNotFound", err)
	}
}

func TestStoreGetOrCreateIsStable(t *testing.T) {
	store := NewStore()
	first := store.GetOrCreate(DefaultSessionID)
	second := store.GetOrCreate(DefaultSessionID)
	if first != second || store.Len() != 1 {
		t.Fatalf("GetOrCreate() returned %p/%p, len=%d", first, second, store.Len())
	}
}

func TestStoreGetOrCreateBlankIDGeneratesSession(t *testing.T) {
	store := NewStore()
	first := store.GetOrCreate("")
	second := store.GetOrCreate("   ")
	if first.ID == "" || second.ID == "" || first == second {
		t.Fatalf("GetOrCreate() ids = %q/%q", first.ID, second.ID)
	}
	if _, err := store.Get(""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get(\"\") error = %v, want ErrSessionNotFound", err)
	}
	if store.Len() != 2 {
		t.Fatalf("Len() = %d", store.Len())
	}
}

func TestTranscriptTurnsReturnsCopy(t *testing.T) {
	var transcript Transcript
	transcript.Append(Turn{UserMessage: "a", AgentAnswer: "b"})
	turns := transcript.Turns()
	turns[0].AgentAnswer = "changed"
	if transcript.Turns()[0].AgentAnswer != "b" || transcript.Len() != 1 {
		t.Fatalf("transcript = %#v", transcript.Turns())
	}
}

func TestSessionAcquireHonorsContext(t *testing.T) {
	session := newSession("s", time.Now())
	if err := session.acquire(context.Background()); err != nil {
		t.Fatalf("acquire() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := session.acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("acquire() error = %v, want DeadlineExceeded", err)
	}
	session.release()
	if err := session.acquire(context.Background()); err != nil {
		t.Fatalf("acquire() after release error = %v", err)
	}
}
