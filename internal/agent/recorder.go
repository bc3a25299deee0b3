package agent

import (
	"context"
	"sync"
)

type recorderKey struct{}

// Recorder collects the steps tools report while an answer is produced.
type Recorder struct {
	mu    sync.Mutex
	steps []Step
}

func WithRecorder(ctx context.Context) (context.Context, *Recorder) {
	recorder := &Recorder{}
	return context.WithValue(ctx, recorderKey{}, recorder), recorder
}

// Record appends step to the recorder carried by ctx, if any.
func Record(ctx context.Context, step Step) {
	recorder, ok := ctx.Value(recorderKey{}).(*Recorder)
	if !ok || recorder == nil {
		return
	}
	recorder.mu.Lock()
	recorder.steps = append(recorder.steps, step)
	recorder.mu.Unlock()
}

func (r *Recorder) Steps() []Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Step(nil), r.steps...)
}
