package testsupport

import (
	"context"
	"sync"

	"podwatch/internal/notify"
)

// Recorder is a notify.Service that captures published events for assertions.
type Recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

var _ notify.Service = (*Recorder)(nil)

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish records the event and always succeeds.
func (r *Recorder) Publish(_ context.Context, event notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Test records nothing and succeeds.
func (r *Recorder) Test(context.Context) error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset discards recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
