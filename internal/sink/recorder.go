package sink

import (
	"context"
	"sync"
)

// Recorder is a Sink that keeps everything it receives. It is used by
// tests and by callers that want the results in memory.
type Recorder struct {
	mu        sync.Mutex
	events    []Event
	summaries []Summary
	err       error
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// SetError makes Show and Report return err after recording.
func (r *Recorder) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) Show(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *Recorder) Report(_ context.Context, sum Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, sum)
	return r.err
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Triggered returns the recorded events whose result triggered.
func (r *Recorder) Triggered() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, ev := range r.events {
		if ev.Result.Triggered {
			out = append(out, ev)
		}
	}
	return out
}

// Summaries returns a copy of the recorded summaries.
func (r *Recorder) Summaries() []Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Summary(nil), r.summaries...)
}
