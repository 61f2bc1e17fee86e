// Package sink defines where detection results go: the display side of a
// session.
package sink

import (
	"context"
	"errors"
	"time"

	"github.com/ayusman/repwatch/internal/repetition"
)

// Event is one detector result within a session.
type Event struct {
	SessionID string            `json:"session_id"`
	Sample    float64           `json:"sample"`
	Result    repetition.Result `json:"result"`
	Timestamp time.Time         `json:"timestamp"`
}

// Summary is the final report of a session.
type Summary struct {
	SessionID      string    `json:"session_id"`
	Samples        int       `json:"samples"`
	InvalidSamples int       `json:"invalid_samples"`
	MissingPoses   int       `json:"missing_poses"`
	Events         int       `json:"events"`
	Episodes       int       `json:"episodes"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
}

// Sink consumes detection results.
type Sink interface {
	// Show is called for every accepted sample.
	Show(ctx context.Context, ev Event) error
	// Report is called once when the session ends.
	Report(ctx context.Context, sum Summary) error
}

// multi fans out to several sinks.
type multi []Sink

// Multi returns a Sink that forwards to every sink in order. All sinks are
// called even when one fails; the errors are joined.
func Multi(sinks ...Sink) Sink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m multi) Show(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Show(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) Report(ctx context.Context, sum Summary) error {
	var errs []error
	for _, s := range m {
		if err := s.Report(ctx, sum); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
