package hook

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ayusman/repwatch/internal/logging"
	"github.com/ayusman/repwatch/internal/sink"
)

// ErrQueueFull is returned by Show when hooks are too slow to keep up and
// the result is dropped.
var ErrQueueFull = errors.New("hook queue full")

// ErrSinkClosed is returned after Close.
var ErrSinkClosed = errors.New("hook sink closed")

const defaultQueueSize = 64

type job struct {
	ctx   context.Context
	event string
	req   *Request
	done  chan error // nil for fire-and-forget jobs
}

// Sink runs subscribed hooks for triggered results, episode starts and
// session summaries. It implements sink.Sink.
//
// Hooks run on a single background worker in the order results arrive, so
// a slow hook never holds up ingestion. Report waits for every queued hook
// before running the summary hooks.
type Sink struct {
	manager  *Manager
	executor *Executor
	logger   *zap.Logger

	jobs   chan job
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewSink creates a hook Sink and starts its worker. Call Close when done.
func NewSink(manager *Manager, executor *Executor, logger *zap.Logger) *Sink {
	return newSink(manager, executor, logger, defaultQueueSize)
}

func newSink(manager *Manager, executor *Executor, logger *zap.Logger, queueSize int) *Sink {
	s := &Sink{
		manager:  manager,
		executor: executor,
		logger:   logging.OrNop(logger),
		jobs:     make(chan job, queueSize),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Sink) run() {
	defer close(s.done)
	for j := range s.jobs {
		err := s.dispatch(j.ctx, j.event, j.req)
		if j.done != nil {
			j.done <- err
			continue
		}
		if err != nil {
			s.logger.Warn("Hook failed",
				zap.String("event", j.event),
				zap.String("session", j.req.SessionID),
				zap.Error(err),
			)
		}
	}
}

// Show queues the triggered hooks for every triggered result and the
// episode hooks when a new episode starts. Hook failures are logged; only
// a full queue is reported to the caller.
func (s *Sink) Show(ctx context.Context, ev sink.Event) error {
	if !ev.Result.Triggered {
		return nil
	}

	ctx = context.WithoutCancel(ctx)
	err := s.enqueue(job{ctx: ctx, event: EventTriggered, req: &Request{
		Event:     EventTriggered,
		SessionID: ev.SessionID,
		Detection: &ev,
	}})
	if ev.Result.EpisodeStart {
		err = errors.Join(err, s.enqueue(job{ctx: ctx, event: EventEpisode, req: &Request{
			Event:     EventEpisode,
			SessionID: ev.SessionID,
			Detection: &ev,
		}}))
	}
	return err
}

func (s *Sink) enqueue(j job) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrSinkClosed
	}
	select {
	case s.jobs <- j:
		return nil
	default:
		return fmt.Errorf("%w: %s dropped for session %s", ErrQueueFull, j.event, j.req.SessionID)
	}
}

// Report waits for queued hooks, then runs the summary hooks and returns
// their errors.
func (s *Sink) Report(ctx context.Context, sum sink.Summary) error {
	j := job{
		ctx:   ctx,
		event: EventSummary,
		req: &Request{
			Event:     EventSummary,
			SessionID: sum.SessionID,
			Summary:   &sum,
		},
		done: make(chan error, 1),
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrSinkClosed
	}
	select {
	case s.jobs <- j:
	case <-ctx.Done():
		s.mu.RUnlock()
		return ctx.Err()
	}
	s.mu.RUnlock()

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting results and waits for queued hooks to finish.
func (s *Sink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.jobs)
	}
	s.mu.Unlock()

	<-s.done
	return nil
}

func (s *Sink) dispatch(ctx context.Context, event string, req *Request) error {
	var errs []error
	for _, hook := range s.manager.Subscribers(event) {
		hreq := *req
		hreq.Config = hook.Manifest.Config

		resp, err := s.executor.Execute(ctx, hook, &hreq)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !resp.Success {
			errs = append(errs, fmt.Errorf("hook %s: %s", hook.Manifest.Name, resp.Error))
			continue
		}
		s.logger.Debug("hook executed",
			zap.String("hook", hook.Manifest.Name),
			zap.String("event", event),
			zap.String("session", req.SessionID),
		)
	}
	return errors.Join(errs...)
}
