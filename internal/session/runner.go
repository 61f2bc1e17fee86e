// Package session runs a detection session: it pulls landmarks from a pose
// source, feeds wrist heights to the repetition detector and hands the
// results to a sink.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayusman/repwatch/internal/logging"
	"github.com/ayusman/repwatch/internal/metrics"
	"github.com/ayusman/repwatch/internal/pose"
	"github.com/ayusman/repwatch/internal/repetition"
	"github.com/ayusman/repwatch/internal/sink"
	"github.com/ayusman/repwatch/internal/store"
)

// ErrTooManySourceErrors is returned by Run when the source fails
// MaxSourceErrors times in a row.
var ErrTooManySourceErrors = errors.New("too many consecutive source errors")

// Config holds the collaborators and limits of a session.
type Config struct {
	Detector repetition.Config
	// SourceName is recorded with the session.
	SourceName string
	// MinVisibility is the wrist visibility below which a frame yields no
	// sample. Zero accepts every frame.
	MinVisibility float64
	// MaxSamples stops the session after that many accepted samples.
	// Zero means no limit.
	MaxSamples int
	// MaxSourceErrors stops the session after that many consecutive
	// source errors. Zero means no limit.
	MaxSourceErrors int

	Store   *store.Store // optional
	Sink    sink.Sink    // optional
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Runner owns one detector and one source for the lifetime of a session.
type Runner struct {
	config   Config
	source   pose.Source
	detector *repetition.Detector
	logger   *zap.Logger
	metrics  *metrics.Metrics
	id       string

	mu      sync.Mutex
	summary sink.Summary
}

// New creates a Runner. The detector configuration is validated here so a
// bad configuration never opens a session.
func New(config Config, source pose.Source) (*Runner, error) {
	if source == nil {
		return nil, errors.New("session: nil source")
	}

	det, err := repetition.New(config.Detector)
	if err != nil {
		return nil, err
	}

	m := config.Metrics
	if m == nil {
		m = metrics.New(nil)
	}

	id := uuid.New().String()
	return &Runner{
		config:   config,
		source:   source,
		detector: det,
		logger:   logging.OrNop(config.Logger).With(zap.String("session", id)),
		metrics:  m,
		id:       id,
		summary:  sink.Summary{SessionID: id},
	}, nil
}

// ID returns the session id.
func (r *Runner) ID() string {
	return r.id
}

// Snapshot returns the counters so far.
func (r *Runner) Snapshot() sink.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

// Run processes the source until it ends, ctx is cancelled, MaxSamples is
// reached or the source keeps failing. Once the session has been created
// its summary is persisted and reported however the loop ends. The source
// is always closed on return. Cancellation is a normal stop and is not
// returned as an error. A Runner can only be run once.
func (r *Runner) Run(ctx context.Context) (sink.Summary, error) {
	r.mu.Lock()
	if !r.summary.StartedAt.IsZero() {
		r.mu.Unlock()
		return sink.Summary{}, errors.New("session: already run")
	}
	r.summary.StartedAt = time.Now()
	started := r.summary.StartedAt
	r.mu.Unlock()

	if err := r.createSession(started); err != nil {
		r.closeSource()
		return sink.Summary{}, err
	}

	// Close the source on cancellation so a blocked Next returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			r.source.Close()
		case <-done:
		}
	}()

	r.logger.Info("Session started",
		zap.String("source", r.config.SourceName),
		zap.Int("window_size", r.detector.Config().WindowSize),
		zap.Float64("threshold", r.detector.Config().Threshold),
		zap.String("count_mode", string(r.detector.Config().Mode)),
	)

	runErr := r.loop(ctx)

	r.mu.Lock()
	r.summary.EndedAt = time.Now()
	r.summary.Events = r.detector.EventCount()
	r.summary.Episodes = r.detector.Episodes()
	sum := r.summary
	r.mu.Unlock()

	if err := r.finishSession(sum); err != nil {
		runErr = errors.Join(runErr, err)
	}

	if r.config.Sink != nil {
		if err := r.config.Sink.Report(context.WithoutCancel(ctx), sum); err != nil {
			r.logger.Warn("Failed to report session summary", zap.Error(err))
		}
	}

	r.closeSource()
	return sum, runErr
}

func (r *Runner) closeSource() {
	if err := r.source.Close(); err != nil {
		r.logger.Debug("Error closing source", zap.Error(err))
	}
}

func (r *Runner) loop(ctx context.Context) error {
	consecutiveErrors := 0

	for {
		if r.config.MaxSamples > 0 && r.Snapshot().Samples >= r.config.MaxSamples {
			r.logger.Info("Sample limit reached", zap.Int("max_samples", r.config.MaxSamples))
			return nil
		}

		lm, err := r.source.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return nil
			case ctx.Err() != nil:
				return nil
			case errors.Is(err, pose.ErrSourceClosed):
				return nil
			}

			consecutiveErrors++
			r.metrics.SourceErrors.Inc()
			r.logger.Warn("Error reading landmarks", zap.Error(err), zap.Int("consecutive", consecutiveErrors))

			if r.config.MaxSourceErrors > 0 && consecutiveErrors >= r.config.MaxSourceErrors {
				return fmt.Errorf("%w: %w", ErrTooManySourceErrors, err)
			}
			continue
		}
		consecutiveErrors = 0

		sample, ok := lm.WristHeight(r.config.MinVisibility)
		if !ok {
			r.metrics.MissingPoses.Inc()
			r.update(func(s *sink.Summary) { s.MissingPoses++ })
			continue
		}

		r.ingest(ctx, sample, lm.Timestamp)
	}
}

func (r *Runner) ingest(ctx context.Context, sample float64, timestampMs int64) {
	prevEvents := r.detector.EventCount()

	res, err := r.detector.Ingest(sample)
	if err != nil {
		r.metrics.InvalidSamples.Inc()
		r.update(func(s *sink.Summary) { s.InvalidSamples++ })
		r.logger.Warn("Rejected sample", zap.Error(err))
		return
	}

	r.metrics.Observe(res, prevEvents, r.detector.Len())
	r.update(func(s *sink.Summary) {
		s.Samples++
		s.Events = res.EventCount
		s.Episodes = r.detector.Episodes()
	})

	ts := time.Now()
	if timestampMs > 0 {
		ts = time.UnixMilli(timestampMs)
	}

	if res.Triggered && r.config.Store != nil {
		d := &store.Detection{
			SessionID:    r.id,
			Seq:          res.Seq,
			Sample:       sample,
			StdDev:       res.StdDev,
			EpisodeStart: res.EpisodeStart,
			DetectedAt:   ts,
		}
		if err := r.config.Store.Detections().Create(d); err != nil {
			r.logger.Error("Failed to save detection", zap.Error(err), zap.Int("seq", res.Seq))
		}
	}

	if r.config.Sink != nil {
		ev := sink.Event{
			SessionID: r.id,
			Sample:    sample,
			Result:    res,
			Timestamp: ts,
		}
		if err := r.config.Sink.Show(ctx, ev); err != nil {
			r.logger.Warn("Sink failed", zap.Error(err), zap.Int("seq", res.Seq))
		}
	}
}

func (r *Runner) update(fn func(*sink.Summary)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.summary)
}

func (r *Runner) createSession(started time.Time) error {
	if r.config.Store == nil {
		return nil
	}

	cfg := r.detector.Config()
	err := r.config.Store.Sessions().Create(&store.Session{
		ID:         r.id,
		Source:     r.config.SourceName,
		WindowSize: cfg.WindowSize,
		Threshold:  cfg.Threshold,
		CountMode:  string(cfg.Mode),
		StartedAt:  started,
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *Runner) finishSession(sum sink.Summary) error {
	if r.config.Store == nil {
		return nil
	}

	counts := store.SessionCounts{
		Samples:        sum.Samples,
		InvalidSamples: sum.InvalidSamples,
		Events:         sum.Events,
		Episodes:       sum.Episodes,
	}
	if err := r.config.Store.Sessions().Finish(r.id, counts, sum.EndedAt); err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	return nil
}
