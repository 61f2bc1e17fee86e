// Package repetition detects repetitive motion in a time-ordered stream of
// scalar samples by thresholding the population standard deviation of a
// rolling window.
package repetition

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Detector defaults.
const (
	// DefaultWindowSize is the number of samples kept in the rolling window.
	DefaultWindowSize = 20
	// DefaultThreshold is the standard deviation above which motion is flagged.
	DefaultThreshold = 0.02
	// MinWindowSize is the smallest window for which a spread is meaningful.
	MinWindowSize = 2
)

// CountMode selects what the event counter counts.
type CountMode string

const (
	// CountPerSample increments the counter on every triggered sample.
	CountPerSample CountMode = "sample"
	// CountPerEpisode increments the counter once per run of consecutive
	// triggered samples.
	CountPerEpisode CountMode = "episode"
)

// ParseCountMode converts a string into a CountMode.
// An empty string yields CountPerSample.
func ParseCountMode(s string) (CountMode, error) {
	switch CountMode(s) {
	case "", CountPerSample:
		return CountPerSample, nil
	case CountPerEpisode:
		return CountPerEpisode, nil
	}
	return "", &ConfigurationError{Field: "mode", Value: s, Reason: "must be \"sample\" or \"episode\""}
}

// Config holds the tunable detector parameters.
type Config struct {
	WindowSize int       `json:"window_size" yaml:"window_size"`
	Threshold  float64   `json:"threshold" yaml:"threshold"`
	Mode       CountMode `json:"mode" yaml:"mode"`
}

// DefaultConfig returns a Config with the default window, threshold and
// per-sample counting.
func DefaultConfig() Config {
	return Config{
		WindowSize: DefaultWindowSize,
		Threshold:  DefaultThreshold,
		Mode:       CountPerSample,
	}
}

// Validate checks the parameters and returns a *ConfigurationError for the
// first invalid one.
func (c Config) Validate() error {
	if c.WindowSize < MinWindowSize {
		return &ConfigurationError{Field: "window_size", Value: c.WindowSize, Reason: fmt.Sprintf("must be at least %d", MinWindowSize)}
	}
	if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) || c.Threshold <= 0 {
		return &ConfigurationError{Field: "threshold", Value: c.Threshold, Reason: "must be a positive finite number"}
	}
	if _, err := ParseCountMode(string(c.Mode)); err != nil {
		return err
	}
	return nil
}

// State is the detector lifecycle state.
type State int

const (
	// StateFilling means the window has not yet reached capacity.
	StateFilling State = iota
	// StateActive means every ingestion evaluates the threshold.
	StateActive
)

func (s State) String() string {
	switch s {
	case StateFilling:
		return "filling"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result describes the outcome of a single Ingest call.
type Result struct {
	// Seq is the 1-based position of the sample since the last reset.
	Seq int `json:"seq"`
	// WindowFull is true once the window first holds WindowSize samples.
	WindowFull bool `json:"window_full"`
	// StdDev is the population standard deviation of the window.
	// It is only defined when HasStdDev is true.
	StdDev    float64 `json:"std_dev"`
	HasStdDev bool    `json:"has_std_dev"`
	Triggered bool    `json:"triggered"`
	// EpisodeStart marks the first triggered sample of an episode.
	EpisodeStart bool `json:"episode_start"`
	// EventCount is the counter value after this call.
	EventCount int `json:"event_count"`
}

// Detector flags repetitive motion over a rolling window of samples.
//
// A Detector is not safe for concurrent use; callers sharing one across
// goroutines must serialize Ingest, Reset and Configure.
type Detector struct {
	config    Config
	window    *Window
	scratch   []float64
	seq       int
	events    int
	episodes  int
	inEpisode bool
}

// New creates a Detector with the given configuration.
func New(config Config) (*Detector, error) {
	d := &Detector{}
	if err := d.Configure(config); err != nil {
		return nil, err
	}
	return d, nil
}

// Configure validates and applies config. On success the window and
// counters are discarded and the detector restarts in StateFilling; on
// failure the detector is left unchanged.
func (d *Detector) Configure(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Mode == "" {
		config.Mode = CountPerSample
	}

	d.config = config
	d.window = NewWindow(config.WindowSize)
	d.scratch = make([]float64, 0, config.WindowSize)
	d.Reset()
	return nil
}

// Config returns the active configuration.
func (d *Detector) Config() Config {
	return d.config
}

// Ingest adds sample to the window and evaluates the threshold.
// Non-finite samples are rejected with an *InvalidSampleError and not
// inserted.
func (d *Detector) Ingest(sample float64) (Result, error) {
	if math.IsNaN(sample) || math.IsInf(sample, 0) {
		return Result{}, &InvalidSampleError{Value: sample}
	}

	d.window.Push(sample)
	d.seq++

	res := Result{
		Seq:        d.seq,
		WindowFull: d.window.Full(),
	}

	if res.WindowFull {
		res.StdDev = d.stdDev()
		res.HasStdDev = true
		res.Triggered = res.StdDev > d.config.Threshold
	}

	if res.Triggered {
		if !d.inEpisode {
			d.episodes++
			res.EpisodeStart = true
		}
		if d.config.Mode == CountPerSample || res.EpisodeStart {
			d.events++
		}
	}
	d.inEpisode = res.Triggered

	res.EventCount = d.events
	return res, nil
}

// stdDev returns the population standard deviation of the window.
func (d *Detector) stdDev() float64 {
	d.scratch = d.window.Values(d.scratch[:0])
	_, variance := stat.PopMeanVariance(d.scratch, nil)
	if variance < 0 {
		// rounding in the two-pass correction
		variance = 0
	}
	return math.Sqrt(variance)
}

// Reset clears the window and the counters. The configuration is kept.
func (d *Detector) Reset() {
	d.window.Reset()
	d.seq = 0
	d.events = 0
	d.episodes = 0
	d.inEpisode = false
}

// EventCount returns the number of detection events since the last reset.
func (d *Detector) EventCount() int {
	return d.events
}

// Episodes returns the number of runs of consecutive triggered samples
// since the last reset, regardless of the count mode.
func (d *Detector) Episodes() int {
	return d.episodes
}

// Len returns the number of samples in the window.
func (d *Detector) Len() int {
	return d.window.Len()
}

// State returns StateActive once the window has filled.
func (d *Detector) State() State {
	if d.window.Full() {
		return StateActive
	}
	return StateFilling
}
