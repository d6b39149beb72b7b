package playback

import (
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/explode/pkg/errors"
)

// Defaults applied by [Options.ValidateAndSetDefaults].
const (
	DefaultFrameRate   = 60.0
	DefaultMaxTicks    = 100000
	DefaultSampleEvery = 1
)

// Options configures how the scheduler is driven.
type Options struct {
	// FrameRate is the number of ticks per simulated second. Every tick
	// advances the scheduler by 1/FrameRate seconds.
	FrameRate float64 `json:"frame_rate"`

	// MaxTicks stops a run that has not gone idle after this many ticks.
	MaxTicks int `json:"max_ticks"`

	// SampleEvery records a trace frame every n ticks. The final tick is
	// always recorded.
	SampleEvery int `json:"sample_every"`

	// Refresh bypasses cached traces.
	Refresh bool `json:"-"`

	// TTL overrides the trace cache expiry.
	TTL time.Duration `json:"-"`

	// Logger for progress messages. Defaults to a discarding logger.
	Logger *log.Logger `json:"-"`

	validated bool
}

// ValidateAndSetDefaults checks ranges and fills zero fields. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.FrameRate == 0 {
		o.FrameRate = DefaultFrameRate
	}
	if math.IsNaN(o.FrameRate) || math.IsInf(o.FrameRate, 0) || o.FrameRate < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "frame rate must be a positive finite number, got %v", o.FrameRate)
	}
	if o.MaxTicks == 0 {
		o.MaxTicks = DefaultMaxTicks
	}
	if o.MaxTicks < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max ticks must be positive, got %d", o.MaxTicks)
	}
	if o.SampleEvery == 0 {
		o.SampleEvery = DefaultSampleEvery
	}
	if o.SampleEvery < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "sample interval must be positive, got %d", o.SampleEvery)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// Step returns the tick duration in seconds.
func (o Options) Step() float64 { return 1 / o.FrameRate }

// Interval returns the wall-clock tick interval.
func (o Options) Interval() time.Duration {
	return time.Duration(float64(time.Second) / o.FrameRate)
}
