package scheduler

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/explode/pkg/errors"
)

// DefaultSpeed is the offset rate, in units per second, used when a request
// and the Config both leave Speed unset.
const DefaultSpeed = 2.0

// Mode selects how parts are scheduled within a request.
type Mode int

const (
	// ModeConcurrent animates every unblocked explodable part at once and
	// cascades activation through the blocking graph.
	ModeConcurrent Mode = iota
	// ModeSerial animates one explodable part at a time in depth-first order
	// and ignores blocking.
	ModeSerial
)

func (m Mode) String() string {
	switch m {
	case ModeConcurrent:
		return "concurrent"
	case ModeSerial:
		return "serial"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts "concurrent" or "serial" (case-insensitive) to a Mode.
// An empty string yields ModeConcurrent.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "concurrent":
		return ModeConcurrent, nil
	case "serial":
		return ModeSerial, nil
	default:
		return 0, errors.New(errors.ErrCodeInvalidConfig, "unknown scheduling mode %q", s)
	}
}

// Config configures a Scheduler.
//
// Zero values are replaced by defaults in [Config.SetDefaults]:
//   - Speed: DefaultSpeed
//   - Logger: a logger that discards everything below error level
//
// TickBudget and MaxQueue are opt-in limits; zero disables them.
type Config struct {
	// Speed is the default offset rate for requests that do not set their own.
	Speed float64

	// Mode selects concurrent or serial scheduling.
	Mode Mode

	// TickBudget aborts a request with STALLED after this many ticks.
	TickBudget int

	// MaxQueue rejects new requests with QUEUE_FULL once this many are
	// waiting behind the running one.
	MaxQueue int

	// Logger receives debug traces of request lifecycle and activations.
	Logger *log.Logger
}

// SetDefaults fills zero fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Speed == 0 {
		c.Speed = DefaultSpeed
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard)
		c.Logger.SetLevel(log.ErrorLevel)
	}
}

// Validate checks that all fields are within range.
func (c Config) Validate() error {
	if math.IsNaN(c.Speed) || math.IsInf(c.Speed, 0) || c.Speed <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "speed must be a positive finite number, got %v", c.Speed)
	}
	if c.Mode != ModeConcurrent && c.Mode != ModeSerial {
		return errors.New(errors.ErrCodeInvalidConfig, "unknown scheduling mode %d", int(c.Mode))
	}
	if c.TickBudget < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "tick budget must be non-negative, got %d", c.TickBudget)
	}
	if c.MaxQueue < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max queue must be non-negative, got %d", c.MaxQueue)
	}
	return nil
}
