package events

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/explode/pkg/scheduler"
)

// Record is a serializable scheduler event.
type Record struct {
	Seq       int       `json:"seq" bson:"seq"`
	At        time.Time `json:"at" bson:"at"`
	Kind      string    `json:"kind" bson:"kind"`
	RequestID string    `json:"request_id" bson:"request_id"`
	Part      string    `json:"part,omitempty" bson:"part,omitempty"`
	Handles   []string  `json:"handles,omitempty" bson:"handles,omitempty"`
	Error     string    `json:"error,omitempty" bson:"error,omitempty"`
}

// NewRecord converts e into a Record with the given sequence number and time.
func NewRecord(e scheduler.Event, seq int, at time.Time) Record {
	r := Record{
		Seq:       seq,
		At:        at,
		Kind:      e.Kind.String(),
		RequestID: e.RequestID,
		Part:      e.Part,
	}
	for _, h := range e.Handles {
		r.Handles = append(r.Handles, string(h))
	}
	if e.Err != nil {
		r.Error = e.Err.Error()
	}
	return r
}

// DefaultHistoryLimit bounds a Recorder backing a long-running server.
const DefaultHistoryLimit = 10000

// Recorder stores events in memory. It is safe for concurrent use.
type Recorder struct {
	// Limit caps stored events; the oldest are dropped beyond it. Zero keeps
	// everything.
	Limit int

	mu      sync.Mutex
	events  []scheduler.Event
	dropped int
}

// Notify appends e.
func (r *Recorder) Notify(e scheduler.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	if over := len(r.events) - r.Limit; r.Limit > 0 && over > 0 {
		r.events = r.events[over:]
		r.dropped += over
	}
}

// Dropped returns how many events the Limit has discarded.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []scheduler.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]scheduler.Event(nil), r.events...)
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Reset drops every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.dropped = 0
	r.mu.Unlock()
}

// Records converts the recorded events, numbering them by arrival (dropped
// events included) and stamping them with at.
func (r *Recorder) Records(at time.Time) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.events))
	for i, e := range r.events {
		out[i] = NewRecord(e, r.dropped+i, at)
	}
	return out
}

// History returns the records of one request, numbered by their position
// in the whole recording. It matches the archive lookup of the mongosink
// package so either can back an event history endpoint.
func (r *Recorder) History(_ context.Context, requestID string) ([]Record, error) {
	var out []Record
	for _, rec := range r.Records(time.Time{}) {
		if rec.RequestID == requestID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Count returns how many recorded events have the given kind.
func (r *Recorder) Count(kind scheduler.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// LogSink logs every event. Lifecycle events go to Info; part activations go
// to Debug so they only show with verbose logging.
type LogSink struct {
	Logger *log.Logger
}

// Notify logs e.
func (s LogSink) Notify(e scheduler.Event) {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	switch e.Kind {
	case scheduler.EventBegan:
		logger.Info("request began", "id", e.RequestID)
	case scheduler.EventEnded:
		if e.Err != nil {
			logger.Warn("request aborted", "id", e.RequestID, "err", e.Err)
			return
		}
		logger.Info("request ended", "id", e.RequestID)
	default:
		logger.Debug(e.Kind.String(), "id", e.RequestID, "part", e.Part, "handles", len(e.Handles))
	}
}

type multi []scheduler.EventSink

func (m multi) Notify(e scheduler.Event) {
	for _, s := range m {
		s.Notify(e)
	}
}

// Multi returns a sink that forwards every event to each non-nil sink in
// order.
func Multi(sinks ...scheduler.EventSink) scheduler.EventSink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

var (
	_ scheduler.EventSink = (*Recorder)(nil)
	_ scheduler.EventSink = LogSink{}
)
