package scheduler

import "github.com/matzehuels/explode/pkg/assembly"

// Renderer applies world-space displacements to visual handles.
// Translate has no result and is assumed to always succeed.
type Renderer interface {
	Translate(handles []assembly.Handle, v assembly.Vec3)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(handles []assembly.Handle, v assembly.Vec3)

// Translate calls f(handles, v).
func (f RendererFunc) Translate(handles []assembly.Handle, v assembly.Vec3) { f(handles, v) }

// EventKind identifies a scheduler notification.
type EventKind uint8

const (
	EventBegan        EventKind = iota // a request started animating
	EventPartsVisible                  // a part started exploding
	EventPartsHidden                   // a part started imploding
	EventEnded                         // a request finished (or was aborted)
)

func (k EventKind) String() string {
	switch k {
	case EventBegan:
		return "began"
	case EventPartsVisible:
		return "parts_visible"
	case EventPartsHidden:
		return "parts_hidden"
	case EventEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Event is a fire-and-forget notification delivered to an EventSink.
type Event struct {
	Kind      EventKind
	RequestID string
	Part      string            // set for PartsVisible/PartsHidden
	Handles   []assembly.Handle // set for PartsVisible/PartsHidden
	Err       error             // set on Ended when the request was aborted
}

// EventSink receives scheduler notifications. Notify must not call back
// into the scheduler.
type EventSink interface {
	Notify(Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(Event)

// Notify calls f(e).
func (f EventSinkFunc) Notify(e Event) { f(e) }

type nopRenderer struct{}

func (nopRenderer) Translate([]assembly.Handle, assembly.Vec3) {}

type nopSink struct{}

func (nopSink) Notify(Event) {}
