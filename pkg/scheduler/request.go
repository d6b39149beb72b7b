package scheduler

import (
	"strings"

	"github.com/matzehuels/explode/pkg/errors"
)

// Sign is the direction of a request: explode or implode.
type Sign int

const (
	Forward  Sign = 1  // explode: offsets grow toward Min + Weight*WeightFraction
	Backward Sign = -1 // implode: offsets shrink toward zero
)

func (s Sign) String() string {
	switch s {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "invalid"
	}
}

// ParseSign accepts "forward"/"explode" and "backward"/"implode".
func ParseSign(s string) (Sign, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "explode", "+":
		return Forward, nil
	case "backward", "implode", "-":
		return Backward, nil
	default:
		return 0, errors.New(errors.ErrCodeInvalidRequest, "unknown direction %q", s)
	}
}

// Request describes one explosion or implosion.
//
// An empty Scope targets the whole tree. A zero Speed uses Config.Speed.
// ID is assigned by the scheduler when left empty.
type Request struct {
	ID             string
	Scope          []string
	Sign           Sign
	WeightFraction float64
	Speed          float64
}

// Global reports whether the request targets the whole tree.
func (r Request) Global() bool { return len(r.Scope) == 0 }

// Ticket acknowledges an accepted request.
type Ticket struct {
	ID      string   // request identifier, echoed in every Event
	Queued  bool     // true when another request was running
	Dropped []string // scope names that matched no part
}

// pending is a validated request with its scope resolved to arena indices.
type pending struct {
	Request
	targets []int
}

// queue is a FIFO of pending requests.
type queue struct {
	items []pending
}

func (q *queue) push(p pending) { q.items = append(q.items, p) }

func (q *queue) pop() (pending, bool) {
	if len(q.items) == 0 {
		return pending{}, false
	}
	p := q.items[0]
	q.items[0] = pending{}
	q.items = q.items[1:]
	return p, true
}

func (q *queue) len() int { return len(q.items) }

func (q *queue) snapshot() []Request {
	out := make([]Request, len(q.items))
	for i, p := range q.items {
		out[i] = p.Request
	}
	return out
}
