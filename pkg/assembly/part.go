package assembly

import (
	"fmt"
	"slices"
)

// Vec3 is a 3D vector used for explode directions and world displacements.
type Vec3 struct {
	X, Y, Z float64
}

// Scale returns v multiplied by s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Add returns the component-wise sum of v and o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// IsZero reports whether every component is exactly zero.
func (v Vec3) IsZero() bool { return v.X == 0 && v.Y == 0 && v.Z == 0 }

func (v Vec3) String() string { return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z) }

// Handle identifies one visual element owned by a part. Handles are opaque to
// this package; the renderer resolves them.
type Handle string

// State is the per-request progress state of a part.
type State int

const (
	// StateIdle means the part takes no part in the current request.
	StateIdle State = iota
	// StateExplodable means the part was selected by the current request but
	// has not started moving yet.
	StateExplodable
	// StateActive means the part's progress task is running.
	StateActive
	// StateDone means the part reached its boundary for the current request.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExplodable:
		return "explodable"
	case StateActive:
		return "active"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Part is a single node of the assembly hierarchy.
//
// Name, Direction, Min, Max and Handles are static data supplied by the loader.
// Offset, Weight, LastActivatedChild and the three state flags are runtime data
// owned by the scheduler. Relations are read through accessor methods and
// changed only through [Tree] methods, which keep the inverse sets in sync.
type Part struct {
	Name      string   // Unique, stable key
	Direction Vec3     // Explode axis; zero marks a container
	Min       float64  // Offset at which the part is clear enough to unblock dependents
	Max       float64  // Full-explosion offset
	Handles   []Handle // Visual elements moved by the renderer

	// Runtime
	Offset             float64 // Signed displacement along Direction since rest
	Weight             float64 // Effective max scale for the current request
	LastActivatedChild int     // Serial stepping cursor, -1 when unset
	Explodable         bool
	Active             bool
	Done               bool

	index       int
	parent      int
	children    []int
	blocks      []int
	blockedBy   []int
	attracts    []int
	attractedBy []int
	followers   []int
	master      int
}

// Index returns the part's position in the owning tree's arena.
func (p *Part) Index() int { return p.index }

// ParentIndex returns the arena index of the parent, or -1 for a root.
func (p *Part) ParentIndex() int { return p.parent }

// ChildIndices returns the arena indices of the direct children in insertion
// order. The returned slice must not be modified.
func (p *Part) ChildIndices() []int { return p.children }

// Blocks returns the indices of the parts this part blocks.
// The returned slice must not be modified.
func (p *Part) Blocks() []int { return p.blocks }

// BlockedBy returns the indices of the parts blocking this part.
// The returned slice must not be modified.
func (p *Part) BlockedBy() []int { return p.blockedBy }

// Attracts returns the indices of this part's passengers.
// The returned slice must not be modified.
func (p *Part) Attracts() []int { return p.attracts }

// AttractedBy returns the indices of the masters carrying this part.
// The returned slice must not be modified.
func (p *Part) AttractedBy() []int { return p.attractedBy }

// Followers returns the indices of the parts driven by this part's motion.
// The returned slice must not be modified.
func (p *Part) Followers() []int { return p.followers }

// Master returns the index of the part this part follows, or -1.
func (p *Part) Master() int { return p.master }

// IsFollower reports whether the part's motion is driven by a master.
func (p *Part) IsFollower() bool { return p.master >= 0 }

// IsAttracted reports whether the part rides along with at least one master.
func (p *Part) IsAttracted() bool { return len(p.attractedBy) > 0 }

// IsContainer reports whether the part has no motion of its own.
func (p *Part) IsContainer() bool { return p.Direction.IsZero() }

// IsRoot reports whether the part has no parent.
func (p *Part) IsRoot() bool { return p.parent < 0 }

// HasPassenger reports whether other is one of this part's passengers.
func (p *Part) HasPassenger(other *Part) bool { return slices.Contains(p.attracts, other.index) }

// State derives the progress state from the runtime flags.
func (p *Part) State() State {
	switch {
	case p.Done:
		return StateDone
	case p.Active:
		return StateActive
	case p.Explodable:
		return StateExplodable
	default:
		return StateIdle
	}
}

// Reset returns the runtime flags to Idle and restores the default weight.
// Offset is kept: a part stays where the last request left it.
func (p *Part) Reset() {
	p.Explodable = false
	p.Active = false
	p.Done = false
	p.Weight = p.Max
	p.LastActivatedChild = -1
}

// Names extracts the name of each part, preserving order.
func Names(parts []*Part) []string {
	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = p.Name
	}
	return names
}

// appendUnique appends v to s unless already present. It reports whether s grew.
func appendUnique(s []int, v int) ([]int, bool) {
	if slices.Contains(s, v) {
		return s, false
	}
	return append(s, v), true
}
