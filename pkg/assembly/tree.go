package assembly

import "errors"

var (
	// ErrEmptyName is returned by [Tree.AddPart] when the part name is empty.
	ErrEmptyName = errors.New("part name must not be empty")

	// ErrDuplicateName is returned by [Tree.AddPart] when a part with the same
	// name already exists. Names are the stable key of a part.
	ErrDuplicateName = errors.New("duplicate part name")

	// ErrUnknownPart is returned when a parent or relation endpoint names a
	// part that is not in the tree.
	ErrUnknownPart = errors.New("unknown part")

	// ErrSelfRelation is returned when a relation would link a part to itself.
	ErrSelfRelation = errors.New("part cannot relate to itself")

	// ErrMultipleMasters is returned by [Tree.SetFollower] when the follower
	// already has a different master.
	ErrMultipleMasters = errors.New("follower already has a master")

	// ErrBlockingCycle is returned by [Tree.Validate] when the blocking
	// relation contains a directed cycle.
	ErrBlockingCycle = errors.New("blocking relation contains a cycle")

	// ErrFollowerCycle is returned by [Tree.Validate] when a chain of
	// followers loops back to itself.
	ErrFollowerCycle = errors.New("follower relation contains a cycle")
)

// Tree owns the parts of an assembly in a flat arena.
//
// The zero value is not usable - use [New].
type Tree struct {
	parts []*Part
	index map[string]int
	roots []int
}

// New creates an empty tree.
func New() *Tree {
	return &Tree{index: make(map[string]int)}
}

// AddPart copies p into the tree under the part named parent, or as a new
// root when parent is empty. Relations and runtime fields of p are ignored;
// the part starts Idle at offset zero with Weight equal to Max.
func (t *Tree) AddPart(p Part, parent string) error {
	if p.Name == "" {
		return ErrEmptyName
	}
	if _, exists := t.index[p.Name]; exists {
		return ErrDuplicateName
	}
	parentIdx := -1
	if parent != "" {
		idx, ok := t.index[parent]
		if !ok {
			return ErrUnknownPart
		}
		parentIdx = idx
	}

	part := &Part{
		Name:      p.Name,
		Direction: p.Direction,
		Min:       p.Min,
		Max:       p.Max,
		Handles:   append([]Handle(nil), p.Handles...),
		index:     len(t.parts),
		parent:    parentIdx,
		master:    -1,
	}
	part.Reset()

	t.parts = append(t.parts, part)
	t.index[part.Name] = part.index
	if parentIdx < 0 {
		t.roots = append(t.roots, part.index)
	} else {
		pp := t.parts[parentIdx]
		pp.children = append(pp.children, part.index)
	}
	return nil
}

// Len returns the number of parts.
func (t *Tree) Len() int { return len(t.parts) }

// IsEmpty reports whether the tree holds no parts.
func (t *Tree) IsEmpty() bool { return len(t.parts) == 0 }

// Part returns the part at arena index i. It panics if i is out of range.
func (t *Tree) Part(i int) *Part { return t.parts[i] }

// Parts returns every part in arena (insertion) order. The returned slice
// must not be modified, but the parts it points to may be.
func (t *Tree) Parts() []*Part { return t.parts }

// Roots returns the parts that have no parent, in insertion order.
func (t *Tree) Roots() []*Part { return t.resolve(t.roots) }

// RootIndices returns the arena indices of the roots.
// The returned slice must not be modified.
func (t *Tree) RootIndices() []int { return t.roots }

// Lookup returns the part with the given name. The second result is false
// when no such part exists.
func (t *Tree) Lookup(name string) (*Part, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.parts[i], true
}

// Parent returns p's parent, or false for a root.
func (t *Tree) Parent(p *Part) (*Part, bool) {
	if p.parent < 0 {
		return nil, false
	}
	return t.parts[p.parent], true
}

// Children returns the direct children of p in insertion order.
func (t *Tree) Children(p *Part) []*Part { return t.resolve(p.children) }

func (t *Tree) resolve(idx []int) []*Part {
	out := make([]*Part, len(idx))
	for i, j := range idx {
		out[i] = t.parts[j]
	}
	return out
}

// ForEach calls fn for every part in depth-first pre-order, visiting roots
// and siblings in insertion order.
func (t *Tree) ForEach(fn func(*Part)) {
	t.walk(func(p *Part) bool {
		fn(p)
		return true
	})
}

// ForEachIf calls fn for every part matching pred, in the same order as ForEach.
func (t *Tree) ForEachIf(pred func(*Part) bool, fn func(*Part)) {
	t.walk(func(p *Part) bool {
		if pred(p) {
			fn(p)
		}
		return true
	})
}

// Any reports whether at least one part matches pred.
func (t *Tree) Any(pred func(*Part) bool) bool {
	_, ok := FindFirst(t, func(p *Part, _ struct{}) bool { return pred(p) }, struct{}{})
	return ok
}

// FindFirst returns the first part in pre-order for which pred(part, data)
// is true. The second result is false when nothing matches; callers must
// handle that case.
func FindFirst[T any](t *Tree, pred func(*Part, T) bool, data T) (*Part, bool) {
	var found *Part
	t.walk(func(p *Part) bool {
		if pred(p, data) {
			found = p
			return false
		}
		return true
	})
	return found, found != nil
}

// walk visits parts in pre-order until visit returns false.
func (t *Tree) walk(visit func(*Part) bool) {
	stack := make([]int, 0, len(t.parts))
	for i := len(t.roots) - 1; i >= 0; i-- {
		stack = append(stack, t.roots[i])
	}
	for len(stack) > 0 {
		p := t.parts[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		if !visit(p) {
			return
		}
		for i := len(p.children) - 1; i >= 0; i-- {
			stack = append(stack, p.children[i])
		}
	}
}

// ResetFlags returns every part to Idle. Offsets are preserved.
func (t *Tree) ResetFlags() {
	for _, p := range t.parts {
		p.Reset()
	}
}

// IsAnyDisplaced reports whether any part sits away from its rest position.
func (t *Tree) IsAnyDisplaced() bool {
	return t.Any(func(p *Part) bool { return p.Offset != 0 })
}

// SubtreeHas reports whether p or any of its descendants matches pred.
func (t *Tree) SubtreeHas(p *Part, pred func(*Part) bool) bool {
	if pred(p) {
		return true
	}
	for _, c := range p.children {
		if t.SubtreeHas(t.parts[c], pred) {
			return true
		}
	}
	return false
}
