package assembly

import (
	"fmt"
	"slices"
)

// SetBlock records that blocker must clear its Min offset before blocked may
// start exploding. The inverse set is updated in the same call, so
// blocked ∈ blocker.Blocks() exactly when blocker ∈ blocked.BlockedBy().
// Adding an existing pair is a no-op. Acyclicity is not checked here; use
// [Tree.Validate] once the graph is complete.
func (t *Tree) SetBlock(blocker, blocked string) error {
	a, b, err := t.pair(blocker, blocked)
	if err != nil {
		return err
	}
	t.block(a, b)
	return nil
}

// SetAttract makes passenger ride along with master: every movement of master
// is applied to the passenger's handles, while the passenger's own offset and
// state stay untouched.
func (t *Tree) SetAttract(master, passenger string) error {
	m, p, err := t.pair(master, passenger)
	if err != nil {
		return err
	}
	m.attracts, _ = appendUnique(m.attracts, p.index)
	p.attractedBy, _ = appendUnique(p.attractedBy, m.index)
	return nil
}

// SetFollower makes follower move along master's direction whenever master
// moves. A follower has at most one master.
func (t *Tree) SetFollower(master, follower string) error {
	m, f, err := t.pair(master, follower)
	if err != nil {
		return err
	}
	if f.master >= 0 && f.master != m.index {
		return fmt.Errorf("%s: %w", f.Name, ErrMultipleMasters)
	}
	f.master = m.index
	m.followers, _ = appendUnique(m.followers, f.index)
	return nil
}

func (t *Tree) pair(from, to string) (*Part, *Part, error) {
	a, ok := t.Lookup(from)
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", from, ErrUnknownPart)
	}
	b, ok := t.Lookup(to)
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", to, ErrUnknownPart)
	}
	if a == b {
		return nil, nil, fmt.Errorf("%s: %w", from, ErrSelfRelation)
	}
	return a, b, nil
}

func (t *Tree) block(a, b *Part) bool {
	var grew bool
	a.blocks, grew = appendUnique(a.blocks, b.index)
	b.blockedBy, _ = appendUnique(b.blockedBy, a.index)
	return grew
}

// PropagateBlocksToChildren copies every blocker of container c down to c's
// direct children. A container cannot move out of the way by itself, so the
// obstruction has to land on the children that do move. The container's own
// BlockedBy set is left unchanged. Calling it on a part with a non-zero
// direction does nothing. It reports how many new pairs were added.
func (t *Tree) PropagateBlocksToChildren(c *Part) int {
	if !c.IsContainer() {
		return 0
	}
	added := 0
	for _, blockerIdx := range c.blockedBy {
		blocker := t.parts[blockerIdx]
		for _, childIdx := range c.children {
			if childIdx == blockerIdx {
				continue
			}
			if t.block(blocker, t.parts[childIdx]) {
				added++
			}
		}
	}
	return added
}

// PropagateAllBlocks runs [Tree.PropagateBlocksToChildren] for every container
// in pre-order, so blockers of nested containers reach the moving parts below
// them in a single pass. It is idempotent and must be re-run after topology
// changes. It reports how many new pairs were added.
func (t *Tree) PropagateAllBlocks() int {
	added := 0
	t.ForEachIf((*Part).IsContainer, func(c *Part) {
		added += t.PropagateBlocksToChildren(c)
	})
	return added
}

// IsBlocking reports whether a directly blocks b.
func (t *Tree) IsBlocking(a, b *Part) bool { return slices.Contains(b.blockedBy, a.index) }

// IsBlockedBy reports whether a is directly blocked by b.
func (t *Tree) IsBlockedBy(a, b *Part) bool { return slices.Contains(a.blockedBy, b.index) }

// IsRecursiveBlocking reports whether a blocks b, or blocks something in b's
// blocking chain. The walk follows BlockedBy upward from b and tolerates
// cycles.
func (t *Tree) IsRecursiveBlocking(a, b *Part) bool {
	return t.reachesBlocker(b, a, nil)
}

// IsRecursiveBlockedBy reports whether a is blocked by b directly or through
// a chain of intermediate blockers, walking BlockedBy upward from a.
func (t *Tree) IsRecursiveBlockedBy(a, b *Part) bool {
	return t.reachesBlocker(a, b, nil)
}

// IsRecursiveBlockingNotAttracted is IsRecursiveBlocking restricted to chains
// in which no link is a passenger of another part.
func (t *Tree) IsRecursiveBlockingNotAttracted(a, b *Part) bool {
	if a.IsAttracted() {
		return false
	}
	return t.reachesBlocker(b, a, func(p *Part) bool { return !p.IsAttracted() })
}

// reachesBlocker walks BlockedBy upward from start looking for target. Links
// rejected by allow are not followed.
func (t *Tree) reachesBlocker(start, target *Part, allow func(*Part) bool) bool {
	visited := make(map[int]bool)
	stack := []int{start.index}
	for len(stack) > 0 {
		cur := t.parts[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		for _, idx := range cur.blockedBy {
			if idx == target.index {
				return true
			}
			if visited[idx] {
				continue
			}
			visited[idx] = true
			if allow != nil && !allow(t.parts[idx]) {
				continue
			}
			stack = append(stack, idx)
		}
	}
	return false
}

// Validate checks that the blocking and following relations are acyclic and
// that every blocks/blockedBy pair is mirrored. It returns an error wrapping
// [ErrBlockingCycle] or [ErrFollowerCycle] naming a part on the cycle.
//
// Cycle detection runs in O(N+E) using depth-first search.
func (t *Tree) Validate() error {
	for _, p := range t.parts {
		for _, b := range p.blocks {
			if !slices.Contains(t.parts[b].blockedBy, p.index) {
				return fmt.Errorf("%s blocks %s without inverse link", p.Name, t.parts[b].Name)
			}
		}
	}
	if err := t.detectBlockingCycles(); err != nil {
		return err
	}
	return t.detectFollowerCycles()
}

func (t *Tree) detectBlockingCycles() error {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(t.parts))
	cycleAt := -1

	var dfs func(i int)
	dfs = func(i int) {
		color[i] = gray
		for _, next := range t.parts[i].blocks {
			switch color[next] {
			case white:
				dfs(next)
			case gray:
				cycleAt = next
			}
			if cycleAt >= 0 {
				return
			}
		}
		color[i] = black
	}

	for i := range t.parts {
		if color[i] == white {
			dfs(i)
			if cycleAt >= 0 {
				return fmt.Errorf("%s: %w", t.parts[cycleAt].Name, ErrBlockingCycle)
			}
		}
	}
	return nil
}

func (t *Tree) detectFollowerCycles() error {
	for _, p := range t.parts {
		seen := map[int]bool{p.index: true}
		for m := p.master; m >= 0; m = t.parts[m].master {
			if seen[m] {
				return fmt.Errorf("%s: %w", p.Name, ErrFollowerCycle)
			}
			seen[m] = true
		}
	}
	return nil
}
