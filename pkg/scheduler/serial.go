package scheduler

import "github.com/matzehuels/explode/pkg/assembly"

// Serial stepping walks the hierarchy depth-first with a single cursor,
// activating one explodable part at a time. Each node remembers the position
// of the child it last descended into (LastActivatedChild), so after a part
// finishes the walk resumes with that part's children and then its next
// sibling. Blocking is ignored.

func (s *Scheduler) serialBegin() {
	s.serialParent = -1
	s.rootLast = -1
	s.advanceSerial()
}

func (s *Scheduler) waiting(p *assembly.Part) bool { return p.Explodable && !p.Done && !p.Active }

func (s *Scheduler) childrenOf(i int) []int {
	if i < 0 {
		return s.tree.RootIndices()
	}
	return s.tree.Part(i).ChildIndices()
}

func (s *Scheduler) lastChild(i int) *int {
	if i < 0 {
		return &s.rootLast
	}
	return &s.tree.Part(i).LastActivatedChild
}

// advanceSerial activates the next waiting part in depth-first order. It
// reports false once every subtree under the virtual root is exhausted.
func (s *Scheduler) advanceSerial() bool {
	for {
		children := s.childrenOf(s.serialParent)
		last := s.lastChild(s.serialParent)

		descended := false
		for i := *last + 1; i < len(children); i++ {
			*last = i
			c := s.tree.Part(children[i])
			if !s.tree.SubtreeHas(c, s.waiting) {
				continue
			}
			s.serialParent = c.Index()
			if s.waiting(c) {
				s.activate(c)
				return true
			}
			descended = true
			break
		}
		if descended {
			continue
		}

		// Subtree exhausted: climb back to the parent and try the next sibling.
		if s.serialParent < 0 {
			return false
		}
		s.serialParent = s.tree.Part(s.serialParent).ParentIndex()
	}
}
