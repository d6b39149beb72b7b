package scheduler

import "github.com/matzehuels/explode/pkg/assembly"

// selectTargets marks the explodable set of p and sets every part's Weight.
//
//   - Forward, global: every part.
//   - Forward, scoped: the targets plus every part that recursively blocks
//     one of them.
//   - Backward, global: every part.
//   - Backward, scoped: the targets plus every part recursively blocked by one
//     of them, since those have to collapse first.
func (s *Scheduler) selectTargets(p *pending) {
	parts := s.tree.Parts()
	for _, part := range parts {
		part.Weight = part.Max
	}
	if len(p.targets) == 0 {
		for _, part := range parts {
			part.Explodable = true
		}
		return
	}

	targets := make([]*assembly.Part, len(p.targets))
	for i, idx := range p.targets {
		targets[i] = s.tree.Part(idx)
		targets[i].Explodable = true
	}
	for _, part := range parts {
		if part.Explodable {
			continue
		}
		for _, t := range targets {
			if s.related(p.Sign, part, t) {
				part.Explodable = true
				break
			}
		}
	}
}

func (s *Scheduler) related(sign Sign, part, target *assembly.Part) bool {
	if sign == Forward {
		return s.tree.IsRecursiveBlocking(part, target)
	}
	return s.tree.IsRecursiveBlockedBy(part, target)
}

// CanActivate reports whether p may start moving in the running request. A
// part qualifies when it is explodable, neither moving nor finished, and (for
// explosions) every blocker that is not a follower has reached its Min
// offset. Implosions ignore blocking. It is false while idle.
func (s *Scheduler) CanActivate(p *assembly.Part) bool {
	if s.current == nil || p.Active || !p.Explodable || p.Done {
		return false
	}
	if s.current.Sign == Backward {
		return true
	}
	for _, bi := range p.BlockedBy() {
		b := s.tree.Part(bi)
		if b.IsFollower() {
			continue
		}
		if b.Offset < b.Min {
			return false
		}
	}
	return true
}
