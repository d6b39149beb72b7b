package scheduler

import "github.com/matzehuels/explode/pkg/assembly"

// activate starts p's progress task and announces it.
func (s *Scheduler) activate(p *assembly.Part) {
	p.Active = true
	s.running = append(s.running, p.Index())

	kind := EventPartsVisible
	if s.current.Sign == Backward {
		kind = EventPartsHidden
	}
	s.log.Debug("part activated", "id", s.current.ID, "part", p.Name, "offset", p.Offset)
	s.sink.Notify(Event{Kind: kind, RequestID: s.current.ID, Part: p.Name, Handles: p.Handles})
}

// step advances p by one tick of dt seconds.
//
// The part moves by sign*speed*dt. Once it reaches or passes its boundary
// (Min + Weight*WeightFraction when exploding, zero when imploding) the
// overshoot is moved back, the part is marked Done and its dependents are
// re-evaluated. An exploding part that has cleared Min also re-evaluates its
// dependents while still moving.
func (s *Scheduler) step(p *assembly.Part, dt float64) {
	req := s.current
	s.move(p, float64(req.Sign)*req.Speed*dt)

	switch req.Sign {
	case Forward:
		limit := p.Min + p.Weight*req.WeightFraction
		if p.Offset >= limit {
			if over := p.Offset - limit; over != 0 {
				s.move(p, -over)
			}
			p.Offset = limit
			s.finish(p)
			return
		}
		if p.Offset >= p.Min && s.cfg.Mode == ModeConcurrent {
			s.cascade(p)
		}
	case Backward:
		if p.Offset <= 0 {
			if p.Offset != 0 {
				s.move(p, -p.Offset)
			}
			p.Offset = 0
			s.finish(p)
		}
	}
}

func (s *Scheduler) finish(p *assembly.Part) {
	p.Active = false
	p.Done = true
	s.log.Debug("part done", "id", s.current.ID, "part", p.Name, "offset", p.Offset)

	if s.cfg.Mode == ModeSerial {
		s.advanceSerial()
		return
	}
	s.cascade(p)
}

// cascade activates every part blocked by p that can now start.
func (s *Scheduler) cascade(p *assembly.Part) {
	for _, bi := range p.Blocks() {
		if b := s.tree.Part(bi); s.CanActivate(b) {
			s.activate(b)
		}
	}
}

// move adds inc to p's offset and displaces p's handles, its followers and
// its passengers by inc along p's direction.
func (s *Scheduler) move(p *assembly.Part, inc float64) {
	p.Offset += inc
	s.carry(p, p.Direction.Scale(inc))
}

// carry translates p's handles by d, then does the same for p's passengers
// and, recursively, for its followers. Followers keep their own offset. An
// attracted follower moves only with its attractor.
func (s *Scheduler) carry(p *assembly.Part, d assembly.Vec3) {
	if d.IsZero() {
		return
	}
	s.renderer.Translate(p.Handles, d)
	for _, ai := range p.Attracts() {
		s.renderer.Translate(s.tree.Part(ai).Handles, d)
	}
	for _, fi := range p.Followers() {
		f := s.tree.Part(fi)
		if f.IsAttracted() {
			continue
		}
		s.carry(f, d)
	}
}
