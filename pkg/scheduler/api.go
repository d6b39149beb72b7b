package scheduler

import "github.com/matzehuels/explode/pkg/assembly"

// Explode explodes the whole tree to Min + Weight*weightFraction.
func (s *Scheduler) Explode(weightFraction float64) (Ticket, error) {
	return s.Start(Request{Sign: Forward, WeightFraction: weightFraction})
}

// ExplodeTarget explodes target together with every part that recursively
// blocks it.
func (s *Scheduler) ExplodeTarget(weightFraction float64, target string) (Ticket, error) {
	return s.Start(Request{Sign: Forward, WeightFraction: weightFraction, Scope: []string{target}})
}

// ExplodeTargets submits a scoped request in either direction. An empty
// targets slice is a global request.
func (s *Scheduler) ExplodeTargets(weightFraction float64, targets []string, sign Sign) (Ticket, error) {
	return s.Start(Request{Sign: sign, WeightFraction: weightFraction, Scope: targets})
}

// Implode returns every part to offset zero.
func (s *Scheduler) Implode() (Ticket, error) {
	return s.Start(Request{Sign: Backward, WeightFraction: 1})
}

// IsAnyPartDisplaced reports whether any part has a non-zero offset.
func (s *Scheduler) IsAnyPartDisplaced() bool { return s.tree.IsAnyDisplaced() }

// IsTreeEmpty reports whether the tree holds no parts.
func (s *Scheduler) IsTreeEmpty() bool { return s.tree.IsEmpty() }

// Running reports whether a request is in progress.
func (s *Scheduler) Running() bool { return s.current != nil }

// QueueLen returns the number of requests waiting behind the running one.
func (s *Scheduler) QueueLen() int { return s.queue.len() }

// Tree returns the scheduled tree.
func (s *Scheduler) Tree() *assembly.Tree { return s.tree }

// Config returns the effective configuration, defaults applied.
func (s *Scheduler) Config() Config { return s.cfg }

// Status is a point-in-time view of the scheduler.
type Status struct {
	Running bool
	Current *Request  // nil when idle
	Queued  []Request // in submission order
	Ticks   int       // ticks spent on the current request
	Active  []string  // names of moving parts, in activation order
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() Status {
	st := Status{
		Running: s.current != nil,
		Queued:  s.queue.snapshot(),
	}
	if s.current != nil {
		req := s.current.Request
		st.Current = &req
		st.Ticks = s.ticks
		for _, i := range s.running {
			if p := s.tree.Part(i); p.Active {
				st.Active = append(st.Active, p.Name)
			}
		}
	}
	return st
}

// Current returns the running request, or false while idle.
func (s *Scheduler) Current() (Request, bool) {
	if s.current == nil {
		return Request{}, false
	}
	return s.current.Request, true
}

// Active returns the names of the moving parts in activation order.
func (s *Scheduler) Active() []string { return s.Status().Active }
