package scheduler

import (
	goerrors "errors"
	"math"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/explode/pkg/assembly"
	"github.com/matzehuels/explode/pkg/errors"
)

// Scheduler drives explosion and implosion requests over one assembly tree.
//
// The zero value is not usable - use [New].
type Scheduler struct {
	tree     *assembly.Tree
	renderer Renderer
	sink     EventSink
	cfg      Config
	log      *log.Logger

	queue   queue
	current *pending
	ticks   int
	running []int // active parts in activation order

	// serial cursor; -1 stands for the virtual parent of the roots
	serialParent int
	rootLast     int
}

// New creates a scheduler for tree. The tree is validated once here so that
// blocking and following cycles are rejected up front. A nil renderer or sink
// discards motion and events respectively.
func New(tree *assembly.Tree, renderer Renderer, sink EventSink, cfg Config) (*Scheduler, error) {
	if tree == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "tree is required")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := tree.Validate(); err != nil {
		code := errors.ErrCodeInvalidAssembly
		if goerrors.Is(err, assembly.ErrBlockingCycle) || goerrors.Is(err, assembly.ErrFollowerCycle) {
			code = errors.ErrCodeCycleDetected
		}
		return nil, errors.Wrap(code, err, "invalid assembly")
	}
	if renderer == nil {
		renderer = nopRenderer{}
	}
	if sink == nil {
		sink = nopSink{}
	}
	return &Scheduler{
		tree:         tree,
		renderer:     renderer,
		sink:         sink,
		cfg:          cfg,
		log:          cfg.Logger,
		serialParent: -1,
		rootLast:     -1,
	}, nil
}

// Start submits a request. When no request is running it begins immediately,
// otherwise it is queued behind the running one.
//
// Scope names that match no part are dropped: the request is still accepted,
// the returned Ticket lists them in Dropped and the error carries
// UNKNOWN_TARGET. A request whose scope matches nothing at all is rejected
// rather than widened to the whole tree. A rejected request returns a zero
// Ticket.
func (s *Scheduler) Start(req Request) (Ticket, error) {
	p, dropped, err := s.prepare(req)
	if err != nil {
		return Ticket{}, err
	}

	t := Ticket{ID: p.ID, Dropped: dropped}
	if s.current != nil {
		if s.cfg.MaxQueue > 0 && s.queue.len() >= s.cfg.MaxQueue {
			return Ticket{}, errors.New(errors.ErrCodeQueueFull, "%d requests already waiting", s.queue.len())
		}
		s.queue.push(p)
		t.Queued = true
		s.log.Debug("request queued", "id", p.ID, "sign", p.Sign, "position", s.queue.len())
	} else {
		s.begin(p)
		s.settle()
	}

	if len(dropped) > 0 {
		return t, errors.New(errors.ErrCodeUnknownTarget, "dropped unknown targets: %s", strings.Join(dropped, ", "))
	}
	return t, nil
}

func (s *Scheduler) prepare(req Request) (pending, []string, error) {
	if req.Sign != Forward && req.Sign != Backward {
		return pending{}, nil, errors.New(errors.ErrCodeInvalidRequest, "invalid sign %d", int(req.Sign))
	}
	if err := errors.ValidateWeightFraction(req.WeightFraction); err != nil {
		return pending{}, nil, err
	}
	switch {
	case req.Speed == 0:
		req.Speed = s.cfg.Speed
	case math.IsNaN(req.Speed) || math.IsInf(req.Speed, 0) || req.Speed < 0:
		return pending{}, nil, errors.New(errors.ErrCodeInvalidRequest, "speed must be a positive finite number, got %v", req.Speed)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	p := pending{Request: req}
	if req.Global() {
		return p, nil, nil
	}

	var (
		dropped []string
		known   []string
	)
	for _, name := range req.Scope {
		part, ok := s.tree.Lookup(name)
		if !ok {
			s.log.Warn("unknown target dropped", "id", req.ID, "target", name)
			dropped = append(dropped, name)
			continue
		}
		if slices.Contains(p.targets, part.Index()) {
			continue
		}
		p.targets = append(p.targets, part.Index())
		known = append(known, name)
	}
	if len(p.targets) == 0 {
		return pending{}, dropped, errors.New(errors.ErrCodeUnknownTarget, "no known targets in scope: %s", strings.Join(dropped, ", "))
	}
	p.Scope = known
	return p, dropped, nil
}

// begin makes p the running request: flags are cleared, the explodable set is
// selected and every part that may move right away is activated.
func (s *Scheduler) begin(p pending) {
	s.current = &p
	s.ticks = 0
	s.running = s.running[:0]
	s.tree.ResetFlags()
	s.selectTargets(&p)

	s.log.Debug("request started", "id", p.ID, "sign", p.Sign, "scope", p.Scope, "weight_fraction", p.WeightFraction)
	s.sink.Notify(Event{Kind: EventBegan, RequestID: p.ID})

	if s.cfg.Mode == ModeSerial {
		s.serialBegin()
		return
	}
	s.tree.ForEachIf(s.CanActivate, s.activate)
}

// end finishes the running request, returns every part to Idle and starts
// the next queued request, if any.
func (s *Scheduler) end(err error) {
	id := s.current.ID
	s.tree.ResetFlags()
	s.running = s.running[:0]
	s.current = nil

	if err != nil {
		s.log.Warn("request aborted", "id", id, "err", err)
	} else {
		s.log.Debug("request ended", "id", id)
	}
	s.sink.Notify(Event{Kind: EventEnded, RequestID: id, Err: err})

	if next, ok := s.queue.pop(); ok {
		s.begin(next)
	}
}

// settle ends requests for as long as the running one is complete. A request
// with nothing to move completes in the same call that began it.
func (s *Scheduler) settle() {
	for s.current != nil && s.complete() {
		s.end(nil)
	}
}

// complete reports whether no part is moving and no explodable part is still
// waiting to reach its boundary.
func (s *Scheduler) complete() bool {
	for _, p := range s.tree.Parts() {
		if p.Active || (p.Explodable && !p.Done) {
			return false
		}
	}
	return true
}

// Tick advances every active part by dt seconds. Parts activated during the
// tick advance within the same tick. Tick is a no-op while idle.
//
// With a TickBudget configured, a request still running after that many ticks
// is aborted: its Ended event carries the error, the next queued request
// starts, and Tick returns an error with code STALLED.
func (s *Scheduler) Tick(dt float64) error {
	if s.current == nil {
		return nil
	}
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "tick duration must be a non-negative finite number, got %v", dt)
	}

	id := s.current.ID
	s.ticks++
	for i := 0; i < len(s.running); i++ {
		if p := s.tree.Part(s.running[i]); p.Active {
			s.step(p, dt)
		}
	}
	s.running = slices.DeleteFunc(s.running, func(i int) bool { return !s.tree.Part(i).Active })
	s.settle()

	if s.current != nil && s.current.ID == id && s.cfg.TickBudget > 0 && s.ticks >= s.cfg.TickBudget {
		err := errors.New(errors.ErrCodeStalled, "request %s did not complete within %d ticks", id, s.cfg.TickBudget)
		s.end(err)
		s.settle()
		return err
	}
	return nil
}
