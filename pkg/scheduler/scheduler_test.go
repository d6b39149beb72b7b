package scheduler_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/explode/pkg/assembly"
	"github.com/matzehuels/explode/pkg/errors"
	"github.com/matzehuels/explode/pkg/scheduler"
)

// recorder is both Renderer and EventSink.
type recorder struct {
	events []scheduler.Event
	moved  map[assembly.Handle]assembly.Vec3
}

func newRecorder() *recorder {
	return &recorder{moved: make(map[assembly.Handle]assembly.Vec3)}
}

func (r *recorder) Translate(handles []assembly.Handle, v assembly.Vec3) {
	for _, h := range handles {
		r.moved[h] = r.moved[h].Add(v)
	}
}

func (r *recorder) Notify(e scheduler.Event) { r.events = append(r.events, e) }

func (r *recorder) kinds() []string {
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind.String()
	}
	return out
}

func (r *recorder) activated() []string {
	var out []string
	for _, e := range r.events {
		if e.Kind == scheduler.EventPartsVisible || e.Kind == scheduler.EventPartsHidden {
			out = append(out, e.Part)
		}
	}
	return out
}

type partDef struct {
	name, parent string
	dir          assembly.Vec3
	min, max     float64
}

func buildTree(t *testing.T, parts []partDef, blocks [][2]string) *assembly.Tree {
	t.Helper()
	tr := assembly.New()
	for _, p := range parts {
		err := tr.AddPart(assembly.Part{
			Name:      p.name,
			Direction: p.dir,
			Min:       p.min,
			Max:       p.max,
			Handles:   []assembly.Handle{assembly.Handle(p.name)},
		}, p.parent)
		if err != nil {
			t.Fatalf("AddPart(%s): %v", p.name, err)
		}
	}
	for _, b := range blocks {
		if err := tr.SetBlock(b[0], b[1]); err != nil {
			t.Fatalf("SetBlock(%s, %s): %v", b[0], b[1], err)
		}
	}
	tr.PropagateAllBlocks()
	return tr
}

func newScheduler(t *testing.T, tr *assembly.Tree, cfg scheduler.Config) (*scheduler.Scheduler, *recorder) {
	t.Helper()
	rec := newRecorder()
	if cfg.Speed == 0 {
		cfg.Speed = 1
	}
	s, err := scheduler.New(tr, rec, rec, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, rec
}

// runToIdle ticks until the scheduler is idle and returns the tick count.
func runToIdle(t *testing.T, s *scheduler.Scheduler, dt float64) int {
	t.Helper()
	const limit = 10000
	n := 0
	for s.Running() {
		if err := s.Tick(dt); err != nil {
			t.Fatalf("Tick: %v", err)
		}
		n++
		if n > limit {
			t.Fatalf("scheduler still running after %d ticks", limit)
		}
	}
	return n
}

func offset(t *testing.T, tr *assembly.Tree, name string) float64 {
	t.Helper()
	p, ok := tr.Lookup(name)
	if !ok {
		t.Fatalf("part %q not found", name)
	}
	return p.Offset
}

func TestExplodeSinglePart(t *testing.T) {
	tr := buildTree(t, []partDef{{name: "A", dir: assembly.Vec3{X: 1}, min: 1, max: 4}}, nil)
	s, rec := newScheduler(t, tr, scheduler.Config{})

	tk, err := s.Explode(1.0)
	if err != nil {
		t.Fatalf("Explode: %v", err)
	}
	if tk.Queued || tk.ID == "" {
		t.Errorf("ticket = %+v, want started with an ID", tk)
	}

	ticks := runToIdle(t, s, 1)
	if ticks != 5 {
		t.Errorf("ticks = %d, want 5", ticks)
	}
	if got := offset(t, tr, "A"); got != 5 {
		t.Errorf("offset = %v, want 5", got)
	}
	if diff := cmp.Diff(assembly.Vec3{X: 5}, rec.moved["A"]); diff != "" {
		t.Errorf("handle displacement (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"began", "parts_visible", "ended"}, rec.kinds()); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	for _, e := range rec.events {
		if e.RequestID != tk.ID {
			t.Errorf("event %v has request %q, want %q", e.Kind, e.RequestID, tk.ID)
		}
	}
}

func TestExplodeWeightFraction(t *testing.T) {
	tests := []struct {
		wf   float64
		want float64
	}{
		{0, 1},
		{0.5, 3},
		{1, 5},
	}
	for _, tt := range tests {
		tr := buildTree(t, []partDef{{name: "A", dir: assembly.Vec3{X: 1}, min: 1, max: 4}}, nil)
		s, _ := newScheduler(t, tr, scheduler.Config{})
		if _, err := s.Explode(tt.wf); err != nil {
			t.Fatalf("Explode(%v): %v", tt.wf, err)
		}
		runToIdle(t, s, 1)
		if got := offset(t, tr, "A"); got != tt.want {
			t.Errorf("Explode(%v): offset = %v, want %v", tt.wf, got, tt.want)
		}
	}
}

func TestBlockedPartStartsWhenBlockerClearsMin(t *testing.T) {
	tr := buildTree(t, []partDef{
		{name: "A", dir: assembly.Vec3{X: 1}, min: 2, max: 2},
		{name: "B", dir: assembly.Vec3{Y: 1}, min: 1, max: 1},
	}, [][2]string{{"A", "B"}})
	s, rec := newScheduler(t, tr, scheduler.Config{})

	if _, err := s.Explode(1); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"A"}, rec.activated()); diff != "" {
		t.Fatalf("only A should start (-want +got):\n%s", diff)
	}

	_ = s.Tick(1)
	if got := offset(t, tr, "B"); got != 0 {
		t.Errorf("after tick 1: B offset = %v, want 0 (A below min)", got)
	}

	_ = s.Tick(1)
	if got := offset(t, tr, "A"); got != 2 {
		t.Errorf("after tick 2: A offset = %v, want 2", got)
	}
	if got := offset(t, tr, "B"); got != 1 {
		t.Errorf("after tick 2: B offset = %v, want 1 (started in the tick A crossed min)", got)
	}

	runToIdle(t, s, 1)
	if got := offset(t, tr, "A"); got != 4 {
		t.Errorf("A final = %v, want 4", got)
	}
	if got := offset(t, tr, "B"); got != 2 {
		t.Errorf("B final = %v, want 2", got)
	}
}

func TestImplodeRestoresRest(t *testing.T) {
	tr := buildTree(t, []partDef{
		{name: "root"},
		{name: "A", parent: "root", dir: assembly.Vec3{X: 1}, min: 1, max: 2},
		{name: "B", parent: "root", dir: assembly.Vec3{Z: -1}, min: 2, max: 3},
	}, [][2]string{{"A", "B"}})
	s, rec := newScheduler(t, tr, scheduler.Config{})

	_, _ = s.Explode(1)
	runToIdle(t, s, 1)
	if !s.IsAnyPartDisplaced() {
		t.Fatal("tree should be displaced after explode")
	}

	if _, err := s.Implode(); err != nil {
		t.Fatal(err)
	}
	runToIdle(t, s, 1)

	for _, p := range tr.Parts() {
		if p.Offset != 0 {
			t.Errorf("%s offset = %v, want 0", p.Name, p.Offset)
		}
		if p.State() != assembly.StateIdle {
			t.Errorf("%s state = %v, want idle", p.Name, p.State())
		}
	}
	if s.IsAnyPartDisplaced() {
		t.Error("IsAnyPartDisplaced after implode")
	}
	for _, h := range []assembly.Handle{"A", "B"} {
		if !rec.moved[h].IsZero() {
			t.Errorf("handle %s net displacement = %v, want zero", h, rec.moved[h])
		}
	}
}

func TestQueuedRequestAutoStarts(t *testing.T) {
	tr := buildTree(t, []partDef{{name: "A", dir: assembly.Vec3{X: 1}, min: 1, max: 1}}, nil)
	s, rec := newScheduler(t, tr, scheduler.Config{})

	first, _ := s.Explode(1)
	second, err := s.Implode()
	if err != nil {
		t.Fatal(err)
	}
	if !second.Queued || s.QueueLen() != 1 {
		t.Fatalf("implode should be queued: ticket=%+v queue=%d", second, s.QueueLen())
	}

	runToIdle(t, s, 1)

	type ev struct{ Kind, ID string }
	var got []ev
	for _, e := range rec.events {
		if e.Kind == scheduler.EventBegan || e.Kind == scheduler.EventEnded {
			got = append(got, ev{e.Kind.String(), e.RequestID})
		}
	}
	want := []ev{
		{"began", first.ID}, {"ended", first.ID},
		{"began", second.ID}, {"ended", second.ID},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lifecycle (-want +got):\n%s", diff)
	}
	if got := offset(t, tr, "A"); got != 0 {
		t.Errorf("offset = %v, want 0", got)
	}
	if s.QueueLen() != 0 {
		t.Errorf("QueueLen = %d, want 0", s.QueueLen())
	}
}

func TestContainerBlockersReachChildren(t *testing.T) {
	tr := buildTree(t, []partDef{
		{name: "X", dir: assembly.Vec3{X: 1}, min: 2, max: 1},
		{name: "C"},
		{name: "D", parent: "C", dir: assembly.Vec3{Y: 1}, min: 1, max: 1},
	}, [][2]string{{"X", "C"}})
	s, _ := newScheduler(t, tr, scheduler.Config{})

	_, _ = s.Explode(1)
	_ = s.Tick(1)
	if got := offset(t, tr, "D"); got != 0 {
		t.Errorf("D moved before X cleared min: offset = %v", got)
	}
	_ = s.Tick(1)
	if got := offset(t, tr, "D"); got != 1 {
		t.Errorf("D offset = %v, want 1", got)
	}
	runToIdle(t, s, 1)
	if got := offset(t, tr, "C"); got != 0 {
		t.Errorf("container offset = %v, want 0", got)
	}
}

func TestMonotonicConvergence(t *testing.T) {
	tr := buildTree(t, []partDef{
		{name: "A", dir: assembly.Vec3{X: 1}, min: 0.7, max: 1.3},
		{name: "B", dir: assembly.Vec3{Y: 1}, min: 0.25, max: 2.1},
	}, [][2]string{{"A", "B"}})
	s, _ := newScheduler(t, tr, scheduler.Config{Speed: 2})

	_, _ = s.Explode(0.8)
	prev := map[string]float64{}
	for s.Running() {
		if err := s.Tick(0.3); err != nil {
			t.Fatal(err)
		}
		for _, p := range tr.Parts() {
			if p.Offset < prev[p.Name] {
				t.Fatalf("%s moved backward: %v -> %v", p.Name, prev[p.Name], p.Offset)
			}
			limit := p.Min + p.Max*0.8
			if p.Offset > limit {
				t.Fatalf("%s overshot: %v > %v", p.Name, p.Offset, limit)
			}
			prev[p.Name] = p.Offset
		}
	}
	for _, p := range tr.Parts() {
		if want := p.Min + p.Max*0.8; p.Offset != want {
			t.Errorf("%s final = %v, want %v", p.Name, p.Offset, want)
		}
	}
}

func TestPassengerRidesWithoutOffset(t *testing.T) {
	tr := buildTree(t, []partDef{
		{name: "m", dir: assembly.Vec3{X: 1}, min: 0, max: 2},
		{name: "p", dir: assembly.Vec3{Y: 1}},
	}, nil)
	if err := tr.SetAttract("m", "p"); err != nil {
		t.Fatal(err)
	}
	s, rec := newScheduler(t, tr, scheduler.Config{})

	_, _ = s.Explode(1)
	runToIdle(t, s, 1)

	if got := offset(t, tr, "p"); got != 0 {
		t.Errorf("passenger offset = %v, want 0", got)
	}
	if diff := cmp.Diff(assembly.Vec3{X: 2}, rec.moved["p"]); diff != "" {
		t.Errorf("passenger displacement (-want +got):\n%s", diff)
	}
}

func TestFollowerMovesAndDoesNotBlock(t *testing.T) {
	tr := buildTree(t, []partDef{
		{name: "m", dir: assembly.Vec3{X: 1}, min: 0, max: 2},
		{name: "f", dir: assembly.Vec3{}, min: 5},
		{name: "g", dir: assembly.Vec3{Z: 1}, min: 0, max: 1},
	}, [][2]string{{"f", "g"}})
	if err := tr.SetFollower("m", "f"); err != nil {
		t.Fatal(err)
	}
	s, rec := newScheduler(t, tr, scheduler.Config{})

	_, _ = s.Explode(1)
	if err := s.Tick(1); err != nil {
		t.Fatal(err)
	}
	if got := offset(t, tr, "g"); got != 1 {
		t.Errorf("g offset = %v, want 1 (follower blockers are ignored)", got)
	}
	runToIdle(t, s, 1)

	if diff := cmp.Diff(assembly.Vec3{X: 2}, rec.moved["f"]); diff != "" {
		t.Errorf("follower displacement (-want +got):\n%s", diff)
	}
}

func TestAttractionOverridesFollowing(t *testing.T) {
	tr := buildTree(t, []partDef{
		{name: "m", dir: assembly.Vec3{X: 1}, min: 0, max: 2},
		{name: "q", dir: assembly.Vec3{Y: 1}, min: 0, max: 3},
		{name: "f"},
	}, nil)
	if err := tr.SetFollower("m", "f"); err != nil {
		t.Fatal(err)
	}
	if err := tr.SetAttract("q", "f"); err != nil {
		t.Fatal(err)
	}
	s, rec := newScheduler(t, tr, scheduler.Config{})

	_, _ = s.Explode(1)
	runToIdle(t, s, 1)

	if diff := cmp.Diff(assembly.Vec3{Y: 3}, rec.moved["f"]); diff != "" {
		t.Errorf("attracted follower displacement (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(assembly.Vec3{X: 2}, rec.moved["m"]); diff != "" {
		t.Errorf("master displacement (-want +got):\n%s", diff)
	}
}

func TestScopedExplodeIncludesBlockers(t *testing.T) {
	tr := buildTree(t, []partDef{
		{name: "a", dir: assembly.Vec3{X: 1}, min: 1, max: 1},
		{name: "b", dir: assembly.Vec3{Y: 1}, min: 1, max: 1},
		{name: "c", dir: assembly.Vec3{Z: 1}, min: 1, max: 1},
	}, [][2]string{{"a", "b"}})
	s, rec := newScheduler(t, tr, scheduler.Config{})

	if _, err := s.ExplodeTarget(1, "b"); err != nil {
		t.Fatal(err)
	}
	runToIdle(t, s, 1)

	want := map[string]float64{"a": 2, "b": 2, "c": 0}
	for name, w := range want {
		if got := offset(t, tr, name); got != w {
			t.Errorf("%s offset = %v, want %v", name, got, w)
		}
	}

	// Imploding a also collapses b, which a blocks. Implosions ignore
	// blocking, so both start together; c is untouched.
	_, _ = s.Explode(1)
	runToIdle(t, s, 1)
	rec.events = nil
	if _, err := s.ExplodeTargets(1, []string{"a"}, scheduler.Backward); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, rec.activated()); diff != "" {
		t.Errorf("parts activated by scoped implode (-want +got):\n%s", diff)
	}
	runToIdle(t, s, 1)
	want = map[string]float64{"a": 0, "b": 0, "c": 2}
	for name, w := range want {
		if got := offset(t, tr, name); got != w {
			t.Errorf("after scoped implode: %s offset = %v, want %v", name, got, w)
		}
	}
}

func TestUnknownTargets(t *testing.T) {
	tr := buildTree(t, []partDef{{name: "a", dir: assembly.Vec3{X: 1}, min: 1, max: 1}}, nil)
	s, _ := newScheduler(t, tr, scheduler.Config{})

	tk, err := s.ExplodeTarget(1, "ghost")
	if !errors.Is(err, errors.ErrCodeUnknownTarget) {
		t.Errorf("err = %v, want UNKNOWN_TARGET", err)
	}
	if tk.ID != "" || s.Running() {
		t.Error("request with no known target must be rejected")
	}

	tk, err = s.ExplodeTargets(1, []string{"a", "ghost"}, scheduler.Forward)
	if !errors.Is(err, errors.ErrCodeUnknownTarget) {
		t.Errorf("err = %v, want UNKNOWN_TARGET", err)
	}
	if tk.ID == "" || !s.Running() {
		t.Fatal("request with a known target should still run")
	}
	if diff := cmp.Diff([]string{"ghost"}, tk.Dropped); diff != "" {
		t.Errorf("Dropped (-want +got):\n%s", diff)
	}
	st := s.Status()
	if diff := cmp.Diff([]string{"a"}, st.Current.Scope); diff != "" {
		t.Errorf("effective scope (-want +got):\n%s", diff)
	}
}

func TestRejectsInvalidRequests(t *testing.T) {
	tr := buildTree(t, []partDef{{name: "a", dir: assembly.Vec3{X: 1}, max: 1}}, nil)
	s, _ := newScheduler(t, tr, scheduler.Config{})

	tests := []struct {
		name string
		req  scheduler.Request
	}{
		{"weight fraction above one", scheduler.Request{Sign: scheduler.Forward, WeightFraction: 1.5}},
		{"negative weight fraction", scheduler.Request{Sign: scheduler.Forward, WeightFraction: -0.1}},
		{"missing sign", scheduler.Request{WeightFraction: 1}},
		{"negative speed", scheduler.Request{Sign: scheduler.Forward, WeightFraction: 1, Speed: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Start(tt.req); !errors.Is(err, errors.ErrCodeInvalidRequest) {
				t.Errorf("err = %v, want INVALID_REQUEST", err)
			}
		})
	}
	if s.Running() {
		t.Error("rejected requests must not start")
	}
}

func TestQueueFull(t *testing.T) {
	tr := buildTree(t, []partDef{{name: "a", dir: assembly.Vec3{X: 1}, min: 1, max: 1}}, nil)
	s, _ := newScheduler(t, tr, scheduler.Config{MaxQueue: 1})

	if _, err := s.Explode(1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Implode(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Explode(1); !errors.Is(err, errors.ErrCodeQueueFull) {
		t.Errorf("err = %v, want QUEUE_FULL", err)
	}
	if s.QueueLen() != 1 {
		t.Errorf("QueueLen = %d, want 1", s.QueueLen())
	}
}

func TestTickBudgetAbortsStalledRequest(t *testing.T) {
	tr := buildTree(t, []partDef{{name: "a", dir: assembly.Vec3{X: 1}, min: 1, max: 4}}, nil)
	s, rec := newScheduler(t, tr, scheduler.Config{TickBudget: 2})

	_, _ = s.Explode(1)
	_, _ = s.Implode()

	if err := s.Tick(1); err != nil {
		t.Fatalf("tick 1: %v", err)
	}
	err := s.Tick(1)
	if !errors.Is(err, errors.ErrCodeStalled) {
		t.Fatalf("tick 2: err = %v, want STALLED", err)
	}

	var ended *scheduler.Event
	for i := range rec.events {
		if rec.events[i].Kind == scheduler.EventEnded {
			ended = &rec.events[i]
			break
		}
	}
	if ended == nil || !errors.Is(ended.Err, errors.ErrCodeStalled) {
		t.Errorf("first Ended event should carry STALLED, got %+v", ended)
	}
	if !s.Running() || s.QueueLen() != 0 {
		t.Error("queued implode should start after the abort")
	}
	runToIdle(t, s, 1)
	if got := offset(t, tr, "a"); got != 0 {
		t.Errorf("offset = %v, want 0", got)
	}
}

func TestNothingToMoveCompletesImmediately(t *testing.T) {
	s, rec := newScheduler(t, assembly.New(), scheduler.Config{})
	if !s.IsTreeEmpty() {
		t.Fatal("tree should be empty")
	}
	if _, err := s.Explode(1); err != nil {
		t.Fatal(err)
	}
	if s.Running() {
		t.Error("empty request should complete on start")
	}
	if diff := cmp.Diff([]string{"began", "ended"}, rec.kinds()); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	if err := s.Tick(1); err != nil {
		t.Errorf("idle Tick: %v", err)
	}
}

func TestSerialMode(t *testing.T) {
	tr := buildTree(t, []partDef{
		{name: "R"},
		{name: "a", parent: "R", dir: assembly.Vec3{X: 1}, max: 2},
		{name: "b", parent: "R", dir: assembly.Vec3{Y: 1}, max: 2},
		{name: "c", dir: assembly.Vec3{Z: 1}, max: 1},
	}, [][2]string{{"b", "a"}})
	s, rec := newScheduler(t, tr, scheduler.Config{Mode: scheduler.ModeSerial})

	_, _ = s.Explode(1)
	for s.Running() {
		if err := s.Tick(1); err != nil {
			t.Fatal(err)
		}
		if n := len(s.Status().Active); n > 1 {
			t.Fatalf("%d parts active at once in serial mode", n)
		}
	}

	if diff := cmp.Diff([]string{"R", "a", "b", "c"}, rec.activated()); diff != "" {
		t.Errorf("activation order (-want +got):\n%s", diff)
	}
	for name, want := range map[string]float64{"a": 2, "b": 2, "c": 1} {
		if got := offset(t, tr, name); got != want {
			t.Errorf("%s offset = %v, want %v", name, got, want)
		}
	}
}

func TestNewRejectsCycles(t *testing.T) {
	tr := buildTree(t, []partDef{
		{name: "a", dir: assembly.Vec3{X: 1}},
		{name: "b", dir: assembly.Vec3{Y: 1}},
	}, [][2]string{{"a", "b"}, {"b", "a"}})
	if _, err := scheduler.New(tr, nil, nil, scheduler.Config{}); !errors.Is(err, errors.ErrCodeCycleDetected) {
		t.Errorf("err = %v, want CYCLE_DETECTED", err)
	}
}

func TestInvalidTick(t *testing.T) {
	tr := buildTree(t, []partDef{{name: "a", dir: assembly.Vec3{X: 1}, max: 1}}, nil)
	s, _ := newScheduler(t, tr, scheduler.Config{})
	_, _ = s.Explode(1)
	if err := s.Tick(-1); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}
