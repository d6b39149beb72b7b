package playback

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/matzehuels/explode/pkg/assembly"
	"github.com/matzehuels/explode/pkg/errors"
	"github.com/matzehuels/explode/pkg/events"
	"github.com/matzehuels/explode/pkg/observability"
	"github.com/matzehuels/explode/pkg/scene"
	"github.com/matzehuels/explode/pkg/scheduler"
)

// Frame holds the offsets of every displaced part after one tick.
type Frame struct {
	Tick    int                `json:"tick"`
	Offsets map[string]float64 `json:"offsets"`
}

// Trace is the recorded outcome of a simulation.
type Trace struct {
	Ticks     int                               `json:"ticks"`
	Step      float64                           `json:"step"`
	Requests  []string                          `json:"requests"`
	Frames    []Frame                           `json:"frames"`
	Events    []events.Record                   `json:"events"`
	Final     map[string]float64                `json:"final"`
	Positions map[assembly.Handle]assembly.Vec3 `json:"positions"`
	Errors    []string                          `json:"errors,omitempty"`
}

// Describe returns the canonical description of a request used in traces and
// cache keys, e.g. "forward wf=1 speed=0 scope=*".
func Describe(r scheduler.Request) string {
	scope := "*"
	if len(r.Scope) > 0 {
		scope = strings.Join(r.Scope, ",")
	}
	return fmt.Sprintf("%s wf=%g speed=%g scope=%s", r.Sign, r.WeightFraction, r.Speed, scope)
}

// Simulate submits reqs in order to a fresh scheduler over tree and ticks
// with a fixed step until the scheduler goes idle. The tree's offsets are
// updated in place. Requests rejected by the scheduler, dropped targets and
// stalled requests are listed in Trace.Errors; exceeding opts.MaxTicks
// returns an error with code STALLED together with the partial trace.
func Simulate(ctx context.Context, tree *assembly.Tree, cfg scheduler.Config, reqs []scheduler.Request, opts Options) (*Trace, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	rec := &events.Recorder{}
	sc := scene.FromTree(tree)
	sched, err := scheduler.New(tree, sc, rec, cfg)
	if err != nil {
		return nil, err
	}

	hooks := observability.Playback()
	hooks.OnPlayStart(ctx, "simulate", opts.FrameRate)
	start := time.Now()

	trace := &Trace{Step: opts.Step()}
	for _, r := range reqs {
		trace.Requests = append(trace.Requests, Describe(r))
		_, err := sched.Start(r)
		hooks.OnRequestSubmitted(ctx, r.Sign.String(), len(r.Scope), err)
		if err != nil {
			opts.Logger.Warn("request not fully accepted", "request", Describe(r), "err", err)
			trace.Errors = append(trace.Errors, err.Error())
		}
	}

	var runErr error
	for sched.Running() {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if trace.Ticks >= opts.MaxTicks {
			runErr = errors.New(errors.ErrCodeStalled, "scheduler still running after %d ticks", opts.MaxTicks)
			break
		}
		if err := sched.Tick(opts.Step()); err != nil {
			trace.Errors = append(trace.Errors, err.Error())
		}
		trace.Ticks++
		if trace.Ticks%opts.SampleEvery == 0 || !sched.Running() {
			trace.Frames = append(trace.Frames, snapshot(tree, trace.Ticks))
		}
	}

	trace.Events = rec.Records(start)
	trace.Final = offsets(tree)
	trace.Positions = sc.Snapshot()

	hooks.OnPlayComplete(ctx, "simulate", trace.Ticks, time.Since(start), runErr)
	opts.Logger.Debug("simulation finished", "ticks", trace.Ticks, "events", len(trace.Events), "duration", time.Since(start))
	return trace, runErr
}

func snapshot(tree *assembly.Tree, tick int) Frame {
	f := Frame{Tick: tick, Offsets: make(map[string]float64)}
	for _, p := range tree.Parts() {
		if p.Offset != 0 {
			f.Offsets[p.Name] = p.Offset
		}
	}
	return f
}

func offsets(tree *assembly.Tree) map[string]float64 {
	out := make(map[string]float64, tree.Len())
	for _, p := range tree.Parts() {
		out[p.Name] = p.Offset
	}
	return out
}

// Apply sets the offsets of tree's parts to the trace's final offsets.
// Parts missing from the trace are left unchanged.
func (t *Trace) Apply(tree *assembly.Tree) {
	for name, off := range t.Final {
		if p, ok := tree.Lookup(name); ok {
			p.Offset = off
		}
	}
}

// Displaced returns the names of parts with a non-zero final offset, sorted.
func (t *Trace) Displaced() []string {
	var out []string
	for name, off := range t.Final {
		if off != 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
