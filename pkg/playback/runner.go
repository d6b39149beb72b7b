package playback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/explode/pkg/assembly"
	"github.com/matzehuels/explode/pkg/cache"
	"github.com/matzehuels/explode/pkg/loader"
	"github.com/matzehuels/explode/pkg/observability"
	"github.com/matzehuels/explode/pkg/scheduler"
)

// Runner runs simulations through a trace cache.
//
// The Runner is stateless except for the cache and logger, so multiple
// goroutines may share one as long as they simulate different trees.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// SimulateWithCacheInfo returns a cached trace when one exists for the same
// assembly, starting offsets, requests and configuration, and otherwise runs
// [Simulate] and stores the result. On a hit the trace's final offsets are
// applied to tree, so the tree ends in the same state either way. The second
// result reports a cache hit.
func (r *Runner) SimulateWithCacheInfo(ctx context.Context, tree *assembly.Tree, cfg scheduler.Config, reqs []scheduler.Request, opts Options) (*Trace, bool, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	key, err := r.TraceKey(tree, cfg, reqs, opts)
	if err != nil {
		return nil, false, err
	}

	hooks := observability.Cache()
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var cached Trace
			if err := json.Unmarshal(data, &cached); err == nil {
				hooks.OnCacheHit(ctx, "trace")
				cached.Apply(tree)
				r.Logger.Debug("trace cache hit", "ticks", cached.Ticks)
				return &cached, true, nil
			}
		} else if err != nil {
			r.Logger.Warn("trace cache read failed", "err", err)
		}
		hooks.OnCacheMiss(ctx, "trace")
	}

	trace, err := Simulate(ctx, tree, cfg, reqs, opts)
	if err != nil {
		return trace, false, err
	}

	ttl := opts.TTL
	if ttl == 0 {
		ttl = cache.TTLTrace
	}
	if data, err := json.Marshal(trace); err == nil {
		if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
			r.Logger.Warn("trace cache write failed", "err", err)
		} else {
			hooks.OnCacheSet(ctx, "trace", len(data))
		}
	}
	return trace, false, nil
}

// Simulate is a convenience wrapper that discards the cache hit info.
func (r *Runner) Simulate(ctx context.Context, tree *assembly.Tree, cfg scheduler.Config, reqs []scheduler.Request, opts Options) (*Trace, error) {
	trace, _, err := r.SimulateWithCacheInfo(ctx, tree, cfg, reqs, opts)
	return trace, err
}

// TraceKey computes the cache key of a simulation. Options must already
// have defaults applied.
func (r *Runner) TraceKey(tree *assembly.Tree, cfg scheduler.Config, reqs []scheduler.Request, opts Options) (string, error) {
	hash, err := StateHash(tree)
	if err != nil {
		return "", err
	}
	cfg.SetDefaults()
	keyOpts := cache.TraceKeyOpts{
		Speed:    cfg.Speed,
		Mode:     fmt.Sprintf("%s budget=%d queue=%d", cfg.Mode, cfg.TickBudget, cfg.MaxQueue),
		Step:     opts.Step(),
		MaxTicks: opts.MaxTicks,
	}
	for _, req := range reqs {
		keyOpts.Requests = append(keyOpts.Requests, Describe(req))
	}
	return r.Keyer.TraceKey(hash, keyOpts), nil
}

// StateHash hashes tree's static data together with its current offsets.
func StateHash(tree *assembly.Tree) (string, error) {
	canonical, err := loader.Canonical(tree)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	buf.Write(canonical)
	for _, p := range tree.Parts() {
		fmt.Fprintf(&buf, "%s=%g\n", p.Name, p.Offset)
	}
	return cache.Hash(buf.Bytes()), nil
}
