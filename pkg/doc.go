// Package pkg provides the core libraries for explode, an exploded-view
// animation scheduler.
//
// # Overview
//
// An assembly is a tree of parts. Each part can slide along its own axis
// between a minimum and maximum offset, and parts constrain each other: a
// part blocks the parts it covers, attracts the parts it carries along, and
// drags its followers with it. The scheduler turns "explode these parts" and
// "implode everything" requests into per-tick motion that honors those
// relations.
//
// The typical data flow:
//
//	TOML/YAML/JSON assembly file
//	         ↓
//	    [loader] package (decode, link relations, propagate blocking)
//	         ↓
//	    [assembly] package (part tree + constraints)
//	         ↓
//	    [scheduler] package (requests → per-tick offsets)
//	         ↓
//	    [scene] package (handle positions)
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/explode/pkg/loader"
//	    "github.com/matzehuels/explode/pkg/scene"
//	    "github.com/matzehuels/explode/pkg/scheduler"
//	)
//
//	res, _ := loader.Load("gearbox.toml", loader.Options{})
//	sched, _ := scheduler.New(res.Tree, scene.FromTree(res.Tree), nil, scheduler.Config{})
//	sched.Explode(1)
//	for sched.Running() {
//	    sched.Tick(1.0 / 60)
//	}
//
// # Main Packages
//
// [assembly] - Parts, handles and the part tree with its blocking, attraction
// and follower relations.
//
// [scheduler] - The request queue, concurrent and serial selection, and the
// per-tick progress of forward and backward requests.
//
// [playback] - Offline simulation into cached traces, and a real-time driver
// that ticks a scheduler at a fixed frame rate.
//
// [events] - Recording and fan-out of scheduler lifecycle events;
// [events/mongosink] archives them in MongoDB.
//
// [render/nodelink] - Graphviz diagrams of the part tree and its relations.
//
// ## Infrastructure
//
// [cache] - Trace and render caching with file, Redis and no-op backends.
//
// [errors] - Coded errors shared by the CLI and the HTTP server.
//
// [observability] - Hooks for playback, cache and HTTP activity.
//
// [assembly]: https://pkg.go.dev/github.com/matzehuels/explode/pkg/assembly
// [scheduler]: https://pkg.go.dev/github.com/matzehuels/explode/pkg/scheduler
// [loader]: https://pkg.go.dev/github.com/matzehuels/explode/pkg/loader
// [scene]: https://pkg.go.dev/github.com/matzehuels/explode/pkg/scene
// [playback]: https://pkg.go.dev/github.com/matzehuels/explode/pkg/playback
// [events]: https://pkg.go.dev/github.com/matzehuels/explode/pkg/events
// [events/mongosink]: https://pkg.go.dev/github.com/matzehuels/explode/pkg/events/mongosink
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/explode/pkg/render/nodelink
// [cache]: https://pkg.go.dev/github.com/matzehuels/explode/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/explode/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/explode/pkg/observability
package pkg
