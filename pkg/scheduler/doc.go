// Package scheduler animates exploded views of an [assembly.Tree].
//
// # Overview
//
// A [Scheduler] turns explosion and implosion requests into per-part motion.
// Each request selects a subset of parts (the explodable set), and every
// explodable part whose blockers have cleared far enough starts a progress
// task. Tasks advance once per [Scheduler.Tick]; when a part crosses its Min
// offset or reaches its boundary, the parts it blocks are re-evaluated and,
// if they now qualify, start moving within the same tick (the activation
// cascade). When nothing is left moving the request completes, every part
// returns to Idle and the next queued request starts automatically.
//
// # Requests
//
// Requests are served one at a time. A request submitted while another is
// running is appended to a FIFO queue; it never interrupts or reorders the
// active one:
//
//	s, _ := scheduler.New(tree, renderer, sink, scheduler.Config{Speed: 2})
//	s.Explode(1.0)              // starts immediately
//	s.ExplodeTarget(1.0, "lid") // queued behind the first
//	for s.Running() {
//		s.Tick(1.0 / 60)
//	}
//
// # Collaborators
//
// The scheduler never draws anything itself. Motion is delegated to a
// [Renderer] and lifecycle notifications go to an [EventSink]; both are
// injected at construction together with a [Config] value.
//
// # Modes
//
// [ModeConcurrent] (the default) animates every unblocked part at once.
// [ModeSerial] walks the hierarchy depth-first with a single cursor and
// animates one part at a time, ignoring blocking.
//
// # Concurrency
//
// Scheduler is single-threaded and cooperative: progress tasks are plain
// per-part state advanced by Tick, and the tick boundary is the only
// suspension point. A Scheduler is not safe for concurrent use.
package scheduler
