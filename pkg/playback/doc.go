// Package playback drives a [scheduler.Scheduler] through time.
//
// Three entry points cover the ways the scheduler is run:
//
//   - [Simulate] ticks as fast as possible with a fixed step and returns a
//     [Trace] of part offsets and events, for the CLI and tests.
//   - [Runner] wraps Simulate with a content-addressed trace cache.
//   - [Driver] ticks in wall-clock time at the configured frame rate, either
//     until the scheduler goes idle ([Driver.Play]) or until the context is
//     cancelled ([Driver.Serve], used by the HTTP server).
//
// Every tick uses the same step of 1/FrameRate seconds regardless of wall
// clock jitter, so a realtime run and a simulation of the same requests end
// in the same state.
package playback
