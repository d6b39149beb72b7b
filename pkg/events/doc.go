// Package events provides [scheduler.EventSink] implementations.
//
// Scheduler notifications are fire-and-forget: the scheduler calls Notify
// synchronously from inside Start and Tick and never looks at the outcome.
// Sinks in this package therefore never block on I/O:
//
//   - [Recorder] keeps every event in memory (tests, traces, status pages)
//   - [LogSink] writes one structured log line per event
//   - [Multi] fans one event out to several sinks
//
// [Record] is the serializable form used by the trace files and by the
// MongoDB archive in the mongosink subpackage.
package events
