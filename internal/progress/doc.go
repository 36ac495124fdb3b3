// Package progress carries per-CID lifecycle events from the run executor to
// display sinks. Emit never blocks the executor; a single background goroutine
// drains the buffer and hands whatever has queued to each sink.
package progress
