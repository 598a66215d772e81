// ABOUTME: Package documentation for the auto-connect orchestrator
// ABOUTME: Describes the run phases and the restore guarantee

// Package autoconnect walks a set of scanned networks, joining each
// one in turn with a shared password, measuring its throughput, and
// recording the outcome.
//
// A run moves through scanning, filtering, then a connect/test/record
// cycle per candidate, and always ends by restoring whatever the
// interface was connected to before the run began. The restore runs on
// its own bounded context so it happens even when the run's context is
// canceled mid-flight. Per-candidate failures never abort the run;
// only a failed restore makes the run itself fail.
package autoconnect
