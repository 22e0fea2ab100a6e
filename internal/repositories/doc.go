// Package repositories implements SQLite persistence for run history.
//
// Key Implementations:
//   - [RunRepository] : finished pipeline runs plus the tracks each one resolved, newest first
//
// [RunRepository] satisfies tasks.RunRecorder so the pipeline can hand it every finished run, failures included.
//
// Sequence numbers provide stable, human-readable ordering independent of UUIDs and timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
