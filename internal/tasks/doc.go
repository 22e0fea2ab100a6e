// Package tasks orchestrates playlist generation with real-time progress reporting.
//
// # Pipeline
//
// [PlaylistEngine.Generate] runs the steps in order:
//
//  1. [PlaylistEngine.Aggregate] : top, loved and recent tracks for every username
//     - Fans out over users × facets with a bounded errgroup
//     - Merges in user order, then facet order, regardless of completion order
//     - A failing facet contributes nothing and is logged
//
//  2. [PlaylistEngine.Curate] : one text-generation call built from the mood's clause
//     - [ParseCuration] splits the reply on "*", trims and drops empty segments
//     - Count mismatches, list markers and duplicates are reported in [CurationShape]
//     - With StrictCuration set, a malformed shape fails the run
//
//  3. [PlaylistEngine.Resolve] : search each entry, then look up each found track's URI
//     - Misses and upstream errors skip the entry; order is preserved
//
//  4. [PlaylistEngine.Assemble] : create a private "<Mood> Mix" playlist, then add all URIs at position 0
//     - A create failure aborts; an add failure leaves the playlist and marks the run partial
//
// An empty aggregate, an empty curation or an empty resolution stops the run before any playlist is created.
// A rejected credential stops the run at whichever step sees it.
//
// # Concurrency
//
// One run per subject at a time; overlapping calls fail with [shared.ErrRunInProgress].
//
// # Progress Reporting
//
// Updates are sent with select/default so a slow reader never blocks a run.
// The same updates are collected on [RunResult.Steps].
//
// # Run History
//
// The optional [RunRecorder] receives every finished run, including failed ones.
package tasks
