// Package server exposes the playlist pipeline as a small JSON HTTP service.
//
// # Routes
//
// [NewRouter] builds a chi router. Public routes are /health, /metrics and /api/moods.
// Everything else under /api sits behind [RequireCredential], which reads a bearer token from the
// Authorization header and resolves the subject from [SubjectHeader] or the streaming profile.
// The service never runs an OAuth flow; callers bring their own token.
//
// POST /api/generate runs [tasks.Generator.Generate] synchronously and answers with a
// [GenerateResponse] holding the recorded run, every progress step, skipped entries and degraded
// history calls. A run that created its playlist but failed to fill it still answers 200.
//
// # Errors
//
// Failures are written as [ErrorResponse]. Status codes follow the shared sentinel errors:
// invalid input is 400, credential problems 401, a concurrent run for the same subject 409,
// an empty pipeline 422 and upstream throttling 429.
//
// # Lifecycle
//
// [Server.Run] serves until its context is cancelled and then shuts down gracefully, letting
// in-flight runs finish and record.
package server
