// Package services implements the HTTP clients for the three external services the playlist pipeline talks to.
//
// # Interfaces
//
//   - [History] : scrobble history, implemented by [LastFMService]
//   - [TextGenerator] : free-text generation, implemented by [CohereService] and [OllamaService]
//   - [Streaming] : track search and playlist writes, implemented by [SpotifyService]
//
// [NewTextGenerator] picks the generator named by the config's provider field.
//
// # Credentials
//
// Streaming calls take a [models.Credential] argument rather than holding a session.
// The credential's [oauth2.Token] sets the Authorization header; an empty or expired token fails before any request is sent.
//
// # Transport
//
// All clients share one request helper which:
//   - retries transport errors, 429 and 5xx responses with exponential backoff, honouring Retry-After
//   - paces requests with a [rate.Limiter] when [Options.RateLimit] is set (used for Spotify)
//   - applies a per-request timeout from [Options.Timeout]
//
// # Error Handling
//
// Every client returns a [*Failure] carrying a [Kind], the operation name and the HTTP status.
// Failures unwrap to the shared sentinels:
//   - [KindCredential] : [shared.ErrNotAuthenticated]
//   - [KindStatus] : [shared.ErrAPIRequest]
//   - [KindTransport] : [shared.ErrServiceUnavailable]
//   - [KindMalformed] : [shared.ErrMalformedResponse]
//   - [KindRateLimited] : [shared.ErrRateLimited]
//
// [KindNotFound] carries a specific sentinel instead, such as [shared.ErrTrackNotFound] or [shared.ErrUserNotFound].
// Use [IsKind] to branch on the kind.
package services
