package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrRateLimited        = fmt.Errorf("rate limited")
	ErrMalformedResponse  = fmt.Errorf("malformed response")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")
	ErrUserNotFound       = fmt.Errorf("user not found")

	// Pipeline errors
	ErrRunInProgress    = fmt.Errorf("a playlist run is already in progress")
	ErrNoCandidates     = fmt.Errorf("no listening history found")
	ErrEmptyCuration    = fmt.Errorf("curation returned no tracks")
	ErrCurationShape    = fmt.Errorf("curation response has unexpected shape")
	ErrNoTracksResolved = fmt.Errorf("no curated tracks could be resolved")
	ErrCreatePlaylist   = fmt.Errorf("failed to create playlist")
	ErrAddTracks        = fmt.Errorf("failed to add tracks to playlist")
	ErrRunNotFound      = fmt.Errorf("run not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidMood     = fmt.Errorf("unknown mood")
	ErrTooManyUsers    = fmt.Errorf("too many usernames")
)
