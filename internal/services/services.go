// package services defines the external service clients used by the playlist pipeline
//
// Last.fm (history), Cohere or Ollama (text generation), Spotify (streaming)
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/passtheaux/internal/models"
	"github.com/desertthunder/passtheaux/internal/shared"
)

// History reads a listener's scrobble history.
type History interface {
	// Facet returns up to limit descriptors for one facet of username's history, tagged with the username.
	Facet(ctx context.Context, username string, facet models.Facet, limit int) ([]models.Descriptor, error)
}

// TextGenerator produces free text from a system preamble and a user message.
type TextGenerator interface {
	Generate(ctx context.Context, preamble, message string) (string, error)

	// Name returns the provider name (e.g., "cohere", "ollama")
	Name() string
}

// Streaming is the subset of the streaming service API used to find tracks and build playlists.
//
// Every call takes the caller's credential explicitly.
type Streaming interface {
	// SearchTrack returns the ID of the first track matching query.
	SearchTrack(ctx context.Context, cred models.Credential, query string) (string, error)

	// TrackURI returns the playable URI of a track.
	TrackURI(ctx context.Context, cred models.Credential, trackID string) (string, error)

	// CreatePlaylist creates a playlist owned by cred.SubjectID.
	CreatePlaylist(ctx context.Context, cred models.Credential, name, description string, public bool) (*models.Playlist, error)

	// AddItems inserts uris starting at position and returns the resulting snapshot ID.
	AddItems(ctx context.Context, cred models.Credential, playlistID string, position int, uris []string) (string, error)

	// UserPlaylists lists every playlist of the current user.
	UserPlaylists(ctx context.Context, cred models.Credential) ([]models.Playlist, error)

	// CurrentUser returns the profile the token belongs to.
	CurrentUser(ctx context.Context, cred models.Credential) (*SpotifyUser, error)
}

// NewTextGenerator builds the generator selected by cfg.Provider.
func NewTextGenerator(cfg shared.GeneratorConfig, opts Options) (TextGenerator, error) {
	opts.BaseURL = cfg.BaseURL

	switch strings.ToLower(cfg.Provider) {
	case "", "cohere":
		return NewCohereService(cfg.APIKey, cfg.Model, opts)
	case "ollama":
		// cohere defaults from the example config don't apply to a local model
		model := cfg.Model
		if model == cohereDefaultModel {
			model = ""
		}
		if strings.TrimRight(opts.BaseURL, "/") == cohereBaseURL {
			opts.BaseURL = ""
		}
		return NewOllamaService(model, opts), nil
	default:
		return nil, fmt.Errorf("%w: unknown generator provider %q", shared.ErrInvalidConfig, cfg.Provider)
	}
}
