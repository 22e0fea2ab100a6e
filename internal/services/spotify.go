// Spotify Web API implementation of [Streaming]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/passtheaux/internal/models"
	"github.com/desertthunder/passtheaux/internal/shared"
)

const (
	spotifyBaseURL = "https://api.spotify.com/v1"

	// maxItemsPerRequest is the most URIs the add-items endpoint accepts at once.
	maxItemsPerRequest = 100
	playlistPageSize   = 50
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

// SpotifyArtist represents a simplified artist object.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	URI     string          `json:"uri"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// Owner is the owner of a playlist.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracks struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists and create responses).
type SpotifySimplePlaylist struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Owner        Owner          `json:"owner"`
	Public       bool           `json:"public"`
	Tracks       playlistTracks `json:"tracks"`
	URI          string         `json:"uri"`
	ExternalURLs externalURLs   `json:"external_urls"`
}

// ToModel converts the playlist to [models.Playlist].
func (p SpotifySimplePlaylist) ToModel() models.Playlist {
	return models.Playlist{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		URI:         p.URI,
		URL:         p.ExternalURLs.Spotify,
		Owner:       p.Owner.ID,
		TrackCount:  p.Tracks.Total,
		Public:      p.Public,
	}
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifySimplePlaylist `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
	Next   *string                 `json:"next"`
}

type spotifySearchResponse struct {
	Tracks *struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

type addItemsRequest struct {
	URIs     []string `json:"uris"`
	Position int      `json:"position"`
}

type snapshotResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

// SpotifyService implements [Streaming] for the Spotify Web API.
//
// Requests are paced by a shared limiter and carry the caller's bearer token.
type SpotifyService struct {
	client *apiClient
}

// NewSpotifyService creates a Spotify client.
func NewSpotifyService(opts Options) *SpotifyService {
	return &SpotifyService{client: newAPIClient("spotify", spotifyBaseURL, opts)}
}

// Name returns the name of the service.
func (s *SpotifyService) Name() string { return "Spotify" }

// doRequest performs an authenticated request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, op string, cred models.Credential, method, endpoint string, body, result any) error {
	if err := cred.ValidateToken(); err != nil {
		return credentialFailure(op, err)
	}

	req, err := s.client.newRequest(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	cred.Token().SetAuthHeader(req)

	if method != http.MethodGet {
		return s.client.doWrite(op, req, result)
	}
	return s.client.doJSON(op, req, result)
}

// SearchTrack implements [Streaming]; a search with no results is a [KindNotFound] failure.
func (s *SpotifyService) SearchTrack(ctx context.Context, cred models.Credential, query string) (string, error) {
	const op = "spotify.search"

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", "1")
	params.Set("offset", "0")

	var resp spotifySearchResponse
	if err := s.doRequest(ctx, op, cred, http.MethodGet, "/search?"+params.Encode(), nil, &resp); err != nil {
		return "", err
	}
	if resp.Tracks == nil {
		return "", malformed(op, "response has no tracks")
	}
	if len(resp.Tracks.Items) == 0 || resp.Tracks.Items[0].ID == "" {
		return "", &Failure{Kind: KindNotFound, Op: op, Err: fmt.Errorf("%w: %q", shared.ErrTrackNotFound, query)}
	}
	return resp.Tracks.Items[0].ID, nil
}

// TrackURI implements [Streaming].
func (s *SpotifyService) TrackURI(ctx context.Context, cred models.Credential, trackID string) (string, error) {
	const op = "spotify.track"

	var track SpotifyTrack
	if err := s.doRequest(ctx, op, cred, http.MethodGet, "/tracks/"+url.PathEscape(trackID), nil, &track); err != nil {
		return "", err
	}
	if track.URI == "" {
		return "", malformed(op, "track %s has no uri", trackID)
	}
	return track.URI, nil
}

// CreatePlaylist implements [Streaming]. Both the subject ID and token are required.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, cred models.Credential, name, description string, public bool) (*models.Playlist, error) {
	const op = "spotify.create_playlist"
	if err := cred.Validate(); err != nil {
		return nil, credentialFailure(op, err)
	}

	payload := createPlaylistRequest{Name: name, Description: description, Public: public}
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(cred.SubjectID))

	var created SpotifySimplePlaylist
	if err := s.doRequest(ctx, op, cred, http.MethodPost, endpoint, payload, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, malformed(op, "created playlist has no id")
	}

	playlist := created.ToModel()
	return &playlist, nil
}

// AddItems implements [Streaming].
//
// URIs are sent in batches of at most 100 at increasing positions so the final order matches the input.
func (s *SpotifyService) AddItems(ctx context.Context, cred models.Credential, playlistID string, position int, uris []string) (string, error) {
	const op = "spotify.add_items"
	if len(uris) == 0 {
		return "", fmt.Errorf("%w: no uris to add", shared.ErrInvalidArgument)
	}
	if position < 0 {
		return "", fmt.Errorf("%w: negative position %d", shared.ErrInvalidArgument, position)
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))

	var snapshot string
	for start := 0; start < len(uris); start += maxItemsPerRequest {
		end := min(start+maxItemsPerRequest, len(uris))

		var resp snapshotResponse
		payload := addItemsRequest{URIs: uris[start:end], Position: position + start}
		if err := s.doRequest(ctx, op, cred, http.MethodPost, endpoint, payload, &resp); err != nil {
			return snapshot, err
		}
		snapshot = resp.SnapshotID
	}
	return snapshot, nil
}

// UserPlaylists implements [Streaming], following "next" until it is null.
func (s *SpotifyService) UserPlaylists(ctx context.Context, cred models.Credential) ([]models.Playlist, error) {
	const op = "spotify.playlists"

	var playlists []models.Playlist
	endpoint := fmt.Sprintf("/me/playlists?limit=%d", playlistPageSize)

	for endpoint != "" {
		var page SpotifyPaginatedPlaylists
		if err := s.doRequest(ctx, op, cred, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			playlists = append(playlists, item.ToModel())
		}

		endpoint = ""
		if page.Next != nil {
			endpoint = *page.Next
		}
	}
	return playlists, nil
}

// CurrentUser implements [Streaming].
func (s *SpotifyService) CurrentUser(ctx context.Context, cred models.Credential) (*SpotifyUser, error) {
	const op = "spotify.me"

	var user SpotifyUser
	if err := s.doRequest(ctx, op, cred, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, malformed(op, "profile has no id")
	}
	return &user, nil
}
