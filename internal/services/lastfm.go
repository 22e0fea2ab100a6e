// Last.fm implementation of [History]
//
// Response shapes follow https://www.last.fm/api/show/user.getTopTracks and its siblings.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/passtheaux/internal/models"
	"github.com/desertthunder/passtheaux/internal/shared"
)

const lastfmBaseURL = "https://ws.audioscrobbler.com/2.0/"

// Last.fm in-body error codes
const (
	lastfmInvalidParameters = 6
	lastfmInvalidAPIKey     = 10
	lastfmServiceOffline    = 11
	lastfmSuspendedAPIKey   = 26
	lastfmRateLimited       = 29
)

// LastFMArtist covers both artist shapes: {"name"} on top and loved tracks, {"#text"} on recent tracks.
type LastFMArtist struct {
	Name string `json:"name"`
	Text string `json:"#text"`
}

// Display returns whichever artist name field is set.
func (a LastFMArtist) Display() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Text
}

// LastFMTrack represents a track entry in any of the user track lists.
type LastFMTrack struct {
	Name   string       `json:"name"`
	Artist LastFMArtist `json:"artist"`
}

// LastFMTrackList holds the "track" array of a list response.
type LastFMTrackList struct {
	Track []LastFMTrack `json:"track"`
}

// UnmarshalJSON accepts a single object where an array is expected, as Last.fm returns for one-item lists.
func (l *LastFMTrackList) UnmarshalJSON(data []byte) error {
	var raw struct {
		Track json.RawMessage `json:"track"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	trimmed := bytes.TrimSpace(raw.Track)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		l.Track = nil
		return nil
	case trimmed[0] == '{':
		var one LastFMTrack
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return err
		}
		l.Track = []LastFMTrack{one}
		return nil
	default:
		return json.Unmarshal(trimmed, &l.Track)
	}
}

type lastfmResponse struct {
	TopTracks    *LastFMTrackList `json:"toptracks"`
	LovedTracks  *LastFMTrackList `json:"lovedtracks"`
	RecentTracks *LastFMTrackList `json:"recenttracks"`
	Error        int              `json:"error"`
	Message      string           `json:"message"`
}

func (r *lastfmResponse) list(facet models.Facet) *LastFMTrackList {
	switch facet {
	case models.TopTracks:
		return r.TopTracks
	case models.LovedTracks:
		return r.LovedTracks
	case models.RecentTracks:
		return r.RecentTracks
	default:
		return nil
	}
}

// LastFMService implements [History] against the Last.fm web service.
type LastFMService struct {
	apiKey string
	client *apiClient
}

// NewLastFMService creates a Last.fm client; an API key is required.
func NewLastFMService(apiKey string, opts Options) (*LastFMService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: last.fm api key", shared.ErrMissingCredentials)
	}
	return &LastFMService{apiKey: apiKey, client: newAPIClient("lastfm", lastfmBaseURL, opts)}, nil
}

// Facet implements [History].
func (s *LastFMService) Facet(ctx context.Context, username string, facet models.Facet, limit int) ([]models.Descriptor, error) {
	op := "lastfm." + facet.String()
	if facet.Method() == "" {
		return nil, fmt.Errorf("%w: facet %d", shared.ErrInvalidArgument, int(facet))
	}

	params := url.Values{}
	params.Set("method", facet.Method())
	params.Set("user", username)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("api_key", s.apiKey)
	params.Set("format", "json")

	endpoint := s.client.baseURL
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	req, err := s.client.newRequest(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	status, body, err := s.client.fetch(op, req, false)
	if err != nil {
		return nil, err
	}

	var resp lastfmResponse
	decodeErr := json.Unmarshal(body, &resp)
	if decodeErr == nil && resp.Error != 0 {
		return nil, lastfmFailure(op, status, resp.Error, resp.Message)
	}
	if status < 200 || status >= 300 {
		return nil, statusFailure(op, status, errorDetail(body))
	}
	if decodeErr != nil {
		return nil, malformed(op, "failed to decode response: %w", decodeErr)
	}

	list := resp.list(facet)
	if list == nil {
		return nil, malformed(op, "missing %s list", facet)
	}

	descriptors := make([]models.Descriptor, 0, len(list.Track))
	for _, t := range list.Track {
		artist := strings.TrimSpace(t.Artist.Display())
		title := strings.TrimSpace(t.Name)
		if title == "" || artist == "" {
			continue
		}
		descriptors = append(descriptors, models.NewDescriptor(title, artist, username))
		if limit > 0 && len(descriptors) == limit {
			break
		}
	}
	return descriptors, nil
}

func lastfmFailure(op string, status, code int, message string) *Failure {
	f := &Failure{Op: op, Status: status, Err: fmt.Errorf("last.fm error %d: %s", code, message)}
	switch code {
	case lastfmInvalidParameters:
		f.Kind = KindNotFound
		f.Err = fmt.Errorf("%w: %s", shared.ErrUserNotFound, message)
	case lastfmInvalidAPIKey, lastfmSuspendedAPIKey:
		f.Kind = KindCredential
	case lastfmRateLimited:
		f.Kind = KindRateLimited
	case lastfmServiceOffline:
		f.Kind = KindTransport
	default:
		f.Kind = KindStatus
	}
	return f
}
