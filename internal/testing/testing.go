// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/desertthunder/passtheaux/internal/models"
	"github.com/desertthunder/passtheaux/internal/services"
	"github.com/desertthunder/passtheaux/internal/shared"
)

// MockHistory is a test double for [services.History].
//
// Descriptors are keyed by username; unknown users return Err.
type MockHistory struct {
	Descriptors map[string][]models.Descriptor
	Err         error
}

func (m *MockHistory) Facet(ctx context.Context, username string, facet models.Facet, limit int) ([]models.Descriptor, error) {
	d, ok := m.Descriptors[username]
	if !ok {
		return nil, m.Err
	}
	if len(d) > limit {
		d = d[:limit]
	}
	return d, nil
}

// MockTextGenerator is a test double for [services.TextGenerator] that always answers Response.
type MockTextGenerator struct {
	Response string
	Err      error
}

func (m *MockTextGenerator) Generate(ctx context.Context, preamble, message string) (string, error) {
	return m.Response, m.Err
}
func (m *MockTextGenerator) Name() string { return "mock" }

// MockStreaming is a test double for [services.Streaming].
//
// Every query resolves to an ID derived from its text unless listed in Missing.
type MockStreaming struct {
	User      services.SpotifyUser
	Playlists []models.Playlist
	Missing   map[string]bool
	Err       error

	Created []models.Playlist
	Added   []string
}

func (m *MockStreaming) SearchTrack(ctx context.Context, cred models.Credential, query string) (string, error) {
	if m.Missing[query] {
		return "", shared.ErrTrackNotFound
	}
	return "id-" + strings.ReplaceAll(strings.ToLower(query), " ", "-"), nil
}

func (m *MockStreaming) TrackURI(ctx context.Context, cred models.Credential, trackID string) (string, error) {
	return "spotify:track:" + trackID, nil
}

func (m *MockStreaming) CreatePlaylist(ctx context.Context, cred models.Credential, name, description string, public bool) (*models.Playlist, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	pl := models.Playlist{ID: fmt.Sprintf("pl%d", len(m.Created)+1), Name: name, Description: description, Public: public}
	m.Created = append(m.Created, pl)
	return &pl, nil
}

func (m *MockStreaming) AddItems(ctx context.Context, cred models.Credential, playlistID string, position int, uris []string) (string, error) {
	m.Added = append(m.Added, uris...)
	return "snapshot", nil
}

func (m *MockStreaming) UserPlaylists(ctx context.Context, cred models.Credential) ([]models.Playlist, error) {
	return m.Playlists, m.Err
}

func (m *MockStreaming) CurrentUser(ctx context.Context, cred models.Credential) (*services.SpotifyUser, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &m.User, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
