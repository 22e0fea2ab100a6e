package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/passtheaux/internal/models"
	"github.com/desertthunder/passtheaux/internal/services"
	"github.com/desertthunder/passtheaux/internal/shared"
)

type mockHistory struct {
	mu      sync.Mutex
	tracks  map[string]map[models.Facet][]models.Descriptor
	errs    map[string]error // keyed by username
	calls   int
	lastLim int
}

func (m *mockHistory) Facet(ctx context.Context, username string, facet models.Facet, limit int) ([]models.Descriptor, error) {
	m.mu.Lock()
	m.calls++
	m.lastLim = limit
	m.mu.Unlock()

	if err, ok := m.errs[username]; ok {
		return nil, err
	}
	return m.tracks[username][facet], nil
}

type mockGenerator struct {
	mu       sync.Mutex
	text     string
	err      error
	calls    int
	preamble string
	message  string
	started  chan struct{} // closed on first call when set
	block    chan struct{} // Generate waits on it when set
}

func (m *mockGenerator) Name() string { return "mock" }

func (m *mockGenerator) Generate(ctx context.Context, preamble, message string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.preamble, m.message = preamble, message
	if m.started != nil && m.calls == 1 {
		close(m.started)
	}
	m.mu.Unlock()

	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.text, m.err
}

type addCall struct {
	playlistID string
	position   int
	uris       []string
}

type mockStreaming struct {
	mu          sync.Mutex
	ids         map[string]string // query -> id
	searchErrs  map[string]error
	uris        map[string]string // id -> uri
	uriErrs     map[string]error
	createErr   error
	addErr      error
	searchCalls int
	uriCalls    int
	creates     []string
	adds        []addCall
}

func (m *mockStreaming) SearchTrack(ctx context.Context, cred models.Credential, query string) (string, error) {
	m.mu.Lock()
	m.searchCalls++
	m.mu.Unlock()

	if err, ok := m.searchErrs[query]; ok {
		return "", err
	}
	id, ok := m.ids[query]
	if !ok {
		return "", &services.Failure{Kind: services.KindNotFound, Op: "spotify.search", Err: shared.ErrTrackNotFound}
	}
	return id, nil
}

func (m *mockStreaming) TrackURI(ctx context.Context, cred models.Credential, trackID string) (string, error) {
	m.mu.Lock()
	m.uriCalls++
	m.mu.Unlock()

	if err, ok := m.uriErrs[trackID]; ok {
		return "", err
	}
	uri, ok := m.uris[trackID]
	if !ok {
		return "", &services.Failure{Kind: services.KindNotFound, Op: "spotify.track", Status: 404}
	}
	return uri, nil
}

func (m *mockStreaming) CreatePlaylist(ctx context.Context, cred models.Credential, name, description string, public bool) (*models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates = append(m.creates, name)
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.Playlist{ID: "pl1", Name: name, Description: description, Public: public, URL: "https://open.spotify.com/playlist/pl1"}, nil
}

func (m *mockStreaming) AddItems(ctx context.Context, cred models.Credential, playlistID string, position int, uris []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adds = append(m.adds, addCall{playlistID: playlistID, position: position, uris: append([]string(nil), uris...)})
	if m.addErr != nil {
		return "", m.addErr
	}
	return "snap1", nil
}

func (m *mockStreaming) UserPlaylists(ctx context.Context, cred models.Credential) ([]models.Playlist, error) {
	return nil, nil
}

func (m *mockStreaming) CurrentUser(ctx context.Context, cred models.Credential) (*services.SpotifyUser, error) {
	return &services.SpotifyUser{ID: cred.SubjectID}, nil
}

type mockRecorder struct {
	mu   sync.Mutex
	runs []*models.Run
	err  error
}

func (m *mockRecorder) SaveRun(ctx context.Context, run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return m.err
}

func descriptors(user string, n int) []models.Descriptor {
	out := make([]models.Descriptor, n)
	for i := range out {
		out[i] = models.NewDescriptor(fmt.Sprintf("Song %d", i+1), fmt.Sprintf("Artist %d", i+1), user)
	}
	return out
}

var testCred = models.Credential{SubjectID: "user_1", AccessToken: "token"}
