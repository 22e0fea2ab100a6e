package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/passtheaux/internal/models"
	"github.com/desertthunder/passtheaux/internal/shared"
)

// Assembly is the playlist that was created and what was added to it.
type Assembly struct {
	Playlist   *models.Playlist
	SnapshotID string
	Added      int
	Dropped    int   // duplicate URIs removed when dedupe is enabled
	AddErr     error // set when the playlist exists but adding tracks failed
}

// Assemble implements [Generator].
//
// A create failure is returned without touching the playlist's tracks.
// An append failure leaves the created playlist in place and is returned alongside the assembly.
func (e *PlaylistEngine) Assemble(ctx context.Context, cred models.Credential, mood models.Mood, usernames []string, uris []string) (*Assembly, error) {
	if len(uris) == 0 {
		return nil, shared.ErrNoTracksResolved
	}

	asm := &Assembly{}
	if err := e.createPlaylist(ctx, e.logger, cred, mood, usernames, asm); err != nil {
		return nil, err
	}
	if err := e.addTracks(ctx, e.logger, cred, uris, asm); err != nil {
		return asm, err
	}
	return asm, nil
}

func (e *PlaylistEngine) createPlaylist(ctx context.Context, logger *log.Logger, cred models.Credential, mood models.Mood, usernames []string, asm *Assembly) error {
	if err := cred.Validate(); err != nil {
		return err
	}

	name := mood.PlaylistName()
	playlist, err := e.streaming.CreatePlaylist(ctx, cred, name, models.PlaylistDescription(usernames), false)
	if err != nil {
		e.metrics.RecordStepFailure(PhaseCreatePlaylist.String(), kindLabel(err))
		return fmt.Errorf("%w: %w", shared.ErrCreatePlaylist, err)
	}

	asm.Playlist = playlist
	logger.Info("playlist created", "playlist", playlist.ID, "name", playlist.Name)
	return nil
}

func (e *PlaylistEngine) addTracks(ctx context.Context, logger *log.Logger, cred models.Credential, uris []string, asm *Assembly) error {
	if e.opts.Dedupe {
		deduped := dedupe(uris)
		asm.Dropped = len(uris) - len(deduped)
		uris = deduped
	}

	snapshot, err := e.streaming.AddItems(ctx, cred, asm.Playlist.ID, 0, uris)
	if err != nil {
		e.metrics.RecordStepFailure(PhaseAddTracks.String(), kindLabel(err))
		asm.AddErr = err
		logger.Error("failed to add tracks", "playlist", asm.Playlist.ID, "err", err)
		return fmt.Errorf("%w: playlist %s: %w", shared.ErrAddTracks, asm.Playlist.ID, err)
	}

	asm.SnapshotID = snapshot
	asm.Added = len(uris)
	asm.Playlist.TrackCount = len(uris)
	return nil
}

// dedupe keeps the first occurrence of each URI.
func dedupe(uris []string) []string {
	seen := make(map[string]struct{}, len(uris))
	out := make([]string, 0, len(uris))
	for _, uri := range uris {
		if _, ok := seen[uri]; ok {
			continue
		}
		seen[uri] = struct{}{}
		out = append(out, uri)
	}
	return out
}
