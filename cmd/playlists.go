package main

import (
	"context"

	"github.com/desertthunder/passtheaux/internal/models"
	"github.com/urfave/cli/v3"
)

// Playlists lists the user's Spotify playlists with optional limit.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")

	cred, err := r.credential(ctx, cmd)
	if err != nil {
		return err
	}

	r.logger.Infof("listing spotify playlists for %v", cred.SubjectID)

	playlists, err := r.ensureStreaming().UserPlaylists(ctx, cred)
	if err != nil {
		return err
	}

	if cmd.Bool("mixes") {
		mixes := playlists[:0]
		for _, pl := range playlists {
			if pl.IsMix() {
				mixes = append(mixes, pl)
			}
		}
		playlists = mixes
	}

	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}

	return r.render(cmd.String("format"), playlists)
}
