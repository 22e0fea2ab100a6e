package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/passtheaux/internal/formatter"
	"github.com/desertthunder/passtheaux/internal/models"
	"github.com/desertthunder/passtheaux/internal/shared"
	"github.com/desertthunder/passtheaux/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Generate runs the pipeline for the listed usernames and prints the run.
//
// Progress goes to the logger so stdout stays parseable in json and yaml formats.
func (r *Runner) Generate(ctx context.Context, cmd *cli.Command) error {
	mood, err := models.ParseMood(cmd.String("mood"))
	if err != nil {
		return err
	}

	req := models.Request{
		Usernames: cmd.Args().Slice(),
		Mood:      mood,
		DryRun:    cmd.Bool("dry-run"),
	}
	if err := req.Normalize(); err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	engine, err := r.ensureEngine(ctx)
	if err != nil {
		return err
	}

	cred, err := r.credential(ctx, cmd)
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			if !cmd.Bool("quiet") {
				r.logger.Info(update.Message, "phase", update.Phase)
			}
		}
	}()

	result, err := engine.Generate(ctx, cred, req, progress)
	close(progress)
	<-done

	if result == nil {
		return err
	}

	if renderErr := r.writeResult(format, result); renderErr != nil {
		return renderErr
	}

	if errors.Is(err, shared.ErrAddTracks) {
		return fmt.Errorf("playlist %s was created but is incomplete: %w", result.Run.PlaylistID, err)
	}
	return err
}

func (r *Runner) writeResult(format formatter.Format, result *tasks.RunResult) error {
	if format != formatter.Text {
		return formatter.Render(r.output, format, result.Run)
	}

	r.writePlainHeader(result.Run.Mood.PlaylistName())
	if err := formatter.Render(r.output, format, result.Run); err != nil {
		return err
	}

	if result.Aggregate != nil {
		if degraded := result.Aggregate.Degraded(); len(degraded) > 0 {
			r.writePlainln("History calls that failed:")
			for _, f := range degraded {
				r.writePlain("  %s %s: %v\n", f.Username, f.Facet, f.Err)
			}
		}
	}

	if result.Resolution != nil && len(result.Resolution.Skipped) > 0 {
		r.writePlainln("Skipped %d curated tracks:", len(result.Resolution.Skipped))
		for _, s := range result.Resolution.Skipped {
			r.writePlain("  %d. %s (%s)\n", s.Position+1, s.Entry, s.Reason)
		}
	}

	if result.Run.PlaylistURL != "" {
		r.writePlainln("Open it: %s", result.Run.PlaylistURL)
	}
	return nil
}

// Moods lists the moods a playlist can be generated for.
func (r *Runner) Moods(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	type mood struct {
		Label        string `json:"label" yaml:"label"`
		PlaylistName string `json:"playlist_name" yaml:"playlist_name"`
		Description  string `json:"description" yaml:"description"`
	}

	moods := []mood{}
	for _, m := range models.Moods() {
		moods = append(moods, mood{Label: m.String(), PlaylistName: m.PlaylistName(), Description: m.Clause()})
	}

	switch format {
	case formatter.JSON, formatter.YAML:
		return formatter.Render(r.output, format, moods)
	}

	for _, m := range moods {
		if err := r.writePlain("%-8s %s\n", m.Label, m.Description); err != nil {
			return err
		}
	}
	return nil
}
