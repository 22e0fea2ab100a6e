package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/passtheaux/internal/formatter"
	"github.com/desertthunder/passtheaux/internal/repositories"
	"github.com/desertthunder/passtheaux/internal/shared"
	"github.com/urfave/cli/v3"
)

// HistoryList prints recent runs, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	runs, err := r.openStore(ctx)
	if err != nil {
		return err
	}

	list, err := runs.List(ctx, repositories.RunFilter{
		SubjectID: cmd.String("user"),
		Limit:     cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	if len(list) == 0 && cmd.String("format") == "text" {
		return r.writePlain("No runs recorded yet.\n")
	}
	return r.render(cmd.String("format"), list)
}

// HistoryShow prints one run with its tracks and optionally exports it.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("%w: run id", shared.ErrMissingArgument)
	}

	runs, err := r.openStore(ctx)
	if err != nil {
		return err
	}

	run, err := runs.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := r.render(cmd.String("format"), run); err != nil {
		return err
	}

	if base := cmd.String("export"); base != "" {
		result, err := formatter.WriteRunExport(run, base)
		if err != nil {
			return err
		}
		r.logger.Info("exported run", "tracks", result.TracksFile, "summary", result.RunFile)
	}
	return nil
}

// HistoryDelete removes a run and its tracks.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("%w: run id", shared.ErrMissingArgument)
	}

	runs, err := r.openStore(ctx)
	if err != nil {
		return err
	}

	if err := runs.Delete(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted run %s\n", id)
}
