package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/passtheaux/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the example config to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", r.configPath)
	r.writePlain("✓ Config written to %s\n", r.configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.lastfm.api_key and generator.api_key (or LASTFM_API_KEY / COHERE_API_KEY)\n")
	r.writePlain("2. Run 'aux setup database'\n")
	r.writePlain("3. Run 'aux generate --mood party --token $SPOTIFY_ACCESS_TOKEN alice bob'\n")
	return nil
}

// SetupDatabase initializes the database, runs pending migrations and prints each migration's status.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	if _, err := r.openStore(ctx); err != nil {
		return err
	}

	statuses, err := shared.MigrationStatuses(ctx, r.db)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
	for _, s := range statuses {
		if s.Applied() {
			r.writePlain("  %s  applied %s\n", s.Migration, s.AppliedAt.Format(time.DateTime))
		} else {
			r.writePlain("  %s  pending\n", s.Migration)
		}
	}
	return nil
}

// SetupRollback rolls back the most recent migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.openStore(ctx); err != nil {
		return err
	}

	m, err := shared.RollbackMigration(ctx, r.db)
	if err != nil {
		return fmt.Errorf("failed to roll back: %w", err)
	}

	r.logger.Info("rolled back migration", "migration", m.String())
	r.writePlain("✓ Rolled back %s\n", m)
	return nil
}
