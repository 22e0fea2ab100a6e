// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func (r *Runner) globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
			Sources: cli.EnvVars("AUX_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error); overrides the config file",
			Sources: cli.EnvVars("AUX_LOG_LEVEL"),
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Shorthand for --log-level debug",
		},
	}
}

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "token",
			Usage:   "Spotify access token (defaults to credentials.spotify.access_token)",
			Sources: cli.EnvVars("SPOTIFY_ACCESS_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "user",
			Usage:   "Spotify user ID the token belongs to (looked up when empty)",
			Sources: cli.EnvVars("SPOTIFY_USER_ID"),
		},
	}
}

func formatFlag(value string) cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text, json, yaml, csv or markdown",
		Value:   value,
	}
}

// setupCommand handles setup operations for the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example config.toml to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// generateCommand runs the full pipeline.
func generateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Aliases:   []string{"gen"},
		Usage:     "Generate a mood playlist from the listeners' Last.fm history",
		ArgsUsage: "<username> [username] [username]",
		Flags: append(credentialFlags(),
			&cli.StringFlag{
				Name:     "mood",
				Aliases:  []string{"m"},
				Usage:    "Mood: Party, Driving or Chill",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Resolve tracks without creating a playlist",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Hide progress updates",
			},
			formatFlag("text"),
		),
		Action: r.Generate,
	}
}

// moodsCommand lists the available moods.
func moodsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "moods",
		Usage:  "List the available moods",
		Flags:  []cli.Flag{formatFlag("text")},
		Action: r.Moods,
	}
}

// historyCommand reads the local run history.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show previously generated mixes",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent runs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "user",
						Usage: "Only runs for this Spotify user",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 20,
					},
					formatFlag("text"),
				},
				Action: r.HistoryList,
			},
			{
				Name:      "show",
				Usage:     "Show one run with its tracks",
				ArgsUsage: "<run-id>",
				Flags: []cli.Flag{
					formatFlag("text"),
					&cli.StringFlag{
						Name:  "export",
						Usage: "Also write {path}_tracks.csv and {path}_run.yaml",
					},
				},
				Action: r.HistoryShow,
			},
			{
				Name:      "delete",
				Usage:     "Delete a run from the local history",
				ArgsUsage: "<run-id>",
				Action:    r.HistoryDelete,
			},
		},
	}
}

// playlistsCommand lists the signed-in user's playlists.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List your Spotify playlists",
		Flags: append(credentialFlags(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of playlists to show",
			},
			&cli.BoolFlag{
				Name:  "mixes",
				Usage: "Only show playlists generated by this tool",
			},
			formatFlag("text"),
		),
		Action: r.Playlists,
	}
}

// serveCommand runs the HTTP service.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "Listen address (defaults to server.host:server.port)",
				Sources: cli.EnvVars("AUX_ADDR"),
			},
		},
		Action: r.Serve,
	}
}
