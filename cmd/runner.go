package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/passtheaux/internal/formatter"
	"github.com/desertthunder/passtheaux/internal/metrics"
	"github.com/desertthunder/passtheaux/internal/models"
	"github.com/desertthunder/passtheaux/internal/repositories"
	"github.com/desertthunder/passtheaux/internal/services"
	"github.com/desertthunder/passtheaux/internal/shared"
	"github.com/desertthunder/passtheaux/internal/tasks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services are built from the config on first use so commands that never touch the network
// (moods, history) work without credentials.
type Runner struct {
	config      *shared.Config
	configPath  string
	configFixed bool
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer

	history   services.History
	generator services.TextGenerator
	streaming services.Streaming

	db       *sql.DB
	ownsDB   bool
	runs     *repositories.RunRepository
	registry *prometheus.Registry
	metrics  metrics.Recorder
	engine   *tasks.PlaylistEngine
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Any service left nil is built from the config when a command needs it.
type RunnerOpts struct {
	Config     *shared.Config // skips loading --config when set
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	History    services.History
	Generator  services.TextGenerator
	Streaming  services.Streaming
	DB         *sql.DB // migrated database for run history
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	configFixed := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		configFixed: configFixed,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		history:     opts.History,
		generator:   opts.Generator,
		streaming:   opts.Streaming,
		db:          opts.DB,
		registry:    registry,
		metrics:     metrics.NewCollector(registry),
	}
	if opts.DB != nil {
		r.runs = repositories.NewRunRepository(opts.DB)
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, generateCommand, moodsCommand, historyCommand, playlistsCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the config file named by --config and applies the log level.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}
	if err := r.loadConfig(); err != nil {
		return ctx, err
	}

	level := r.config.Log.Level
	if flag := cmd.String("log-level"); flag != "" {
		level = flag
	}
	if cmd.Bool("verbose") {
		level = "debug"
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))
	return ctx, nil
}

// After closes the database if the runner opened it.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	if r.ownsDB && r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Runner) loadConfig() error {
	if !r.configFixed && r.configPath != "" {
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return err
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
	}

	r.config.ApplyEnv()
	return r.config.Validate()
}

func (r *Runner) serviceOptions(baseURL string) services.Options {
	return services.Options{
		BaseURL:      baseURL,
		HTTPClient:   r.httpClient,
		Timeout:      r.config.HTTP.Timeout(),
		MaxRetries:   r.config.Pipeline.MaxRetries,
		RetryBackoff: r.config.Pipeline.RetryBackoff(),
		Logger:       r.logger,
	}
}

func (r *Runner) ensureStreaming() services.Streaming {
	if r.streaming == nil {
		opts := r.serviceOptions(r.config.Credentials.Spotify.BaseURL)
		opts.RateLimit = r.config.Pipeline.RateLimit
		r.streaming = services.NewSpotifyService(opts)
	}
	return r.streaming
}

// ensureEngine builds the pipeline and any services it still lacks.
func (r *Runner) ensureEngine(ctx context.Context) (*tasks.PlaylistEngine, error) {
	if r.engine != nil {
		return r.engine, nil
	}

	streaming := r.ensureStreaming()

	if r.history == nil {
		lastfm := r.config.Credentials.LastFM
		history, err := services.NewLastFMService(lastfm.APIKey, r.serviceOptions(lastfm.BaseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to create Last.fm service: %w", err)
		}
		r.history = history
	}

	if r.generator == nil {
		generator, err := services.NewTextGenerator(r.config.Generator, r.serviceOptions(""))
		if err != nil {
			return nil, fmt.Errorf("failed to create text generator: %w", err)
		}
		r.generator = generator
	}

	p := r.config.Pipeline
	opts := tasks.EngineOpts{
		PageSize:       p.PageSize,
		TrackCount:     p.TrackCount,
		Concurrency:    p.Concurrency,
		StrictCuration: p.StrictCuration,
		Dedupe:         p.Dedupe,
		Logger:         r.logger,
		Metrics:        r.metrics,
	}
	if runs, err := r.openStore(ctx); err != nil {
		r.logger.Warn("run history disabled", "err", err)
	} else {
		opts.Recorder = runs
	}

	r.engine = tasks.NewPlaylistEngine(r.history, r.generator, streaming, opts)
	r.logger.Debug("pipeline ready", "generator", r.generator.Name(), "tracks", p.TrackCount)
	return r.engine, nil
}

// openStore opens and migrates the run history database on first use.
func (r *Runner) openStore(ctx context.Context) (*repositories.RunRepository, error) {
	if r.runs != nil {
		return r.runs, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if r.config.Database.Path != ":memory:" {
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	}

	applied, err := shared.RunMigrations(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, m := range applied {
		r.logger.Info("applied migration", "migration", m.String())
	}

	r.db = db
	r.ownsDB = true
	r.runs = repositories.NewRunRepository(db)
	return r.runs, nil
}

// credential assembles the caller's Spotify credential from flags, then config.
//
// The subject is looked up from the token's profile when neither names one.
func (r *Runner) credential(ctx context.Context, cmd *cli.Command) (models.Credential, error) {
	spotify := r.config.Credentials.Spotify
	cred := models.Credential{
		AccessToken: firstNonEmpty(cmd.String("token"), spotify.AccessToken),
		SubjectID:   firstNonEmpty(cmd.String("user"), spotify.UserID),
	}

	if err := cred.ValidateToken(); err != nil {
		return cred, fmt.Errorf("%w (pass --token or set SPOTIFY_ACCESS_TOKEN)", err)
	}

	if cred.SubjectID == "" {
		user, err := r.ensureStreaming().CurrentUser(ctx, cred)
		if err != nil {
			return cred, fmt.Errorf("failed to look up Spotify user: %w", err)
		}
		cred.SubjectID = user.ID
		r.logger.Debug("resolved spotify user", "user", user.ID, "name", user.DisplayName)
	}
	return cred, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func (r *Runner) render(format string, v any) error {
	f, err := formatter.ParseFormat(format)
	if err != nil {
		return err
	}
	return formatter.Render(r.output, f, v)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
