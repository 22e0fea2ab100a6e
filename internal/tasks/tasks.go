// package tasks implements the playlist generation pipeline.
//
// The core abstraction is PlaylistEngine, which turns a handful of listeners' history into a mood playlist.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/HTTP layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/passtheaux/internal/metrics"
	"github.com/desertthunder/passtheaux/internal/models"
	"github.com/desertthunder/passtheaux/internal/services"
	"github.com/desertthunder/passtheaux/internal/shared"
)

const (
	DefaultPageSize    = 25
	DefaultTrackCount  = 30
	DefaultConcurrency = 4
)

// Generator defines the playlist generation operations.
type Generator interface {
	// Aggregate fetches every facet of every user's history and merges them in user, then facet order.
	Aggregate(ctx context.Context, usernames []string) (*AggregateResult, error)

	// Curate asks the text generator for a mood-appropriate selection built from descriptors.
	Curate(ctx context.Context, descriptors []models.Descriptor, mood models.Mood) (*Curation, error)

	// Resolve maps curated entries to track IDs and then to URIs, skipping entries that cannot be resolved.
	Resolve(ctx context.Context, cred models.Credential, entries []string) (*Resolution, error)

	// Assemble creates the playlist and appends uris to it.
	Assemble(ctx context.Context, cred models.Credential, mood models.Mood, usernames []string, uris []string) (*Assembly, error)

	// Generate runs the full pipeline for one request.
	Generate(ctx context.Context, cred models.Credential, req models.Request, progress chan<- ProgressUpdate) (*RunResult, error)
}

// RunRecorder persists finished runs.
//
// Implemented by repositories.RunRepository.
type RunRecorder interface {
	SaveRun(ctx context.Context, run *models.Run) error
}

// EngineOpts configures a [PlaylistEngine]. Zero values fall back to defaults.
type EngineOpts struct {
	PageSize       int  // history entries per facet
	TrackCount     int  // tracks requested from the generator
	Concurrency    int  // concurrent upstream calls during fan-out
	StrictCuration bool // reject responses with the wrong count or numbering
	Dedupe         bool // drop repeated URIs before adding them
	Logger         *log.Logger
	Metrics        metrics.Recorder
	Recorder       RunRecorder // optional
}

// PlaylistEngine implements [Generator].
type PlaylistEngine struct {
	history   services.History
	generator services.TextGenerator
	streaming services.Streaming
	opts      EngineOpts
	logger    *log.Logger
	metrics   metrics.Recorder
	guard     *runGuard
}

// RunResult contains everything produced by one [PlaylistEngine.Generate] call.
//
// Step results are nil for steps that never ran.
type RunResult struct {
	Run        *models.Run
	Aggregate  *AggregateResult
	Curation   *Curation
	Resolution *Resolution
	Assembly   *Assembly
	Steps      []ProgressUpdate
}

// NewPlaylistEngine creates a new PlaylistEngine with the provided services.
func NewPlaylistEngine(history services.History, generator services.TextGenerator, streaming services.Streaming, opts EngineOpts) *PlaylistEngine {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.TrackCount <= 0 {
		opts.TrackCount = DefaultTrackCount
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}

	return &PlaylistEngine{
		history:   history,
		generator: generator,
		streaming: streaming,
		opts:      opts,
		logger:    logger,
		metrics:   rec,
		guard:     newRunGuard(),
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// emit records update on the result and forwards it to progress.
func (e *PlaylistEngine) emit(result *RunResult, progress chan<- ProgressUpdate, update ProgressUpdate) {
	result.Steps = append(result.Steps, update)
	e.sendProgress(progress, update)
}

// timed runs fn and records its duration under phase.
func (e *PlaylistEngine) timed(phase Phase, fn func() error) error {
	start := time.Now()
	err := fn()
	e.metrics.RecordStep(phase.String(), time.Since(start))
	return err
}

// degraded logs and counts an upstream failure that the pipeline absorbs.
func (e *PlaylistEngine) degraded(logger *log.Logger, phase Phase, err error, kv ...any) {
	e.metrics.RecordStepFailure(phase.String(), kindLabel(err))
	logger.Warn("step degraded", append([]any{"step", phase.String(), "err", err}, kv...)...)
}

// Generate performs the full pipeline: aggregate, curate, resolve IDs, resolve URIs, create playlist, add tracks.
//
// A dry run stops after resolution and never writes to the user's library.
// Only one run per subject may be in flight; a second concurrent call fails with [shared.ErrRunInProgress].
func (e *PlaylistEngine) Generate(ctx context.Context, cred models.Credential, req models.Request, progress chan<- ProgressUpdate) (*RunResult, error) {
	if e.history == nil || e.generator == nil || e.streaming == nil {
		return nil, fmt.Errorf("%w: pipeline services not initialized", shared.ErrServiceUnavailable)
	}
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	credErr := cred.Validate()
	if req.DryRun {
		credErr = cred.ValidateToken()
	}
	if credErr != nil {
		return nil, credErr
	}

	if cred.SubjectID != "" {
		if !e.guard.acquire(cred.SubjectID) {
			return nil, fmt.Errorf("%w for %s", shared.ErrRunInProgress, cred.SubjectID)
		}
		defer e.guard.release(cred.SubjectID)
	}

	run := &models.Run{
		ID:        shared.GenerateID(),
		SubjectID: cred.SubjectID,
		Mood:      req.Mood,
		Usernames: req.Usernames,
		DryRun:    req.DryRun,
		StartedAt: time.Now().UTC(),
	}
	result := &RunResult{Run: run}
	logger := shared.WithLogger(e.logger, "run", run.ID, "user", cred.SubjectID)
	logger.Info("starting run", "mood", req.Mood, "usernames", req.Usernames, "dry_run", req.DryRun)

	err := e.generate(ctx, logger, cred, req, result, progress)
	e.finish(ctx, logger, result, err)

	if err != nil {
		return result, err
	}
	return result, nil
}

func (e *PlaylistEngine) generate(ctx context.Context, logger *log.Logger, cred models.Credential, req models.Request, result *RunResult, progress chan<- ProgressUpdate) error {
	run := result.Run

	e.emit(result, progress, aggregateStartUpdate(req.Usernames))
	err := e.timed(PhaseAggregate, func() error {
		agg, err := e.aggregate(ctx, logger, req.Usernames)
		result.Aggregate = agg
		return err
	})
	if err != nil {
		return err
	}
	run.Candidates = len(result.Aggregate.Descriptors)
	e.metrics.RecordTracks("candidates", run.Candidates)
	e.emit(result, progress, aggregateDoneUpdate(result.Aggregate))
	if run.Candidates == 0 {
		return fmt.Errorf("%w for %v", shared.ErrNoCandidates, req.Usernames)
	}

	e.emit(result, progress, curateStartUpdate(req.Mood, e.opts.TrackCount))
	err = e.timed(PhaseCurate, func() error {
		cur, err := e.curate(ctx, logger, result.Aggregate.Descriptors, req.Mood)
		result.Curation = cur
		return err
	})
	if err != nil {
		return err
	}
	run.Curated = len(result.Curation.Entries)
	e.metrics.RecordTracks("curated", run.Curated)
	e.emit(result, progress, curateDoneUpdate(result.Curation))

	res := &Resolution{}
	result.Resolution = res
	err = e.timed(PhaseResolveIDs, func() error {
		return e.resolveIDs(ctx, logger, cred, result.Curation.Entries, res, progress)
	})
	if err != nil {
		return err
	}
	e.emit(result, progress, resolveIDsDoneUpdate(len(res.ids), len(result.Curation.Entries)))

	err = e.timed(PhaseResolveURIs, func() error {
		return e.resolveURIs(ctx, logger, cred, res, progress)
	})
	if err != nil {
		return err
	}
	run.Resolved = len(res.Items)
	run.Tracks = res.runTracks()
	e.metrics.RecordTracks("resolved", run.Resolved)
	e.emit(result, progress, resolveURIsDoneUpdate(run.Resolved, len(res.ids)))

	if run.Resolved == 0 {
		return shared.ErrNoTracksResolved
	}
	if req.DryRun {
		e.emit(result, progress, dryRunUpdate(run.Resolved))
		return nil
	}

	asm := &Assembly{}
	result.Assembly = asm
	e.emit(result, progress, createStartUpdate(req.Mood))
	err = e.timed(PhaseCreatePlaylist, func() error {
		return e.createPlaylist(ctx, logger, cred, req.Mood, req.Usernames, asm)
	})
	if err != nil {
		return err
	}
	run.PlaylistID = asm.Playlist.ID
	run.PlaylistURL = asm.Playlist.URL
	e.emit(result, progress, createDoneUpdate(asm.Playlist))

	err = e.timed(PhaseAddTracks, func() error {
		return e.addTracks(ctx, logger, cred, res.URIs(), asm)
	})
	if err != nil {
		return err
	}
	run.Added = asm.Added
	e.metrics.RecordTracks("added", run.Added)
	e.emit(result, progress, addTracksDoneUpdate(asm))
	return nil
}

// finish stamps the run's outcome, records metrics and hands the run to the recorder.
// Runs without a subject ID, only possible for dry runs, are not recorded.
func (e *PlaylistEngine) finish(ctx context.Context, logger *log.Logger, result *RunResult, err error) {
	run := result.Run
	now := time.Now().UTC()
	run.FinishedAt = &now

	switch {
	case err == nil && run.DryRun:
		run.Status = models.RunDryRun
	case err == nil:
		run.Status = models.RunSucceeded
	case errors.Is(err, shared.ErrAddTracks):
		run.Status = models.RunPartial
	default:
		run.Status = models.RunFailed
	}
	if err != nil {
		run.Error = err.Error()
		logger.Error("run failed", "status", run.Status, "err", err)
	} else {
		logger.Info("run finished", "status", run.Status, "playlist", run.PlaylistID, "added", run.Added)
	}

	e.metrics.RecordRun(string(run.Status), now.Sub(run.StartedAt))

	if e.opts.Recorder == nil {
		return
	}
	// History is keyed by subject, so an anonymous dry run has nowhere to go.
	if run.SubjectID == "" {
		logger.Info("run not recorded", "reason", "no subject id")
		return
	}
	if recErr := e.opts.Recorder.SaveRun(context.WithoutCancel(ctx), run); recErr != nil {
		logger.Warn("failed to record run", "err", recErr)
	}
}

// kindLabel names err's failure kind, or "error" for anything that is not a service failure.
func kindLabel(err error) string {
	if k := services.KindOf(err); k != 0 {
		return k.String()
	}
	return "error"
}

// runGuard tracks which subjects have a run in flight.
type runGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newRunGuard() *runGuard {
	return &runGuard{active: make(map[string]struct{})}
}

func (g *runGuard) acquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[key]; busy {
		return false
	}
	g.active[key] = struct{}{}
	return true
}

func (g *runGuard) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, key)
}
