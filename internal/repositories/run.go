package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/passtheaux/internal/models"
	"github.com/desertthunder/passtheaux/internal/shared"
)

const defaultListLimit = 20

// RunFilter narrows [RunRepository.List].
type RunFilter struct {
	SubjectID string
	Limit     int // defaults to 20
}

// RunRepository persists finished pipeline runs and their tracks.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// SaveRun inserts run and its tracks in one transaction, assigning a sequence number.
func (r *RunRepository) SaveRun(ctx context.Context, run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	usernames, err := json.Marshal(run.Usernames)
	if err != nil {
		return fmt.Errorf("failed to encode usernames: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO runs (id, sequence, subject_id, mood, usernames, playlist_id, playlist_url,
			candidates, curated, resolved, added, dry_run, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var finishedAt sql.NullTime
	if run.FinishedAt != nil {
		finishedAt = sql.NullTime{Time: *run.FinishedAt, Valid: true}
	}

	_, err = tx.ExecContext(ctx, query,
		run.ID,
		sequence,
		run.SubjectID,
		run.Mood.String(),
		string(usernames),
		run.PlaylistID,
		run.PlaylistURL,
		run.Candidates,
		run.Curated,
		run.Resolved,
		run.Added,
		run.DryRun,
		string(run.Status),
		run.Error,
		run.StartedAt,
		finishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, track := range run.Tracks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_tracks (run_id, position, descriptor, track_id, uri) VALUES (?, ?, ?, ?, ?)`,
			run.ID, track.Position, track.Descriptor, track.TrackID, track.URI,
		)
		if err != nil {
			return fmt.Errorf("failed to insert run track %d: %w", track.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	run.Sequence = sequence
	return nil
}

// Get retrieves a run by ID along with its tracks.
func (r *RunRepository) Get(ctx context.Context, id string) (*models.Run, error) {
	query := `
		SELECT id, sequence, subject_id, mood, usernames, playlist_id, playlist_url,
			candidates, curated, resolved, added, dry_run, status, error, started_at, finished_at
		FROM runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	tracks, err := r.tracks(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Tracks = tracks
	return run, nil
}

// List retrieves the most recent runs matching filter, newest first. Tracks are not loaded.
func (r *RunRepository) List(ctx context.Context, filter RunFilter) ([]*models.Run, error) {
	query := `
		SELECT id, sequence, subject_id, mood, usernames, playlist_id, playlist_url,
			candidates, curated, resolved, added, dry_run, status, error, started_at, finished_at
		FROM runs
	`

	args := []any{}
	if filter.SubjectID != "" {
		query += " WHERE subject_id = ?"
		args = append(args, filter.SubjectID)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += " ORDER BY sequence DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// Delete removes a run and its tracks.
func (r *RunRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_tracks WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete run tracks: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}

	return tx.Commit()
}

func (r *RunRepository) tracks(ctx context.Context, runID string) ([]models.RunTrack, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT position, descriptor, track_id, uri FROM run_tracks WHERE run_id = ? ORDER BY position ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query run tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.RunTrack
	for rows.Next() {
		var t models.RunTrack
		if err := rows.Scan(&t.Position, &t.Descriptor, &t.TrackID, &t.URI); err != nil {
			return nil, fmt.Errorf("failed to scan run track: %w", err)
		}
		tracks = append(tracks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a single row into a [models.Run]
func scanRun(row scanner) (*models.Run, error) {
	var (
		run        models.Run
		mood       string
		usernames  string
		status     string
		startedAt  time.Time
		finishedAt sql.NullTime
	)

	err := row.Scan(
		&run.ID, &run.Sequence, &run.SubjectID, &mood, &usernames, &run.PlaylistID, &run.PlaylistURL,
		&run.Candidates, &run.Curated, &run.Resolved, &run.Added, &run.DryRun, &status, &run.Error,
		&startedAt, &finishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	parsed, err := models.ParseMood(mood)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(usernames), &run.Usernames); err != nil {
		return nil, fmt.Errorf("run %s: failed to decode usernames: %w", run.ID, err)
	}

	run.Mood = parsed
	run.Status = models.RunStatus(status)
	run.StartedAt = startedAt
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	return &run, nil
}
