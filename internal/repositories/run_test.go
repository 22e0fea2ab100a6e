package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/passtheaux/internal/models"
	"github.com/desertthunder/passtheaux/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if _, err := shared.RunMigrations(t.Context(), db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func newTestRun(subject string) *models.Run {
	started := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	finished := started.Add(8 * time.Second)
	return &models.Run{
		ID:          shared.GenerateID(),
		SubjectID:   subject,
		Mood:        models.Chill,
		Usernames:   []string{"alice", "bob"},
		PlaylistID:  "pl1",
		PlaylistURL: "https://open.spotify.com/playlist/pl1",
		Candidates:  150,
		Curated:     30,
		Resolved:    2,
		Added:       2,
		Status:      models.RunSucceeded,
		StartedAt:   started,
		FinishedAt:  &finished,
		Tracks: []models.RunTrack{
			{Position: 0, Descriptor: "Song B ArtistB", TrackID: "id1", URI: "uri1"},
			{Position: 1, Descriptor: "Song C ArtistC", TrackID: "id2", URI: "uri2"},
		},
	}
}

func TestRunRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("SaveRun", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		first, second := newTestRun("user_1"), newTestRun("user_1")

		if err := repo.SaveRun(ctx, first); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
		if err := repo.SaveRun(ctx, second); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}

		if first.Sequence != 1 || second.Sequence != 2 {
			t.Errorf("expected sequences 1 and 2, got %d and %d", first.Sequence, second.Sequence)
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := newTestRun("user_1")
		if err := repo.SaveRun(ctx, run); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}

		got, err := repo.Get(ctx, run.ID)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}

		if got.Mood != models.Chill || got.Status != models.RunSucceeded || got.PlaylistID != "pl1" {
			t.Errorf("unexpected run %+v", got)
		}
		if len(got.Usernames) != 2 || got.Usernames[1] != "bob" {
			t.Errorf("unexpected usernames %v", got.Usernames)
		}
		if !got.StartedAt.Equal(run.StartedAt) || got.FinishedAt == nil || !got.FinishedAt.Equal(*run.FinishedAt) {
			t.Errorf("timestamps did not round trip: %v %v", got.StartedAt, got.FinishedAt)
		}
		if len(got.Tracks) != 2 || got.Tracks[1].URI != "uri2" {
			t.Errorf("unexpected tracks %+v", got.Tracks)
		}
	})

	t.Run("Failed run without tracks", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := &models.Run{
			ID:        shared.GenerateID(),
			SubjectID: "user_1",
			Mood:      models.Party,
			Usernames: []string{"alice"},
			Status:    models.RunFailed,
			Error:     "no listening history found",
			StartedAt: time.Now().UTC(),
		}
		if err := repo.SaveRun(ctx, run); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}

		got, err := repo.Get(ctx, run.ID)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.FinishedAt != nil || got.Error != run.Error || len(got.Tracks) != 0 {
			t.Errorf("unexpected run %+v", got)
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		var ids []string
		for _, subject := range []string{"user_1", "user_2", "user_1", "user_1"} {
			run := newTestRun(subject)
			if err := repo.SaveRun(ctx, run); err != nil {
				t.Fatalf("failed to save run: %v", err)
			}
			ids = append(ids, run.ID)
		}

		all, err := repo.List(ctx, RunFilter{})
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(all) != 4 || all[0].ID != ids[3] {
			t.Errorf("expected newest first, got %d runs", len(all))
		}

		mine, err := repo.List(ctx, RunFilter{SubjectID: "user_1", Limit: 2})
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(mine) != 2 || mine[0].ID != ids[3] || mine[1].ID != ids[2] {
			t.Errorf("unexpected filtered runs %+v", mine)
		}
		if mine[0].Tracks != nil {
			t.Error("List should not load tracks")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := newTestRun("user_1")
		if err := repo.SaveRun(ctx, run); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}

		if err := repo.Delete(ctx, run.ID); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM run_tracks WHERE run_id = ?", run.ID).Scan(&count); err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 0 {
			t.Errorf("expected tracks removed, got %d", count)
		}
	})
}

func TestRunRepositoryErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("Get", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			_, err := NewRunRepository(db).Get(ctx, "nonexistent-id")
			if !errors.Is(err, shared.ErrRunNotFound) {
				t.Fatalf("expected ErrRunNotFound, got %v", err)
			}
		})
	})

	t.Run("SaveRun", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			run := newTestRun("")
			if err := NewRunRepository(db).SaveRun(ctx, run); err == nil {
				t.Fatal("expected validation error for empty subject")
			}
		})

		t.Run("DuplicateID", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewRunRepository(db)
			run := newTestRun("user_1")
			if err := repo.SaveRun(ctx, run); err != nil {
				t.Fatalf("failed to save run: %v", err)
			}
			if err := repo.SaveRun(ctx, run); err == nil {
				t.Fatal("expected error when saving the same run twice")
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			if err := NewRunRepository(db).Delete(ctx, "nonexistent-id"); !errors.Is(err, shared.ErrRunNotFound) {
				t.Fatalf("expected ErrRunNotFound, got %v", err)
			}
		})
	})

	t.Run("ClosedDatabase", func(t *testing.T) {
		db := setupTestDB(t)
		db.Close()

		repo := NewRunRepository(db)
		if _, err := repo.List(ctx, RunFilter{}); err == nil {
			t.Error("expected error listing from closed database")
		}
		if err := repo.SaveRun(ctx, newTestRun("user_1")); err == nil {
			t.Error("expected error saving to closed database")
		}
	})
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "runs")
		if err != nil {
			t.Fatalf("NextSequence: %v", err)
		}
		if got != want {
			t.Errorf("expected %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for table without a sequence")
	}
}
