package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/desertthunder/runx/internal/models"
	"github.com/desertthunder/runx/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	first, err := NextSequence(db, "transfer_runs")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}
	second, err := NextSequence(db, "transfer_runs")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}
	if second != first+1 {
		t.Errorf("expected consecutive sequences, got %d then %d", first, second)
	}

	other, err := NextSequence(db, "activities")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}
	if other != 1 {
		t.Errorf("tables should have independent counters, got %d", other)
	}
}

func TestTransferRunRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)

		repo := NewTransferRunRepository(db)
		run := models.NewTransferRun(0, models.StageDownload)

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if run.ID() == "" {
			t.Error("run ID should be set after creation")
		}
	})

	t.Run("Create Invalid Stage", func(t *testing.T) {
		db := setupTestDB(t)

		repo := NewTransferRunRepository(db)
		run := models.NewTransferRun(0, models.RunStage("sideload"))

		if err := repo.Create(run); err == nil {
			t.Error("expected validation error for invalid stage")
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)

		repo := NewTransferRunRepository(db)
		run := models.NewTransferRun(0, models.StageUpload)
		run.SetStatus(models.RunRunning)
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Stage() != models.StageUpload || got.Status() != models.RunRunning {
			t.Errorf("unexpected run: %s/%s", got.Stage(), got.Status())
		}
	})

	t.Run("Get Missing", func(t *testing.T) {
		db := setupTestDB(t)

		repo := NewTransferRunRepository(db)
		if _, err := repo.Get("does-not-exist"); err == nil {
			t.Error("expected error for missing run")
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)

		repo := NewTransferRunRepository(db)
		run := models.NewTransferRun(0, models.StageUpload)
		run.SetStatus(models.RunRunning)
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		run.SetCounts(10, 9, 1)
		run.Finish(models.RunSucceeded, "uploaded 9 of 10 workouts (1 skipped)")
		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Status() != models.RunSucceeded {
			t.Errorf("expected succeeded, got %s", got.Status())
		}
		if got.TotalItems() != 10 || got.CompletedItems() != 9 || got.FailedItems() != 1 {
			t.Errorf("unexpected counts: %d/%d/%d", got.TotalItems(), got.CompletedItems(), got.FailedItems())
		}
		if got.FinishedAt() == nil {
			t.Error("finished_at should round-trip")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)

		repo := NewTransferRunRepository(db)
		run := models.NewTransferRun(0, models.StageDownload)
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if err := repo.Delete(run.ID()); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}
		if _, err := repo.Get(run.ID()); err == nil {
			t.Error("soft-deleted run should not be returned")
		}
		if err := repo.Delete(run.ID()); err == nil {
			t.Error("second delete should fail")
		}
	})

	t.Run("List By Stage", func(t *testing.T) {
		db := setupTestDB(t)

		repo := NewTransferRunRepository(db)
		for _, stage := range []models.RunStage{models.StageDownload, models.StageUpload, models.StageDownload} {
			if err := repo.Create(models.NewTransferRun(0, stage)); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
		}

		downloads, err := repo.List(map[string]any{"stage": string(models.StageDownload)})
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(downloads) != 2 {
			t.Errorf("expected 2 download runs, got %d", len(downloads))
		}

		all, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("expected 3 runs, got %d", len(all))
		}
		if len(all) > 1 && all[0].Sequence() < all[1].Sequence() {
			t.Error("runs should list newest first")
		}
	})

	t.Run("Latest", func(t *testing.T) {
		db := setupTestDB(t)

		repo := NewTransferRunRepository(db)

		latest, err := repo.Latest(models.StageDownload)
		if err != nil {
			t.Fatalf("failed to query latest: %v", err)
		}
		if latest != nil {
			t.Error("expected nil with no runs recorded")
		}

		first := models.NewTransferRun(0, models.StageDownload)
		second := models.NewTransferRun(0, models.StageDownload)
		for _, run := range []*models.TransferRun{first, second} {
			if err := repo.Create(run); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
		}

		latest, err = repo.Latest(models.StageDownload)
		if err != nil {
			t.Fatalf("failed to query latest: %v", err)
		}
		if latest == nil || latest.ID() != second.ID() {
			t.Error("expected the most recent run")
		}
	})
}

func TestActivityRepository(t *testing.T) {
	newActivity := func() *models.Activity {
		activity := models.NewActivity(0, "3.1mi Run.tcx", "3.1mi Run", "Run")
		activity.SetStravaUploadID(12345)
		activity.SetStravaActivityID(67890)
		activity.SetUploadedAt(time.Now())
		return activity
	}

	t.Run("Create And Get", func(t *testing.T) {
		db := setupTestDB(t)

		repo := NewActivityRepository(db)
		activity := newActivity()
		if err := repo.Create(activity); err != nil {
			t.Fatalf("failed to create activity: %v", err)
		}

		got, err := repo.Get(activity.ID())
		if err != nil {
			t.Fatalf("failed to get activity: %v", err)
		}
		if got.FileName() != "3.1mi Run.tcx" || got.ActivityType() != "Run" {
			t.Errorf("unexpected activity: %s/%s", got.FileName(), got.ActivityType())
		}
		if got.StravaActivityID() != 67890 {
			t.Errorf("expected activity ID to round-trip, got %d", got.StravaActivityID())
		}
	})

	t.Run("Create Invalid", func(t *testing.T) {
		db := setupTestDB(t)

		repo := NewActivityRepository(db)
		if err := repo.Create(models.NewActivity(0, "", "", "")); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("List By File Name", func(t *testing.T) {
		db := setupTestDB(t)

		repo := NewActivityRepository(db)
		// The same file uploaded twice yields two history rows.
		for range 2 {
			if err := repo.Create(newActivity()); err != nil {
				t.Fatalf("failed to create activity: %v", err)
			}
		}

		activities, err := repo.List(map[string]any{"file_name": "3.1mi Run.tcx"})
		if err != nil {
			t.Fatalf("failed to list activities: %v", err)
		}
		if len(activities) != 2 {
			t.Errorf("expected 2 rows for a re-uploaded file, got %d", len(activities))
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)

		repo := NewActivityRepository(db)
		activity := newActivity()
		if err := repo.Create(activity); err != nil {
			t.Fatalf("failed to create activity: %v", err)
		}

		activity.SetStravaActivityID(99999)
		if err := repo.Update(activity); err != nil {
			t.Fatalf("failed to update activity: %v", err)
		}

		got, err := repo.Get(activity.ID())
		if err != nil {
			t.Fatalf("failed to get activity: %v", err)
		}
		if got.StravaActivityID() != 99999 {
			t.Errorf("expected updated activity ID, got %d", got.StravaActivityID())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)

		repo := NewActivityRepository(db)
		activity := newActivity()
		if err := repo.Create(activity); err != nil {
			t.Fatalf("failed to create activity: %v", err)
		}

		if err := repo.Delete(activity.ID()); err != nil {
			t.Fatalf("failed to delete activity: %v", err)
		}
		if _, err := repo.Get(activity.ID()); err == nil {
			t.Error("soft-deleted activity should not be returned")
		}
	})
}

func TestHistoryService(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*HistoryService, *TransferRunRepository, *ActivityRepository) {
		t.Helper()
		db := setupTestDB(t)
		runs := NewTransferRunRepository(db)
		activities := NewActivityRepository(db)
		return NewHistoryService(runs, activities), runs, activities
	}

	t.Run("Start And Finish Run", func(t *testing.T) {
		history, runs, _ := setup(t)

		run, err := history.StartRun(ctx, models.StageUpload)
		if err != nil {
			t.Fatalf("failed to start run: %v", err)
		}
		if run.Status() != models.RunRunning {
			t.Errorf("started run should be running, got %s", run.Status())
		}

		run.SetCounts(3, 2, 1)
		run.Finish(models.RunSucceeded, "uploaded 2 of 3 workouts (1 skipped)")
		if err := history.FinishRun(ctx, run); err != nil {
			t.Fatalf("failed to finish run: %v", err)
		}

		got, err := runs.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Status() != models.RunSucceeded || got.CompletedItems() != 2 {
			t.Errorf("unexpected persisted run: %s %d", got.Status(), got.CompletedItems())
		}
	})

	t.Run("Record Upload Attaches Run", func(t *testing.T) {
		history, _, activities := setup(t)

		run, err := history.StartRun(ctx, models.StageUpload)
		if err != nil {
			t.Fatalf("failed to start run: %v", err)
		}

		activity := models.NewActivity(0, "3.1mi Run.tcx", "3.1mi Run", "Run")
		if err := history.RecordUpload(ctx, run.ID(), activity); err != nil {
			t.Fatalf("failed to record upload: %v", err)
		}

		got, err := activities.List(map[string]any{"run_id": run.ID()})
		if err != nil {
			t.Fatalf("failed to list activities: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 activity for the run, got %d", len(got))
		}
	})
}
