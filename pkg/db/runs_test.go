package db

import (
	"context"
	"testing"
)

func TestRunLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	runID, runUUID, err := db.CreateRun(ctx, "download", "Red Cars!", "red_cars", 3, "/tmp/out")
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if runUUID == "" {
		t.Error("expected a run uuid")
	}

	items := []RunItem{
		{RunID: runID, VideoID: "1", Title: "one", MediaURL: "https://x/1.mp4", FilePath: "/tmp/out/red_cars_1.mp4", SizeBytes: 10, Status: ItemAccepted},
		{RunID: runID, VideoID: "2", MediaURL: "https://x/2.mp4", Status: ItemFailed, ErrorMessage: "HTTP 404"},
	}
	for _, it := range items {
		if _, err := db.RecordRunItem(ctx, it); err != nil {
			t.Fatalf("RecordRunItem failed: %v", err)
		}
	}

	stats := RunStats{Accepted: 1, Attempts: 2, MaxAttempts: 20, Ignored: 4, AcceptFailures: 1}
	if err := db.FinishRun(ctx, runID, RunPartial, stats); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	run, err := db.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.UUID != runUUID || run.Query != "Red Cars!" || run.CleanQuery != "red_cars" {
		t.Errorf("unexpected run identity: %+v", run)
	}
	if run.Status != RunPartial {
		t.Errorf("Status = %q, want %q", run.Status, RunPartial)
	}
	if run.Stats != stats {
		t.Errorf("Stats = %+v, want %+v", run.Stats, stats)
	}
	if run.FinishedAt == nil {
		t.Error("expected FinishedAt to be set")
	}
	if run.ItemCount != 2 {
		t.Errorf("ItemCount = %d, want 2", run.ItemCount)
	}
	if run.OutputPath != "/tmp/out" {
		t.Errorf("OutputPath = %q", run.OutputPath)
	}

	got, err := db.GetRunItems(ctx, runID)
	if err != nil {
		t.Fatalf("GetRunItems failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got[0].VideoID != "1" || got[0].Status != ItemAccepted || got[0].SizeBytes != 10 {
		t.Errorf("unexpected first item: %+v", got[0])
	}
	if got[1].Title != "" || got[1].ErrorMessage != "HTTP 404" {
		t.Errorf("unexpected second item: %+v", got[1])
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, q := range []string{"a", "b", "c"} {
		if _, _, err := db.CreateRun(ctx, "manifest", q, q, 1, ""); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := db.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Query != "c" || runs[1].Query != "b" {
		t.Errorf("unexpected order: %s, %s", runs[0].Query, runs[1].Query)
	}
	if runs[0].Status != RunRunning || runs[0].FinishedAt != nil {
		t.Errorf("new run should be running and unfinished: %+v", runs[0])
	}

	latest, err := db.GetLatestRunID(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest != runs[0].ID {
		t.Errorf("GetLatestRunID = %d, want %d", latest, runs[0].ID)
	}
}

func TestRuns_NotFound(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.GetLatestRunID(ctx); err == nil {
		t.Error("expected error with no runs")
	}
	if _, err := db.GetRun(ctx, 42); err == nil {
		t.Error("expected error for missing run")
	}
	if err := db.FinishRun(ctx, 42, RunComplete, RunStats{}); err == nil {
		t.Error("expected error finishing missing run")
	}
}

func TestDeleteRun_CascadesItems(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	runID, _, err := db.CreateRun(ctx, "download", "q", "q", 1, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.RecordRunItem(ctx, RunItem{RunID: runID, VideoID: "1", Status: ItemAccepted}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM runs WHERE run_id = ?", runID); err != nil {
		t.Fatal(err)
	}

	items, err := db.GetRunItems(ctx, runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("expected items to be cascaded, got %d", len(items))
	}
}
