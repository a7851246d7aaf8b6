package journal_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"notedump/internal/journal"
	"notedump/internal/testsupport"
)

func openStore(t *testing.T) *journal.Store {
	t.Helper()
	return testsupport.MustOpenJournal(t, testsupport.NewConfig(t))
}

func TestRunLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	started := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	run := journal.Run{
		ID:        "run-1",
		Notebook:  "Trips",
		Section:   "Alps",
		OutputDir: "/tmp/out",
		StartedAt: started,
	}
	if err := store.StartRun(ctx, run); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	if err := store.RecordPage(ctx, journal.PageRecord{
		RunID:       "run-1",
		PageID:      "p-1",
		Title:       "Packing",
		Filename:    "packing-1a2b3c4d.md",
		Status:      journal.PageSucceeded,
		CompletedAt: started.Add(time.Second),
	}); err != nil {
		t.Fatalf("RecordPage: %v", err)
	}
	if err := store.RecordPage(ctx, journal.PageRecord{
		RunID:       "run-1",
		PageID:      "p-2",
		Title:       "Routes",
		Filename:    "routes-5e6f7a8b.md",
		Status:      journal.PageFailed,
		Error:       "rate limited",
		CompletedAt: started.Add(2 * time.Second),
	}); err != nil {
		t.Fatalf("RecordPage: %v", err)
	}

	if err := store.FinishRun(ctx, "run-1", 2, 1, 1, started.Add(3*time.Second)); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	got := runs[0]
	if got.Total != 2 || got.Succeeded != 1 || got.Failed != 1 {
		t.Fatalf("counts = %d/%d/%d", got.Total, got.Succeeded, got.Failed)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(started.Add(3*time.Second)) {
		t.Fatalf("finished = %v", got.FinishedAt)
	}

	failed, err := store.FailedPages(ctx, "run-1")
	if err != nil {
		t.Fatalf("FailedPages: %v", err)
	}
	if len(failed) != 1 || failed[0].PageID != "p-2" || failed[0].Error != "rate limited" {
		t.Fatalf("failed = %+v", failed)
	}
}

func TestRecentRunsNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		err := store.StartRun(ctx, journal.Run{
			ID:        id,
			Notebook:  "Trips",
			OutputDir: "/tmp/out",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("StartRun %s: %v", id, err)
		}
	}

	runs, err := store.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-c" || runs[1].ID != "run-b" {
		t.Fatalf("runs = %+v", runs)
	}
	if runs[0].FinishedAt != nil {
		t.Fatal("unfinished run has finish time")
	}
}

func TestReopenExistingJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	first, err := journal.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	if err := first.StartRun(context.Background(), journal.Run{
		ID: "run-1", Notebook: "Trips", OutputDir: "/tmp/out", StartedAt: time.Now(),
	}); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := journal.OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	runs, err := second.RecentRuns(context.Background(), 10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs after reopen = %+v, %v", runs, err)
	}
}
