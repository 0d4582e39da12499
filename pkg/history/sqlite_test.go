package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/devicelab-dev/actionrunner/pkg/core"
	"github.com/devicelab-dev/actionrunner/pkg/flow"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func makeReport(id, profile string, status core.RunStatus, start time.Time) *core.RunReport {
	r := &core.RunReport{
		ID:        id,
		Profile:   profile,
		Target:    "emulator-5554",
		Status:    status,
		HaltedAt:  -1,
		Planned:   2,
		StartTime: start,
		Duration:  1500 * time.Millisecond,
		Results: []core.ActionResult{
			{Index: 0, Name: "Wait for feed", Op: flow.OpWaitForPresence, Status: core.StatusSuccess, Required: true, Duration: 200 * time.Millisecond},
			{Index: 1, Name: "Upvote", Op: flow.OpClick, Status: core.StatusTimeout, Duration: time.Second, Error: "not present"},
		},
		SessionReleased: true,
	}
	r.ComputeSummary()
	return r
}

func TestStore_SaveAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := s.Save(ctx, makeReport("r1", "reddit", core.RunCompleted, start)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	run, results, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if run == nil {
		t.Fatal("run not found")
	}
	if run.Profile != "reddit" || run.Status != core.RunCompleted || run.Succeeded != 1 || run.Failed != 1 {
		t.Errorf("run = %+v", run)
	}
	if !run.StartedAt.Equal(start) || run.Duration != 1500*time.Millisecond || !run.SessionReleased {
		t.Errorf("run timing = %+v", run)
	}

	if len(results) != 2 {
		t.Fatalf("len(results) = %d", len(results))
	}
	if results[1].Status != core.StatusTimeout || results[1].Category != core.ErrCategoryTimeout || results[1].Error != "not present" {
		t.Errorf("results[1] = %+v", results[1])
	}
	if results[0].Op != flow.OpWaitForPresence || !results[0].Required {
		t.Errorf("results[0] = %+v", results[0])
	}
}

func TestStore_GetUnknown(t *testing.T) {
	run, results, err := openTestStore(t).Get(context.Background(), "missing")
	if err != nil || run != nil || results != nil {
		t.Errorf("Get(missing) = %v, %v, %v", run, results, err)
	}
}

func TestStore_SaveDuplicateFails(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r := makeReport("r1", "reddit", core.RunCompleted, time.Now())

	if err := s.Save(ctx, r); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Save(ctx, r); err == nil {
		t.Error("expected duplicate run ID to fail")
	}
}

func TestStore_List(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, p := range []string{"reddit", "twitter", "reddit"} {
		r := makeReport(string(rune('a'+i)), p, core.RunCompleted, base.Add(time.Duration(i)*time.Minute))
		if err := s.Save(ctx, r); err != nil {
			t.Fatalf("Save %d failed: %v", i, err)
		}
	}

	runs, err := s.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 3 || runs[0].ID != "c" || runs[2].ID != "a" {
		t.Errorf("runs = %+v", runs)
	}

	runs, err = s.List(ctx, Filter{Profile: "reddit", Limit: 1})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "c" {
		t.Errorf("filtered runs = %+v", runs)
	}
}

func TestStore_Prune(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := s.Save(ctx, makeReport("old", "reddit", core.RunHalted, base)); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, makeReport("new", "reddit", core.RunCompleted, base.Add(48*time.Hour))); err != nil {
		t.Fatal(err)
	}

	n, err := s.Prune(ctx, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}
	if run, results, _ := s.Get(ctx, "old"); run != nil || len(results) != 0 {
		t.Error("pruned run still present")
	}
	if run, _, _ := s.Get(ctx, "new"); run == nil {
		t.Error("recent run was pruned")
	}
}
