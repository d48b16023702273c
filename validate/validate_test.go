package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/wricardo/dragster/game/engine"
	"github.com/wricardo/dragster/game/run"
	"github.com/wricardo/dragster/game/search"
	"github.com/wricardo/dragster/game/service"
)

func groups() []search.GroupResult {
	out := make([]search.GroupResult, engine.MaxFrameCounter/engine.FrameCounterSeedStep)
	for i := range out {
		out[i] = search.GroupResult{
			FrameCounter: i * engine.FrameCounterSeedStep,
			Champion:     engine.SimState{Frames: engine.MaxFrames},
			FramesSwept:  engine.MaxFrames,
			Simulations:  100,
		}
	}
	return out
}

func notFoundRun() *service.Run {
	return &service.Run{
		ID:        uuid.NewString(),
		Status:    service.RunCompleted,
		Workers:   1,
		CreatedAt: time.Now(),
		Result: &search.Result{
			Champion:    engine.SimState{Frames: engine.MaxFrames},
			Simulations: 800,
			Groups:      groups(),
		},
	}
}

// foundRun records a short trajectory as if it were group 0's winner.
func foundRun(distanceOffset int) *service.Run {
	state := engine.NewSeed(30, 0, false, true)
	for i := 0; i < 5; i++ {
		engine.Step(&state, false, false)
	}
	state.Distance += distanceOffset

	r := notFoundRun()
	r.Result.Found = true
	r.Result.Champion = state
	r.Result.Groups[0].Found = true
	r.Result.Groups[0].Champion = state
	return r
}

func writeRun(t *testing.T, r *service.Run) string {
	t.Helper()
	fp, err := run.NewFilePersistence(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}
	if err := fp.Save(r); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}
	return filepath.Join(fp.Dir(), r.ID+".json")
}

func hasError(result ValidationResult, substr string) bool {
	for _, e := range result.Errors {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

func TestValidateRun_NotFound(t *testing.T) {
	result := validateRun(writeRun(t, notFoundRun()))
	if !result.Valid {
		t.Errorf("Expected valid run, but got errors: %v", result.Errors)
	}
	if !hasError(result, "No race under 5.57s") {
		t.Errorf("Expected failed search to be reported, got %v", result.Errors)
	}
}

func TestValidateRun_ReplayMatches(t *testing.T) {
	result := validateRun(writeRun(t, foundRun(0)))

	// The short trajectory replays cleanly but never reaches the finish line.
	if result.Valid {
		t.Fatal("Expected run short of the finish line to be invalid")
	}
	if !hasError(result, "short of the finish line") {
		t.Errorf("Expected finish line error, got %v", result.Errors)
	}
	if hasError(result, "Replay diverged") {
		t.Errorf("Expected replay to reproduce the champion, got %v", result.Errors)
	}
}

func TestValidateRun_ReplayDiverges(t *testing.T) {
	result := validateRun(writeRun(t, foundRun(7)))
	if result.Valid {
		t.Fatal("Expected tampered champion to be invalid")
	}
	if !hasError(result, "Replay diverged") {
		t.Errorf("Expected replay divergence, got %v", result.Errors)
	}
}

func TestValidateRun_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*service.Run)
		want   string
	}{
		{"interrupted", func(r *service.Run) { r.Status = service.RunRunning }, "interrupted"},
		{"failed without message", func(r *service.Run) { r.Status = service.RunFailed }, "without an error message"},
		{"unknown status", func(r *service.Run) { r.Status = "paused" }, "Unknown status"},
		{"missing result", func(r *service.Run) { r.Result = nil }, "no result"},
		{"missing group", func(r *service.Run) { r.Result.Groups = r.Result.Groups[1:] }, "Expected 8 groups"},
		{"group order", func(r *service.Run) { r.Result.Groups[1].FrameCounter = 4 }, "Group 1 has frame counter 4"},
		{"simulation total", func(r *service.Run) { r.Result.Simulations = 1 }, "does not match group total"},
		{"champion not best", func(r *service.Run) { r.Result.Found = true }, "not the best group champion"},
		{"bad run id", func(r *service.Run) { r.ID = "not-a-uuid" }, "Invalid run ID"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := notFoundRun()
			test.mutate(r)
			result := validateRun(writeRun(t, r))
			if result.Valid {
				t.Fatal("Expected run to be invalid")
			}
			if !hasError(result, test.want) {
				t.Errorf("Expected error containing %q, got %v", test.want, result.Errors)
			}
		})
	}
}

func TestValidateRun_FailedWithMessage(t *testing.T) {
	r := notFoundRun()
	r.Status = service.RunFailed
	r.Result = nil
	r.Error = "allocation failed"

	result := validateRun(writeRun(t, r))
	if !result.Valid {
		t.Errorf("Expected failed run with message to be valid, got %v", result.Errors)
	}
}

func TestValidateRun_FileNameMismatch(t *testing.T) {
	path := writeRun(t, notFoundRun())
	renamed := filepath.Join(filepath.Dir(path), uuid.NewString()+".json")
	if err := os.Rename(path, renamed); err != nil {
		t.Fatalf("Failed to rename: %v", err)
	}

	result := validateRun(renamed)
	if !hasError(result, "does not match run ID") {
		t.Errorf("Expected file name mismatch, got %v", result.Errors)
	}
}

func TestValidateRun_Unreadable(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_run_*.json")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(`{"id": "abc", "status": `)); err != nil {
		t.Fatalf("Failed to write run: %v", err)
	}
	tmpfile.Close()

	result := validateRun(tmpfile.Name())
	if result.Valid {
		t.Error("Expected invalid JSON to fail")
	}
	if !hasError(result, "Failed to read run") {
		t.Errorf("Expected read error, got %v", result.Errors)
	}

	result = validateRun(filepath.Join(t.TempDir(), "missing.json"))
	if result.Valid {
		t.Error("Expected missing file to fail")
	}
}

func TestValidateRun_MalformedChampion(t *testing.T) {
	id := uuid.NewString()
	path := filepath.Join(t.TempDir(), id+".json")
	data := `{"id": "` + id + `", "status": "completed", "result": {"found": true, "champion": {"frames": 300, "inputs": "0"}}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write run: %v", err)
	}

	result := validateRun(path)
	if result.Valid {
		t.Fatal("Expected malformed champion to be invalid")
	}
	if !hasError(result, "invalid state") {
		t.Errorf("Expected invalid state error, got %v", result.Errors)
	}
}
