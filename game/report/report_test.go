package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/wricardo/dragster/game/engine"
	"github.com/wricardo/dragster/game/search"
)

func TestSummary_Found(t *testing.T) {
	result := &search.Result{
		Found:       true,
		Champion:    engine.SimState{Frames: 167, Distance: 97*256 + 41},
		Simulations: 1234,
	}

	var buf bytes.Buffer
	Summary(&buf, result)
	out := buf.String()

	for _, want := range []string{
		"The best possible race is 5.57s.",
		"The best subdistance reachable with a 5.57s timer is 41.",
		"1234 simulations were performed.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestSummary_NotFound(t *testing.T) {
	result := &search.Result{
		Champion:    engine.SimState{Frames: engine.MaxFrames},
		Simulations: 10,
	}

	var buf bytes.Buffer
	Summary(&buf, result)

	if !strings.Contains(buf.String(), "It's not possible to do the race under 5.57s.") {
		t.Errorf("Unexpected failure summary:\n%s", buf.String())
	}
}

func TestProgress(t *testing.T) {
	won := search.GroupResult{
		FrameCounter: 12,
		Found:        true,
		Champion:     engine.SimState{Frames: 167},
		FramesSwept:  167,
		Simulations:  500,
	}

	var buf bytes.Buffer
	progress := NewProgress(&buf, false)
	progress.GroupStarted(12)
	progress.FrameSwept(12, 1, 40)
	progress.GroupFinished(won)

	want := "Now testing all configurations with an initial frame counter equal to 12.\n"
	if buf.String() != want {
		t.Errorf("Expected only the group line, got:\n%s", buf.String())
	}

	buf.Reset()
	progress = NewProgress(&buf, true)
	progress.GroupFinished(won)
	progress.GroupFinished(search.GroupResult{FrameCounter: 14, FramesSwept: 90, Simulations: 7})

	out := buf.String()
	for _, line := range []string{
		"frame counter 12: finished in 5.57s after 167 frames (500 simulations)",
		"frame counter 14: no finish within 90 frames (7 simulations)",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("Expected output to contain %q, got:\n%s", line, out)
		}
	}
}

func TestTrace(t *testing.T) {
	state := engine.NewSeed(30, 0, false, true)
	engine.Step(&state, false, false)
	engine.Step(&state, false, false)

	var buf bytes.Buffer
	if err := TraceState(&buf, state, true); err != nil {
		t.Fatalf("TraceState failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"0: 0,1 | 0 - 0 - 30 - 0 - 0",
		"1: 0,0 | 1 - 0 - 27 - 0 - 0",
		"2: 0,0 | 1 - 2 - 26 - 1 - 2",
		"Initial frame_counter: 0",
		"Initial tachometer: 30",
	}
	if len(lines) != len(want) {
		t.Fatalf("Expected %d lines, got %d:\n%s", len(want), len(lines), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}

	buf.Reset()
	if err := TraceState(&buf, state, false); err != nil {
		t.Fatalf("TraceState failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "1\t0\n0\t0\n") {
		t.Errorf("Unexpected compact trace:\n%s", buf.String())
	}
}

func TestTrace_EmptyHistory(t *testing.T) {
	var buf bytes.Buffer
	if err := Trace(&buf, 0, 0, nil, true); err == nil {
		t.Error("Expected error for empty history")
	}
}
