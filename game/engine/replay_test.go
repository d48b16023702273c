package engine

import (
	"encoding/json"
	"errors"
	"math/rand"
	"testing"
)

func TestReplay_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(2024))

	for i := 0; i < 50; i++ {
		state := randomWalk(rng, 1+rng.Intn(MaxFrames-1), nil)

		final, frames, err := Replay(state.InitialTachometer, state.InitialFrameCounter, state.Inputs())
		if err != nil {
			t.Fatalf("Replay failed: %v", err)
		}
		if final != state {
			t.Fatalf("replayed state differs: got %+v, want %+v", vectorOf(final), vectorOf(state))
		}
		if len(frames) != state.Frames {
			t.Errorf("Expected %d frames, got %d", state.Frames, len(frames))
		}
		last := frames[len(frames)-1]
		if last.Distance != state.Distance {
			t.Errorf("Expected last frame distance %d, got %d", state.Distance, last.Distance)
		}
	}
}

func TestReplay_Errors(t *testing.T) {
	if _, _, err := Replay(0, 0, nil); !errors.Is(err, ErrEmptyHistory) {
		t.Errorf("Expected ErrEmptyHistory, got %v", err)
	}

	long := make([]Input, HistoryCap+1)
	if _, _, err := Replay(0, 0, long); !errors.Is(err, ErrHistoryTooLong) {
		t.Errorf("Expected ErrHistoryTooLong, got %v", err)
	}

	if _, _, err := Replay(MaxTachometer, 0, []Input{0}); !errors.Is(err, ErrInvalidSeed) {
		t.Errorf("Expected ErrInvalidSeed for tachometer, got %v", err)
	}
	if _, _, err := Replay(0, MaxFrameCounter, []Input{0}); !errors.Is(err, ErrInvalidSeed) {
		t.Errorf("Expected ErrInvalidSeed for frame counter, got %v", err)
	}
}

func TestHistoryCodec(t *testing.T) {
	inputs := []Input{0, InputClutch, InputShift, InputClutch | InputShift}
	text := FormatHistory(inputs)
	if text != "0123" {
		t.Fatalf("Expected \"0123\", got %q", text)
	}

	parsed, err := ParseHistory(text)
	if err != nil {
		t.Fatalf("ParseHistory failed: %v", err)
	}
	for i := range inputs {
		if parsed[i] != inputs[i] {
			t.Errorf("input %d: expected %d, got %d", i, inputs[i], parsed[i])
		}
	}

	if _, err := ParseHistory("01x"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestSimStateJSON(t *testing.T) {
	state := NewSeed(6, 10, true, false)
	Step(&state, false, true)
	Step(&state, true, false)

	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("Failed to marshal state: %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("Failed to decode wire form: %v", err)
	}
	if wire["inputs"] != "121" {
		t.Errorf("Expected inputs \"121\", got %v", wire["inputs"])
	}

	var decoded SimState
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal state: %v", err)
	}
	if decoded != state {
		t.Errorf("decoded state differs from original")
	}
}

func TestSimStateJSON_InvalidFrames(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"frames beyond history", `{"frames":300,"inputs":"0"}`},
		{"no frames", `{"frames":0,"inputs":""}`},
		{"negative frames", `{"frames":-1,"inputs":"0"}`},
		{"frames ahead of inputs", `{"frames":3,"inputs":"01"}`},
		{"inputs ahead of frames", `{"frames":1,"inputs":"012"}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var state SimState
			err := json.Unmarshal([]byte(test.data), &state)
			if !errors.Is(err, ErrInvalidState) {
				t.Fatalf("Expected ErrInvalidState, got %v", err)
			}
		})
	}

	var state SimState
	if err := json.Unmarshal([]byte(`{"frames":2,"inputs":"30"}`), &state); err != nil {
		t.Fatalf("Failed to unmarshal state: %v", err)
	}
	if got := state.Inputs(); len(got) != 2 || state.LastInput() != 0 {
		t.Errorf("Unexpected inputs %v", got)
	}
}

func TestFinishTime(t *testing.T) {
	tests := []struct {
		frames int
		want   string
	}{
		{0, "0.00"},
		{1, "0.03"},
		{30, "1.00"},
		{50, "1.67"},
		{167, "5.57"},
		{168, "5.61"},
	}

	for _, test := range tests {
		if got := FormatFinishTime(test.frames); got != test.want {
			t.Errorf("FormatFinishTime(%d) = %s, want %s", test.frames, got, test.want)
		}
	}
}

func TestFinishHundredths_MatchesExactDecimal(t *testing.T) {
	for frames := 0; frames <= HistoryCap; frames++ {
		if got, exact := FinishHundredths(frames), frames*334/100; got != exact {
			t.Errorf("frames %d: float product %d, exact decimal %d", frames, got, exact)
		}
	}
}
