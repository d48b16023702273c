package engine

import (
	"math/rand"
	"testing"
)

type stepVector struct {
	gear, speed, tachometer, delta, distance int
}

func vectorOf(s SimState) stepVector {
	return stepVector{s.Gear, s.Speed, s.Tachometer, s.TachometerDelta, s.Distance}
}

func TestStep_GoldenFirstFrame(t *testing.T) {
	state := NewSeed(0, 0, false, false)
	Step(&state, false, false)

	want := stepVector{gear: 0, speed: 0, tachometer: 0, delta: 0, distance: 0}
	if got := vectorOf(state); got != want {
		t.Fatalf("frame 1 vector = %+v, want %+v", got, want)
	}
	if state.Frames != 2 {
		t.Errorf("Expected frames 2, got %d", state.Frames)
	}
	if state.FrameCounter != 2 {
		t.Errorf("Expected frame counter 2, got %d", state.FrameCounter)
	}
}

func TestStep_GoldenShiftSequence(t *testing.T) {
	// Seed in neutral with the shift held, then release and feather the clutch.
	state := NewSeed(30, 0, false, true)

	steps := []struct {
		clutch, shift bool
		want          stepVector
	}{
		{false, false, stepVector{gear: 1, speed: 0, tachometer: 27, delta: 0, distance: 0}},
		{false, false, stepVector{gear: 1, speed: 2, tachometer: 26, delta: 1, distance: 2}},
		{true, false, stepVector{gear: 1, speed: 4, tachometer: 26, delta: 1, distance: 6}},
	}

	for i, step := range steps {
		Step(&state, step.clutch, step.shift)
		if got := vectorOf(state); got != step.want {
			t.Fatalf("step %d: vector = %+v, want %+v", i+1, got, step.want)
		}
	}
	if state.Frames != 4 {
		t.Errorf("Expected frames 4, got %d", state.Frames)
	}
}

func TestStep_GoldenChampionOpening(t *testing.T) {
	// Opening of the fastest race: seeded at tachometer 27 on frame counter
	// 12, riding the clutch in first gear.
	state := NewSeed(27, 12, true, true)

	steps := []struct {
		clutch bool
		want   stepVector
	}{
		{true, stepVector{gear: 1, speed: 0, tachometer: 30, delta: 0, distance: 0}},
		{true, stepVector{gear: 1, speed: 2, tachometer: 31, delta: 1, distance: 2}},
		{true, stepVector{gear: 1, speed: 4, tachometer: 31, delta: 1, distance: 6}},
		{true, stepVector{gear: 1, speed: 6, tachometer: 31, delta: 1, distance: 12}},
		{true, stepVector{gear: 1, speed: 8, tachometer: 31, delta: 1, distance: 20}},
		{true, stepVector{gear: 1, speed: 10, tachometer: 31, delta: 1, distance: 30}},
		{true, stepVector{gear: 1, speed: 12, tachometer: 31, delta: 1, distance: 42}},
		{true, stepVector{gear: 1, speed: 14, tachometer: 31, delta: 1, distance: 56}},
		{false, stepVector{gear: 1, speed: 16, tachometer: 29, delta: 0, distance: 72}},
		{true, stepVector{gear: 1, speed: 18, tachometer: 30, delta: 0, distance: 90}},
		{true, stepVector{gear: 1, speed: 20, tachometer: 31, delta: 0, distance: 110}},
		{false, stepVector{gear: 1, speed: 22, tachometer: 30, delta: 0, distance: 132}},
		{true, stepVector{gear: 1, speed: 24, tachometer: 31, delta: 0, distance: 156}},
		{false, stepVector{gear: 1, speed: 26, tachometer: 30, delta: 0, distance: 182}},
	}

	for i, step := range steps {
		Step(&state, step.clutch, false)
		if got := vectorOf(state); got != step.want {
			t.Fatalf("frame %d: vector = %+v, want %+v", i+1, got, step.want)
		}
	}
	if state.FrameCounter != 8 {
		t.Errorf("Expected frame counter 8, got %d", state.FrameCounter)
	}
	if state.Frames != 15 {
		t.Errorf("Expected frames 15, got %d", state.Frames)
	}
}

func TestStep_RecordsInputs(t *testing.T) {
	state := NewSeed(3, 4, true, false)
	Step(&state, false, true)
	Step(&state, true, true)

	inputs := state.Inputs()
	want := []Input{InputClutch, InputShift, InputClutch | InputShift}
	if len(inputs) != len(want) {
		t.Fatalf("Expected %d inputs, got %d", len(want), len(inputs))
	}
	for i := range want {
		if inputs[i] != want[i] {
			t.Errorf("input %d: expected %d, got %d", i, want[i], inputs[i])
		}
	}
}

func TestStep_GearCapsAtTop(t *testing.T) {
	state := NewSeed(0, 0, false, true)
	for i := 0; i < 10; i++ {
		Step(&state, true, true)
	}
	if state.Gear != MaxGear {
		t.Errorf("Expected gear %d, got %d", MaxGear, state.Gear)
	}
}

func TestSpeedLimit(t *testing.T) {
	tests := []struct {
		tachometer, gear, want int
	}{
		{0, 0, 0},
		{7, 0, 3},
		{31, 0, 15},
		{10, 1, 10},
		{25, 1, 25},
		{19, 2, 38},
		{20, 2, 41},
		{20, 3, 82},
		{31, 4, 252},
	}

	for _, test := range tests {
		if got := SpeedLimit(test.tachometer, test.gear); got != test.want {
			t.Errorf("SpeedLimit(%d, %d) = %d, want %d", test.tachometer, test.gear, got, test.want)
		}
	}
}

// randomWalk steps a seed with pseudo-random inputs, calling visit after every step.
func randomWalk(rng *rand.Rand, steps int, visit func(before, after SimState)) SimState {
	state := NewSeed(rng.Intn(11)*TachometerSeedStep, rng.Intn(8)*FrameCounterSeedStep, rng.Intn(2) == 1, rng.Intn(2) == 1)
	for i := 0; i < steps; i++ {
		before := state
		Step(&state, rng.Intn(2) == 1, rng.Intn(2) == 1)
		if visit != nil {
			visit(before, state)
		}
	}
	return state
}

func TestStep_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for walk := 0; walk < 200; walk++ {
		randomWalk(rng, MaxFrames, func(before, after SimState) {
			if after.Tachometer < 0 {
				t.Fatalf("tachometer went negative: %d", after.Tachometer)
			}
			if after.Distance < before.Distance {
				t.Fatalf("distance decreased: %d -> %d", before.Distance, after.Distance)
			}
			if after.Gear < before.Gear {
				t.Fatalf("gear decreased: %d -> %d", before.Gear, after.Gear)
			}
			if after.Frames != before.Frames+1 {
				t.Fatalf("frames advanced by %d", after.Frames-before.Frames)
			}
			if len(after.Inputs()) != after.Frames {
				t.Fatalf("history length %d != frames %d", len(after.Inputs()), after.Frames)
			}
			if after.FrameCounter < 0 || after.FrameCounter >= MaxFrameCounter {
				t.Fatalf("frame counter out of range: %d", after.FrameCounter)
			}
		})
	}
}

func TestStep_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 100; i++ {
		state := randomWalk(rng, rng.Intn(MaxFrames-1), nil)
		clutch, shift := rng.Intn(2) == 1, rng.Intn(2) == 1

		a, b := state, state
		Step(&a, clutch, shift)
		Step(&b, clutch, shift)
		if a != b {
			t.Fatalf("Step is not deterministic for %+v", vectorOf(state))
		}
	}
}
