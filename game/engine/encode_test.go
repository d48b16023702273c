package engine

import (
	"math/rand"
	"testing"
)

func TestEncode_Layout(t *testing.T) {
	state := NewSeed(0, 0, false, false)
	if key := Encode(state); key != 0 {
		t.Errorf("Expected key 0 for a neutral seed, got %d", key)
	}

	state = NewSeed(0, 0, false, true)
	if key := Encode(state); key != 1 {
		t.Errorf("Expected key 1 with the shift bit, got %d", key)
	}

	state = NewSeed(31, 0, false, true)
	state.Gear = MaxGear
	state.Speed = MaxSpeed - 1
	state.TachometerDelta = 1
	if key := Encode(state); key != MaxStates-1 {
		t.Errorf("Expected key %d for the largest state, got %d", MaxStates-1, key)
	}
}

func TestEncode_IgnoresDistanceAndFrames(t *testing.T) {
	a := NewSeed(12, 0, false, false)
	Step(&a, true, false)

	b := a
	b.Distance += 5000
	b.Frames = a.Frames
	b.InitialFrameCounter = 6

	if Encode(a) != Encode(b) {
		t.Errorf("Expected equal keys, got %d and %d", Encode(a), Encode(b))
	}
}

func TestEncode_KeyRange(t *testing.T) {
	rng := rand.New(rand.NewSource(99))

	for walk := 0; walk < 300; walk++ {
		randomWalk(rng, MaxFrames, func(_, after SimState) {
			if after.Tachometer >= MaxTachometer {
				return // pruned by the search before encoding
			}
			key := Encode(after)
			if key < 0 || key >= MaxStates {
				t.Fatalf("key %d out of range for %+v", key, vectorOf(after))
			}
		})
	}
}

func TestEncode_CollidingStatesEvolveTogether(t *testing.T) {
	a := NewSeed(9, 2, false, false)
	Step(&a, false, false)
	b := a
	b.Distance += 300

	for _, in := range []Input{0, InputShift, InputClutch, InputShift | InputClutch, 0} {
		Step(&a, in.Clutch(), in.Shift())
		Step(&b, in.Clutch(), in.Shift())
		if Encode(a) != Encode(b) {
			t.Fatalf("keys diverged: %d vs %d", Encode(a), Encode(b))
		}
		if b.Distance-a.Distance != 300 {
			t.Fatalf("distance gap changed to %d", b.Distance-a.Distance)
		}
	}
}
