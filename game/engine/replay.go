package engine

import "fmt"

// Frame is one row of a replayed trajectory.
type Frame struct {
	Frame           int  `json:"frame"`
	Clutch          bool `json:"clutch"`
	Shift           bool `json:"shift"`
	Gear            int  `json:"gear"`
	Speed           int  `json:"speed"`
	Tachometer      int  `json:"tachometer"`
	TachometerDelta int  `json:"tachometer_delta"`
	Distance        int  `json:"distance"`
}

func snapshot(frame int, in Input, s *SimState) Frame {
	return Frame{
		Frame:           frame,
		Clutch:          in.Clutch(),
		Shift:           in.Shift(),
		Gear:            s.Gear,
		Speed:           s.Speed,
		Tachometer:      s.Tachometer,
		TachometerDelta: s.TachometerDelta,
		Distance:        s.Distance,
	}
}

// ValidateSeed checks the initial conditions a replay can start from.
func ValidateSeed(tachometer, frameCounter int) error {
	if tachometer < 0 || tachometer >= MaxTachometer {
		return fmt.Errorf("%w: tachometer must be between 0 and %d, got %d", ErrInvalidSeed, MaxTachometer-1, tachometer)
	}
	if frameCounter < 0 || frameCounter >= MaxFrameCounter {
		return fmt.Errorf("%w: frame counter must be between 0 and %d, got %d", ErrInvalidSeed, MaxFrameCounter-1, frameCounter)
	}
	return nil
}

// Replay re-runs a recorded input history from its initial conditions.
// history[0] is the seed frame's input; every later entry is applied with Step.
// The returned frames hold one snapshot per history entry.
func Replay(initialTachometer, initialFrameCounter int, history []Input) (SimState, []Frame, error) {
	if len(history) == 0 {
		return SimState{}, nil, ErrEmptyHistory
	}
	if len(history) > HistoryCap {
		return SimState{}, nil, fmt.Errorf("%w: %d inputs, capacity %d", ErrHistoryTooLong, len(history), HistoryCap)
	}
	if err := ValidateSeed(initialTachometer, initialFrameCounter); err != nil {
		return SimState{}, nil, err
	}

	seed := history[0]
	state := NewSeed(initialTachometer, initialFrameCounter, seed.Clutch(), seed.Shift())

	frames := make([]Frame, 0, len(history))
	frames = append(frames, snapshot(0, seed, &state))
	for i := 1; i < len(history); i++ {
		in := history[i]
		Step(&state, in.Clutch(), in.Shift())
		frames = append(frames, snapshot(i, in, &state))
	}

	return state, frames, nil
}
