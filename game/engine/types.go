package engine

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// Search ceiling: no run slower than this many frames is considered.
	MaxFrames = 167

	// HistoryCap is the fixed capacity of a state's input history.
	HistoryCap = MaxFrames + 1

	InitialGear  = 0
	InitialSpeed = 0

	MaxTachometer   = 32
	MaxFrameCounter = 16
	MaxGear         = 4
	MaxSpeed        = 256

	// WinningDistance is the finish line, 97 screens of 256 distance units.
	WinningDistance = 97 * 256

	// MaxStates bounds the encoded key space (tachometer x speed x gear x shift bit x delta).
	MaxStates = MaxTachometer * MaxSpeed * (MaxGear + 1) * 2 * 2

	TachometerSeedStep   = 3
	FrameCounterSeedStep = 2
)

var (
	ErrEmptyHistory   = errors.New("input history is empty")
	ErrHistoryTooLong = errors.New("input history exceeds capacity")
	ErrInvalidSeed    = errors.New("invalid seed")
	ErrInvalidInput   = errors.New("invalid input record")
	ErrInvalidState   = errors.New("invalid state")
)

// Input is the control record of one frame: bit 0 is the clutch, bit 1 the shift.
type Input uint8

const (
	InputClutch Input = 1
	InputShift  Input = 2
)

// NewInput packs a clutch/shift pair.
func NewInput(clutch, shift bool) Input {
	var in Input
	if clutch {
		in |= InputClutch
	}
	if shift {
		in |= InputShift
	}
	return in
}

func (in Input) Clutch() bool { return in&InputClutch != 0 }
func (in Input) Shift() bool  { return in&InputShift != 0 }

// SimState is a single simulated trajectory snapshot.
//
// Frames is the in-game frame timer: a seed sits on frame 1 with its own input
// in History[0], so the recorded history length always equals Frames.
type SimState struct {
	Frames              int
	FrameCounter        int
	Tachometer          int
	TachometerDelta     int
	Speed               int
	Gear                int
	Distance            int
	InitialTachometer   int
	InitialFrameCounter int
	History             [HistoryCap]Input
}

// NewSeed creates the state a race starts from.
func NewSeed(tachometer, frameCounter int, clutch, shift bool) SimState {
	s := SimState{
		Frames:              1,
		FrameCounter:        frameCounter,
		Tachometer:          tachometer,
		InitialTachometer:   tachometer,
		InitialFrameCounter: frameCounter,
		Gear:                InitialGear,
		Speed:               InitialSpeed,
	}
	s.History[0] = NewInput(clutch, shift)
	return s
}

// Inputs returns the recorded history as a slice.
func (s *SimState) Inputs() []Input {
	out := make([]Input, s.Frames)
	copy(out, s.History[:s.Frames])
	return out
}

// LastInput returns the input recorded on the most recent frame.
func (s *SimState) LastInput() Input {
	return s.History[s.Frames-1]
}

// Won reports whether the state has crossed the finish line.
func (s *SimState) Won() bool {
	return s.Distance >= WinningDistance
}

// FormatHistory renders inputs as one digit (0-3) per frame.
func FormatHistory(inputs []Input) string {
	buf := make([]byte, len(inputs))
	for i, in := range inputs {
		buf[i] = '0' + byte(in&3)
	}
	return string(buf)
}

// ParseHistory is the inverse of FormatHistory.
func ParseHistory(text string) ([]Input, error) {
	inputs := make([]Input, len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c < '0' || c > '3' {
			return nil, fmt.Errorf("%w: %q at frame %d", ErrInvalidInput, c, i)
		}
		inputs[i] = Input(c - '0')
	}
	return inputs, nil
}

// stateJSON is the wire form of SimState; the history is trimmed to Frames entries.
type stateJSON struct {
	Frames              int    `json:"frames"`
	FrameCounter        int    `json:"frame_counter"`
	Tachometer          int    `json:"tachometer"`
	TachometerDelta     int    `json:"tachometer_delta"`
	Speed               int    `json:"speed"`
	Gear                int    `json:"gear"`
	Distance            int    `json:"distance"`
	InitialTachometer   int    `json:"initial_tachometer"`
	InitialFrameCounter int    `json:"initial_frame_counter"`
	Inputs              string `json:"inputs"`
}

// MarshalJSON implements json.Marshaler
func (s SimState) MarshalJSON() ([]byte, error) {
	frames := s.Frames
	if frames < 0 {
		frames = 0
	}
	if frames > HistoryCap {
		frames = HistoryCap
	}
	return json.Marshal(stateJSON{
		Frames:              s.Frames,
		FrameCounter:        s.FrameCounter,
		Tachometer:          s.Tachometer,
		TachometerDelta:     s.TachometerDelta,
		Speed:               s.Speed,
		Gear:                s.Gear,
		Distance:            s.Distance,
		InitialTachometer:   s.InitialTachometer,
		InitialFrameCounter: s.InitialFrameCounter,
		Inputs:              FormatHistory(s.History[:frames]),
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (s *SimState) UnmarshalJSON(data []byte) error {
	var wire stateJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	inputs, err := ParseHistory(wire.Inputs)
	if err != nil {
		return err
	}
	if len(inputs) > HistoryCap {
		return fmt.Errorf("%w: %d inputs", ErrHistoryTooLong, len(inputs))
	}
	if wire.Frames < 1 || wire.Frames > HistoryCap {
		return fmt.Errorf("%w: frames must be between 1 and %d, got %d", ErrInvalidState, HistoryCap, wire.Frames)
	}
	if wire.Frames != len(inputs) {
		return fmt.Errorf("%w: %d frames with %d inputs", ErrInvalidState, wire.Frames, len(inputs))
	}

	*s = SimState{
		Frames:              wire.Frames,
		FrameCounter:        wire.FrameCounter,
		Tachometer:          wire.Tachometer,
		TachometerDelta:     wire.TachometerDelta,
		Speed:               wire.Speed,
		Gear:                wire.Gear,
		Distance:            wire.Distance,
		InitialTachometer:   wire.InitialTachometer,
		InitialFrameCounter: wire.InitialFrameCounter,
	}
	copy(s.History[:], inputs)
	return nil
}
