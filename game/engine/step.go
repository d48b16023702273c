package engine

// Step runs a single frame of the game.
//
// The rules follow OmniGamer's model of the cartridge. Evaluation order matters:
// the tachometer is updated before the speed limit, and the shift decision
// always looks at the input recorded on the previous frame.
func Step(s *SimState, clutch, shift bool) {
	s.History[s.Frames] = NewInput(clutch, shift)
	s.Frames++
	s.FrameCounter = (s.FrameCounter + 2) % MaxFrameCounter

	shifting := s.History[s.Frames-2].Shift()

	// Gear and tachometer.
	if shifting {
		if s.Gear < MaxGear {
			s.Gear++
		}
		if clutch {
			s.Tachometer -= s.TachometerDelta - 3
		} else {
			s.Tachometer -= s.TachometerDelta + 3
		}
	} else {
		if s.FrameCounter%(1<<s.Gear) == 0 {
			if clutch {
				s.Tachometer -= s.TachometerDelta - 1
			} else {
				s.Tachometer -= s.TachometerDelta + 1
			}
		} else {
			s.Tachometer -= s.TachometerDelta
		}
	}
	if s.Tachometer < 0 {
		s.Tachometer = 0
	}

	limit := SpeedLimit(s.Tachometer, s.Gear)

	// TachometerDelta is post-tachometer minus tachometer.
	if shifting {
		s.TachometerDelta = 0
	} else if limit-s.Speed >= 16 {
		s.TachometerDelta = 1
	} else {
		s.TachometerDelta = 0
	}

	if s.Gear > 0 && !shifting {
		if s.Speed > limit {
			s.Speed--
		}
		if s.Speed < limit {
			s.Speed += 2
		}
	}

	s.Distance += s.Speed
}

// SpeedLimit returns the speed the car converges to for a tachometer and gear.
// Tachometer must be non-negative.
func SpeedLimit(tachometer, gear int) int {
	if gear == 0 {
		// tachometer * 2^-1, truncated
		return tachometer >> 1
	}
	limit := tachometer << (gear - 1)
	if tachometer >= 20 && gear > 1 {
		limit += 1 << (gear - 2)
	}
	return limit
}
