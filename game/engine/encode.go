package engine

// Encode projects the search-relevant fields of a state onto a dense key in
// [0, MaxStates).
//
// Two states with the same key behave identically for every future input;
// only Distance and Frames may differ, and Distance only adds up. Callers must
// only encode live states (tachometer below MaxTachometer).
func Encode(s SimState) int {
	shiftBit := 0
	if s.LastInput().Shift() {
		shiftBit = 1
	}
	return shiftBit +
		2*s.Gear +
		2*(MaxGear+1)*s.Speed +
		2*(MaxGear+1)*MaxSpeed*s.Tachometer +
		2*(MaxGear+1)*MaxSpeed*MaxTachometer*s.TachometerDelta
}
