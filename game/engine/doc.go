// Package engine provides the frame-exact physics model of the Atari 2600 game Dragster.
//
// The engine package implements only the mechanics that decide the finish time:
//   - Gear shifting and the tachometer with its periodic decay
//   - The speed limit derived from gear and tachometer
//   - Speed and distance integration, one in-game frame at a time
//   - The lossy state key used by the search to deduplicate states
//   - Replaying a recorded input history back into a trajectory
//
// Core Types:
//
// SimState is one trajectory snapshot, carrying its own fixed-capacity input
// history so that copying a state copies everything needed to reproduce it.
// Input is the 2-bit clutch/shift record applied on a frame.
//
// Usage:
//
//	state := engine.NewSeed(0, 0, false, false)
//	engine.Step(&state, false, true)
//
//	key := engine.Encode(state)
//
//	// Rebuild the trajectory of a finished state
//	final, frames, err := engine.Replay(state.InitialTachometer, state.InitialFrameCounter, state.Inputs())
//
// Timing:
//
// The in-game timer counts the seed frame as frame 1. A state's Frames value is
// converted to seconds with FormatFinishTime, which truncates and never rounds.
package engine
