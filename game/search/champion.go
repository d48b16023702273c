package search

import "github.com/wricardo/dragster/game/engine"

// Champion holds the best finishing state found so far.
type Champion struct {
	best  engine.SimState
	found bool
}

// NewChampion returns a tracker holding the sentinel: the frame ceiling with
// zero distance. Any real winner beats it, even one finishing on the ceiling.
func NewChampion() *Champion {
	c := &Champion{}
	c.best.Frames = engine.MaxFrames
	return c
}

// Better reports whether candidate ranks strictly above current: fewer
// frames, or the same frames and more distance.
func Better(candidate, current *engine.SimState) bool {
	if candidate.Frames != current.Frames {
		return candidate.Frames < current.Frames
	}
	return candidate.Distance > current.Distance
}

// Consider installs candidate if it ranks strictly above the held state.
func (c *Champion) Consider(candidate *engine.SimState) bool {
	if !Better(candidate, &c.best) {
		return false
	}
	c.best = *candidate
	c.found = true
	return true
}

// Best returns a copy of the held state (the sentinel if nothing was found).
func (c *Champion) Best() engine.SimState {
	return c.best
}

// Found reports whether a real state replaced the sentinel.
func (c *Champion) Found() bool {
	return c.found
}
