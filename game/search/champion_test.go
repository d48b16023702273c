package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wricardo/dragster/game/engine"
)

func stateWith(frames, distance int) *engine.SimState {
	return &engine.SimState{Frames: frames, Distance: distance}
}

func TestChampion_Sentinel(t *testing.T) {
	c := NewChampion()

	assert.False(t, c.Found())
	assert.Equal(t, engine.MaxFrames, c.Best().Frames)
	assert.Equal(t, 0, c.Best().Distance)
}

func TestChampion_InstallsWinnerOnCeiling(t *testing.T) {
	c := NewChampion()

	assert.True(t, c.Consider(stateWith(engine.MaxFrames, engine.WinningDistance)))
	assert.True(t, c.Found())
	assert.Equal(t, engine.WinningDistance, c.Best().Distance)
}

func TestChampion_UpdateLaw(t *testing.T) {
	c := NewChampion()
	c.Consider(stateWith(125, 25000))

	assert.False(t, c.Consider(stateWith(125, 24000)), "fewer distance on equal frames must not replace")
	assert.False(t, c.Consider(stateWith(125, 25000)), "an exact tie must not replace")
	assert.False(t, c.Consider(stateWith(126, 30000)), "more frames must not replace")
	assert.Equal(t, 125, c.Best().Frames)

	assert.True(t, c.Consider(stateWith(125, 25001)))
	assert.True(t, c.Consider(stateWith(120, 25000)))
	assert.Equal(t, 120, c.Best().Frames)
	assert.Equal(t, 25000, c.Best().Distance)
}

func TestChampion_BestIsACopy(t *testing.T) {
	c := NewChampion()
	c.Consider(stateWith(100, 25000))

	best := c.Best()
	best.Distance = 1

	assert.Equal(t, 25000, c.Best().Distance)
}
