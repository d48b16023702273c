package engine

import (
	"fmt"
	"math"
)

// frameSeconds is the duration of one frame in hundredths of a second. The
// timer is the float64 product truncated; for 1..MaxFrames it agrees with
// exact decimal arithmetic.
const frameSeconds = 3.34

// FinishHundredths returns the in-game timer for a frame count in hundredths
// of a second.
func FinishHundredths(frames int) int {
	return int(math.Trunc(float64(frames) * frameSeconds))
}

// FormatFinishTime renders the in-game timer as seconds with two decimals.
func FormatFinishTime(frames int) string {
	h := FinishHundredths(frames)
	return fmt.Sprintf("%d.%02d", h/100, h%100)
}
