// Package report renders search results and replayed trajectories for the console.
package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/wricardo/dragster/game/engine"
	"github.com/wricardo/dragster/game/search"
)

// Summary prints the outcome of a search.
func Summary(w io.Writer, result *search.Result) {
	fmt.Fprintln(w)
	if !result.Found {
		fmt.Fprintf(w, "It's not possible to do the race under %ss.\n", result.FinishTime())
		fmt.Fprintf(w, "%d simulations were performed.\n", result.Simulations)
		return
	}

	fmt.Fprintf(w, "The best possible race is %ss.\n", result.FinishTime())
	fmt.Fprintf(w, "The best subdistance reachable with a %ss timer is %d.\n", result.FinishTime(), result.SubDistance())
	fmt.Fprintf(w, "%d simulations were performed.\n", result.Simulations)
}

// Trace replays a history and prints one line per frame. Verbose lines show
// the full physics state; compact lines list the shift and clutch columns.
func Trace(w io.Writer, initialTachometer, initialFrameCounter int, history []engine.Input, verbose bool) error {
	_, frames, err := engine.Replay(initialTachometer, initialFrameCounter, history)
	if err != nil {
		return fmt.Errorf("failed to replay history: %w", err)
	}

	Frames(w, frames, verbose)
	fmt.Fprintf(w, "Initial frame_counter: %d\n", initialFrameCounter)
	fmt.Fprintf(w, "Initial tachometer: %d\n", initialTachometer)
	return nil
}

// Frames prints already replayed frames, one per line.
func Frames(w io.Writer, frames []engine.Frame, verbose bool) {
	for _, f := range frames {
		if verbose {
			fmt.Fprintf(w, "%d: %d,%d | %d - %d - %d - %d - %d\n",
				f.Frame, btoi(f.Clutch), btoi(f.Shift), f.Gear, f.Speed, f.Tachometer, f.TachometerDelta, f.Distance)
		} else {
			fmt.Fprintf(w, "%d\t%d\n", btoi(f.Shift), btoi(f.Clutch))
		}
	}
}

// TraceState prints the trajectory that led to state.
func TraceState(w io.Writer, state engine.SimState, verbose bool) error {
	return Trace(w, state.InitialTachometer, state.InitialFrameCounter, state.Inputs(), verbose)
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Progress is a search.Observer that prints one line per group. With
// verbose set it also prints each group's outcome.
type Progress struct {
	w       io.Writer
	verbose bool
	mu      sync.Mutex
}

// NewProgress creates a progress printer writing to w.
func NewProgress(w io.Writer, verbose bool) *Progress {
	return &Progress{w: w, verbose: verbose}
}

func (p *Progress) GroupStarted(frameCounter int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "Now testing all configurations with an initial frame counter equal to %d.\n", frameCounter)
}

func (p *Progress) FrameSwept(frameCounter, frame, live int) {}

func (p *Progress) GroupFinished(result search.GroupResult) {
	if !p.verbose {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if result.Found {
		fmt.Fprintf(p.w, "  frame counter %d: finished in %ss after %d frames (%d simulations)\n",
			result.FrameCounter, engine.FormatFinishTime(result.Champion.Frames), result.FramesSwept, result.Simulations)
		return
	}
	fmt.Fprintf(p.w, "  frame counter %d: no finish within %d frames (%d simulations)\n",
		result.FrameCounter, result.FramesSwept, result.Simulations)
}
