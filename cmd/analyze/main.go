// Command analyze prints quick, human-readable statistics about saved runs in
// a results directory (default "runs"). It summarizes each initial frame
// counter group: its best finish, how far the sweep went, how full the
// generation table got and how much work it cost.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/wricardo/dragster/game/engine"
	"github.com/wricardo/dragster/game/run"
	"github.com/wricardo/dragster/game/search"
	"github.com/wricardo/dragster/game/service"
)

// GroupAnalysis is the per-group row of the report.
type GroupAnalysis struct {
	FrameCounter int
	Found        bool
	FinishTime   string
	Distance     int
	FramesSwept  int
	PeakStates   int
	// Occupancy is the peak fraction of the key space in use.
	Occupancy   float64
	Simulations uint64
	Duration    time.Duration
	// Behind is how many frames this group's winner trails the champion.
	Behind int
}

// RunAnalysis aggregates the groups of one run.
type RunAnalysis struct {
	ID          string
	Status      service.RunStatus
	Workers     int
	Found       bool
	FinishTime  string
	Simulations uint64
	Duration    time.Duration
	Groups      []GroupAnalysis
	PeakStates  int
	// PeakTableBytes is the live memory of the busiest group's table pair.
	PeakTableBytes int64
}

// SimulationsPerSecond is the run's overall throughput.
func (a RunAnalysis) SimulationsPerSecond() float64 {
	if a.Duration <= 0 {
		return 0
	}
	return float64(a.Simulations) / a.Duration.Seconds()
}

func analyzeRun(r *service.Run) RunAnalysis {
	a := RunAnalysis{
		ID:      r.ID,
		Status:  r.Status,
		Workers: r.Workers,
	}
	if r.Result == nil {
		return a
	}

	res := r.Result
	a.Found = res.Found
	a.FinishTime = res.FinishTime()
	a.Simulations = res.Simulations
	a.Duration = res.Duration

	for _, g := range res.Groups {
		a.Groups = append(a.Groups, analyzeGroup(g, res.Champion.Frames))
		if g.PeakStates > a.PeakStates {
			a.PeakStates = g.PeakStates
		}
	}
	a.PeakTableBytes = 2 * search.TableBytes * int64(a.PeakStates) / engine.MaxStates
	return a
}

func analyzeGroup(g search.GroupResult, championFrames int) GroupAnalysis {
	ga := GroupAnalysis{
		FrameCounter: g.FrameCounter,
		Found:        g.Found,
		FramesSwept:  g.FramesSwept,
		PeakStates:   g.PeakStates,
		Occupancy:    float64(g.PeakStates) / engine.MaxStates,
		Simulations:  g.Simulations,
		Duration:     g.Duration,
	}
	if g.Found {
		ga.FinishTime = engine.FormatFinishTime(g.Champion.Frames)
		ga.Distance = g.Champion.Distance
		ga.Behind = g.Champion.Frames - championFrames
	}
	return ga
}

func printAnalysis(w io.Writer, a RunAnalysis) {
	fmt.Fprintf(w, "Run: %s\n", a.ID)
	fmt.Fprintf(w, "Status: %s\n", a.Status)
	fmt.Fprintf(w, "Workers: %d\n", a.Workers)

	if a.Groups == nil {
		fmt.Fprintf(w, "⚠️  No result recorded\n")
		return
	}

	if a.Found {
		fmt.Fprintf(w, "Best race: %ss\n", a.FinishTime)
	} else {
		fmt.Fprintf(w, "Best race: none under %ss\n", a.FinishTime)
	}
	fmt.Fprintf(w, "Simulations: %d (%.0f/s over %s)\n", a.Simulations, a.SimulationsPerSecond(), a.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Peak states: %d of %d, ~%d MiB of tables live\n", a.PeakStates, engine.MaxStates, a.PeakTableBytes>>20)

	fmt.Fprintf(w, "\n%4s  %7s  %8s  %6s  %7s  %6s  %12s  %10s\n",
		"fc", "finish", "distance", "behind", "frames", "peak%", "simulations", "duration")
	for _, g := range a.Groups {
		finish, distance, behind := "-", "-", "-"
		if g.Found {
			finish = g.FinishTime
			distance = fmt.Sprint(g.Distance)
			behind = fmt.Sprintf("+%d", g.Behind)
		}
		fmt.Fprintf(w, "%4d  %7s  %8s  %6s  %7d  %5.1f%%  %12d  %10s\n",
			g.FrameCounter, finish, distance, behind, g.FramesSwept, g.Occupancy*100, g.Simulations, g.Duration.Round(time.Millisecond))
	}

	missing := 0
	for _, g := range a.Groups {
		if !g.Found {
			missing++
		}
	}
	if missing == len(a.Groups) {
		fmt.Fprintf(w, "⚠️  No group reached the finish line\n")
	} else if missing > 0 {
		fmt.Fprintf(w, "⚠️  %d of %d groups never reached the finish line\n", missing, len(a.Groups))
	} else {
		fmt.Fprintf(w, "✅ Every group reached the finish line\n")
	}
}

func main() {
	resultsDir := "runs"
	if len(os.Args) > 1 {
		resultsDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(resultsDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding run files: %v\n", err)
		os.Exit(1)
	}

	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
		r, err := run.ReadFile(file)
		if err != nil {
			fmt.Printf("Error reading run: %v\n", err)
			continue
		}
		printAnalysis(os.Stdout, analyzeRun(r))
	}
}
