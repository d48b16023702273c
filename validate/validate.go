// Command validate checks saved run files in a results directory (default
// "runs"). It checks:
//   - JSON structure, run ID and status
//   - Completed runs carry one result per initial frame counter group
//   - Simulation counts add up across groups
//   - The champion is the best of the group champions
//   - Replay: the champion's recorded inputs reproduce its final state
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/wricardo/dragster/game/engine"
	"github.com/wricardo/dragster/game/run"
	"github.com/wricardo/dragster/game/search"
	"github.com/wricardo/dragster/game/service"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...any) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validateRun loads and validates a single run file.
func validateRun(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	r, err := run.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read run: %v", err)
		return result
	}

	if _, err := uuid.Parse(r.ID); err != nil {
		result.fail("Invalid run ID %q", r.ID)
	}
	if strings.TrimSuffix(result.File, ".json") != r.ID {
		result.fail("File name does not match run ID %s", r.ID)
	}

	switch r.Status {
	case service.RunPending, service.RunRunning:
		result.fail("Run is still %s; it was interrupted before completing", r.Status)
		return result
	case service.RunFailed, service.RunCancelled:
		if r.Error == "" {
			result.fail("Run is %s without an error message", r.Status)
		} else {
			result.info("Run %s: %s", r.Status, r.Error)
		}
		return result
	case service.RunCompleted:
	default:
		result.fail("Unknown status %q", r.Status)
		return result
	}

	if r.Result == nil {
		result.fail("Completed run has no result")
		return result
	}

	validateGroups(&result, r.Result)
	validateChampion(&result, r.Result)
	return result
}

// validateGroups checks group coverage, simulation totals and the champion fold.
func validateGroups(result *ValidationResult, res *search.Result) {
	want := engine.MaxFrameCounter / engine.FrameCounterSeedStep
	if len(res.Groups) != want {
		result.fail("Expected %d groups, found %d", want, len(res.Groups))
		return
	}

	var simulations uint64
	champion := search.NewChampion()
	for i, g := range res.Groups {
		if g.FrameCounter != i*engine.FrameCounterSeedStep {
			result.fail("Group %d has frame counter %d, expected %d", i, g.FrameCounter, i*engine.FrameCounterSeedStep)
		}
		simulations += g.Simulations
		if g.Found {
			champion.Consider(&g.Champion)
		}
	}

	if simulations != res.Simulations {
		result.fail("Simulation count %d does not match group total %d", res.Simulations, simulations)
	} else {
		result.info("Groups: %d covering every initial frame counter, %d simulations", len(res.Groups), simulations)
	}

	best := champion.Best()
	if champion.Found() != res.Found || best.Frames != res.Champion.Frames || best.Distance != res.Champion.Distance {
		result.fail("Champion (%d frames, distance %d) is not the best group champion (%d frames, distance %d)",
			res.Champion.Frames, res.Champion.Distance, best.Frames, best.Distance)
	}
}

// validateChampion replays the champion's inputs and compares the final state.
func validateChampion(result *ValidationResult, res *search.Result) {
	c := res.Champion
	if !res.Found {
		if c.Frames != engine.MaxFrames {
			result.fail("Failed search should report the %d frame ceiling, got %d", engine.MaxFrames, c.Frames)
		} else {
			result.info("No race under %ss", engine.FormatFinishTime(c.Frames))
		}
		return
	}

	if !c.Won() {
		result.fail("Champion distance %d is short of the finish line %d", c.Distance, engine.WinningDistance)
	}
	if c.Frames > engine.MaxFrames {
		result.fail("Champion took %d frames, ceiling is %d", c.Frames, engine.MaxFrames)
	}

	final, _, err := engine.Replay(c.InitialTachometer, c.InitialFrameCounter, c.Inputs())
	if err != nil {
		result.fail("Replay failed: %v", err)
		return
	}

	if final.Frames != c.Frames || final.Distance != c.Distance || final.Speed != c.Speed ||
		final.Gear != c.Gear || final.Tachometer != c.Tachometer || final.FrameCounter != c.FrameCounter {
		result.fail("Replay diverged: recorded %d frames/distance %d, replayed %d frames/distance %d",
			c.Frames, c.Distance, final.Frames, final.Distance)
		return
	}
	result.info("Replay: %ss, distance %d reproduced from %d inputs", engine.FormatFinishTime(c.Frames), c.Distance, c.Frames)
}

// main scans the results directory for *.json files and validates each one,
// printing a concise report and exiting with non-zero status if any are invalid.
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
	if len(files) == 0 {
		fmt.Printf("No run files in %s\n", resultsDir)
		return
	}

	allValid := true
	for _, file := range files {
		result := validateRun(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All runs are valid!")
	} else {
		fmt.Println("❌ Some runs have errors")
		os.Exit(1)
	}
}
