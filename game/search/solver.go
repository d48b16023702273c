package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/wricardo/dragster/game/engine"
	"golang.org/x/sync/errgroup"
)

// ErrAllocation is returned when the generation tables would exceed the memory budget.
var ErrAllocation = errors.New("generation table allocation failed")

// DefaultMemoryLimit caps the table arenas when Options leaves it unset.
const DefaultMemoryLimit int64 = 1 << 30

// inputOrder is the expansion order of the four control combinations; the
// index of an input doubles as the low bits of its dedup order.
var inputOrder = [4]engine.Input{
	0,
	engine.InputShift,
	engine.InputClutch,
	engine.InputClutch | engine.InputShift,
}

// Observer receives progress from a running search. With more than one
// worker, calls arrive from several goroutines.
type Observer interface {
	GroupStarted(frameCounter int)
	FrameSwept(frameCounter, frame, live int)
	GroupFinished(result GroupResult)
}

type noopObserver struct{}

func (noopObserver) GroupStarted(int)          {}
func (noopObserver) FrameSwept(int, int, int)  {}
func (noopObserver) GroupFinished(GroupResult) {}

// Options configures a Solver. Search constants are fixed in package engine.
type Options struct {
	// Workers is the number of groups searched concurrently (default 1).
	Workers int

	// MemoryLimitBytes caps the memory of all table arenas (default 1 GiB).
	MemoryLimitBytes int64

	Observer Observer
}

// GroupResult summarizes the search of one initial frame counter.
type GroupResult struct {
	FrameCounter int             `json:"frame_counter"`
	Found        bool            `json:"found"`
	Champion     engine.SimState `json:"champion"`
	FramesSwept  int             `json:"frames_swept"`
	PeakStates   int             `json:"peak_states"`
	Simulations  uint64          `json:"simulations"`
	Duration     time.Duration   `json:"duration"`
}

// Result is the outcome of a complete search.
type Result struct {
	Found       bool            `json:"found"`
	Champion    engine.SimState `json:"champion"`
	Simulations uint64          `json:"simulations"`
	Groups      []GroupResult   `json:"groups"`
	Duration    time.Duration   `json:"duration"`
}

// FinishTime is the champion's in-game timer; for a failed search it is the
// ceiling the race could not beat.
func (r *Result) FinishTime() string {
	return engine.FormatFinishTime(r.Champion.Frames)
}

// SubDistance is the champion's distance within its last 256-unit screen.
func (r *Result) SubDistance() int {
	return r.Champion.Distance % 256
}

// arena is the pair of tables one worker sweeps with.
type arena struct {
	current  *GenerationTable
	upcoming *GenerationTable
}

// Solver is one search session. It owns the table arenas; the champion and
// counters live for the duration of a Run.
type Solver struct {
	workers  int
	observer Observer
	arenas   chan *arena
	mu       sync.Mutex
}

// EstimateMemory returns the arena memory needed by the given worker count.
func EstimateMemory(workers int) int64 {
	return int64(workers) * 2 * TableBytes
}

// NewSolver allocates the table arenas for every worker.
func NewSolver(opts Options) (*Solver, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	limit := opts.MemoryLimitBytes
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	if need := EstimateMemory(workers); need > limit {
		return nil, fmt.Errorf("%w: %d workers need %d bytes, limit is %d", ErrAllocation, workers, need, limit)
	}

	observer := opts.Observer
	if observer == nil {
		observer = noopObserver{}
	}

	s := &Solver{
		workers:  workers,
		observer: observer,
		arenas:   make(chan *arena, workers),
	}
	for i := 0; i < workers; i++ {
		s.arenas <- &arena{
			current:  NewGenerationTable(),
			upcoming: NewGenerationTable(),
		}
	}
	return s, nil
}

// Workers returns the number of concurrently searched groups.
func (s *Solver) Workers() int {
	return s.workers
}

// Run searches every initial frame counter group and returns the best race.
// A search that finds no winner is a normal result with Found unset.
func (s *Solver) Run(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	groupCount := engine.MaxFrameCounter / engine.FrameCounterSeedStep
	groups := make([]GroupResult, groupCount)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := 0; i < groupCount; i++ {
		g.Go(func() error {
			a := <-s.arenas
			defer func() { s.arenas <- a }()

			res, err := s.searchGroup(gctx, i*engine.FrameCounterSeedStep, a)
			if err != nil {
				return err
			}
			groups[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		runsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	champion := NewChampion()
	result := &Result{Groups: groups}
	for i := range groups {
		result.Simulations += groups[i].Simulations
		if groups[i].Found {
			champion.Consider(&groups[i].Champion)
		}
	}
	result.Found = champion.Found()
	result.Champion = champion.Best()
	result.Duration = time.Since(start)

	if result.Found {
		runsTotal.WithLabelValues("found").Inc()
	} else {
		runsTotal.WithLabelValues("not_found").Inc()
	}
	return result, nil
}

// seedGroup fills table with the initial states of one frame counter group.
// Seeds that share a key overwrite each other, later seeds winning.
func seedGroup(table *GenerationTable, frameCounter int) {
	order := 0
	for tachometer := 0; tachometer < engine.MaxTachometer; tachometer += engine.TachometerSeedStep {
		for clutch := 0; clutch <= 1; clutch++ {
			for shift := 0; shift <= 1; shift++ {
				seed := engine.NewSeed(tachometer, frameCounter, clutch == 1, shift == 1)
				table.Offer(engine.Encode(seed), &seed, order)
				order++
			}
		}
	}
}

// feasible reports whether a state produced while sweeping frame can still
// reach the finish line at full speed within the frame ceiling.
func feasible(s *engine.SimState, frame int) bool {
	return s.Tachometer < engine.MaxTachometer &&
		s.Distance+engine.MaxSpeed*(engine.MaxFrames-frame) >= engine.WinningDistance
}

func (s *Solver) searchGroup(ctx context.Context, frameCounter int, a *arena) (GroupResult, error) {
	start := time.Now()
	label := strconv.Itoa(frameCounter)
	defer liveStates.DeleteLabelValues(label)

	current, upcoming := a.current, a.upcoming
	current.Reset()
	upcoming.Reset()

	s.observer.GroupStarted(frameCounter)
	seedGroup(current, frameCounter)

	champion := NewChampion()
	result := GroupResult{FrameCounter: frameCounter, PeakStates: current.Len()}
	won := false

	for frame := 1; frame <= engine.MaxFrames && !won; frame++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		keys := current.Keys()
		if len(keys) == 0 {
			break
		}

		var sims uint64
		for _, key := range keys {
			parent, _ := current.Get(key)
			if parent.Frames != frame {
				continue
			}
			for i, in := range inputOrder {
				candidate := *parent
				engine.Step(&candidate, in.Clutch(), in.Shift())
				sims++

				if !feasible(&candidate, frame) {
					continue
				}
				// A winner ends the group once this frame is fully swept.
				if candidate.Won() {
					champion.Consider(&candidate)
					won = true
					continue
				}
				upcoming.Offer(engine.Encode(candidate), &candidate, key*len(inputOrder)+i)
			}
		}

		result.Simulations += sims
		result.FramesSwept = frame
		if n := upcoming.Len(); n > result.PeakStates {
			result.PeakStates = n
		}
		simulationsTotal.Add(float64(sims))
		liveStates.WithLabelValues(label).Set(float64(upcoming.Len()))
		s.observer.FrameSwept(frameCounter, frame, upcoming.Len())

		current, upcoming = upcoming, current
		upcoming.Reset()
	}

	current.Reset()
	result.Found = champion.Found()
	result.Champion = champion.Best()
	result.Duration = time.Since(start)

	if result.Found {
		groupsTotal.WithLabelValues("won").Inc()
	} else {
		groupsTotal.WithLabelValues("exhausted").Inc()
	}
	groupDuration.Observe(result.Duration.Seconds())
	s.observer.GroupFinished(result)

	return result, nil
}
