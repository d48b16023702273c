package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/wricardo/dragster/game/engine"
	"github.com/wricardo/dragster/game/search"
)

// groupCount is the number of initial frame counter groups in a run.
const groupCount = engine.MaxFrameCounter / engine.FrameCounterSeedStep

// searcher is the part of *search.Solver the service drives.
type searcher interface {
	Run(ctx context.Context) (*search.Result, error)
	Workers() int
}

// newSolver is replaced in tests to avoid full-length searches.
var newSolver = func(opts search.Options) (searcher, error) {
	return search.NewSolver(opts)
}

type activeRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// solverServiceImpl implements the SolverService interface
type solverServiceImpl struct {
	runs RunStore
	opts Options

	mu     sync.Mutex
	active map[string]*activeRun
}

// NewSolverService creates a new solver service instance
func NewSolverService(runs RunStore, opts Options) SolverService {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &solverServiceImpl{
		runs:   runs,
		opts:   opts,
		active: make(map[string]*activeRun),
	}
}

// StartRun allocates a solver and starts a search in the background
func (s *solverServiceImpl) StartRun(ctx context.Context) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.active {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, id)
	}

	r, err := s.runs.Create(&Run{
		Status:      RunPending,
		Workers:     s.opts.Workers,
		CreatedAt:   time.Now(),
		GroupsTotal: groupCount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	observer := &runObserver{svc: s, runID: r.ID}
	solver, err := newSolver(search.Options{
		Workers:          s.opts.Workers,
		MemoryLimitBytes: s.opts.MemoryLimitBytes,
		Observer:         observer,
	})
	if err != nil {
		s.finish(r.ID, nil, err)
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	a := &activeRun{cancel: cancel, done: make(chan struct{})}
	s.active[r.ID] = a

	go s.execute(runCtx, r.ID, solver, a)

	return r, nil
}

func (s *solverServiceImpl) execute(ctx context.Context, runID string, solver searcher, a *activeRun) {
	defer close(a.done)
	defer a.cancel()

	now := time.Now()
	if _, err := s.runs.Update(runID, func(r *Run) {
		r.Status = RunRunning
		r.StartedAt = &now
	}); err != nil {
		log.Printf("Warning: failed to mark run %s running: %v", runID, err)
	}
	s.notify(runID, EventRunStarted, map[string]any{"workers": solver.Workers(), "groups": groupCount})

	result, err := solver.Run(ctx)
	s.finish(runID, result, err)

	s.mu.Lock()
	delete(s.active, runID)
	s.mu.Unlock()
}

// finish records the outcome of a run and publishes the final event.
func (s *solverServiceImpl) finish(runID string, result *search.Result, runErr error) {
	now := time.Now()
	r, err := s.runs.Update(runID, func(r *Run) {
		r.CompletedAt = &now
		switch {
		case runErr == nil:
			r.Status = RunCompleted
			r.Result = result
			r.GroupsDone = len(result.Groups)
		case errors.Is(runErr, context.Canceled):
			r.Status = RunCancelled
			r.Error = runErr.Error()
		default:
			r.Status = RunFailed
			r.Error = runErr.Error()
		}
	})
	if err != nil {
		// Deleted while running.
		if !errors.Is(err, ErrRunNotFound) {
			log.Printf("Warning: failed to record outcome of run %s: %v", runID, err)
		}
		return
	}

	if r.Status == RunCompleted {
		s.notify(runID, EventRunCompleted, r.Summary())
		return
	}
	s.notify(runID, EventRunFailed, map[string]any{"status": r.Status, "error": r.Error})
}

func (s *solverServiceImpl) notify(runID, event string, data any) {
	if s.opts.Notifier != nil {
		s.opts.Notifier.BroadcastEvent(runID, event, data)
	}
}

// GetRun retrieves a run
func (s *solverServiceImpl) GetRun(ctx context.Context, runID string) (*Run, error) {
	return s.runs.Get(runID)
}

// ListRuns returns every known run, oldest first
func (s *solverServiceImpl) ListRuns(ctx context.Context) ([]RunSummary, error) {
	runs := s.runs.List()
	result := make([]RunSummary, 0, len(runs))
	for _, r := range runs {
		result = append(result, r.Summary())
	}
	return result, nil
}

// DeleteRun cancels a run if it is still searching and removes it
func (s *solverServiceImpl) DeleteRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	a, ok := s.active[runID]
	s.mu.Unlock()

	if ok {
		a.cancel()
		select {
		case <-a.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.runs.Delete(runID)
}

// Wait blocks until the run reaches a terminal status
func (s *solverServiceImpl) Wait(ctx context.Context, runID string) (*Run, error) {
	s.mu.Lock()
	a, ok := s.active[runID]
	s.mu.Unlock()

	if ok {
		select {
		case <-a.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.runs.Get(runID)
}

// Solve runs a search in the calling goroutine
func (s *solverServiceImpl) Solve(ctx context.Context, observer search.Observer) (*search.Result, error) {
	solver, err := newSolver(search.Options{
		Workers:          s.opts.Workers,
		MemoryLimitBytes: s.opts.MemoryLimitBytes,
		Observer:         observer,
	})
	if err != nil {
		return nil, err
	}
	return solver.Run(ctx)
}

// TraceRun replays the champion of a completed run
func (s *solverServiceImpl) TraceRun(ctx context.Context, runID string) (*TraceResult, error) {
	r, err := s.runs.Get(runID)
	if err != nil {
		return nil, err
	}
	if r.Status != RunCompleted || r.Result == nil {
		return nil, fmt.Errorf("%w: %s is %s", ErrRunNotCompleted, runID, r.Status)
	}
	if !r.Result.Found {
		return nil, fmt.Errorf("%w: %s", ErrNoWinner, runID)
	}

	champion := r.Result.Champion
	trace, err := trace(champion.InitialTachometer, champion.InitialFrameCounter, champion.Inputs())
	if err != nil {
		return nil, err
	}
	trace.RunID = runID
	return trace, nil
}

// Simulate replays an arbitrary input sequence
func (s *solverServiceImpl) Simulate(ctx context.Context, req SimulateRequest) (*TraceResult, error) {
	history, err := engine.ParseHistory(req.Inputs)
	if err != nil {
		return nil, err
	}
	return trace(req.InitialTachometer, req.InitialFrameCounter, history)
}

func trace(initialTachometer, initialFrameCounter int, history []engine.Input) (*TraceResult, error) {
	final, frames, err := engine.Replay(initialTachometer, initialFrameCounter, history)
	if err != nil {
		return nil, err
	}
	return &TraceResult{
		InitialTachometer:   initialTachometer,
		InitialFrameCounter: initialFrameCounter,
		Inputs:              engine.FormatHistory(history),
		Won:                 final.Won(),
		FinishTime:          engine.FormatFinishTime(final.Frames),
		Final:               final,
		Frames:              frames,
	}, nil
}

// Constants returns the fixed search parameters
func (s *solverServiceImpl) Constants(ctx context.Context) Constants {
	return Constants{
		MaxFrames:            engine.MaxFrames,
		MaxFinishTime:        engine.FormatFinishTime(engine.MaxFrames),
		WinningDistance:      engine.WinningDistance,
		MaxTachometer:        engine.MaxTachometer,
		MaxFrameCounter:      engine.MaxFrameCounter,
		MaxGear:              engine.MaxGear,
		MaxSpeed:             engine.MaxSpeed,
		MaxStates:            engine.MaxStates,
		TachometerSeedStep:   engine.TachometerSeedStep,
		FrameCounterSeedStep: engine.FrameCounterSeedStep,
		Groups:               groupCount,
		TableBytes:           search.TableBytes,
	}
}

// runObserver forwards solver progress to the store and the notifier.
type runObserver struct {
	svc   *solverServiceImpl
	runID string
}

func (o *runObserver) GroupStarted(frameCounter int) {
	o.svc.notify(o.runID, EventGroupStarted, GroupEvent{FrameCounter: frameCounter})
}

func (o *runObserver) FrameSwept(frameCounter, frame, live int) {
	if !o.svc.opts.FrameEvents {
		return
	}
	o.svc.notify(o.runID, EventFrameSwept, FrameEvent{FrameCounter: frameCounter, Frame: frame, LiveStates: live})
}

func (o *runObserver) GroupFinished(result search.GroupResult) {
	if _, err := o.svc.runs.Update(o.runID, func(r *Run) { r.GroupsDone++ }); err != nil {
		log.Printf("Warning: failed to update progress of run %s: %v", o.runID, err)
	}
	o.svc.notify(o.runID, EventGroupFinished, result)
}
