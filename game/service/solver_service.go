package service

import (
	"context"

	"github.com/wricardo/dragster/game/search"
)

// SolverService defines all solver operations exposed to transports
type SolverService interface {
	// Runs
	StartRun(ctx context.Context) (*Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context) ([]RunSummary, error)
	DeleteRun(ctx context.Context, runID string) error
	Wait(ctx context.Context, runID string) (*Run, error)

	// Synchronous search, used by the command line
	Solve(ctx context.Context, observer search.Observer) (*search.Result, error)

	// Trajectories
	TraceRun(ctx context.Context, runID string) (*TraceResult, error)
	Simulate(ctx context.Context, req SimulateRequest) (*TraceResult, error)

	Constants(ctx context.Context) Constants
}

// RunStore defines run storage operations
type RunStore interface {
	Create(run *Run) (*Run, error)
	Get(id string) (*Run, error)
	List() []*Run
	Update(id string, fn func(*Run)) (*Run, error)
	Delete(id string) error
}

// Notifier receives run progress events
type Notifier interface {
	BroadcastEvent(runID, event string, data any)
}

// Options configures the solver service.
type Options struct {
	Workers          int
	MemoryLimitBytes int64

	// FrameEvents publishes one event per swept frame, about 1300 per run.
	FrameEvents bool

	Notifier Notifier
}
