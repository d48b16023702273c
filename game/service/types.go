package service

import (
	"errors"
	"time"

	"github.com/wricardo/dragster/game/engine"
	"github.com/wricardo/dragster/game/search"
)

var (
	ErrRunNotFound      = errors.New("run not found")
	ErrRunAlreadyExists = errors.New("run already exists")
	ErrRunNotCompleted  = errors.New("run has not completed")
	ErrRunInProgress    = errors.New("another run is in progress")
	ErrNoWinner         = errors.New("run found no finishing race")
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Terminal reports whether the run can no longer change.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunCancelled
}

// Run is one search request and, once finished, its result.
type Run struct {
	ID          string         `json:"id"`
	Status      RunStatus      `json:"status"`
	Workers     int            `json:"workers"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	GroupsDone  int            `json:"groups_done"`
	GroupsTotal int            `json:"groups_total"`
	Result      *search.Result `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Clone returns a copy that shares nothing mutable with r.
func (r *Run) Clone() *Run {
	c := *r
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	if r.Result != nil {
		res := *r.Result
		res.Groups = append([]search.GroupResult(nil), r.Result.Groups...)
		c.Result = &res
	}
	return &c
}

// RunSummary is the compact listing form of a run.
type RunSummary struct {
	ID          string    `json:"id"`
	Status      RunStatus `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	GroupsDone  int       `json:"groups_done"`
	GroupsTotal int       `json:"groups_total"`
	Found       bool      `json:"found"`
	FinishTime  string    `json:"finish_time,omitempty"`
}

// Summary converts a run to its listing form.
func (r *Run) Summary() RunSummary {
	s := RunSummary{
		ID:          r.ID,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		GroupsDone:  r.GroupsDone,
		GroupsTotal: r.GroupsTotal,
	}
	if r.Result != nil {
		s.Found = r.Result.Found
		s.FinishTime = r.Result.FinishTime()
	}
	return s
}

// SimulateRequest describes an input sequence to replay from a seed.
type SimulateRequest struct {
	InitialTachometer   int    `json:"initial_tachometer"`
	InitialFrameCounter int    `json:"initial_frame_counter"`
	Inputs              string `json:"inputs"`
}

// TraceResult is a replayed trajectory, frame by frame.
type TraceResult struct {
	RunID               string          `json:"run_id,omitempty"`
	InitialTachometer   int             `json:"initial_tachometer"`
	InitialFrameCounter int             `json:"initial_frame_counter"`
	Inputs              string          `json:"inputs"`
	Won                 bool            `json:"won"`
	FinishTime          string          `json:"finish_time"`
	Final               engine.SimState `json:"final"`
	Frames              []engine.Frame  `json:"frames"`
}

// Constants exposes the fixed search parameters.
type Constants struct {
	MaxFrames            int    `json:"max_frames"`
	MaxFinishTime        string `json:"max_finish_time"`
	WinningDistance      int    `json:"winning_distance"`
	MaxTachometer        int    `json:"max_tachometer"`
	MaxFrameCounter      int    `json:"max_frame_counter"`
	MaxGear              int    `json:"max_gear"`
	MaxSpeed             int    `json:"max_speed"`
	MaxStates            int    `json:"max_states"`
	TachometerSeedStep   int    `json:"tachometer_seed_step"`
	FrameCounterSeedStep int    `json:"frame_counter_seed_step"`
	Groups               int    `json:"groups"`
	TableBytes           int64  `json:"table_bytes"`
}

// Event names published through a Notifier.
const (
	EventRunStarted    = "run_started"
	EventGroupStarted  = "group_started"
	EventFrameSwept    = "frame_swept"
	EventGroupFinished = "group_finished"
	EventRunCompleted  = "run_completed"
	EventRunFailed     = "run_failed"
)

// FrameEvent is the payload of EventFrameSwept.
type FrameEvent struct {
	FrameCounter int `json:"frame_counter"`
	Frame        int `json:"frame"`
	LiveStates   int `json:"live_states"`
}

// GroupEvent is the payload of EventGroupStarted.
type GroupEvent struct {
	FrameCounter int `json:"frame_counter"`
}
