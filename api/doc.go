// Package api provides HTTP REST API handlers for the Dragster solver.
//
// The api package implements:
//   - Asynchronous search runs (start, inspect, list, cancel)
//   - Frame-by-frame replay of a finished run's winning race
//   - Simulation of arbitrary input sequences
//   - WebSocket upgrade for progress events
//   - Prometheus metrics
//
// Endpoints:
//
// Runs:
//   - POST /api/runs - Start a search run (202 Accepted)
//   - GET /api/runs - List runs
//   - GET /api/runs/{id} - Get a run, including its result once completed
//   - DELETE /api/runs/{id} - Cancel if searching, then delete
//   - GET /api/runs/{id}/trace - Replay the champion of a completed run
//
// Simulation:
//   - POST /api/simulate - Replay {initial_tachometer, initial_frame_counter, inputs}
//   - GET /api/constants - Search constants
//
// Other:
//   - GET /ws?run={id} - Progress events (every run when run is omitted)
//   - GET /metrics - Prometheus metrics
//   - GET /health - Liveness
//
// Inputs:
//
// Input sequences are strings with one digit per frame: 0 none, 1 clutch,
// 2 shift, 3 both. The first digit is the seed frame.
//
// Error Handling:
//
// Errors are returned as JSON with an appropriate HTTP status code:
//
//	{
//	  "error": "run not found"
//	}
package api
