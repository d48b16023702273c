// Package service provides the business logic layer for the Dragster solver.
//
// The service package implements:
//   - Asynchronous search runs with progress and cancellation
//   - Synchronous solving for the command line
//   - Replay of a finished run's winning trajectory
//   - Simulation of arbitrary input sequences
//
// Core Interfaces:
//
// SolverService is the main service interface used by every transport.
// RunStore keeps run records and their persistence.
// Notifier receives progress events, typically the WebSocket hub.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the search engine. Only one search runs at a time because a solver owns
// hundreds of megabytes of generation tables.
//
// Usage:
//
//	store, err := run.NewManagerWithPersistence(persistence)
//	if err != nil {
//		log.Fatal(err)
//	}
//	svc := service.NewSolverService(store, service.Options{Workers: 4})
//
//	r, err := svc.StartRun(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Later
//	r, err = svc.GetRun(ctx, r.ID)
package service
