// Package run provides storage for solver runs.
//
// The run package implements:
//   - Thread-safe run storage and retrieval
//   - UUID run identifiers
//   - Optional JSON file persistence of every run record
//   - Recovery of runs interrupted by a restart
//
// Core Types:
//
// Manager implements service.RunStore. Callers always receive copies; changes
// go through Update so that each one is persisted.
//
// Usage:
//
//	persistence, err := run.NewFilePersistence("runs")
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager, err := run.NewManagerWithPersistence(persistence)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	r, err := manager.Create(&service.Run{Status: service.RunPending})
package run
