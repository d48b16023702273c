// Package search finds the fastest possible Dragster race by exhaustive,
// generational breadth-first search over every per-frame input.
//
// The search package implements:
//   - The champion tracker holding the best finishing state
//   - Dense generation tables keyed by engine.Encode, keeping one dominant
//     state per key
//   - The Solver session that seeds every initial condition, sweeps frame by
//     frame, prunes states that can no longer finish in time and deduplicates
//     the survivors
//
// Groups:
//
// States sharing the same initial frame counter form a group. Groups share no
// state, so a Solver runs them on a bounded worker pool; each worker owns one
// pair of generation tables, allocated up front and cleared between groups.
// Group champions are folded in group order, so the result and the simulation
// count do not depend on the number of workers.
//
// Usage:
//
//	solver, err := search.NewSolver(search.Options{Workers: 2})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := solver.Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if result.Found {
//		fmt.Println(result.FinishTime())
//	}
package search
