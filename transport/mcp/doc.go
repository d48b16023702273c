// Package mcp provides a Model Context Protocol server for the Dragster solver.
//
// The mcp package implements:
//   - MCP tools that proxy to the REST API
//   - Text formatting of runs and replayed trajectories for agents
//
// MCP Tools:
//
// The package exposes the following tools:
//   - start_run: Start an asynchronous search run
//   - get_run: Get a run's status and, once completed, its result
//   - list_runs: List known runs
//   - cancel_run: Cancel and delete a run
//   - run_trace: Replay the winning race of a completed run
//   - simulate: Replay an arbitrary input sequence from a seed
//   - solver_constants: Show the fixed search parameters
//   - solver_instructions: Explain the model, the search and the tools
//
// Transport Modes:
//
// The server supports two transport modes:
//   - Stdio: Direct stdio communication for local MCP clients
//   - HTTP: the /mcp endpoint of the serve command
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
