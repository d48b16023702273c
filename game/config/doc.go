// Package config provides runtime settings for the Dragster solver.
//
// The config package handles:
//   - Loading settings from an optional YAML file
//   - Environment overrides (DRAGSTER_*), including a local .env file
//   - Validation of worker count, memory budget and server address
//
// The search constants (frame ceiling, finish distance, seed ranges) are not
// settings; they live in package engine.
//
// Precedence:
//
// Defaults are overridden by the YAML file, which is overridden by the
// environment. Command line flags are applied last by the caller.
//
// Usage:
//
//	config.LoadEnvFile()
//
//	settings, err := config.Load("dragster.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
package config
