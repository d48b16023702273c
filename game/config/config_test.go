package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func mapLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	s := Default()

	require.NoError(t, s.Validate())
	assert.Equal(t, 1, s.Workers)
	assert.Equal(t, int64(DefaultMemoryLimitMB)<<20, s.MemoryLimitBytes())
	assert.Equal(t, "localhost:8080", s.Addr())
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "dragster.yaml", `
workers: 4
memory_limit_mb: 2048
results_dir: /tmp/dragster-runs
frame_events: true
server:
  host: 0.0.0.0
  port: 9090
`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Workers)
	assert.Equal(t, 2048, s.MemoryLimitMB)
	assert.Equal(t, "/tmp/dragster-runs", s.ResultsDir)
	assert.True(t, s.FrameEvents)
	assert.Equal(t, "0.0.0.0:9090", s.Addr())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", "workers: [1, 2")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dragster.yaml", "workers: 2\n")
	t.Setenv("DRAGSTER_WORKERS", "3")
	t.Setenv("DRAGSTER_RESULTS_DIR", "elsewhere")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Workers)
	assert.Equal(t, "elsewhere", s.ResultsDir)
}

func TestApplyEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"non-numeric workers", map[string]string{"DRAGSTER_WORKERS": "many"}},
		{"non-boolean debug", map[string]string{"DRAGSTER_DEBUG": "sometimes"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := Default().ApplyEnv(mapLookup(test.env))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero workers", func(s *Settings) { s.Workers = 0 }},
		{"too many workers", func(s *Settings) { s.Workers = MaxWorkers + 1 }},
		{"no memory", func(s *Settings) { s.MemoryLimitMB = 0 }},
		{"no results dir", func(s *Settings) { s.ResultsDir = "" }},
		{"bad port", func(s *Settings) { s.Server.Port = 70000 }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := Default()
			test.mutate(s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidConfig)
		})
	}
}
