package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

const (
	MinWorkers = 1
	MaxWorkers = 8

	DefaultMemoryLimitMB = 1024
	DefaultResultsDir    = "runs"
	DefaultHost          = "localhost"
	DefaultPort          = 8080
)

// Settings holds every runtime option of the solver and its server.
type Settings struct {
	Workers       int    `yaml:"workers"`
	MemoryLimitMB int    `yaml:"memory_limit_mb"`
	ResultsDir    string `yaml:"results_dir"`
	Debug         bool   `yaml:"debug"`

	// FrameEvents enables per-frame progress events on the WebSocket hub.
	FrameEvents bool `yaml:"frame_events"`

	Server ServerSettings `yaml:"server"`
}

// ServerSettings configures the HTTP surface.
type ServerSettings struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Ngrok       bool   `yaml:"ngrok"`
	NgrokDomain string `yaml:"ngrok_domain"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		Workers:       1,
		MemoryLimitMB: DefaultMemoryLimitMB,
		ResultsDir:    DefaultResultsDir,
		Server: ServerSettings{
			Host: DefaultHost,
			Port: DefaultPort,
		},
	}
}

// MemoryLimitBytes converts the configured budget for the search engine.
func (s *Settings) MemoryLimitBytes() int64 {
	return int64(s.MemoryLimitMB) << 20
}

// Addr returns the host:port the HTTP server binds.
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Server.Host, s.Server.Port)
}

// LoadEnvFile loads a .env file into the process environment if one exists.
func LoadEnvFile(paths ...string) {
	if err := godotenv.Load(paths...); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
		return
	}
	log.Println("Loaded environment variables from .env file")
}

// Load reads settings from path (skipped when empty), applies environment
// overrides and validates the result.
func Load(path string) (*Settings, error) {
	settings := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := settings.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// ApplyEnv overrides settings from DRAGSTER_* variables.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"DRAGSTER_WORKERS", &s.Workers},
		{"DRAGSTER_MEMORY_LIMIT_MB", &s.MemoryLimitMB},
		{"DRAGSTER_PORT", &s.Server.Port},
	}
	for _, v := range ints {
		raw, ok := lookup(v.key)
		if !ok || raw == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidConfig, v.key, raw)
		}
		*v.dst = n
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"DRAGSTER_DEBUG", &s.Debug},
		{"DRAGSTER_FRAME_EVENTS", &s.FrameEvents},
		{"NGROK_ENABLED", &s.Server.Ngrok},
	}
	for _, v := range bools {
		raw, ok := lookup(v.key)
		if !ok || raw == "" {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%w: %s must be a boolean, got %q", ErrInvalidConfig, v.key, raw)
		}
		*v.dst = b
	}

	if v, ok := lookup("DRAGSTER_RESULTS_DIR"); ok && v != "" {
		s.ResultsDir = v
	}
	if v, ok := lookup("DRAGSTER_HOST"); ok && v != "" {
		s.Server.Host = v
	}
	if v, ok := lookup("NGROK_DOMAIN"); ok && v != "" {
		s.Server.NgrokDomain = v
	}
	return nil
}

// Validate checks the settings for correctness
func (s *Settings) Validate() error {
	if s.Workers < MinWorkers || s.Workers > MaxWorkers {
		return fmt.Errorf("%w: workers must be between %d and %d, got %d", ErrInvalidConfig, MinWorkers, MaxWorkers, s.Workers)
	}
	if s.MemoryLimitMB <= 0 {
		return fmt.Errorf("%w: memory_limit_mb must be positive, got %d", ErrInvalidConfig, s.MemoryLimitMB)
	}
	if s.ResultsDir == "" {
		return fmt.Errorf("%w: results_dir is required", ErrInvalidConfig)
	}
	if s.Server.Port < 0 || s.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port must be between 0 and 65535, got %d", ErrInvalidConfig, s.Server.Port)
	}
	return nil
}
