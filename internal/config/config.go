// Package config provides configuration loading for the hotpath service.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (HOTPATH_*)
//  2. Config file (YAML)
//  3. Defaults
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/hotpath-io/hotpath/internal/profiling"
)

// Config is the root service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Profiling ProfilingConfig `yaml:"profiling"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is "pretty" for console output or "json".
	Format string `yaml:"format"`
}

// ProfilingConfig configures the two profiling subsystems.
type ProfilingConfig struct {
	CPU  CPUProfilingConfig  `yaml:"cpu"`
	Heap HeapProfilingConfig `yaml:"heap"`
}

// CPUProfilingConfig tunes the synthetic workload raced against the
// sampling window.
type CPUProfilingConfig struct {
	// Workers is the number of concurrent workload tasks per capture.
	Workers int `yaml:"workers"`
	// WorkloadIterations is the base number of kernel rounds per task.
	WorkloadIterations int `yaml:"workload_iterations"`
}

// HeapProfilingConfig controls allocator-level sampling.
type HeapProfilingConfig struct {
	// Enabled gates the one-time activation at startup.
	Enabled bool `yaml:"enabled"`
	// SampleRate is the allocator sampling interval in bytes.
	SampleRate int `yaml:"sample_rate"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "pretty",
		},
		Profiling: ProfilingConfig{
			CPU: CPUProfilingConfig{
				Workers:            4,
				WorkloadIterations: 50000,
			},
			Heap: HeapProfilingConfig{
				Enabled:    true,
				SampleRate: profiling.DefaultHeapSampleRate,
			},
		},
	}
}

// Load reads configuration from the given YAML file, then applies
// environment overrides. A missing or empty path yields defaults plus
// env overrides; a present but unreadable file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied path.
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file %s does not exist", path)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

// ListenAddr returns the host:port pair for the HTTP listener.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// HeapSampleRate returns the effective allocator sampling rate: zero
// when heap profiling is disabled, which keeps the profiler inactive.
func (c *Config) HeapSampleRate() int {
	if !c.Profiling.Heap.Enabled {
		return 0
	}
	return c.Profiling.Heap.SampleRate
}

// applyEnv overrides fields from HOTPATH_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("HOTPATH_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("HOTPATH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("HOTPATH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("HOTPATH_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("HOTPATH_CPU_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Profiling.CPU.Workers = n
		}
	}
	if v := os.Getenv("HOTPATH_HEAP_PROFILING"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Profiling.Heap.Enabled = enabled
		}
	}
	if v := os.Getenv("HOTPATH_HEAP_SAMPLE_RATE"); v != "" {
		if rate, err := strconv.Atoi(v); err == nil {
			c.Profiling.Heap.SampleRate = rate
		}
	}
}

// normalize replaces out-of-range values with defaults rather than
// rejecting them.
func (c *Config) normalize() {
	def := Default()

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		c.Server.Port = def.Server.Port
	}
	if c.Profiling.CPU.Workers <= 0 {
		c.Profiling.CPU.Workers = def.Profiling.CPU.Workers
	}
	if c.Profiling.CPU.WorkloadIterations <= 0 {
		c.Profiling.CPU.WorkloadIterations = def.Profiling.CPU.WorkloadIterations
	}
	if c.Profiling.Heap.Enabled && c.Profiling.Heap.SampleRate <= 0 {
		c.Profiling.Heap.SampleRate = def.Profiling.Heap.SampleRate
	}
}
