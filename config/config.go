// Package config loads and saves the tunables that drive the
// optimizer, code generator, and parallel executor, in the same
// BurntSushi/toml nested-struct style as the teacher repo's own
// config package.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config holds every tunable this module exposes outside of the einsum
// expression and dimension-list inputs themselves.
type Config struct {
	// Tuning settings bound the primitive-dimension sizes the
	// optimizer's split/fuse phases target, and the aggregate
	// shared-loop size its promotion phase stops at.
	Tuning struct {
		ThreadTarget  int `toml:"thread_target"`
		MaxKernelSize int `toml:"max_kernel_size"`
		MinKernelSize int `toml:"min_kernel_size"`
	} `toml:"tuning"`

	// Codegen settings name a path and a switch for dumping raw
	// instruction words, mirroring Kernel::write's caller-chosen path.
	// No package in this module reads them; jitbuf.Buffer.WriteFile
	// takes its path as an argument.
	Codegen struct {
		DumpBinaryPath  string `toml:"dump_binary_path"`
		EnableDebugDump bool   `toml:"enable_debug_dump"`
	} `toml:"codegen"`

	// Runtime settings hold a parallel threshold. No package in this
	// module reads it: the tensor-operation driver takes the parallel
	// executor whenever its dimension list contains shared M or N loops.
	Runtime struct {
		ParallelThreshold int `toml:"parallel_threshold"`
	} `toml:"runtime"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Tuning.ThreadTarget = runtime.NumCPU()
	cfg.Tuning.MaxKernelSize = 64
	cfg.Tuning.MinKernelSize = 4

	cfg.Codegen.DumpBinaryPath = "kernels"
	cfg.Codegen.EnableDebugDump = false

	cfg.Runtime.ParallelThreshold = runtime.NumCPU()

	return cfg
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "mlc")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "mlc")

	default:
		return "config.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// GetLogPath returns the platform-specific log directory path.
func GetLogPath() string {
	var logDir string

	switch runtime.GOOS {
	case "windows":
		logDir = os.Getenv("APPDATA")
		if logDir == "" {
			logDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		logDir = filepath.Join(logDir, "mlc", "logs")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "logs"
		}
		logDir = filepath.Join(homeDir, ".local", "share", "mlc", "logs")

	default:
		return "logs"
	}

	if err := os.MkdirAll(logDir, 0750); err != nil {
		return "logs"
	}

	return logDir
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", closeErr)
		}
	}()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
