package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Tuning.MaxKernelSize != 64 {
		t.Errorf("Expected MaxKernelSize=64, got %d", cfg.Tuning.MaxKernelSize)
	}
	if cfg.Tuning.MinKernelSize != 4 {
		t.Errorf("Expected MinKernelSize=4, got %d", cfg.Tuning.MinKernelSize)
	}
	if cfg.Tuning.ThreadTarget <= 0 {
		t.Errorf("Expected ThreadTarget > 0, got %d", cfg.Tuning.ThreadTarget)
	}
	if cfg.Codegen.EnableDebugDump {
		t.Error("Expected EnableDebugDump=false")
	}
	if cfg.Codegen.DumpBinaryPath != "kernels" {
		t.Errorf("Expected DumpBinaryPath=kernels, got %s", cfg.Codegen.DumpBinaryPath)
	}
	if cfg.Runtime.ParallelThreshold <= 0 {
		t.Errorf("Expected ParallelThreshold > 0, got %d", cfg.Runtime.ParallelThreshold)
	}
}

func TestGetConfigPath(t *testing.T) {
	path := GetConfigPath()

	if path == "" {
		t.Error("GetConfigPath returned empty string")
	}
	if filepath.Base(path) != "config.toml" {
		t.Errorf("Expected path to end with config.toml, got %s", path)
	}

	switch runtime.GOOS {
	case "windows":
		if !filepath.IsAbs(path) && path != "config.toml" {
			t.Errorf("Expected absolute path on Windows, got %s", path)
		}
	case "darwin", "linux":
		dir := filepath.Dir(path)
		if filepath.Base(dir) != "mlc" && path != "config.toml" {
			t.Errorf("Expected path in mlc directory or fallback, got %s", path)
		}
	}
}

func TestGetLogPath(t *testing.T) {
	path := GetLogPath()

	if path == "" {
		t.Error("GetLogPath returned empty string")
	}

	switch runtime.GOOS {
	case "windows":
		if !filepath.IsAbs(path) && path != "logs" {
			t.Errorf("Expected absolute path on Windows, got %s", path)
		}
	case "darwin", "linux":
		if filepath.Base(path) != "logs" {
			t.Errorf("Expected path to end with logs, got %s", path)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test_config.toml")

	cfg := DefaultConfig()
	cfg.Tuning.MaxKernelSize = 32
	cfg.Tuning.ThreadTarget = 8
	cfg.Codegen.EnableDebugDump = true
	cfg.Runtime.ParallelThreshold = 2

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}

	loaded, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.Tuning.MaxKernelSize != 32 {
		t.Errorf("Expected MaxKernelSize=32, got %d", loaded.Tuning.MaxKernelSize)
	}
	if loaded.Tuning.ThreadTarget != 8 {
		t.Errorf("Expected ThreadTarget=8, got %d", loaded.Tuning.ThreadTarget)
	}
	if !loaded.Codegen.EnableDebugDump {
		t.Error("Expected EnableDebugDump=true")
	}
	if loaded.Runtime.ParallelThreshold != 2 {
		t.Errorf("Expected ParallelThreshold=2, got %d", loaded.Runtime.ParallelThreshold)
	}
}

func TestLoadNonExistent(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nonexistent.toml")

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom should not error on non-existent file: %v", err)
	}

	if cfg.Tuning.MaxKernelSize != 64 {
		t.Error("Expected default config when file doesn't exist")
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "invalid.toml")

	invalidTOML := `
[tuning]
max_kernel_size = "not a number"
`
	if err := os.WriteFile(configPath, []byte(invalidTOML), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if _, err := LoadFrom(configPath); err == nil {
		t.Error("Expected error when loading invalid TOML")
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "subdir1", "subdir2", "config.toml")

	cfg := DefaultConfig()
	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}

	dir := filepath.Dir(configPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Error("Parent directories were not created")
	}
}
