// File: internal/config/config_test.go

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func withTempDirs(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()

	origConfigDir, origHomeDir := userConfigDir, userHomeDir
	t.Cleanup(func() {
		userConfigDir, userHomeDir = origConfigDir, origHomeDir
	})
	userConfigDir = func() (string, error) { return filepath.Join(tempDir, "config"), nil }
	userHomeDir = func() (string, error) { return filepath.Join(tempDir, "home"), nil }

	for _, key := range []string{
		"DESKBRIDGE_CONFIG_DIR", "DESKBRIDGE_DATA_DIR", "XDG_DATA_HOME",
		"PROJECTS_DIR", "DESKBRIDGE_SOCKET", "DESKBRIDGE_LOG_LEVEL", "DESKBRIDGE_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
	return tempDir
}

func TestLoadCreatesDefault(t *testing.T) {
	tempDir := withTempDirs(t)
	configPath := filepath.Join(tempDir, "deskbridge.yaml")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("Expected default config to be written: %v", err)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected Log.Level info, got %s", cfg.Log.Level)
	}
	if cfg.Invocation.Timeout != 10*time.Second {
		t.Errorf("Expected Invocation.Timeout 10s, got %v", cfg.Invocation.Timeout)
	}
	if !strings.HasPrefix(cfg.SystemPaths.DataDir, filepath.Join(tempDir, "home")) {
		t.Errorf("Expected DataDir under the mocked home, got %s", cfg.SystemPaths.DataDir)
	}
	if cfg.SystemPaths.ConfigFile != configPath {
		t.Errorf("Expected ConfigFile %s, got %s", configPath, cfg.SystemPaths.ConfigFile)
	}
}

func TestLoadExistingConfig(t *testing.T) {
	tempDir := withTempDirs(t)
	configPath := filepath.Join(tempDir, "deskbridge.yaml")

	content := `
log:
  level: debug
ipc:
  socket_path: /tmp/custom.sock
invocation:
  timeout: 3s
journal:
  max_records: 50
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Expected Log.Level debug, got %s", cfg.Log.Level)
	}
	if cfg.IPC.SocketPath != "/tmp/custom.sock" {
		t.Errorf("Expected SocketPath /tmp/custom.sock, got %s", cfg.IPC.SocketPath)
	}
	if cfg.Invocation.Timeout != 3*time.Second {
		t.Errorf("Expected Timeout 3s, got %v", cfg.Invocation.Timeout)
	}
	if cfg.Journal.MaxRecords != 50 {
		t.Errorf("Expected MaxRecords 50, got %d", cfg.Journal.MaxRecords)
	}
	// Untouched sections keep their defaults
	if cfg.IPC.MaxRetries != 3 {
		t.Errorf("Expected default MaxRetries 3, got %d", cfg.IPC.MaxRetries)
	}
	if !cfg.Journal.Enabled {
		t.Error("Expected journal to stay enabled by default")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	tempDir := withTempDirs(t)
	configPath := filepath.Join(tempDir, "deskbridge.yaml")

	t.Setenv("PROJECTS_DIR", filepath.Join(tempDir, "projects"))
	t.Setenv("DESKBRIDGE_SOCKET", filepath.Join(tempDir, "s.sock"))
	t.Setenv("DESKBRIDGE_LOG_LEVEL", "warn")
	t.Setenv("DESKBRIDGE_TIMEOUT", "1500")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.SystemPaths.ProjectsDir != filepath.Join(tempDir, "projects") {
		t.Errorf("Expected PROJECTS_DIR override, got %s", cfg.SystemPaths.ProjectsDir)
	}
	if cfg.IPC.SocketPath != filepath.Join(tempDir, "s.sock") {
		t.Errorf("Expected socket override, got %s", cfg.IPC.SocketPath)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Expected log level override, got %s", cfg.Log.Level)
	}
	if cfg.Invocation.Timeout != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s timeout, got %v", cfg.Invocation.Timeout)
	}
}

func TestDataDirOverrideMovesDerivedPaths(t *testing.T) {
	tempDir := withTempDirs(t)
	configPath := filepath.Join(tempDir, "deskbridge.yaml")

	// Write the file first so its paths are the ones being overridden
	if _, err := Load(configPath); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	dataDir := filepath.Join(tempDir, "elsewhere")
	t.Setenv("DESKBRIDGE_DATA_DIR", dataDir)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	paths := cfg.SystemPaths
	if paths.DataDir != dataDir {
		t.Errorf("Expected data dir %s, got %s", dataDir, paths.DataDir)
	}
	if paths.ProjectsDir != filepath.Join(dataDir, "projects") {
		t.Errorf("Expected projects dir under override, got %s", paths.ProjectsDir)
	}
	if paths.JournalFile != filepath.Join(dataDir, "journal.db") {
		t.Errorf("Expected journal under override, got %s", paths.JournalFile)
	}
	if paths.PIDFile != filepath.Join(dataDir, "run", "deskbridge.pid") {
		t.Errorf("Expected PID file under override, got %s", paths.PIDFile)
	}
	if paths.LogDir != filepath.Join(dataDir, "logs") {
		t.Errorf("Expected log dir under override, got %s", paths.LogDir)
	}
	if cfg.IPC.SocketPath != filepath.Join(dataDir, "run", "deskbridge.sock") {
		t.Errorf("Expected socket under override, got %s", cfg.IPC.SocketPath)
	}
	if paths.ConfigFile != configPath {
		t.Errorf("Expected config file %s to be kept, got %s", configPath, paths.ConfigFile)
	}

	// Explicit overrides still win
	t.Setenv("PROJECTS_DIR", filepath.Join(tempDir, "projects"))
	t.Setenv("DESKBRIDGE_SOCKET", filepath.Join(tempDir, "s.sock"))
	cfg, err = Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.SystemPaths.ProjectsDir != filepath.Join(tempDir, "projects") {
		t.Errorf("Expected PROJECTS_DIR to win, got %s", cfg.SystemPaths.ProjectsDir)
	}
	if cfg.IPC.SocketPath != filepath.Join(tempDir, "s.sock") {
		t.Errorf("Expected DESKBRIDGE_SOCKET to win, got %s", cfg.IPC.SocketPath)
	}
}

func TestInvalidTimeoutOverride(t *testing.T) {
	tempDir := withTempDirs(t)
	t.Setenv("DESKBRIDGE_TIMEOUT", "soon")

	_, err := Load(filepath.Join(tempDir, "deskbridge.yaml"))
	if err == nil {
		t.Fatal("Expected an error for an unparseable DESKBRIDGE_TIMEOUT")
	}
	if !strings.Contains(err.Error(), "DESKBRIDGE_TIMEOUT") {
		t.Errorf("Expected error to name the variable, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tempDir := withTempDirs(t)
	configPath := filepath.Join(tempDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Invocation.Timeout = 42 * time.Second
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if loaded.Invocation.Timeout != 42*time.Second {
		t.Errorf("Expected 42s timeout after round trip, got %v", loaded.Invocation.Timeout)
	}
}

func TestInvalidConfig(t *testing.T) {
	tempDir := withTempDirs(t)
	configPath := filepath.Join(tempDir, "bad.yaml")

	if err := os.WriteFile(configPath, []byte("invocation:\n  timeout: -1s\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := Load(configPath); err == nil {
		t.Error("Expected negative timeout to be rejected")
	}

	if err := os.WriteFile(configPath, []byte("log: [unterminated"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := Load(configPath); err == nil {
		t.Error("Expected malformed YAML to be rejected")
	}
}

func TestEnsureDirs(t *testing.T) {
	tempDir := withTempDirs(t)
	paths := pathsFor(filepath.Join(tempDir, "cfg"), filepath.Join(tempDir, "data"))

	if err := paths.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs() failed: %v", err)
	}
	for _, dir := range []string{paths.ProjectsDir, paths.LogDir, filepath.Dir(paths.PIDFile)} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("Expected directory %s to exist", dir)
		}
	}
}
