// File: internal/config/config.go

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Overridable for tests
var (
	userConfigDir = os.UserConfigDir
	userHomeDir   = os.UserHomeDir
)

// ConfigPaths holds all relevant paths for the application
type ConfigPaths struct {
	BaseDir     string `yaml:"base_dir"`     // Base directory for config files
	ConfigFile  string `yaml:"config_file"`  // Path to the active config file
	DataDir     string `yaml:"data_dir"`     // Directory for application data
	ProjectsDir string `yaml:"projects_dir"` // One SQLite database per project
	JournalFile string `yaml:"journal_file"` // BoltDB invocation journal
	PIDFile     string `yaml:"pid_file"`     // Written while the host runs
	LogDir      string `yaml:"log_dir"`
}

// Config holds all application configuration
type Config struct {
	SystemPaths ConfigPaths      `yaml:"system_paths"`
	Log         LogConfig        `yaml:"log"`
	IPC         IPCConfig        `yaml:"ipc"`
	Invocation  InvocationConfig `yaml:"invocation"`
	Journal     JournalConfig    `yaml:"journal"`
}

// LogConfig holds logging-related configuration
type LogConfig struct {
	Level             string `yaml:"level"`  // debug, info, warn, error
	Format            string `yaml:"format"` // "json" or "console"
	EnableFileLogging bool   `yaml:"enable_file_logging"`
}

// IPCConfig holds the host socket settings
type IPCConfig struct {
	SocketPath string        `yaml:"socket_path"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// InvocationConfig bounds client-side command invocations
type InvocationConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// JournalConfig holds invocation journal settings
type JournalConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxRecords int  `yaml:"max_records"`
}

// GetConfigPaths returns the platform-specific configuration paths
func GetConfigPaths() (*ConfigPaths, error) {
	// First check environment variable for base directory
	baseDir := os.Getenv("DESKBRIDGE_CONFIG_DIR")
	if baseDir == "" {
		configDir, err := userConfigDir()
		if err != nil {
			return nil, err
		}

		switch runtime.GOOS {
		case "windows":
			baseDir = filepath.Join(configDir, "Deskbridge")
		case "darwin":
			baseDir = filepath.Join(configDir, "com.berrythewa.deskbridge")
		default: // Linux and others
			baseDir = filepath.Join(configDir, "deskbridge")
		}
	}

	dataDir := os.Getenv("DESKBRIDGE_DATA_DIR")
	if dataDir == "" {
		homeDir, err := userHomeDir()
		if err != nil {
			return nil, err
		}

		switch runtime.GOOS {
		case "windows":
			dataDir = filepath.Join(homeDir, "AppData", "Local", "Deskbridge")
		case "darwin":
			dataDir = filepath.Join(homeDir, "Library", "Application Support", "Deskbridge")
		default: // Linux and others
			if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
				dataDir = filepath.Join(xdgDataHome, "deskbridge")
			} else {
				dataDir = filepath.Join(homeDir, ".local", "share", "deskbridge")
			}
		}
	}

	return pathsFor(baseDir, dataDir), nil
}

func pathsFor(baseDir, dataDir string) *ConfigPaths {
	return &ConfigPaths{
		BaseDir:     baseDir,
		ConfigFile:  filepath.Join(baseDir, "config.yaml"),
		DataDir:     dataDir,
		ProjectsDir: filepath.Join(dataDir, "projects"),
		JournalFile: filepath.Join(dataDir, "journal.db"),
		PIDFile:     filepath.Join(dataDir, "run", "deskbridge.pid"),
		LogDir:      filepath.Join(dataDir, "logs"),
	}
}

func socketPathFor(dataDir string) string {
	return filepath.Join(dataDir, "run", "deskbridge.sock")
}

// EnsureDirs creates the directories the host writes into
func (p *ConfigPaths) EnsureDirs() error {
	for _, dir := range []string{
		p.DataDir,
		p.ProjectsDir,
		p.LogDir,
		filepath.Dir(p.PIDFile),
		filepath.Dir(p.JournalFile),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	paths, err := GetConfigPaths()
	if err != nil {
		// Fall back to the working directory
		paths = pathsFor(".deskbridge", ".deskbridge")
	}

	return &Config{
		SystemPaths: *paths,
		Log: LogConfig{
			Level:             "info",
			Format:            "console",
			EnableFileLogging: false,
		},
		IPC: IPCConfig{
			SocketPath: socketPathFor(paths.DataDir),
			MaxRetries: 3,
			RetryDelay: 200 * time.Millisecond,
		},
		Invocation: InvocationConfig{
			Timeout: 10 * time.Second,
		},
		Journal: JournalConfig{
			Enabled:    true,
			MaxRecords: 1000,
		},
	}
}

// Load loads the configuration from the specified file or creates default if not exists
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		paths, err := GetConfigPaths()
		if err != nil {
			return nil, err
		}
		configPath = paths.ConfigFile
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Create default config if it doesn't exist
			cfg := DefaultConfig()
			cfg.SystemPaths.ConfigFile = configPath
			if err := cfg.Save(configPath); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
			if err := overrideFromEnv(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unset fields keep their defaults
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.SystemPaths.ConfigFile = configPath

	if err := overrideFromEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would make the host or client unusable
func (c *Config) Validate() error {
	if c.IPC.SocketPath == "" {
		return fmt.Errorf("ipc.socket_path must be set")
	}
	if c.SystemPaths.ProjectsDir == "" {
		return fmt.Errorf("system_paths.projects_dir must be set")
	}
	if c.Invocation.Timeout < 0 {
		return fmt.Errorf("invocation.timeout must not be negative")
	}
	if c.Journal.MaxRecords < 0 {
		return fmt.Errorf("journal.max_records must not be negative")
	}
	return nil
}

// Save saves the configuration to the specified file
func (c *Config) Save(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// overrideFromEnv overrides configuration values from environment variables.
// DESKBRIDGE_DATA_DIR moves every path derived from the data directory;
// PROJECTS_DIR and DESKBRIDGE_SOCKET still win over it.
func overrideFromEnv(config *Config) error {
	if val := os.Getenv("DESKBRIDGE_DATA_DIR"); val != "" {
		paths := pathsFor(config.SystemPaths.BaseDir, val)
		paths.ConfigFile = config.SystemPaths.ConfigFile
		config.SystemPaths = *paths
		config.IPC.SocketPath = socketPathFor(val)
	}
	// Same variable the projects directory has always been read from
	if val := os.Getenv("PROJECTS_DIR"); val != "" {
		config.SystemPaths.ProjectsDir = val
	}
	if val := os.Getenv("DESKBRIDGE_SOCKET"); val != "" {
		config.IPC.SocketPath = val
	}
	if val := os.Getenv("DESKBRIDGE_LOG_LEVEL"); val != "" {
		config.Log.Level = val
	}
	if val := os.Getenv("DESKBRIDGE_TIMEOUT"); val != "" {
		timeout, err := parseTimeout(val)
		if err != nil {
			return fmt.Errorf("invalid DESKBRIDGE_TIMEOUT %q: %w", val, err)
		}
		config.Invocation.Timeout = timeout
	}
	return nil
}

// parseTimeout accepts a Go duration or a plain number of milliseconds
func parseTimeout(val string) (time.Duration, error) {
	if d, err := time.ParseDuration(val); err == nil {
		return d, nil
	}
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("expected a duration such as 5s or milliseconds")
	}
	return time.Duration(ms) * time.Millisecond, nil
}
