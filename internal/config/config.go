package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// File names probed in each config directory, in order. The first one that
// exists wins; the others are ignored.
var configFileNames = []string{"config.yaml", "config.yml", "config.json"}

// RepoDirName is the per-repository config directory.
const RepoDirName = ".mailsift"

// Config holds application configuration.
type Config struct {
	// ScanIntervalSeconds is the period of automatic scans in watch/serve mode.
	ScanIntervalSeconds int `yaml:"scan_interval_seconds" json:"scan_interval_seconds"`

	// MaxSourceBytes caps how much of a single source is read.
	MaxSourceBytes int64 `yaml:"max_source_bytes" json:"max_source_bytes"`

	// ScanWorkers bounds how many sources are read at once.
	ScanWorkers int `yaml:"scan_workers,omitempty" json:"scan_workers,omitempty"`

	// AllowedPaths is an allowlist of directories for export operations.
	// Paths outside ~/.mailsift/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `yaml:"allowed_paths,omitempty" json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for export.
	// When true, any directory is allowed (but symlink and extension checks still apply).
	AllowUnsafePaths bool `yaml:"allow_unsafe_paths,omitempty" json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `yaml:"db_max_open_conns,omitempty" json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `yaml:"db_max_idle_conns,omitempty" json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `yaml:"disabled_tools,omitempty" json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// Known types: "email", "settings".
	DisabledTypes []string `yaml:"disabled_types,omitempty" json:"disabled_types,omitempty"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `yaml:"log_level,omitempty" json:"log_level,omitempty"`

	// LogFormat is "console" or "json".
	LogFormat string `yaml:"log_format,omitempty" json:"log_format,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ScanIntervalSeconds: 10,
		MaxSourceBytes:      20 << 20,
		ScanWorkers:         4,
		LogLevel:            "info",
		LogFormat:           "console",
	}
}

// Validate reports settings that cannot be honoured.
func (c *Config) Validate() error {
	if c.ScanIntervalSeconds <= 0 {
		return fmt.Errorf("scan_interval_seconds must be positive, got %d", c.ScanIntervalSeconds)
	}
	if c.MaxSourceBytes <= 0 {
		return fmt.Errorf("max_source_bytes must be positive, got %d", c.MaxSourceBytes)
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	return nil
}

// Load loads configuration from baseDir (config.yaml, config.yml or config.json).
// Returns default config if no file exists.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.mailsift.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(findConfigFile(baseDir))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// LoadWithRepo loads configuration from both global (~/.mailsift) and repo (.mailsift) directories.
// Repo config is found by walking upward from startDir.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(findConfigFile(globalDir))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .mailsift config file.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		if path := findConfigFile(filepath.Join(dir, RepoDirName)); path != "" {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// findConfigFile returns the first config file present in dir, or "".
func findConfigFile(dir string) string {
	for _, name := range configFileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the path is empty or missing (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".json":
		err = json.Unmarshal(data, cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.ScanIntervalSeconds = firstNonZero(overlay.ScanIntervalSeconds, base.ScanIntervalSeconds)
	result.ScanWorkers = firstNonZero(overlay.ScanWorkers, base.ScanWorkers)
	result.DBMaxOpenConns = firstNonZero(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstNonZero(overlay.DBMaxIdleConns, base.DBMaxIdleConns)
	result.MaxSourceBytes = firstNonZero(overlay.MaxSourceBytes, base.MaxSourceBytes)
	result.LogLevel = firstNonZero(overlay.LogLevel, base.LogLevel)
	result.LogFormat = firstNonZero(overlay.LogFormat, base.LogFormat)

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func firstNonZero[T comparable](overlay, base T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
