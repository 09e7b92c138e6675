// Package config contains everything related to configuration
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration, resolved once at startup and
// passed explicitly to each component.
type Config struct {
	// BaseDir is the root of all persisted state (~/.vbsocial by default).
	BaseDir string

	// TrackerDBPath is the SQLite database used by the post tracker.
	TrackerDBPath string

	// InboxDir is watched by `tracker watch` for new media files.
	InboxDir string

	LinkedInClientID     string
	LinkedInClientSecret string
	XClientID            string
	XClientSecret        string
	LinkedInOrgID        string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	HTTPTimeout time.Duration
}

// Default values
const (
	defaultHTTPTimeout = 60 * time.Second
	defaultOpenAIBase  = "https://api.openai.com/v1"
	defaultOpenAIModel = "gpt-4o-mini"
)

// Load reads configuration from .env files and environment variables.
// Missing platform credentials are not an error here; the commands that need
// them report a precise message at use time.
func Load() (*Config, error) {
	for _, path := range envPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	base := getEnvString("VBSOCIAL_DIR", defaultBaseDir())

	cfg := &Config{
		BaseDir:              base,
		TrackerDBPath:        filepath.Join(base, "tracker", "posts.db"),
		InboxDir:             filepath.Join(base, "tracker", "inbox"),
		LinkedInClientID:     os.Getenv("LINKEDIN_CLIENT_ID_10X"),
		LinkedInClientSecret: os.Getenv("LINKEDIN_CLIENT_SECRET_10X"),
		XClientID:            os.Getenv("X_CLIENT_ID_10X"),
		XClientSecret:        os.Getenv("X_CLIENT_SECRET_10X"),
		LinkedInOrgID:        os.Getenv("LINKEDIN_ORGANIZATION_ID"),
		OpenAIAPIKey:         getEnvString("OPENAI_API_KEY_10X", os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:        getEnvString("OPENAI_BASE_URL", defaultOpenAIBase),
		OpenAIModel:          getEnvString("VBSOCIAL_DATAMODEL_MODEL", defaultOpenAIModel),
		HTTPTimeout:          getEnvDuration("VBSOCIAL_HTTP_TIMEOUT", defaultHTTPTimeout),
	}

	if err := ensureDir(cfg.BaseDir); err != nil {
		return nil, err
	}

	return cfg, nil
}

// PlatformDir returns the state directory for one platform, creating it with
// owner-only permissions when missing.
func (c *Config) PlatformDir(platform string) (string, error) {
	dir := filepath.Join(c.BaseDir, platform)
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// envPaths returns a list of paths to check for .env files.
func envPaths() []string {
	var paths []string

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".vbsocial", ".env"))
	}

	return paths
}

func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vbsocial"
	}
	return filepath.Join(home, ".vbsocial")
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
// State directories are owner-only.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	if err := os.MkdirAll(path, 0o700); err != nil {
		return err
	}
	return os.Chmod(path, 0o700)
}
