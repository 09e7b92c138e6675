// Package credstore persists per-platform credential records as JSON files
// under the vbsocial state directory. It owns no OAuth logic, only storage.
package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vbsocial/vbsocial/internal/logger"
)

var (
	// ErrNotConfigured means no credential file exists for the platform.
	// The caller should direct the user to the configure command.
	ErrNotConfigured = errors.New("not configured")

	// ErrCorrupt means a credential file exists but cannot be parsed.
	ErrCorrupt = errors.New("credential file corrupt")
)

// Well-known file names within a platform directory.
const (
	ConfigFile       = "config.json"
	TokenFile        = "token.json"
	ClientSecretFile = "client_secret.json"
)

// Platform directory names.
const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformLinkedIn  = "linkedin"
	PlatformX         = "x"
	PlatformYouTube   = "youtube"
)

// Store reads and writes credential records under a base directory,
// one subdirectory per platform.
type Store struct {
	baseDir string
}

// New creates a store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Path returns the on-disk location of a platform credential file.
func (s *Store) Path(platform, file string) string {
	return filepath.Join(s.baseDir, platform, file)
}

// Load reads a credential record into v. Returns ErrNotConfigured when the
// file is absent and ErrCorrupt when it exists but does not parse.
func (s *Store) Load(platform, file string, v any) error {
	path := s.Path(platform, file)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s %s: %w", platform, file, ErrNotConfigured)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w: %v", path, ErrCorrupt, err)
	}
	return nil
}

// Save writes a credential record atomically with owner-only permissions:
// marshal to a temp file in the platform directory, then rename over the
// target.
func (s *Store) Save(platform, file string, v any) error {
	dir := filepath.Join(s.baseDir, platform)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := os.Chmod(dir, 0o700); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", platform, file, err)
	}
	data = append(data, '\n')

	path := s.Path(platform, file)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		if removeErr := os.Remove(tmp); removeErr != nil {
			logger.Error("failed to remove temp file", "error", removeErr)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Delete removes a credential file. Deleting a missing file is not an error.
func (s *Store) Delete(platform, file string) error {
	err := os.Remove(s.Path(platform, file))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
