package tracker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vbsocial/vbsocial/internal/logger"
)

// Source types recorded on tracked posts.
const (
	SourceImage = "image"
	SourceTex   = "tex"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// Manager owns the post folder tree and the tracker database. Post folders
// are named <id>_<YYYY_MM_DD>_<status> directly under the base directory,
// with an inbox/ subtree for incoming material.
type Manager struct {
	db      *DB
	baseDir string
}

// NewManager opens the tracker rooted at baseDir, creating the directory
// tree and database as needed.
func NewManager(baseDir string) (*Manager, error) {
	for _, dir := range []string{baseDir, filepath.Join(baseDir, "inbox", "images"), filepath.Join(baseDir, "inbox", "tex")} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create tracker directory: %w", err)
		}
	}

	db, err := NewDB(filepath.Join(baseDir, "posts.db"))
	if err != nil {
		return nil, err
	}

	return &Manager{db: db, baseDir: baseDir}, nil
}

// DB exposes the underlying database.
func (m *Manager) DB() *DB {
	return m.db
}

// BaseDir returns the tracker root directory.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// InboxDir returns the inbox subdirectory for a source type.
func (m *Manager) InboxDir(sourceType string) string {
	if sourceType == SourceTex {
		return filepath.Join(m.baseDir, "inbox", "tex")
	}
	return filepath.Join(m.baseDir, "inbox", "images")
}

// Close closes the tracker database.
func (m *Manager) Close() error {
	return m.db.Close()
}

func folderName(id string, date time.Time, status Status) string {
	return fmt.Sprintf("%s_%s_%s", id, date.Format("2006_01_02"), status)
}

// parseFolderName splits <id>_<YYYY_MM_DD>_<status> into its parts.
func parseFolderName(name string) (id, date string, status Status, ok bool) {
	parts := strings.Split(name, "_")
	if len(parts) < 5 {
		return "", "", "", false
	}
	return parts[0], strings.Join(parts[1:4], "_"), Status(strings.Join(parts[4:], "_")), true
}

// CreatePostFromImage creates a draft post folder seeded with a copy of the
// image and records it in the database.
func (m *Manager) CreatePostFromImage(ctx context.Context, imagePath, title string) (string, string, error) {
	return m.createPost(ctx, imagePath, title, SourceImage)
}

// CreatePostFromTex creates a draft post folder seeded with a copy of the
// TeX source and records it in the database.
func (m *Manager) CreatePostFromTex(ctx context.Context, texPath, title string) (string, string, error) {
	return m.createPost(ctx, texPath, title, SourceTex)
}

func (m *Manager) createPost(ctx context.Context, sourcePath, title, sourceType string) (string, string, error) {
	if _, err := os.Stat(sourcePath); err != nil {
		return "", "", fmt.Errorf("source file not found: %s", sourcePath)
	}

	id := NewID()
	folderPath := filepath.Join(m.baseDir, folderName(id, time.Now(), StatusDraft))
	if err := os.MkdirAll(folderPath, 0o750); err != nil {
		return "", "", fmt.Errorf("failed to create post folder: %w", err)
	}

	var dest string
	if sourceType == SourceTex {
		dest = filepath.Join(folderPath, "problem.tex")
	} else {
		dest = filepath.Join(folderPath, "problem_image"+filepath.Ext(sourcePath))
	}
	if err := copyFile(sourcePath, dest); err != nil {
		return "", "", fmt.Errorf("failed to copy source file: %w", err)
	}

	if title == "" {
		base := filepath.Base(sourcePath)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	if _, err := m.db.CreatePost(ctx, Post{
		ID:         id,
		FolderPath: folderPath,
		SourceType: sourceType,
		SourceFile: filepath.Base(sourcePath),
		Title:      title,
	}); err != nil {
		return "", "", err
	}

	logger.Info("created post", "id", id, "folder", folderPath)
	return id, folderPath, nil
}

// ProcessInbox creates draft posts for every recognized file in the inbox
// subtrees. Source files are removed when deleteAfter is set. Returns the
// IDs of the created posts.
func (m *Manager) ProcessInbox(ctx context.Context, deleteAfter bool) ([]string, error) {
	var created []string

	process := func(dir, sourceType string, match func(string) bool) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("failed to read inbox: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !match(strings.ToLower(filepath.Ext(entry.Name()))) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			id, _, err := m.createPost(ctx, path, "", sourceType)
			if err != nil {
				return err
			}
			created = append(created, id)
			if deleteAfter {
				if err := os.Remove(path); err != nil {
					logger.Warn("failed to remove inbox file", "path", path, "error", err)
				}
			}
		}
		return nil
	}

	if err := process(m.InboxDir(SourceImage), SourceImage, func(ext string) bool { return imageExtensions[ext] }); err != nil {
		return created, err
	}
	if err := process(m.InboxDir(SourceTex), SourceTex, func(ext string) bool { return ext == ".tex" }); err != nil {
		return created, err
	}

	return created, nil
}

// SetStatus updates a post's status and renames its folder to match.
// Returns the new folder path.
func (m *Manager) SetStatus(ctx context.Context, id string, status Status) (string, error) {
	post, err := m.db.GetPost(ctx, id)
	if err != nil {
		return "", err
	}

	newPath := post.FolderPath
	if _, date, _, ok := parseFolderName(filepath.Base(post.FolderPath)); ok {
		newPath = filepath.Join(filepath.Dir(post.FolderPath), fmt.Sprintf("%s_%s_%s", id, date, status))
		if newPath != post.FolderPath {
			if err := os.Rename(post.FolderPath, newPath); err != nil {
				return "", fmt.Errorf("failed to rename post folder: %w", err)
			}
			if _, err := m.db.UpdateFolderPath(ctx, id, newPath); err != nil {
				return "", err
			}
		}
	}

	if _, err := m.db.UpdateStatus(ctx, id, status); err != nil {
		return "", err
	}

	return newPath, nil
}

// InboxCounts returns the number of pending files per inbox subtree.
func (m *Manager) InboxCounts() (images, tex int, err error) {
	count := func(dir string, match func(string) bool) (int, error) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return 0, fmt.Errorf("failed to read inbox: %w", err)
		}
		n := 0
		for _, entry := range entries {
			if !entry.IsDir() && match(strings.ToLower(filepath.Ext(entry.Name()))) {
				n++
			}
		}
		return n, nil
	}

	if images, err = count(m.InboxDir(SourceImage), func(ext string) bool { return imageExtensions[ext] }); err != nil {
		return 0, 0, err
	}
	if tex, err = count(m.InboxDir(SourceTex), func(ext string) bool { return ext == ".tex" }); err != nil {
		return 0, 0, err
	}
	return images, tex, nil
}

// RecordSnapshot stores a follower-count sample for later charting.
func (m *Manager) RecordSnapshot(ctx context.Context, platform string, followers int64) error {
	return m.db.InsertSnapshot(ctx, platform, followers)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
