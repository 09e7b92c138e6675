package tracker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vbsocial/vbsocial/internal/logger"
)

// Watcher turns files dropped into the inbox subtrees into draft posts.
type Watcher struct {
	manager *Manager
	watcher *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher creates a watcher over the manager's inbox directories.
func NewWatcher(manager *Manager) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, dir := range []string{manager.InboxDir(SourceImage), manager.InboxDir(SourceTex)} {
		if err := fsw.Add(dir); err != nil {
			if closeErr := fsw.Close(); closeErr != nil {
				logger.Error("failed to close watcher", "error", closeErr)
			}
			return nil, err
		}
	}

	return &Watcher{
		manager: manager,
		watcher: fsw,
		timers:  make(map[string]*time.Timer),
	}, nil
}

// Run processes inbox events until the context is cancelled. Files already
// present in the inbox are picked up first.
func (w *Watcher) Run(ctx context.Context) error {
	// Writes arrive as bursts of events; wait for the file to settle
	// before importing it.
	const debounceInterval = 500 * time.Millisecond

	if _, err := w.manager.ProcessInbox(ctx, true); err != nil {
		logger.Warn("failed to process existing inbox files", "error", err)
	}

	logger.Info("watching inbox", "dir", filepath.Join(w.manager.BaseDir(), "inbox"))

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			sourceType, ok := w.classify(event.Name)
			if !ok {
				continue
			}

			w.mu.Lock()
			if timer, exists := w.timers[event.Name]; exists {
				timer.Stop()
			}
			path := event.Name
			w.timers[path] = time.AfterFunc(debounceInterval, func() {
				w.importFile(ctx, path, sourceType)
			})
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("inbox watch error", "error", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops the underlying file system watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for _, timer := range w.timers {
		timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) classify(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExtensions[ext]:
		return SourceImage, true
	case ext == ".tex":
		return SourceTex, true
	default:
		return "", false
	}
}

func (w *Watcher) importFile(ctx context.Context, path, sourceType string) {
	w.mu.Lock()
	delete(w.timers, path)
	w.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	var (
		id  string
		err error
	)
	if sourceType == SourceTex {
		id, _, err = w.manager.CreatePostFromTex(ctx, path, "")
	} else {
		id, _, err = w.manager.CreatePostFromImage(ctx, path, "")
	}
	if err != nil {
		logger.Error("failed to import inbox file", "path", path, "error", err)
		return
	}

	if err := os.Remove(path); err != nil {
		logger.Warn("failed to remove inbox file", "path", path, "error", err)
	}
	logger.Info("imported inbox file", "path", path, "id", id)
}
