package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/vbsocial/vbsocial/internal/logger"
)

// PublishFunc publishes the content of a post folder to every platform and
// returns the per-platform remote post IDs.
type PublishFunc func(ctx context.Context, folderPath string) (map[string]string, error)

// Scheduler publishes due posts. A post is due when it is ready and its
// scheduled time has passed.
type Scheduler struct {
	manager  *Manager
	publish  PublishFunc
	interval time.Duration
	notify   bool
}

// NewScheduler creates a scheduler that publishes via publish.
func NewScheduler(manager *Manager, publish PublishFunc, interval time.Duration, notify bool) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		manager:  manager,
		publish:  publish,
		interval: interval,
		notify:   notify,
	}
}

// RunDue publishes every due post once. Each post is marked posting first,
// then posted or failed depending on the outcome. Returns the number of
// posts published and failed.
func (s *Scheduler) RunDue(ctx context.Context) (posted, failed int, err error) {
	due, err := s.manager.DB().DuePosts(ctx)
	if err != nil {
		return 0, 0, err
	}
	if len(due) == 0 {
		logger.Debug("no posts due")
		return 0, 0, nil
	}

	logger.Info("found due posts", "count", len(due))

	for _, post := range due {
		if ctx.Err() != nil {
			return posted, failed, ctx.Err()
		}

		title := post.Title
		if title == "" {
			title = "(untitled)"
		}
		logger.Info("publishing post", "id", post.ID, "title", title)

		if _, err := s.manager.DB().MarkPosting(ctx, post.ID); err != nil {
			return posted, failed, err
		}

		platformIDs, pubErr := s.publish(ctx, post.FolderPath)
		if pubErr != nil {
			failed++
			if _, err := s.manager.DB().MarkFailed(ctx, post.ID, pubErr.Error()); err != nil {
				return posted, failed, err
			}
			if _, err := s.manager.SetStatus(ctx, post.ID, StatusFailed); err != nil {
				logger.Warn("failed to rename post folder", "id", post.ID, "error", err)
			}
			logger.Error("post failed", "id", post.ID, "error", pubErr)
			s.sendNotification("Post failed", fmt.Sprintf("%s: %v", title, pubErr))
			continue
		}

		posted++
		if _, err := s.manager.DB().MarkPosted(ctx, post.ID, platformIDs); err != nil {
			return posted, failed, err
		}
		if _, err := s.manager.SetStatus(ctx, post.ID, StatusPosted); err != nil {
			logger.Warn("failed to rename post folder", "id", post.ID, "error", err)
		}
		logger.Info("post published", "id", post.ID, "platforms", len(platformIDs))
		s.sendNotification("Post published", title)
	}

	return posted, failed, nil
}

// Run checks for due posts every interval until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	logger.Info("scheduler started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, _, err := s.RunDue(ctx); err != nil && ctx.Err() == nil {
			logger.Error("scheduler check failed", "error", err)
		}

		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) sendNotification(title, body string) {
	if !s.notify {
		return
	}
	_ = beeep.Notify(title, body, "")
}
