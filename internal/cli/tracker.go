package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/vbsocial/vbsocial/internal/tracker"
)

func (a *App) trackerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracker",
		Short: "Track, schedule and publish posts from a local pipeline",
	}
	cmd.AddCommand(
		a.trackerNewCmd(),
		a.trackerListCmd(),
		a.trackerInfoCmd(),
		a.trackerStatusCmd(),
		a.trackerScheduleCmd(),
		a.trackerUnscheduleCmd(),
		a.trackerRunDueCmd(),
		a.trackerRetryCmd(),
		a.trackerDeleteCmd(),
		a.trackerWatchCmd(),
	)
	return cmd
}

// withManager opens the tracker, runs fn, and closes it again.
func (a *App) withManager(fn func(*tracker.Manager) error) error {
	manager, err := a.trackerManager()
	if err != nil {
		return err
	}
	defer func() { _ = manager.Close() }()
	return fn(manager)
}

// trackerPublish adapts publishFolder to the scheduler's callback shape.
func (a *App) trackerPublish() tracker.PublishFunc {
	return func(ctx context.Context, folderPath string) (map[string]string, error) {
		return a.publishFolder(ctx, folderPath, nil)
	}
}

func (a *App) trackerNewCmd() *cobra.Command {
	var (
		sourceType string
		title      string
	)

	cmd := &cobra.Command{
		Use:   "new <source-file>",
		Short: "Create a draft post from an image or TeX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(func(manager *tracker.Manager) error {
				var (
					id     string
					folder string
					err    error
				)
				switch sourceType {
				case tracker.SourceImage:
					id, folder, err = manager.CreatePostFromImage(cmd.Context(), args[0], title)
				case tracker.SourceTex:
					id, folder, err = manager.CreatePostFromTex(cmd.Context(), args[0], title)
				default:
					return fmt.Errorf("unknown source type %q, use image or tex", sourceType)
				}
				if err != nil {
					return err
				}

				a.success("created draft [" + id + "]")
				a.println("  " + folder)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&sourceType, "type", "t", tracker.SourceImage, "source type: image or tex")
	cmd.Flags().StringVar(&title, "title", "", "post title, defaults to the file name")
	return cmd
}

func (a *App) trackerListCmd() *cobra.Command {
	var (
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked posts with a status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" && !tracker.ValidStatus(status) {
				return fmt.Errorf("unknown status %q", status)
			}

			return a.withManager(func(manager *tracker.Manager) error {
				ctx := cmd.Context()

				counts, err := manager.DB().CountByStatus(ctx)
				if err != nil {
					return err
				}
				total := 0
				for _, n := range counts {
					total += n
				}

				a.title(fmt.Sprintf("Posts (%d total)", total))
				for _, s := range tracker.Statuses {
					a.printf("  %-8s %d\n", s, counts[s])
				}

				posts, err := manager.DB().ListPosts(ctx, tracker.Status(status), limit)
				if err != nil {
					return err
				}
				if len(posts) == 0 {
					a.println("\n(no posts)")
					return nil
				}

				a.println("")
				for _, post := range posts {
					line := fmt.Sprintf("  [%s] %-8s %s", post.ID, post.Status, postTitle(post))
					if !post.ScheduledFor.IsZero() {
						line += "  scheduled " + post.ScheduledFor.Format("2006-01-02")
					}
					if post.LastError != "" {
						line += "  (" + preview(post.LastError, 40) + ")"
					}
					a.println(line)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "filter by status")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "max posts to show")
	return cmd
}

func postTitle(post tracker.Post) string {
	if post.Title == "" {
		return "(untitled)"
	}
	return post.Title
}

func (a *App) trackerInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <post-id>",
		Short: "Show a post's full tracking record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(func(manager *tracker.Manager) error {
				post, err := manager.DB().GetPost(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				a.title("Post [" + post.ID + "]")
				a.printf("  Title:     %s\n", postTitle(*post))
				a.printf("  Status:    %s\n", post.Status)
				a.printf("  Created:   %s\n", post.CreatedAt.Format(time.RFC3339))
				a.printf("  Updated:   %s\n", post.UpdatedAt.Format(time.RFC3339))
				a.printf("  Source:    %s %s\n", post.SourceType, post.SourceFile)
				a.printf("  Folder:    %s\n", post.FolderPath)
				if !post.ScheduledFor.IsZero() {
					a.printf("  Scheduled: %s\n", post.ScheduledFor.Format("2006-01-02"))
				}
				if !post.PostedAt.IsZero() {
					a.printf("  Posted at: %s\n", post.PostedAt.Format(time.RFC3339))
				}
				if post.LastError != "" {
					a.printf("  Error:     %s\n", post.LastError)
				}
				if len(post.PostIDs) > 0 {
					a.println("  Platform IDs:")
					for platform, id := range post.PostIDs {
						a.printf("    %s: %s\n", platform, id)
					}
				}
				return nil
			})
		},
	}
}

func (a *App) trackerStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <post-id> <draft|ready|posted>",
		Short: "Move a post to another status and rename its folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := tracker.Status(args[1])
			if !tracker.ValidStatus(args[1]) {
				return fmt.Errorf("unknown status %q", args[1])
			}

			return a.withManager(func(manager *tracker.Manager) error {
				newPath, err := manager.SetStatus(cmd.Context(), args[0], status)
				if err != nil {
					return err
				}
				a.success(fmt.Sprintf("[%s] is now %s", args[0], status))
				a.println("  " + filepath.Base(newPath))
				return nil
			})
		},
	}
}

func (a *App) trackerScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule <post-id> <YYYY-MM-DD>",
		Short: "Schedule a ready post for a date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := time.ParseInLocation("2006-01-02", args[1], time.Local)
			if err != nil {
				return fmt.Errorf("invalid date %q, use YYYY-MM-DD", args[1])
			}

			return a.withManager(func(manager *tracker.Manager) error {
				ctx := cmd.Context()

				ok, err := manager.DB().Schedule(ctx, args[0], at)
				if err != nil {
					return err
				}
				if !ok {
					post, err := manager.DB().GetPost(ctx, args[0])
					if err != nil {
						return err
					}
					return fmt.Errorf("only ready posts can be scheduled, [%s] is %s", post.ID, post.Status)
				}

				a.success(fmt.Sprintf("[%s] scheduled for %s", args[0], args[1]))
				return nil
			})
		},
	}
}

func (a *App) trackerUnscheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unschedule <post-id>",
		Short: "Clear a post's schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(func(manager *tracker.Manager) error {
				ok, err := manager.DB().Unschedule(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("post %s not found", args[0])
				}
				a.success("[" + args[0] + "] schedule cleared")
				return nil
			})
		},
	}
}

func (a *App) trackerRunDueCmd() *cobra.Command {
	var (
		every  time.Duration
		notify bool
	)

	cmd := &cobra.Command{
		Use:   "run-due",
		Short: "Publish every due scheduled post",
		Long: `Publish every ready post whose scheduled date has passed.

With --every the command keeps running and re-checks on that interval.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(func(manager *tracker.Manager) error {
				scheduler := tracker.NewScheduler(manager, a.trackerPublish(), every, notify)

				if every > 0 {
					a.info(fmt.Sprintf("checking for due posts every %s, ctrl-c to stop", every))
					return scheduler.Run(cmd.Context())
				}

				posted, failed, err := scheduler.RunDue(cmd.Context())
				if err != nil {
					return err
				}
				a.success(fmt.Sprintf("%d posted, %d failed", posted, failed))
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&every, "every", 0, "keep running, checking on this interval")
	cmd.Flags().BoolVar(&notify, "notify", false, "send a desktop notification per outcome")
	return cmd
}

func (a *App) trackerRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <post-id>",
		Short: "Move a failed post back to ready",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(func(manager *tracker.Manager) error {
				ctx := cmd.Context()

				ok, err := manager.DB().RetryFailed(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					post, err := manager.DB().GetPost(ctx, args[0])
					if err != nil {
						return err
					}
					return fmt.Errorf("only failed posts can be retried, [%s] is %s", post.ID, post.Status)
				}

				if _, err := manager.SetStatus(ctx, args[0], tracker.StatusReady); err != nil {
					return err
				}
				a.success("[" + args[0] + "] is ready again")
				return nil
			})
		},
	}
}

func (a *App) trackerDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <post-id>",
		Short: "Remove a post from the tracker",
		Long:  "Remove a post's tracking record. The post folder on disk is left alone.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(func(manager *tracker.Manager) error {
				ok, err := manager.DB().DeletePost(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("post %s not found", args[0])
				}
				a.success("[" + args[0] + "] deleted")
				return nil
			})
		},
	}
}

func (a *App) trackerWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the inbox and create draft posts for new files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(func(manager *tracker.Manager) error {
				watcher, err := tracker.NewWatcher(manager)
				if err != nil {
					return err
				}
				defer func() { _ = watcher.Close() }()

				a.info("watching " + manager.InboxDir(tracker.SourceImage))
				a.info("watching " + manager.InboxDir(tracker.SourceTex))
				a.info("ctrl-c to stop")
				return watcher.Run(cmd.Context())
			})
		},
	}
}
