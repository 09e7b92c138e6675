package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vbsocial/vbsocial/internal/credstore"
	"github.com/vbsocial/vbsocial/internal/logger"
	"github.com/vbsocial/vbsocial/internal/stats"
	"github.com/vbsocial/vbsocial/internal/ui/styles"
)

func (a *App) statsClient() *stats.Client {
	return stats.New(a.http, a.instagramAuth(), a.facebookAuth(), a.linkedinAuth(),
		a.xAuth(), a.youtubeClient(), a.cfg.LinkedInOrgID)
}

func (a *App) statsCmd() *cobra.Command {
	var (
		platform string
		posts    int
		graph    bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show follower counts and recent post engagement",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if graph {
				return a.followerGraph(ctx, platform)
			}

			client := a.statsClient()
			if platform == "all" {
				return a.allStats(ctx, client)
			}

			summary, err := a.platformSummary(ctx, client, platform)
			if err != nil {
				return err
			}
			a.printSummary(summary)
			a.recordSnapshot(ctx, summary)

			if posts > 0 {
				return a.recentPosts(ctx, client, platform, posts)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&platform, "platform", "p", "all", "platform or \"all\"")
	cmd.Flags().IntVarP(&posts, "posts", "n", 0, "show this many recent posts")
	cmd.Flags().BoolVar(&graph, "graph", false, "chart follower history from recorded snapshots")
	return cmd
}

func (a *App) platformSummary(ctx context.Context, client *stats.Client, platform string) (stats.Summary, error) {
	switch platform {
	case credstore.PlatformInstagram:
		return client.InstagramSummary(ctx)
	case credstore.PlatformFacebook:
		return client.FacebookSummary(ctx)
	case credstore.PlatformLinkedIn:
		return client.LinkedInSummary(ctx)
	case credstore.PlatformX:
		return client.XSummary(ctx)
	case credstore.PlatformYouTube:
		return client.YouTubeSummary(ctx)
	default:
		return stats.Summary{}, fmt.Errorf("unknown platform %q, use one of: %s",
			platform, strings.Join(publishPlatforms, ", "))
	}
}

func (a *App) allStats(ctx context.Context, client *stats.Client) error {
	summaries := client.All(ctx)

	a.title("Audience")
	for _, summary := range summaries {
		a.printSummary(summary)
		a.recordSnapshot(ctx, summary)
	}
	return nil
}

func (a *App) printSummary(s stats.Summary) {
	if s.Err != nil {
		a.printf("%-10s %s\n", s.Platform, styles.ErrorStyle.Render(s.Err.Error()))
		return
	}
	line := fmt.Sprintf("%-10s %-24s %8d followers", s.Platform, s.Name, s.Followers)
	if s.Detail != "" {
		line += "  " + s.Detail
	}
	a.println(line)
}

// recordSnapshot stores the follower count for stats --graph. Failures only
// log, the display already succeeded.
func (a *App) recordSnapshot(ctx context.Context, s stats.Summary) {
	if s.Err != nil || s.Followers == 0 {
		return
	}
	manager, err := a.trackerManager()
	if err != nil {
		logger.Warn("failed to open tracker for snapshot", "error", err)
		return
	}
	defer func() { _ = manager.Close() }()

	if err := manager.RecordSnapshot(ctx, s.Platform, s.Followers); err != nil {
		logger.Warn("failed to record follower snapshot", "platform", s.Platform, "error", err)
	}
}

func (a *App) recentPosts(ctx context.Context, client *stats.Client, platform string, limit int) error {
	var (
		posts []stats.PostStat
		err   error
	)
	switch platform {
	case credstore.PlatformInstagram:
		posts, err = client.InstagramPosts(ctx, limit)
	case credstore.PlatformFacebook:
		posts, err = client.FacebookPosts(ctx, limit)
	case credstore.PlatformX:
		posts, err = client.XPosts(ctx, limit)
	default:
		return fmt.Errorf("recent posts are not available for %s", platform)
	}
	if err != nil {
		return err
	}

	a.println("")
	a.title("Recent posts")
	for _, p := range posts {
		a.printf("%s  %-8s  %5d likes  %5d comments  %5d shares  %s\n",
			p.Date, p.Kind, p.Likes, p.Comments, p.Shares, preview(p.Text, 40))
	}
	return nil
}

// followerGraph charts recorded snapshots for one platform, or for every
// platform when "all" was asked.
func (a *App) followerGraph(ctx context.Context, platform string) error {
	manager, err := a.trackerManager()
	if err != nil {
		return err
	}
	defer func() { _ = manager.Close() }()

	platforms := []string{platform}
	if platform == "all" {
		platforms = publishPlatforms
	}

	for _, p := range platforms {
		snapshots, err := manager.DB().Snapshots(ctx, p, 60)
		if err != nil {
			return err
		}
		if len(snapshots) == 0 {
			a.printf("%s: no snapshots recorded yet, run 'vbsocial stats' first\n", p)
			continue
		}

		values := make([]float64, 0, len(snapshots))
		for _, s := range snapshots {
			values = append(values, float64(s.Followers))
		}

		a.title(p)
		a.println(stats.Chart(values, 60, 10, p+" followers"))
		a.println("")
	}
	return nil
}
