package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vbsocial/vbsocial/internal/auth"
	"github.com/vbsocial/vbsocial/internal/credstore"
	"github.com/vbsocial/vbsocial/internal/platform/youtube"
)

func (a *App) youtubeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "youtube",
		Short: "Upload and manage videos on YouTube",
	}
	cmd.AddCommand(
		a.youtubeConfigureCmd(),
		a.youtubeUploadCmd(),
		a.youtubeShortsCmd(),
		a.youtubeInfoCmd(),
		a.youtubeEditCmd(),
		a.youtubeStatsCmd(),
		a.youtubeVideosCmd(),
	)
	return cmd
}

func (a *App) youtubeConfigureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Install OAuth client credentials and authorize the channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.title("YouTube authorization")
			a.println("Download OAuth client credentials (installed app) from the")
			a.println("Google Cloud Console, then point this command at the file.")
			a.println("")

			secretPath, err := a.promptRequired("Path to client_secret.json")
			if err != nil {
				return err
			}
			data, err := os.ReadFile(secretPath)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", secretPath, err)
			}
			var secret auth.ClientSecret
			if err := json.Unmarshal(data, &secret); err != nil {
				return fmt.Errorf("failed to parse %s: %w", secretPath, err)
			}
			if secret.Installed.ClientID == "" || secret.Installed.ClientSecret == "" {
				return fmt.Errorf("%s has no installed client credentials", secretPath)
			}
			if err := a.store.Save(credstore.PlatformYouTube, credstore.ClientSecretFile, &secret); err != nil {
				return err
			}

			ytAuth := a.youtubeAuth()
			a.println("Open this URL, grant access, then paste the full redirect URL:")
			a.println("")
			a.println(ytAuth.AuthorizeURL(&secret, uuid.NewString()))
			a.println("")

			redirectURL, err := a.promptRequired("Redirect URL")
			if err != nil {
				return err
			}
			if _, err := ytAuth.Exchange(cmd.Context(), &secret, redirectURL); err != nil {
				return err
			}

			a.success("YouTube authorized")
			return nil
		},
	}
}

func (a *App) youtubeUploadCmd() *cobra.Command {
	var (
		metadataPath string
		privacy      string
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a video described by a JSON metadata file",
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := youtube.LoadMetadata(metadataPath)
			if err != nil {
				return err
			}

			videoID, err := a.youtubeClient().Upload(cmd.Context(), meta, privacy)
			if err != nil {
				return err
			}

			a.success("uploaded " + meta.Title)
			a.println("https://youtu.be/" + videoID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&metadataPath, "metadata", "m", "", "metadata JSON file")
	cmd.Flags().StringVarP(&privacy, "privacy", "p", "private", "private, public or unlisted")
	_ = cmd.MarkFlagRequired("metadata")
	return cmd
}

func (a *App) youtubeShortsCmd() *cobra.Command {
	var (
		title       string
		description string
		tags        string
		privacy     string
	)

	cmd := &cobra.Command{
		Use:   "shorts <video-file>",
		Short: "Upload a vertical video as a YouTube Short",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoID, err := a.youtubeClient().UploadShort(cmd.Context(), args[0], title, description, tags, privacy)
			if err != nil {
				return err
			}

			a.success("short uploaded")
			a.println("https://youtube.com/shorts/" + videoID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "video title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "video description")
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated tags")
	cmd.Flags().StringVarP(&privacy, "privacy", "p", "public", "private, public or unlisted")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func (a *App) youtubeInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <video-id-or-url>",
		Short: "Show a video's metadata and statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			video, err := a.youtubeClient().Video(cmd.Context(), youtube.ExtractVideoID(args[0]))
			if err != nil {
				return err
			}

			if video.Snippet != nil {
				a.title(video.Snippet.Title)
				a.printf("Published:   %s\n", video.Snippet.PublishedAt)
				a.printf("Category:    %s\n", video.Snippet.CategoryID)
				if len(video.Snippet.Tags) > 0 {
					a.printf("Tags:        %s\n", strings.Join(video.Snippet.Tags, ", "))
				}
			}
			if video.Status != nil {
				a.printf("Privacy:     %s\n", video.Status.PrivacyStatus)
			}
			if video.ContentDetails != nil {
				a.printf("Duration:    %s\n", youtube.FormatDuration(video.ContentDetails.Duration))
			}
			if video.Statistics != nil {
				a.printf("Views:       %s\n", video.Statistics.ViewCount)
				a.printf("Likes:       %s\n", video.Statistics.LikeCount)
				a.printf("Comments:    %s\n", video.Statistics.CommentCount)
			}
			if video.Snippet != nil && video.Snippet.Description != "" {
				a.println("")
				a.println(video.Snippet.Description)
			}
			return nil
		},
	}
}

func (a *App) youtubeEditCmd() *cobra.Command {
	var (
		title       string
		description string
		tags        []string
		addTags     []string
		removeTags  []string
		privacy     string
		category    string
	)

	cmd := &cobra.Command{
		Use:   "edit <video-id-or-url>",
		Short: "Update a video's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			edits := &youtube.VideoEdits{
				AddTags:    addTags,
				RemoveTags: removeTags,
			}
			if cmd.Flags().Changed("title") {
				edits.Title = &title
			}
			if cmd.Flags().Changed("description") {
				edits.Description = &description
			}
			if cmd.Flags().Changed("tags") {
				edits.Tags = tags
			}
			if cmd.Flags().Changed("privacy") {
				edits.Privacy = &privacy
			}
			if cmd.Flags().Changed("category") {
				edits.CategoryID = &category
			}

			changes, err := a.youtubeClient().Update(cmd.Context(), youtube.ExtractVideoID(args[0]), edits)
			if err != nil {
				return err
			}

			for _, change := range changes {
				a.println("  " + change)
			}
			a.success("video updated")
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "replace all tags")
	cmd.Flags().StringSliceVar(&addTags, "add-tags", nil, "tags to add")
	cmd.Flags().StringSliceVar(&removeTags, "remove-tags", nil, "tags to remove")
	cmd.Flags().StringVarP(&privacy, "privacy", "p", "", "private, public or unlisted")
	cmd.Flags().StringVar(&category, "category", "", "new category id")
	return cmd
}

func (a *App) youtubeStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the channel's subscriber and view counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.youtubeClient().ChannelStats(cmd.Context())
			if err != nil {
				return err
			}

			a.title(stats.Title)
			a.printf("Subscribers: %s\n", stats.SubscriberCount)
			a.printf("Views:       %s\n", stats.ViewCount)
			a.printf("Videos:      %s\n", stats.VideoCount)
			return nil
		},
	}
}

func (a *App) youtubeVideosCmd() *cobra.Command {
	var (
		limit int
		top   bool
	)

	cmd := &cobra.Command{
		Use:   "videos",
		Short: "List the channel's videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			videos, err := a.youtubeClient().ListVideos(cmd.Context(), limit, top)
			if err != nil {
				return err
			}
			if top {
				sortVideosByViews(videos)
			}
			if len(videos) > limit {
				videos = videos[:limit]
			}

			for _, v := range videos {
				title := v.ID
				views := "?"
				if v.Snippet != nil {
					title = v.Snippet.Title
				}
				if v.Statistics != nil {
					views = v.Statistics.ViewCount
				}
				a.printf("%-11s  %8s views  %s\n", v.ID, views, title)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of videos to show")
	cmd.Flags().BoolVar(&top, "top", false, "sort by view count instead of date")
	return cmd
}

func sortVideosByViews(videos []youtube.Video) {
	sort.SliceStable(videos, func(i, j int) bool {
		return videoViews(videos[i]) > videoViews(videos[j])
	})
}

func videoViews(v youtube.Video) int64 {
	if v.Statistics == nil {
		return 0
	}
	n, err := strconv.ParseInt(v.Statistics.ViewCount, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
