package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vbsocial/vbsocial/internal/auth"
	"github.com/vbsocial/vbsocial/internal/platform/instagram"
)

func (a *App) instagramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instagram",
		Short: "Post photos, videos, carousels and stories to Instagram",
	}
	cmd.AddCommand(a.instagramConfigureCmd(), a.instagramRefreshCmd(), a.instagramPostCmd())
	return cmd
}

func (a *App) instagramConfigureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Store Graph API credentials for Instagram posting",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.configureGraph(a.instagramAuth(), true)
		},
	}
}

// configureGraph interactively collects Graph API credentials. Instagram
// additionally needs the linked business account ID.
func (a *App) configureGraph(graphAuth *auth.Graph, withInstagram bool) error {
	a.title("Graph API configuration")
	a.println("Create an app at https://developers.facebook.com and paste its credentials.")

	appID, err := a.promptRequired("App ID")
	if err != nil {
		return err
	}
	appSecret, err := a.promptRequired("App secret")
	if err != nil {
		return err
	}
	pageID, err := a.promptRequired("Page ID")
	if err != nil {
		return err
	}
	cfg := &auth.GraphConfig{
		AppID:     appID,
		AppSecret: appSecret,
		PageID:    pageID,
	}

	if withInstagram {
		cfg.InstagramAccountID, err = a.promptRequired("Instagram business account ID")
		if err != nil {
			return err
		}
	}

	cfg.AccessToken, err = a.promptRequired("Long-lived access token")
	if err != nil {
		return err
	}
	// Long-lived Graph tokens last about 60 days
	cfg.TokenExpiry = time.Now().Add(60 * 24 * time.Hour).Unix()

	if err := graphAuth.SaveConfig(cfg); err != nil {
		return err
	}
	a.success("credentials saved")
	return nil
}

func (a *App) instagramRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force an access token refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.instagramAuth().Refresh(cmd.Context()); err != nil {
				return err
			}
			a.success("token refreshed")
			return nil
		},
	}
}

// instagramPostPlan is the validated outcome of the post flags.
type instagramPostPlan struct {
	images []string
	video  string
	story  bool
}

// planInstagramPost validates the flag combinations: feed and story are
// exclusive, as are images and video; stories take exactly one medium.
func planInstagramPost(images []string, video string, feed, story bool) (*instagramPostPlan, error) {
	if feed && story {
		return nil, fmt.Errorf("--feed and --story are mutually exclusive")
	}
	if len(images) > 0 && video != "" {
		return nil, fmt.Errorf("--image and --video are mutually exclusive")
	}
	if len(images) == 0 && video == "" {
		return nil, fmt.Errorf("nothing to post, pass --image or --video")
	}
	if story && len(images) > 1 {
		return nil, fmt.Errorf("stories take a single image, got %d", len(images))
	}
	if len(images) > instagram.MaxCarouselItems {
		return nil, fmt.Errorf("carousels allow at most %d images, got %d", instagram.MaxCarouselItems, len(images))
	}
	return &instagramPostPlan{images: images, video: video, story: story}, nil
}

func (a *App) instagramPostCmd() *cobra.Command {
	var (
		images  []string
		video   string
		caption string
		feed    bool
		story   bool
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Publish a photo, carousel, video or story",
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := planInstagramPost(images, video, feed, story)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client := instagram.New(a.http, a.instagramAuth(), a.progress())

			var id string
			switch {
			case plan.story && plan.video != "":
				id, err = client.PostStoryVideo(ctx, plan.video)
			case plan.story:
				id, err = client.PostStoryPhoto(ctx, plan.images[0])
			case plan.video != "":
				id, err = client.PostVideo(ctx, plan.video, caption)
			case len(plan.images) > 1:
				id, err = client.PostCarousel(ctx, plan.images, caption)
			default:
				id, err = client.PostPhoto(ctx, plan.images[0], caption)
			}
			if err != nil {
				return err
			}

			a.success("posted to Instagram (id " + id + ")")
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&images, "image", "i", nil, "image file, repeat for a carousel")
	cmd.Flags().StringVarP(&video, "video", "v", "", "video file (posted as a reel)")
	cmd.Flags().StringVarP(&caption, "caption", "c", "", "post caption")
	cmd.Flags().BoolVarP(&feed, "feed", "f", false, "post to the feed (default)")
	cmd.Flags().BoolVarP(&story, "story", "s", false, "post as a story")
	return cmd
}
