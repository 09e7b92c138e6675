package cli

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vbsocial/vbsocial/internal/auth"
	"github.com/vbsocial/vbsocial/internal/platform/x"
)

// maxTweetImages is the platform limit on images per tweet.
const maxTweetImages = 4

func (a *App) xCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "x",
		Short: "Post tweets with images or video to X",
	}
	cmd.AddCommand(a.xConfigureCmd(), a.xPostCmd())
	return cmd
}

func (a *App) xConfigureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Authorize the X app via OAuth with PKCE",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.XClientID == "" || a.cfg.XClientSecret == "" {
				return fmt.Errorf("set X_CLIENT_ID_10X and X_CLIENT_SECRET_10X first")
			}

			pkce, err := auth.NewPKCE()
			if err != nil {
				return err
			}

			xAuth := a.xAuth()
			a.title("X authorization")
			a.println("Open this URL, grant access, then paste the full redirect URL:")
			a.println("")
			a.println(xAuth.AuthorizeURL(uuid.NewString(), pkce))
			a.println("")

			redirectURL, err := a.promptRequired("Redirect URL")
			if err != nil {
				return err
			}
			if _, err := xAuth.Exchange(cmd.Context(), redirectURL, pkce); err != nil {
				return err
			}

			a.success("X authorized")
			return nil
		},
	}
}

func (a *App) xPostCmd() *cobra.Command {
	var (
		message string
		images  []string
		video   string
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Publish a tweet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(images) > 0 && video != "" {
				return fmt.Errorf("--image and --video are mutually exclusive")
			}
			if len(images) > maxTweetImages {
				return fmt.Errorf("tweets allow at most %d images, got %d", maxTweetImages, len(images))
			}
			if message == "" && len(images) == 0 && video == "" {
				return fmt.Errorf("nothing to post, pass --message, --image or --video")
			}

			ctx := cmd.Context()
			client := x.New(a.http, a.xAuth(), a.progress())

			var mediaIDs []string
			for _, img := range images {
				a.info("  Uploading " + filepath.Base(img) + "...")
				id, err := client.UploadImage(ctx, img)
				if err != nil {
					return err
				}
				mediaIDs = append(mediaIDs, id)
			}
			if video != "" {
				id, err := client.UploadVideo(ctx, video)
				if err != nil {
					return err
				}
				mediaIDs = append(mediaIDs, id)
			}

			tweetID, err := client.CreatePost(ctx, message, mediaIDs)
			if err != nil {
				return err
			}

			a.success("posted to X (tweet id " + tweetID + ")")
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "tweet text")
	cmd.Flags().StringArrayVarP(&images, "image", "i", nil, "image file, repeatable up to 4")
	cmd.Flags().StringVarP(&video, "video", "v", "", "video file")
	return cmd
}
