package cli

import (
	"github.com/spf13/cobra"

	"github.com/vbsocial/vbsocial/internal/platform/facebook"
)

func (a *App) facebookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facebook",
		Short: "Post photos, videos and stories to a Facebook page",
	}
	cmd.AddCommand(a.facebookConfigureCmd(), a.facebookRefreshCmd(), a.facebookPostCmd())
	return cmd
}

func (a *App) facebookConfigureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Store Graph API credentials for page posting",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.configureGraph(a.facebookAuth(), false)
		},
	}
}

func (a *App) facebookRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force an access token refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.facebookAuth().Refresh(cmd.Context()); err != nil {
				return err
			}
			a.success("token refreshed")
			return nil
		},
	}
}

func (a *App) facebookPostCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Publish to the page feed or story",
	}
	cmd.PersistentFlags().StringVarP(&message, "message", "m", "", "post message")

	client := func() *facebook.Client {
		return facebook.New(a.http, a.facebookAuth(), a.progress())
	}

	photo := &cobra.Command{
		Use:   "photo <image>",
		Short: "Post a photo to the page feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := client().PostPhoto(cmd.Context(), args[0], message)
			if err != nil {
				return err
			}
			a.success("posted photo (id " + id + ")")
			return nil
		},
	}

	video := &cobra.Command{
		Use:   "video <video>",
		Short: "Post a video to the page feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := client().PostVideo(cmd.Context(), args[0], message)
			if err != nil {
				return err
			}
			a.success("posted video (id " + id + ")")
			return nil
		},
	}

	storyPhoto := &cobra.Command{
		Use:   "story-photo <image>",
		Short: "Post a photo story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := client().PostStoryPhoto(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.success("posted photo story (id " + id + ")")
			return nil
		},
	}

	storyVideo := &cobra.Command{
		Use:   "story-video <video>",
		Short: "Post a video story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := client().PostStoryVideo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.success("posted video story (id " + id + ")")
			return nil
		},
	}

	cmd.AddCommand(photo, video, storyPhoto, storyVideo)
	return cmd
}
