package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vbsocial/vbsocial/internal/platform/linkedin"
)

func (a *App) linkedinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkedin",
		Short: "Post text, links, images and videos to LinkedIn",
	}
	cmd.AddCommand(a.linkedinConfigureCmd(), a.linkedinPostCmd())
	return cmd
}

func (a *App) linkedinConfigureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Authorize the LinkedIn app via OAuth",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.LinkedInClientID == "" || a.cfg.LinkedInClientSecret == "" {
				return fmt.Errorf("set LINKEDIN_CLIENT_ID_10X and LINKEDIN_CLIENT_SECRET_10X first")
			}

			liAuth := a.linkedinAuth()
			a.title("LinkedIn authorization")
			a.println("Open this URL, grant access, then paste the full redirect URL:")
			a.println("")
			a.println(liAuth.AuthorizeURL(uuid.NewString()))
			a.println("")

			redirectURL, err := a.promptRequired("Redirect URL")
			if err != nil {
				return err
			}
			if _, err := liAuth.Exchange(cmd.Context(), redirectURL); err != nil {
				return err
			}

			a.success("LinkedIn authorized")
			return nil
		},
	}
}

// linkedinOrg resolves which organization to post as: the flag wins, then
// the environment, and --personal forces member posting.
func linkedinOrg(flagOrg, envOrg string, personal bool) string {
	if personal {
		return ""
	}
	if flagOrg != "" {
		return flagOrg
	}
	return envOrg
}

func (a *App) linkedinPostCmd() *cobra.Command {
	var (
		message  string
		link     string
		images   []string
		video    string
		orgID    string
		personal bool
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Publish a post as yourself or an organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				return fmt.Errorf("--message is required")
			}
			if len(images) > 0 && video != "" {
				return fmt.Errorf("--image and --video are mutually exclusive")
			}

			ctx := cmd.Context()
			org := linkedinOrg(orgID, a.cfg.LinkedInOrgID, personal)
			client := linkedin.New(a.http, a.linkedinAuth(), org, a.progress())

			var (
				id  string
				err error
			)
			switch {
			case video != "":
				id, err = client.PostVideo(ctx, message, video)
			case len(images) > 0:
				id, err = client.PostImages(ctx, message, images)
			case link != "":
				id, err = client.PostURL(ctx, message, link)
			default:
				id, err = client.PostText(ctx, message)
			}
			if err != nil {
				return err
			}

			a.success("posted to LinkedIn (id " + id + ")")
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "post text (required)")
	cmd.Flags().StringVarP(&link, "url", "u", "", "attach a link preview")
	cmd.Flags().StringArrayVarP(&images, "image", "i", nil, "image file, repeatable")
	cmd.Flags().StringVarP(&video, "video", "v", "", "video file")
	cmd.Flags().StringVarP(&orgID, "org-id", "o", "", "post as this organization (default LINKEDIN_ORGANIZATION_ID)")
	cmd.Flags().BoolVarP(&personal, "personal", "p", false, "post as your member profile even when an org is configured")
	return cmd
}
