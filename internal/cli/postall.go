package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vbsocial/vbsocial/internal/platform/facebook"
	"github.com/vbsocial/vbsocial/internal/platform/instagram"
	"github.com/vbsocial/vbsocial/internal/platform/linkedin"
	"github.com/vbsocial/vbsocial/internal/platform/x"
)

// publishPlatforms is the post-all order. YouTube has no community post API,
// so it only gets a reminder line.
var publishPlatforms = []string{"facebook", "instagram", "linkedin", "x", "youtube"}

// postMeta is the post.json file inside a post folder.
type postMeta struct {
	Title    string            `json:"title"`
	Date     string            `json:"date"`
	Captions map[string]string `json:"captions"`
}

func loadPostMeta(folder string) (*postMeta, error) {
	data, err := os.ReadFile(filepath.Join(folder, "post.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read post.json in %s: %w", folder, err)
	}
	var meta postMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse post.json in %s: %w", folder, err)
	}
	if meta.Captions == nil {
		meta.Captions = map[string]string{}
	}
	return &meta, nil
}

// postImages lists the folder's images, PNGs first then JPEGs, each group
// sorted by name.
func postImages(folder string) ([]string, error) {
	dir := filepath.Join(folder, "images")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read images/ in %s: %w", folder, err)
	}

	var pngs, jpgs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png":
			pngs = append(pngs, filepath.Join(dir, entry.Name()))
		case ".jpg", ".jpeg":
			jpgs = append(jpgs, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(pngs)
	sort.Strings(jpgs)

	images := append(pngs, jpgs...)
	if len(images) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}
	return images, nil
}

// publishFolder posts a folder to every platform not in skip and returns the
// per-platform post IDs. It fails only when every attempted platform fails;
// partial failures are reported but the folder still counts as published.
func (a *App) publishFolder(ctx context.Context, folder string, skip map[string]bool) (map[string]string, error) {
	meta, err := loadPostMeta(folder)
	if err != nil {
		return nil, err
	}
	images, err := postImages(folder)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]string)
	var failures []string

	attempt := func(platform string, post func() (string, error)) {
		if skip[platform] {
			return
		}
		a.info("Posting to " + platform + "...")
		id, err := post()
		if err != nil {
			a.warn(platform + " failed: " + err.Error())
			failures = append(failures, fmt.Sprintf("%s: %v", platform, err))
			return
		}
		ids[platform] = id
		a.success("posted to " + platform)
	}

	attempt("facebook", func() (string, error) {
		return a.publishFacebook(ctx, images, meta.Captions["facebook"])
	})
	attempt("instagram", func() (string, error) {
		return a.publishInstagram(ctx, images, meta.Captions["instagram"])
	})
	attempt("linkedin", func() (string, error) {
		return a.publishLinkedIn(ctx, images, meta.Captions["linkedin"])
	})
	attempt("x", func() (string, error) {
		return a.publishX(ctx, images, meta.Captions["x"])
	})

	if !skip["youtube"] {
		a.info("YouTube has no community post API, create the post manually:")
		a.info("  https://studio.youtube.com")
		if caption := meta.Captions["youtube"]; caption != "" {
			a.info("  Caption: " + caption)
		}
	}

	if len(ids) == 0 && len(failures) > 0 {
		return nil, fmt.Errorf("all platforms failed: %s", strings.Join(failures, "; "))
	}
	return ids, nil
}

func (a *App) publishFacebook(ctx context.Context, images []string, caption string) (string, error) {
	client := facebook.New(a.http, a.facebookAuth(), a.progress())

	// The Graph API has no multi-photo page post on this path, so extra
	// images go up as separate photos with the caption on the first.
	var firstID string
	for i, img := range images {
		msg := ""
		if i == 0 {
			msg = caption
		}
		id, err := client.PostPhoto(ctx, img, msg)
		if err != nil {
			return "", err
		}
		if i == 0 {
			firstID = id
		}
	}
	return firstID, nil
}

func (a *App) publishInstagram(ctx context.Context, images []string, caption string) (string, error) {
	client := instagram.New(a.http, a.instagramAuth(), a.progress())
	if len(images) == 1 {
		return client.PostPhoto(ctx, images[0], caption)
	}
	return client.PostCarousel(ctx, images, caption)
}

func (a *App) publishLinkedIn(ctx context.Context, images []string, caption string) (string, error) {
	client := linkedin.New(a.http, a.linkedinAuth(), a.cfg.LinkedInOrgID, a.progress())
	if len(images) == 0 {
		return client.PostText(ctx, caption)
	}
	return client.PostImages(ctx, caption, images)
}

func (a *App) publishX(ctx context.Context, images []string, caption string) (string, error) {
	client := x.New(a.http, a.xAuth(), a.progress())

	if len(images) > maxTweetImages {
		images = images[:maxTweetImages]
	}
	var mediaIDs []string
	for _, img := range images {
		id, err := client.UploadImage(ctx, img)
		if err != nil {
			return "", err
		}
		mediaIDs = append(mediaIDs, id)
	}
	return client.CreatePost(ctx, caption, mediaIDs)
}

func (a *App) postAllCmd() *cobra.Command {
	var (
		skip   []string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "post-all <post-folder>",
		Short: "Post a folder's images and captions to every platform",
		Long: `Post to all platforms from a post folder.

The folder holds post.json with a title, date and per-platform captions,
and an images/ directory with the files to post.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := args[0]
			skipSet := make(map[string]bool, len(skip))
			for _, platform := range skip {
				if !validPlatform(platform) {
					return fmt.Errorf("unknown platform %q, use one of: %s",
						platform, strings.Join(publishPlatforms, ", "))
				}
				skipSet[platform] = true
			}

			meta, err := loadPostMeta(folder)
			if err != nil {
				return err
			}
			images, err := postImages(folder)
			if err != nil {
				return err
			}

			a.title(meta.Title)
			a.printf("Date:   %s\n", meta.Date)
			a.printf("Images: %d\n", len(images))

			if dryRun {
				a.println("")
				a.println("Dry run, would post to:")
				for _, platform := range publishPlatforms {
					if skipSet[platform] {
						a.printf("  - %s: skipped\n", platform)
						continue
					}
					a.printf("  - %s: %q\n", platform, preview(meta.Captions[platform], 50))
				}
				return nil
			}

			ids, err := a.publishFolder(cmd.Context(), folder, skipSet)
			if err != nil {
				return err
			}

			a.println("")
			a.success(fmt.Sprintf("done, posted to %d platform(s)", len(ids)))
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&skip, "skip", "s", nil, "platform to skip, repeatable")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be posted without posting")
	return cmd
}

func validPlatform(platform string) bool {
	for _, p := range publishPlatforms {
		if p == platform {
			return true
		}
	}
	return false
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
