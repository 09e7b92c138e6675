// Package instagram posts media to an Instagram professional account
// through the Facebook Graph API container flow: media files are staged on
// Facebook storage to obtain URLs, wrapped in media containers, and
// published once processing finishes.
package instagram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vbsocial/vbsocial/internal/auth"
	"github.com/vbsocial/vbsocial/internal/httpx"
	"github.com/vbsocial/vbsocial/internal/logger"
)

const (
	graphBaseURL = "https://graph.facebook.com/" + auth.GraphAPIVersion

	// MaxCarouselItems is the Graph API limit on carousel children.
	MaxCarouselItems = 10

	processingPollInterval = 5 * time.Second
	processingTimeout      = 5 * time.Minute
)

// Client posts to a single Instagram professional account.
type Client struct {
	http *http.Client
	auth *auth.Graph
	log  func(string)
}

// New returns a client backed by the given Graph authenticator. progress is
// called with human-readable step descriptions; nil disables it.
func New(client *http.Client, graphAuth *auth.Graph, progress func(string)) *Client {
	if progress == nil {
		progress = func(string) {}
	}
	return &Client{http: client, auth: graphAuth, log: progress}
}

type idResponse struct {
	ID string `json:"id"`
}

// PostPhoto publishes a single image to the account's feed and returns the
// published media ID.
func (c *Client) PostPhoto(ctx context.Context, photoPath, caption string) (string, error) {
	token, cfg, err := c.credentials(ctx)
	if err != nil {
		return "", err
	}
	if cfg.PageID == "" {
		return "", fmt.Errorf("missing page_id in config, re-run 'vbsocial instagram configure'")
	}

	c.log("Uploading image to get URL...")
	imageURL, err := c.stagePhoto(ctx, photoPath, token, cfg.PageID)
	if err != nil {
		return "", err
	}

	c.log("Creating media container...")
	creationID, err := c.createContainer(ctx, cfg.InstagramAccountID, token, url.Values{
		"image_url":  {imageURL},
		"caption":    {caption},
		"media_type": {"IMAGE"},
	})
	if err != nil {
		return "", err
	}

	c.log("Media container created, publishing...")
	return c.publish(ctx, cfg.InstagramAccountID, token, creationID)
}

// PostCarousel publishes up to MaxCarouselItems images as one carousel.
func (c *Client) PostCarousel(ctx context.Context, photoPaths []string, caption string) (string, error) {
	if len(photoPaths) < 2 {
		return "", fmt.Errorf("a carousel needs at least 2 images")
	}
	if len(photoPaths) > MaxCarouselItems {
		return "", fmt.Errorf("instagram allows maximum %d images in a carousel", MaxCarouselItems)
	}

	token, cfg, err := c.credentials(ctx)
	if err != nil {
		return "", err
	}
	if cfg.PageID == "" {
		return "", fmt.Errorf("missing page_id in config, re-run 'vbsocial instagram configure'")
	}

	children := make([]string, 0, len(photoPaths))
	for i, path := range photoPaths {
		c.log(fmt.Sprintf("Uploading image %d/%d...", i+1, len(photoPaths)))
		imageURL, err := c.stagePhoto(ctx, path, token, cfg.PageID)
		if err != nil {
			return "", err
		}

		childID, err := c.createContainer(ctx, cfg.InstagramAccountID, token, url.Values{
			"image_url":        {imageURL},
			"is_carousel_item": {"true"},
		})
		if err != nil {
			return "", err
		}
		children = append(children, childID)
	}

	c.log("Creating carousel container...")
	parentID, err := c.createContainer(ctx, cfg.InstagramAccountID, token, url.Values{
		"children":   {strings.Join(children, ",")},
		"caption":    {caption},
		"media_type": {"CAROUSEL"},
	})
	if err != nil {
		return "", err
	}

	c.log("Publishing carousel...")
	return c.publish(ctx, cfg.InstagramAccountID, token, parentID)
}

// PostVideo publishes a video as a reel shared to the feed. The container
// is polled until Instagram finishes processing.
func (c *Client) PostVideo(ctx context.Context, videoPath, caption string) (string, error) {
	token, cfg, err := c.credentials(ctx)
	if err != nil {
		return "", err
	}

	c.log("Uploading video to get URL...")
	videoURL, err := c.stageVideo(ctx, videoPath, token)
	if err != nil {
		return "", err
	}

	c.log("Creating media container...")
	creationID, err := c.createContainer(ctx, cfg.InstagramAccountID, token, url.Values{
		"video_url":     {videoURL},
		"caption":       {caption},
		"media_type":    {"REELS"},
		"share_to_feed": {"true"},
	})
	if err != nil {
		return "", err
	}

	c.log("Media container created, waiting for processing...")
	if err := c.waitForProcessing(ctx, creationID, token); err != nil {
		return "", err
	}

	c.log("Media container processed, publishing...")
	return c.publish(ctx, cfg.InstagramAccountID, token, creationID)
}

// PostStoryPhoto publishes a single image to the account's story.
func (c *Client) PostStoryPhoto(ctx context.Context, photoPath string) (string, error) {
	token, cfg, err := c.credentials(ctx)
	if err != nil {
		return "", err
	}

	c.log("Uploading image to get URL...")
	imageURL, err := c.stagePhotoUnpaged(ctx, photoPath, token)
	if err != nil {
		return "", err
	}

	c.log("Creating story container...")
	creationID, err := c.createContainer(ctx, cfg.InstagramAccountID, token, url.Values{
		"image_url":        {imageURL},
		"is_carousel_item": {"false"},
		"media_type":       {"STORIES"},
		"sharing_type":     {"STORY"},
	})
	if err != nil {
		return "", err
	}

	c.log("Publishing story...")
	return c.publish(ctx, cfg.InstagramAccountID, token, creationID)
}

// PostStoryVideo publishes a video to the account's story.
func (c *Client) PostStoryVideo(ctx context.Context, videoPath string) (string, error) {
	token, cfg, err := c.credentials(ctx)
	if err != nil {
		return "", err
	}

	c.log("Uploading video to get URL...")
	videoURL, err := c.stageVideo(ctx, videoPath, token)
	if err != nil {
		return "", err
	}

	c.log("Creating story container...")
	creationID, err := c.createContainer(ctx, cfg.InstagramAccountID, token, url.Values{
		"video_url":    {videoURL},
		"media_type":   {"STORIES"},
		"sharing_type": {"STORY"},
	})
	if err != nil {
		return "", err
	}

	c.log("Waiting for processing...")
	if err := c.waitForProcessing(ctx, creationID, token); err != nil {
		return "", err
	}

	c.log("Publishing story...")
	return c.publish(ctx, cfg.InstagramAccountID, token, creationID)
}

func (c *Client) credentials(ctx context.Context) (string, *auth.GraphConfig, error) {
	token, err := c.auth.AccessToken(ctx)
	if err != nil {
		return "", nil, err
	}
	cfg, err := c.auth.Config()
	if err != nil {
		return "", nil, err
	}
	if cfg.InstagramAccountID == "" {
		return "", nil, fmt.Errorf("missing instagram_account_id in config, re-run 'vbsocial instagram configure'")
	}
	return token, cfg, nil
}

// stagePhoto uploads an image to the page's unpublished photos and resolves
// its hosted URL.
func (c *Client) stagePhoto(ctx context.Context, photoPath, token, pageID string) (string, error) {
	var uploaded idResponse
	uploadURL := fmt.Sprintf("%s/%s/photos", graphBaseURL, pageID)
	err := httpx.UploadFile(ctx, c.http, uploadURL, nil, "source", photoPath, map[string]string{
		"access_token": token,
		"published":    "false",
	}, &uploaded)
	if err != nil {
		return "", fmt.Errorf("image upload failed: %w", err)
	}
	return c.photoSourceURL(ctx, uploaded.ID, token)
}

// stagePhotoUnpaged uploads through /me/photos, used by story posting where
// the token already scopes to the page.
func (c *Client) stagePhotoUnpaged(ctx context.Context, photoPath, token string) (string, error) {
	var uploaded idResponse
	err := httpx.UploadFile(ctx, c.http, graphBaseURL+"/me/photos", nil, "source", photoPath, map[string]string{
		"access_token": token,
		"published":    "false",
	}, &uploaded)
	if err != nil {
		return "", fmt.Errorf("image upload failed: %w", err)
	}
	return c.photoSourceURL(ctx, uploaded.ID, token)
}

func (c *Client) photoSourceURL(ctx context.Context, photoID, token string) (string, error) {
	var out struct {
		Images []struct {
			Source string `json:"source"`
		} `json:"images"`
	}
	err := httpx.Get(ctx, c.http, graphBaseURL+"/"+photoID, nil, url.Values{
		"fields":       {"images"},
		"access_token": {token},
	}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Images) == 0 {
		return "", fmt.Errorf("could not get image URL for photo %s", photoID)
	}
	return out.Images[0].Source, nil
}

// stageVideo uploads a video to unpublished storage and polls until a
// source URL is available.
func (c *Client) stageVideo(ctx context.Context, videoPath, token string) (string, error) {
	var uploaded idResponse
	err := httpx.UploadFile(ctx, c.http, graphBaseURL+"/me/videos", nil, "source", videoPath, map[string]string{
		"access_token": token,
		"published":    "false",
	}, &uploaded)
	if err != nil {
		return "", fmt.Errorf("video upload failed: %w", err)
	}

	deadline := time.Now().Add(processingTimeout)
	for time.Now().Before(deadline) {
		var out struct {
			Source string `json:"source"`
		}
		err := httpx.Get(ctx, c.http, graphBaseURL+"/"+uploaded.ID, nil, url.Values{
			"fields":       {"source"},
			"access_token": {token},
		}, &out)
		if err == nil && out.Source != "" {
			return out.Source, nil
		}

		if err := sleep(ctx, processingPollInterval); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("could not get video URL after processing")
}

func (c *Client) createContainer(ctx context.Context, accountID, token string, params url.Values) (string, error) {
	params.Set("access_token", token)

	var out idResponse
	containerURL := fmt.Sprintf("%s/%s/media", graphBaseURL, accountID)
	if err := httpx.PostForm(ctx, c.http, containerURL, nil, params, &out); err != nil {
		return "", fmt.Errorf("error creating media container: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("media container response had no id")
	}
	return out.ID, nil
}

// waitForProcessing polls the container status until FINISHED or ERROR.
func (c *Client) waitForProcessing(ctx context.Context, creationID, token string) error {
	deadline := time.Now().Add(processingTimeout)
	for time.Now().Before(deadline) {
		var out struct {
			StatusCode string `json:"status_code"`
		}
		err := httpx.Get(ctx, c.http, graphBaseURL+"/"+creationID, nil, url.Values{
			"fields":       {"status_code"},
			"access_token": {token},
		}, &out)
		if err != nil {
			return err
		}

		switch out.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR":
			return fmt.Errorf("instagram failed to process the video")
		}

		if err := sleep(ctx, processingPollInterval); err != nil {
			return err
		}
	}
	return fmt.Errorf("video not processed within %s", processingTimeout)
}

func (c *Client) publish(ctx context.Context, accountID, token, creationID string) (string, error) {
	var out idResponse
	publishURL := fmt.Sprintf("%s/%s/media_publish", graphBaseURL, accountID)
	form := url.Values{
		"access_token": {token},
		"creation_id":  {creationID},
	}
	if err := httpx.PostForm(ctx, c.http, publishURL, nil, form, &out); err != nil {
		return "", fmt.Errorf("failed to publish: %w", err)
	}
	logger.Info("instagram media published", "media_id", out.ID)
	return out.ID, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
