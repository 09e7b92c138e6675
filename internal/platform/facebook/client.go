// Package facebook posts photos, videos, and stories to a Facebook page
// through the Graph API.
package facebook

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/vbsocial/vbsocial/internal/auth"
	"github.com/vbsocial/vbsocial/internal/httpx"
	"github.com/vbsocial/vbsocial/internal/logger"
)

const (
	graphBaseURL = "https://graph.facebook.com/" + auth.GraphAPIVersion

	storyPollInterval = 3 * time.Second
	storyPollTimeout  = 5 * time.Minute
)

// Client posts to a single Facebook page.
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
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

// PostPhoto publishes a photo with an optional message to the page feed.
func (c *Client) PostPhoto(ctx context.Context, photoPath, message string) (string, error) {
	token, err := c.auth.AccessToken(ctx)
	if err != nil {
		return "", err
	}

	c.log("Uploading photo...")
	var out idResponse
	err = httpx.UploadFile(ctx, c.http, graphBaseURL+"/me/photos", nil, "source", photoPath, map[string]string{
		"access_token": token,
		"message":      message,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("error posting photo: %w", err)
	}
	logger.Info("facebook photo posted", "id", out.ID)
	return out.ID, nil
}

// PostVideo publishes a video with an optional description to the page feed.
func (c *Client) PostVideo(ctx context.Context, videoPath, message string) (string, error) {
	token, err := c.auth.AccessToken(ctx)
	if err != nil {
		return "", err
	}

	c.log("Uploading video...")
	var out idResponse
	err = httpx.UploadFile(ctx, c.http, graphBaseURL+"/me/videos", nil, "source", videoPath, map[string]string{
		"access_token": token,
		"description":  message,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("error posting video: %w", err)
	}
	logger.Info("facebook video posted", "id", out.ID)
	return out.ID, nil
}

// PostStoryPhoto uploads an unpublished photo to the page and attaches it
// to a photo story.
func (c *Client) PostStoryPhoto(ctx context.Context, photoPath string) (string, error) {
	token, cfg, err := c.pageCredentials(ctx)
	if err != nil {
		return "", err
	}

	pageToken, err := c.pageToken(ctx, cfg.PageID, token)
	if err != nil {
		return "", err
	}

	c.log("Uploading photo...")
	var uploaded idResponse
	uploadURL := fmt.Sprintf("%s/%s/photos", graphBaseURL, cfg.PageID)
	err = httpx.UploadFile(ctx, c.http, uploadURL, nil, "source", photoPath, map[string]string{
		"access_token": pageToken,
		"published":    "false",
	}, &uploaded)
	if err != nil {
		return "", fmt.Errorf("photo upload failed: %w", err)
	}

	c.log("Photo uploaded, creating story...")
	var out struct {
		Success bool   `json:"success"`
		PostID  string `json:"post_id"`
	}
	storyURL := fmt.Sprintf("%s/%s/photo_stories", graphBaseURL, cfg.PageID)
	form := url.Values{
		"access_token": {pageToken},
		"photo_id":     {uploaded.ID},
	}
	if err := httpx.PostForm(ctx, c.http, storyURL, nil, form, &out); err != nil {
		return "", fmt.Errorf("story creation failed: %w", err)
	}
	if !out.Success {
		return "", fmt.Errorf("story creation was not successful")
	}
	logger.Info("facebook story photo posted", "post_id", out.PostID)
	return out.PostID, nil
}

// PostStoryVideo runs the three-phase video story flow: start an upload
// session, push the bytes, then finish once processing completes.
func (c *Client) PostStoryVideo(ctx context.Context, videoPath string) (string, error) {
	token, cfg, err := c.pageCredentials(ctx)
	if err != nil {
		return "", err
	}

	pageToken, err := c.pageToken(ctx, cfg.PageID, token)
	if err != nil {
		return "", err
	}

	c.log("Starting video upload...")
	var started struct {
		VideoID   string `json:"video_id"`
		UploadURL string `json:"upload_url"`
	}
	storiesURL := fmt.Sprintf("%s/%s/video_stories", graphBaseURL, cfg.PageID)
	form := url.Values{
		"access_token": {pageToken},
		"upload_phase": {"start"},
	}
	if err := httpx.PostForm(ctx, c.http, storiesURL, nil, form, &started); err != nil {
		return "", fmt.Errorf("failed to start video upload: %w", err)
	}
	if started.VideoID == "" || started.UploadURL == "" {
		return "", fmt.Errorf("video story start returned no upload target")
	}

	c.log("Uploading video...")
	headers := map[string]string{"Authorization": "OAuth " + pageToken}
	if err := c.uploadBinary(ctx, started.UploadURL, headers, videoPath); err != nil {
		return "", fmt.Errorf("video upload failed: %w", err)
	}

	c.log("Waiting for processing...")
	if err := c.waitForStoryVideo(ctx, started.VideoID, pageToken); err != nil {
		return "", err
	}

	c.log("Finishing story...")
	var out struct {
		Success bool   `json:"success"`
		PostID  string `json:"post_id"`
	}
	finish := url.Values{
		"access_token": {pageToken},
		"upload_phase": {"finish"},
		"video_id":     {started.VideoID},
	}
	if err := httpx.PostForm(ctx, c.http, storiesURL, nil, finish, &out); err != nil {
		return "", fmt.Errorf("failed to finish story: %w", err)
	}
	if !out.Success {
		return "", fmt.Errorf("story creation was not successful")
	}
	logger.Info("facebook story video posted", "post_id", out.PostID)
	return out.PostID, nil
}

func (c *Client) pageCredentials(ctx context.Context) (string, *auth.GraphConfig, error) {
	token, err := c.auth.AccessToken(ctx)
	if err != nil {
		return "", nil, err
	}
	cfg, err := c.auth.Config()
	if err != nil {
		return "", nil, err
	}
	if cfg.PageID == "" {
		return "", nil, fmt.Errorf("missing page_id in config, re-run 'vbsocial facebook configure'")
	}
	return token, cfg, nil
}

func (c *Client) pageToken(ctx context.Context, pageID, token string) (string, error) {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	err := httpx.Get(ctx, c.http, graphBaseURL+"/"+pageID, nil, url.Values{
		"access_token": {token},
		"fields":       {"access_token"},
	}, &out)
	if err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("could not get page access token")
	}
	return out.AccessToken, nil
}

func (c *Client) uploadBinary(ctx context.Context, uploadURL string, headers map[string]string, path string) error {
	// The video_stories upload endpoint takes the raw bytes as the POST
	// body rather than a multipart form.
	return httpx.SendFile(ctx, c.http, http.MethodPost, uploadURL, headers, path)
}

func (c *Client) waitForStoryVideo(ctx context.Context, videoID, pageToken string) error {
	deadline := time.Now().Add(storyPollTimeout)
	for time.Now().Before(deadline) {
		var out struct {
			Status struct {
				UploadingPhase struct {
					Status string `json:"status"`
				} `json:"uploading_phase"`
				ProcessingPhase struct {
					Status string `json:"status"`
				} `json:"processing_phase"`
			} `json:"status"`
		}
		err := httpx.Get(ctx, c.http, graphBaseURL+"/"+videoID, nil, url.Values{
			"access_token": {pageToken},
			"fields":       {"status"},
		}, &out)
		if err != nil {
			return err
		}

		if out.Status.UploadingPhase.Status == "complete" && out.Status.ProcessingPhase.Status == "complete" {
			return nil
		}

		t := time.NewTimer(storyPollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return fmt.Errorf("video not processed within %s", storyPollTimeout)
}
