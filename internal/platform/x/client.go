// Package x uploads media and creates posts on X (Twitter) with the v2 API.
package x

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vbsocial/vbsocial/internal/auth"
	"github.com/vbsocial/vbsocial/internal/httpx"
	"github.com/vbsocial/vbsocial/internal/logger"
)

const (
	apiBase    = "https://api.x.com/2"
	uploadBase = "https://upload.twitter.com/2/media"

	processingTimeout = 5 * time.Minute
)

// Client uploads media and creates posts for the authenticated user.
type Client struct {
	http *http.Client
	auth *auth.X
	log  func(string)
}

// New returns a client backed by the given X authenticator. progress is
// called with human-readable step descriptions; nil disables it.
func New(client *http.Client, xAuth *auth.X, progress func(string)) *Client {
	if progress == nil {
		progress = func(string) {}
	}
	return &Client{http: client, auth: xAuth, log: progress}
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// mediaID tolerates both the numeric and string encodings the upload
// endpoint has used for media_id.
type mediaID struct {
	ID string
}

func (m *mediaID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		m.ID = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	m.ID = n.String()
	return nil
}

type uploadResponse struct {
	MediaID        mediaID `json:"media_id"`
	ProcessingInfo *struct {
		State          string `json:"state"`
		CheckAfterSecs int    `json:"check_after_secs"`
		Error          struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"processing_info"`
}

// UploadImage uploads an image and returns its media ID.
func (c *Client) UploadImage(ctx context.Context, imagePath string) (string, error) {
	token, err := c.auth.AccessToken(ctx)
	if err != nil {
		return "", err
	}

	c.log("Uploading image...")
	var out uploadResponse
	err = httpx.UploadFile(ctx, c.http, uploadBase, bearer(token), "file", imagePath,
		map[string]string{"media_category": "tweet_image"}, &out)
	if err != nil {
		return "", fmt.Errorf("image upload failed: %w", err)
	}
	if out.MediaID.ID == "" {
		return "", fmt.Errorf("unexpected upload response: no media_id")
	}
	return out.MediaID.ID, nil
}

// UploadVideo uploads a video and waits for processing to finish before
// returning its media ID.
func (c *Client) UploadVideo(ctx context.Context, videoPath string) (string, error) {
	token, err := c.auth.AccessToken(ctx)
	if err != nil {
		return "", err
	}

	c.log("Uploading video...")
	var out uploadResponse
	err = httpx.UploadFile(ctx, c.http, uploadBase, bearer(token), "file", videoPath,
		map[string]string{"media_category": "tweet_video"}, &out)
	if err != nil {
		return "", fmt.Errorf("video upload failed: %w", err)
	}
	if out.MediaID.ID == "" {
		return "", fmt.Errorf("unexpected upload response: no media_id")
	}

	if err := c.waitForProcessing(ctx, out.MediaID.ID, token); err != nil {
		return "", err
	}
	return out.MediaID.ID, nil
}

func (c *Client) waitForProcessing(ctx context.Context, mediaID, token string) error {
	deadline := time.Now().Add(processingTimeout)
	for time.Now().Before(deadline) {
		var out uploadResponse
		if err := httpx.Get(ctx, c.http, uploadBase+"/"+mediaID, bearer(token), nil, &out); err != nil {
			return err
		}

		info := out.ProcessingInfo
		if info == nil || info.State == "succeeded" {
			return nil
		}
		if info.State == "failed" {
			msg := info.Error.Message
			if msg == "" {
				msg = "unknown error"
			}
			return fmt.Errorf("video processing failed: %s", msg)
		}

		wait := time.Duration(info.CheckAfterSecs) * time.Second
		if wait <= 0 {
			wait = 5 * time.Second
		}
		c.log("Video processing...")

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return fmt.Errorf("video processing timed out after %s", processingTimeout)
}

// CreatePost publishes a post with optional attached media and returns the
// post ID.
func (c *Client) CreatePost(ctx context.Context, text string, mediaIDs []string) (string, error) {
	token, err := c.auth.AccessToken(ctx)
	if err != nil {
		return "", err
	}

	payload := map[string]any{"text": text}
	if len(mediaIDs) > 0 {
		payload["media"] = map[string]any{"media_ids": mediaIDs}
	}

	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := httpx.PostJSON(ctx, c.http, apiBase+"/tweets", bearer(token), payload, &out); err != nil {
		return "", fmt.Errorf("error posting tweet: %w", err)
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("post response had no id")
	}
	logger.Info("x post created", "id", out.Data.ID)
	return out.Data.ID, nil
}
