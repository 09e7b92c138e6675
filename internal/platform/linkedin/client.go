// Package linkedin creates UGC posts on LinkedIn for a member profile or an
// organization page, including the registerUpload asset flow for image and
// video attachments.
package linkedin

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/vbsocial/vbsocial/internal/auth"
	"github.com/vbsocial/vbsocial/internal/httpx"
	"github.com/vbsocial/vbsocial/internal/logger"
)

const baseURL = "https://api.linkedin.com/v2"

const (
	recipeImage = "urn:li:digitalmediaRecipe:feedshare-image"
	recipeVideo = "urn:li:digitalmediaRecipe:feedshare-video"
)

// Client creates posts as one author URN.
type Client struct {
	http *http.Client
	auth *auth.LinkedIn

	// organizationID switches the author to a company page. Empty means
	// the authenticated member's profile.
	organizationID string

	log func(string)
}

// New returns a client posting as the member, or as the organization when
// organizationID is non-empty. progress is called with human-readable step
// descriptions; nil disables it.
func New(client *http.Client, liAuth *auth.LinkedIn, organizationID string, progress func(string)) *Client {
	if progress == nil {
		progress = func(string) {}
	}
	return &Client{http: client, auth: liAuth, organizationID: organizationID, log: progress}
}

func (c *Client) headers(token string) map[string]string {
	return map[string]string{
		"Authorization":             "Bearer " + token,
		"X-Restli-Protocol-Version": "2.0.0",
	}
}

// authorURN resolves who the post is published as. Member posting needs a
// lookup of the member ID; organization posting does not.
func (c *Client) authorURN(ctx context.Context, token string) (string, error) {
	if c.organizationID != "" {
		return "urn:li:organization:" + c.organizationID, nil
	}

	var info struct {
		Sub string `json:"sub"`
	}
	err := httpx.Get(ctx, c.http, "https://api.linkedin.com/v2/userinfo", c.headers(token), nil, &info)
	if err == nil && info.Sub != "" {
		return "urn:li:person:" + info.Sub, nil
	}

	// Older tokens without the openid scope fall back to /me.
	var me struct {
		ID string `json:"id"`
	}
	if err := httpx.Get(ctx, c.http, baseURL+"/me", c.headers(token), nil, &me); err != nil {
		return "", fmt.Errorf("could not get LinkedIn ID: %w", err)
	}
	if me.ID == "" {
		return "", fmt.Errorf("could not get LinkedIn ID, try authenticating again")
	}
	return "urn:li:person:" + me.ID, nil
}

type media struct {
	Status      string     `json:"status"`
	Media       string     `json:"media,omitempty"`
	OriginalURL string     `json:"originalUrl,omitempty"`
	Title       *mediaText `json:"title,omitempty"`
	Description *mediaText `json:"description,omitempty"`
}

type mediaText struct {
	Text string `json:"text"`
}

func buildPost(author, message, category string, attachments []media) map[string]any {
	content := map[string]any{
		"shareCommentary":    map[string]string{"text": message},
		"shareMediaCategory": category,
	}
	if len(attachments) > 0 {
		content["media"] = attachments
	}
	return map[string]any{
		"author":         author,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": content,
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}
}

func (c *Client) createPost(ctx context.Context, token string, post map[string]any) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := httpx.PostJSON(ctx, c.http, baseURL+"/ugcPosts", c.headers(token), post, &out); err != nil {
		return "", fmt.Errorf("failed to post: %w", err)
	}
	logger.Info("linkedin post created", "id", out.ID)
	return out.ID, nil
}

// PostText publishes a text-only post and returns the post URN.
func (c *Client) PostText(ctx context.Context, message string) (string, error) {
	token, err := c.auth.AccessToken(ctx)
	if err != nil {
		return "", err
	}
	author, err := c.authorURN(ctx, token)
	if err != nil {
		return "", err
	}
	return c.createPost(ctx, token, buildPost(author, message, "NONE", nil))
}

// PostURL publishes a post with a link preview.
func (c *Client) PostURL(ctx context.Context, message, link string) (string, error) {
	token, err := c.auth.AccessToken(ctx)
	if err != nil {
		return "", err
	}
	author, err := c.authorURN(ctx, token)
	if err != nil {
		return "", err
	}

	attachments := []media{{
		Status:      "READY",
		OriginalURL: link,
		Title:       &mediaText{Text: "Shared URL"},
		Description: &mediaText{Text: message},
	}}
	return c.createPost(ctx, token, buildPost(author, message, "ARTICLE", attachments))
}

// PostImage uploads an image asset and publishes a post referencing it.
func (c *Client) PostImage(ctx context.Context, message, imagePath string) (string, error) {
	return c.postWithAsset(ctx, message, imagePath, recipeImage, "IMAGE")
}

// PostVideo uploads a video asset and publishes a post referencing it.
func (c *Client) PostVideo(ctx context.Context, message, videoPath string) (string, error) {
	return c.postWithAsset(ctx, message, videoPath, recipeVideo, "VIDEO")
}

// PostImages uploads several image assets and publishes a single post
// referencing all of them.
func (c *Client) PostImages(ctx context.Context, message string, imagePaths []string) (string, error) {
	if len(imagePaths) == 0 {
		return "", fmt.Errorf("no images to post")
	}
	if len(imagePaths) == 1 {
		return c.PostImage(ctx, message, imagePaths[0])
	}

	token, err := c.auth.AccessToken(ctx)
	if err != nil {
		return "", err
	}
	author, err := c.authorURN(ctx, token)
	if err != nil {
		return "", err
	}

	attachments := make([]media, 0, len(imagePaths))
	for _, path := range imagePaths {
		c.log(fmt.Sprintf("Uploading %s...", filepath.Base(path)))
		uploadURL, assetURN, err := c.registerUpload(ctx, token, author, recipeImage)
		if err != nil {
			return "", err
		}
		headers := map[string]string{"Authorization": "Bearer " + token}
		if err := httpx.SendFile(ctx, c.http, http.MethodPut, uploadURL, headers, path); err != nil {
			return "", fmt.Errorf("media upload failed: %w", err)
		}
		attachments = append(attachments, media{Status: "READY", Media: assetURN})
	}

	c.log("Creating post...")
	return c.createPost(ctx, token, buildPost(author, message, "IMAGE", attachments))
}

func (c *Client) postWithAsset(ctx context.Context, message, path, recipe, category string) (string, error) {
	token, err := c.auth.AccessToken(ctx)
	if err != nil {
		return "", err
	}
	author, err := c.authorURN(ctx, token)
	if err != nil {
		return "", err
	}

	c.log("Registering upload...")
	uploadURL, assetURN, err := c.registerUpload(ctx, token, author, recipe)
	if err != nil {
		return "", err
	}

	c.log("Uploading media...")
	headers := map[string]string{"Authorization": "Bearer " + token}
	if err := httpx.SendFile(ctx, c.http, http.MethodPut, uploadURL, headers, path); err != nil {
		return "", fmt.Errorf("media upload failed: %w", err)
	}

	c.log("Creating post...")
	attachments := []media{{Status: "READY", Media: assetURN}}
	return c.createPost(ctx, token, buildPost(author, message, category, attachments))
}

// registerUpload reserves an asset slot and returns the upload URL plus the
// asset URN to reference from the post.
func (c *Client) registerUpload(ctx context.Context, token, author, recipe string) (string, string, error) {
	request := map[string]any{
		"registerUploadRequest": map[string]any{
			"recipes": []string{recipe},
			"owner":   author,
			"serviceRelationships": []map[string]string{{
				"relationshipType": "OWNER",
				"identifier":       "urn:li:userGeneratedContent",
			}},
		},
	}

	var out struct {
		Value struct {
			Asset           string `json:"asset"`
			UploadMechanism struct {
				Request struct {
					UploadURL string `json:"uploadUrl"`
				} `json:"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"`
			} `json:"uploadMechanism"`
		} `json:"value"`
	}
	err := httpx.PostJSON(ctx, c.http, baseURL+"/assets?action=registerUpload", c.headers(token), request, &out)
	if err != nil {
		return "", "", fmt.Errorf("failed to register upload: %w", err)
	}

	uploadURL := out.Value.UploadMechanism.Request.UploadURL
	if uploadURL == "" || out.Value.Asset == "" {
		return "", "", fmt.Errorf("register upload returned no upload target")
	}
	return uploadURL, out.Value.Asset, nil
}
