// Package youtube uploads and manages videos through the YouTube Data API
// v3. Uploads use a resumable session: the metadata POST opens the session
// and the video bytes follow in a single PUT.
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/vbsocial/vbsocial/internal/auth"
	"github.com/vbsocial/vbsocial/internal/httpx"
	"github.com/vbsocial/vbsocial/internal/logger"
)

const (
	apiBase    = "https://www.googleapis.com/youtube/v3"
	uploadBase = "https://www.googleapis.com/upload/youtube/v3/videos"

	// MaxTitleLength is the YouTube limit on video titles.
	MaxTitleLength = 100

	// shortsCategory is "People & Blogs", the usual category for Shorts.
	shortsCategory = "22"
)

// PrivacyStatuses are the accepted values for a video's privacy setting.
var PrivacyStatuses = []string{"private", "public", "unlisted"}

// ValidPrivacy reports whether s is an accepted privacy status.
func ValidPrivacy(s string) bool {
	for _, p := range PrivacyStatuses {
		if s == p {
			return true
		}
	}
	return false
}

// Metadata is the upload description read from a JSON metadata file.
type Metadata struct {
	File        string   `json:"file"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	CategoryID  string   `json:"category_id,omitempty"`
}

// Snippet mirrors the API's video snippet object.
type Snippet struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags,omitempty"`
	CategoryID   string   `json:"categoryId,omitempty"`
	ChannelTitle string   `json:"channelTitle,omitempty"`
	PublishedAt  string   `json:"publishedAt,omitempty"`
}

// Status mirrors the API's video status object.
type Status struct {
	PrivacyStatus           string `json:"privacyStatus,omitempty"`
	SelfDeclaredMadeForKids *bool  `json:"selfDeclaredMadeForKids,omitempty"`
}

// Statistics mirrors the API's video statistics object. The API encodes
// counters as strings.
type Statistics struct {
	ViewCount    string `json:"viewCount"`
	LikeCount    string `json:"likeCount"`
	CommentCount string `json:"commentCount"`
}

// Video is one item from videos.list.
type Video struct {
	ID             string      `json:"id"`
	Snippet        *Snippet    `json:"snippet,omitempty"`
	Status         *Status     `json:"status,omitempty"`
	Statistics     *Statistics `json:"statistics,omitempty"`
	ContentDetails *struct {
		Duration string `json:"duration"`
	} `json:"contentDetails,omitempty"`
}

// ChannelStats is the statistics block from channels.list plus the
// channel title.
type ChannelStats struct {
	Title           string `json:"-"`
	SubscriberCount string `json:"subscriberCount"`
	ViewCount       string `json:"viewCount"`
	VideoCount      string `json:"videoCount"`
}

// Client talks to the YouTube Data API for one authenticated channel.
type Client struct {
	http *http.Client
	auth *auth.YouTube
	log  func(string)
}

// New returns a client backed by the given YouTube authenticator. progress
// is called with human-readable step descriptions; nil disables it.
func New(client *http.Client, ytAuth *auth.YouTube, progress func(string)) *Client {
	if progress == nil {
		progress = func(string) {}
	}
	return &Client{http: client, auth: ytAuth, log: progress}
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// LoadMetadata reads an upload metadata file and checks its required fields.
func LoadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata file: %w", err)
	}
	if meta.File == "" {
		return nil, fmt.Errorf("metadata file has no \"file\" field")
	}
	if meta.Title == "" {
		return nil, fmt.Errorf("metadata file has no \"title\" field")
	}
	if len(meta.Title) > MaxTitleLength {
		return nil, fmt.Errorf("title must be %d characters or less", MaxTitleLength)
	}
	return &meta, nil
}

// Upload publishes a video described by a metadata file and returns the
// video ID.
func (c *Client) Upload(ctx context.Context, meta *Metadata, privacy string) (string, error) {
	if meta.CategoryID == "" {
		meta.CategoryID = "22"
	}
	snippet := &Snippet{
		Title:       meta.Title,
		Description: meta.Description,
		Tags:        meta.Tags,
		CategoryID:  meta.CategoryID,
	}
	return c.upload(ctx, meta.File, snippet, privacy)
}

// UploadShort publishes a vertical short. #Shorts is appended to the
// description and tags when missing so YouTube classifies it correctly.
func (c *Client) UploadShort(ctx context.Context, videoPath, title, description, tags, privacy string) (string, error) {
	if len(title) > MaxTitleLength {
		return "", fmt.Errorf("title must be %d characters or less", MaxTitleLength)
	}

	if !strings.Contains(strings.ToLower(description), "#shorts") {
		description = strings.TrimSpace(description + "\n\n#Shorts")
	}

	tagList := splitTags(tags)
	hasShorts := false
	for _, t := range tagList {
		if t == "Shorts" {
			hasShorts = true
		}
	}
	if !hasShorts {
		tagList = append(tagList, "Shorts")
	}

	snippet := &Snippet{
		Title:       title,
		Description: description,
		Tags:        tagList,
		CategoryID:  shortsCategory,
	}
	return c.upload(ctx, videoPath, snippet, privacy)
}

// upload opens a resumable session with the metadata, then PUTs the bytes
// to the session URL.
func (c *Client) upload(ctx context.Context, videoPath string, snippet *Snippet, privacy string) (string, error) {
	if !ValidPrivacy(privacy) {
		return "", fmt.Errorf("invalid privacy status %q", privacy)
	}

	token, err := c.auth.AccessToken(ctx)
	if err != nil {
		return "", err
	}

	madeForKids := false
	body := map[string]any{
		"snippet": snippet,
		"status":  &Status{PrivacyStatus: privacy, SelfDeclaredMadeForKids: &madeForKids},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	c.log("Starting upload session...")
	initURL := uploadBase + "?" + url.Values{
		"uploadType": {"resumable"},
		"part":       {"snippet,status"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, initURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Type", "video/*")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to start upload session: %w", err)
	}
	sessionURL := resp.Header.Get("Location")
	if err := httpx.Decode(resp, nil); err != nil {
		return "", fmt.Errorf("failed to start upload session: %w", err)
	}
	if sessionURL == "" {
		return "", fmt.Errorf("upload session returned no location")
	}

	c.log("Uploading video...")
	f, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", videoPath, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Error("failed to close video file", "error", err)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", videoPath, err)
	}

	putReq, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, f)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	putReq.ContentLength = info.Size()
	putReq.Header.Set("Content-Type", "video/*")
	putReq.Header.Set("Authorization", "Bearer "+token)

	putResp, err := c.http.Do(putReq)
	if err != nil {
		return "", fmt.Errorf("video upload failed: %w", err)
	}

	var out Video
	if err := httpx.Decode(putResp, &out); err != nil {
		return "", fmt.Errorf("video upload failed: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("upload response had no video id")
	}
	logger.Info("youtube video uploaded", "video_id", out.ID)
	return out.ID, nil
}

// Video fetches snippet, statistics, status, and content details for one
// video.
func (c *Client) Video(ctx context.Context, videoID string) (*Video, error) {
	token, err := c.auth.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var out struct {
		Items []Video `json:"items"`
	}
	params := url.Values{
		"part": {"snippet,statistics,status,contentDetails"},
		"id":   {videoID},
	}
	if err := httpx.Get(ctx, c.http, apiBase+"/videos", bearer(token), params, &out); err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("video not found: %s", videoID)
	}
	return &out.Items[0], nil
}

// VideoEdits describes the fields Update changes. Nil string pointers leave
// the current value alone; tag handling follows replace-then-add/remove.
type VideoEdits struct {
	Title       *string
	Description *string
	Tags        []string
	AddTags     []string
	RemoveTags  []string
	Privacy     *string
	CategoryID  *string
}

// Empty reports whether the edit changes nothing.
func (e *VideoEdits) Empty() bool {
	return e.Title == nil && e.Description == nil && e.Tags == nil &&
		len(e.AddTags) == 0 && len(e.RemoveTags) == 0 && e.Privacy == nil && e.CategoryID == nil
}

// Update merges edits into the video's current snippet and applies them
// with videos.update. It returns the list of applied changes.
func (c *Client) Update(ctx context.Context, videoID string, edits *VideoEdits) ([]string, error) {
	if edits.Empty() {
		return nil, fmt.Errorf("no fields to update")
	}
	if edits.Privacy != nil && !ValidPrivacy(*edits.Privacy) {
		return nil, fmt.Errorf("invalid privacy status %q", *edits.Privacy)
	}

	token, err := c.auth.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	current, err := c.Video(ctx, videoID)
	if err != nil {
		return nil, err
	}
	snippet := current.Snippet
	if snippet == nil {
		return nil, fmt.Errorf("video %s has no snippet", videoID)
	}

	var changes []string

	if edits.Title != nil {
		if len(*edits.Title) > MaxTitleLength {
			return nil, fmt.Errorf("title must be %d characters or less", MaxTitleLength)
		}
		snippet.Title = *edits.Title
		changes = append(changes, "Title → "+*edits.Title)
	}
	if edits.Description != nil {
		snippet.Description = *edits.Description
		changes = append(changes, "Description updated")
	}

	if edits.Tags != nil {
		snippet.Tags = edits.Tags
		changes = append(changes, "Tags → "+strings.Join(edits.Tags, ", "))
	} else if len(edits.AddTags) > 0 || len(edits.RemoveTags) > 0 {
		tags := mergeTags(snippet.Tags, edits.AddTags, edits.RemoveTags)
		snippet.Tags = tags
		if len(edits.AddTags) > 0 {
			changes = append(changes, "Added tags: "+strings.Join(edits.AddTags, ", "))
		}
		if len(edits.RemoveTags) > 0 {
			changes = append(changes, "Removed tags: "+strings.Join(edits.RemoveTags, ", "))
		}
	}

	if edits.CategoryID != nil {
		snippet.CategoryID = *edits.CategoryID
		changes = append(changes, "Category → "+*edits.CategoryID)
	}

	body := map[string]any{
		"id": videoID,
		"snippet": map[string]any{
			"title":       snippet.Title,
			"description": snippet.Description,
			"tags":        snippet.Tags,
			"categoryId":  snippet.CategoryID,
		},
	}
	parts := []string{"snippet"}

	if edits.Privacy != nil {
		body["status"] = map[string]string{"privacyStatus": *edits.Privacy}
		parts = append(parts, "status")
		changes = append(changes, "Privacy → "+*edits.Privacy)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal update: %w", err)
	}

	updateURL := apiBase + "/videos?" + url.Values{"part": {strings.Join(parts, ",")}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, updateURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("update failed: %w", err)
	}
	if err := httpx.Decode(resp, nil); err != nil {
		return nil, fmt.Errorf("update failed: %w", err)
	}
	logger.Info("youtube video updated", "video_id", videoID, "changes", len(changes))
	return changes, nil
}

// ChannelStats fetches the authenticated channel's statistics.
func (c *Client) ChannelStats(ctx context.Context) (*ChannelStats, error) {
	token, err := c.auth.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var out struct {
		Items []struct {
			Snippet    Snippet      `json:"snippet"`
			Statistics ChannelStats `json:"statistics"`
		} `json:"items"`
	}
	params := url.Values{"part": {"snippet,statistics"}, "mine": {"true"}}
	if err := httpx.Get(ctx, c.http, apiBase+"/channels", bearer(token), params, &out); err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("no channel found")
	}
	stats := out.Items[0].Statistics
	stats.Title = out.Items[0].Snippet.Title
	return &stats, nil
}

// ListVideos returns the channel's videos joined with their statistics.
// With top set, search ordering switches from date to relevance and paging
// continues past limit so sorting sees the whole channel.
func (c *Client) ListVideos(ctx context.Context, limit int, top bool) ([]Video, error) {
	token, err := c.auth.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var channels struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	params := url.Values{"part": {"id"}, "mine": {"true"}}
	if err := httpx.Get(ctx, c.http, apiBase+"/channels", bearer(token), params, &channels); err != nil {
		return nil, err
	}
	if len(channels.Items) == 0 {
		return nil, fmt.Errorf("no channel found")
	}
	channelID := channels.Items[0].ID

	order := "date"
	if top {
		order = "relevance"
	}

	var videos []Video
	pageToken := ""
	for {
		var page struct {
			NextPageToken string `json:"nextPageToken"`
			Items         []struct {
				ID struct {
					VideoID string `json:"videoId"`
				} `json:"id"`
			} `json:"items"`
		}
		searchParams := url.Values{
			"part":       {"id"},
			"channelId":  {channelID},
			"maxResults": {"50"},
			"type":       {"video"},
			"order":      {order},
		}
		if pageToken != "" {
			searchParams.Set("pageToken", pageToken)
		}
		if err := httpx.Get(ctx, c.http, apiBase+"/search", bearer(token), searchParams, &page); err != nil {
			return nil, err
		}
		if len(page.Items) == 0 {
			break
		}

		ids := make([]string, 0, len(page.Items))
		for _, item := range page.Items {
			ids = append(ids, item.ID.VideoID)
		}

		var details struct {
			Items []Video `json:"items"`
		}
		detailParams := url.Values{
			"part": {"snippet,statistics"},
			"id":   {strings.Join(ids, ",")},
		}
		if err := httpx.Get(ctx, c.http, apiBase+"/videos", bearer(token), detailParams, &details); err != nil {
			return nil, err
		}
		videos = append(videos, details.Items...)

		pageToken = page.NextPageToken
		if pageToken == "" || (!top && len(videos) >= limit) {
			break
		}
	}
	return videos, nil
}

var (
	videoIDPattern   = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	videoURLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`[?&]v=([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`/shorts/([a-zA-Z0-9_-]{11})`),
	}
)

// ExtractVideoID accepts a bare video ID or any of the common YouTube URL
// shapes and returns the ID.
func ExtractVideoID(urlOrID string) string {
	if videoIDPattern.MatchString(urlOrID) {
		return urlOrID
	}
	for _, p := range videoURLPatterns {
		if m := p.FindStringSubmatch(urlOrID); m != nil {
			return m[1]
		}
	}
	return urlOrID
}

var durationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// FormatDuration converts an ISO 8601 duration like PT1H2M3S to 1h2m3s.
func FormatDuration(iso string) string {
	m := durationPattern.FindStringSubmatch(iso)
	if m == nil {
		return iso
	}
	var parts []string
	if m[1] != "" {
		parts = append(parts, m[1]+"h")
	}
	if m[2] != "" {
		parts = append(parts, m[2]+"m")
	}
	if m[3] != "" || len(parts) == 0 {
		s := m[3]
		if s == "" {
			s = "0"
		}
		parts = append(parts, s+"s")
	}
	return strings.Join(parts, "")
}

func splitTags(tags string) []string {
	if tags == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func mergeTags(current, add, remove []string) []string {
	set := make(map[string]bool, len(current)+len(add))
	var out []string
	for _, t := range current {
		if !set[t] {
			set[t] = true
			out = append(out, t)
		}
	}
	for _, t := range add {
		if !set[t] {
			set[t] = true
			out = append(out, t)
		}
	}
	if len(remove) > 0 {
		drop := make(map[string]bool, len(remove))
		for _, t := range remove {
			drop[t] = true
		}
		kept := out[:0]
		for _, t := range out {
			if !drop[t] {
				kept = append(kept, t)
			}
		}
		out = kept
	}
	return out
}
