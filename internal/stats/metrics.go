package stats

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/vbsocial/vbsocial/internal/auth"
	"github.com/vbsocial/vbsocial/internal/credstore"
	"github.com/vbsocial/vbsocial/internal/httpx"
	"github.com/vbsocial/vbsocial/internal/logger"
)

const (
	linkedinAPIBase = "https://api.linkedin.com"
	// LinkedIn versioned REST endpoints require a YYYYMM version header.
	linkedinVersion = "202601"
	xAPIBase        = "https://api.x.com/2"
)

func graphURL(path string) string {
	return fmt.Sprintf("https://graph.facebook.com/%s/%s", auth.GraphAPIVersion, path)
}

// InstagramSummary returns the account's follower and media counts.
func (c *Client) InstagramSummary(ctx context.Context) (Summary, error) {
	cfg, err := c.instagram.Config()
	if err != nil {
		return Summary{}, err
	}
	if cfg.InstagramAccountID == "" {
		return Summary{}, fmt.Errorf("no instagram_account_id configured, run 'vbsocial instagram configure'")
	}
	token, err := c.instagram.AccessToken(ctx)
	if err != nil {
		return Summary{}, err
	}

	var account struct {
		Username       string `json:"username"`
		FollowersCount int64  `json:"followers_count"`
		FollowsCount   int64  `json:"follows_count"`
		MediaCount     int64  `json:"media_count"`
	}
	params := url.Values{
		"fields":       {"username,followers_count,follows_count,media_count"},
		"access_token": {token},
	}
	if err := httpx.Get(ctx, c.http, graphURL(cfg.InstagramAccountID), nil, params, &account); err != nil {
		return Summary{}, err
	}

	return Summary{
		Platform:  credstore.PlatformInstagram,
		Name:      "@" + account.Username,
		Followers: account.FollowersCount,
		Detail:    fmt.Sprintf("%d posts", account.MediaCount),
	}, nil
}

// InstagramPosts returns recent media with engagement counts.
func (c *Client) InstagramPosts(ctx context.Context, limit int) ([]PostStat, error) {
	cfg, err := c.instagram.Config()
	if err != nil {
		return nil, err
	}
	token, err := c.instagram.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var out struct {
		Data []struct {
			Caption       string `json:"caption"`
			MediaType     string `json:"media_type"`
			Timestamp     string `json:"timestamp"`
			LikeCount     int64  `json:"like_count"`
			CommentsCount int64  `json:"comments_count"`
		} `json:"data"`
	}
	params := url.Values{
		"fields":       {"id,caption,media_type,timestamp,like_count,comments_count,permalink"},
		"limit":        {strconv.Itoa(limit)},
		"access_token": {token},
	}
	if err := httpx.Get(ctx, c.http, graphURL(cfg.InstagramAccountID+"/media"), nil, params, &out); err != nil {
		return nil, err
	}

	posts := make([]PostStat, 0, len(out.Data))
	for _, item := range out.Data {
		posts = append(posts, PostStat{
			Date:     clipDate(item.Timestamp),
			Kind:     item.MediaType,
			Likes:    item.LikeCount,
			Comments: item.CommentsCount,
			Text:     item.Caption,
		})
	}
	return posts, nil
}

// FacebookSummary returns the page's follower and like counts.
func (c *Client) FacebookSummary(ctx context.Context) (Summary, error) {
	cfg, err := c.facebook.Config()
	if err != nil {
		return Summary{}, err
	}
	if cfg.PageID == "" {
		return Summary{}, fmt.Errorf("no page_id configured, run 'vbsocial facebook configure'")
	}
	token, err := c.facebook.AccessToken(ctx)
	if err != nil {
		return Summary{}, err
	}

	var page struct {
		Name           string `json:"name"`
		FollowersCount int64  `json:"followers_count"`
		FanCount       int64  `json:"fan_count"`
	}
	params := url.Values{
		"fields":       {"name,followers_count,fan_count"},
		"access_token": {token},
	}
	if err := httpx.Get(ctx, c.http, graphURL(cfg.PageID), nil, params, &page); err != nil {
		return Summary{}, err
	}

	return Summary{
		Platform:  credstore.PlatformFacebook,
		Name:      page.Name,
		Followers: page.FollowersCount,
		Detail:    fmt.Sprintf("%d likes", page.FanCount),
	}, nil
}

// FacebookPosts returns recent page posts with engagement counts.
func (c *Client) FacebookPosts(ctx context.Context, limit int) ([]PostStat, error) {
	cfg, err := c.facebook.Config()
	if err != nil {
		return nil, err
	}
	token, err := c.facebook.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var out struct {
		Data []struct {
			Message     string `json:"message"`
			CreatedTime string `json:"created_time"`
			Shares      struct {
				Count int64 `json:"count"`
			} `json:"shares"`
			Reactions struct {
				Summary struct {
					TotalCount int64 `json:"total_count"`
				} `json:"summary"`
			} `json:"reactions"`
			Comments struct {
				Summary struct {
					TotalCount int64 `json:"total_count"`
				} `json:"summary"`
			} `json:"comments"`
		} `json:"data"`
	}
	params := url.Values{
		"fields":       {"id,message,created_time,shares,reactions.summary(true),comments.summary(true)"},
		"limit":        {strconv.Itoa(limit)},
		"access_token": {token},
	}
	if err := httpx.Get(ctx, c.http, graphURL(cfg.PageID+"/posts"), nil, params, &out); err != nil {
		return nil, err
	}

	posts := make([]PostStat, 0, len(out.Data))
	for _, item := range out.Data {
		posts = append(posts, PostStat{
			Date:     clipDate(item.CreatedTime),
			Likes:    item.Reactions.Summary.TotalCount,
			Comments: item.Comments.Summary.TotalCount,
			Shares:   item.Shares.Count,
			Text:     item.Message,
		})
	}
	return posts, nil
}

// LinkedInSummary returns the organization follower count when an
// organization ID is set, otherwise the member profile name.
func (c *Client) LinkedInSummary(ctx context.Context) (Summary, error) {
	token, err := c.linkedin.AccessToken(ctx)
	if err != nil {
		return Summary{}, err
	}

	if c.organizationID != "" {
		name := c.organizationName(ctx, token)
		followers := c.organizationFollowers(ctx, token)
		return Summary{
			Platform:  credstore.PlatformLinkedIn,
			Name:      name,
			Followers: followers,
		}, nil
	}

	var profile struct {
		Name string `json:"name"`
	}
	headers := map[string]string{"Authorization": "Bearer " + token}
	if err := httpx.Get(ctx, c.http, linkedinAPIBase+"/v2/userinfo", headers, nil, &profile); err != nil {
		return Summary{}, err
	}

	return Summary{
		Platform: credstore.PlatformLinkedIn,
		Name:     profile.Name,
		Detail:   "connected",
	}, nil
}

func linkedinHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization":             "Bearer " + token,
		"X-Restli-Protocol-Version": "2.0.0",
		"LinkedIn-Version":          linkedinVersion,
	}
}

func (c *Client) organizationName(ctx context.Context, token string) string {
	var org struct {
		LocalizedName string `json:"localizedName"`
	}
	orgURL := linkedinAPIBase + "/rest/organizations/" + c.organizationID
	if err := httpx.Get(ctx, c.http, orgURL, linkedinHeaders(token), nil, &org); err != nil || org.LocalizedName == "" {
		return "Org " + c.organizationID
	}
	return org.LocalizedName
}

func (c *Client) organizationFollowers(ctx context.Context, token string) int64 {
	var out struct {
		FirstDegreeSize int64 `json:"firstDegreeSize"`
	}
	sizeURL := linkedinAPIBase + "/rest/networkSizes/urn:li:organization:" + c.organizationID
	params := url.Values{"edgeType": {"COMPANY_FOLLOWED_BY_MEMBER"}}
	if err := httpx.Get(ctx, c.http, sizeURL, linkedinHeaders(token), params, &out); err != nil {
		logger.Debug("linkedin follower count unavailable", "error", err)
		return 0
	}
	return out.FirstDegreeSize
}

// XSummary returns the account's follower and tweet counts.
func (c *Client) XSummary(ctx context.Context) (Summary, error) {
	user, err := c.xUser(ctx)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		Platform:  credstore.PlatformX,
		Name:      "@" + user.Username,
		Followers: user.PublicMetrics.FollowersCount,
		Detail:    fmt.Sprintf("%d tweets", user.PublicMetrics.TweetCount),
	}, nil
}

type xUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	PublicMetrics struct {
		FollowersCount int64 `json:"followers_count"`
		FollowingCount int64 `json:"following_count"`
		TweetCount     int64 `json:"tweet_count"`
	} `json:"public_metrics"`
}

func (c *Client) xUser(ctx context.Context) (*xUser, error) {
	token, err := c.x.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var out struct {
		Data xUser `json:"data"`
	}
	headers := map[string]string{"Authorization": "Bearer " + token}
	params := url.Values{"user.fields": {"public_metrics,username,name"}}
	if err := httpx.Get(ctx, c.http, xAPIBase+"/users/me", headers, params, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// XPosts returns recent tweets with engagement counts.
func (c *Client) XPosts(ctx context.Context, limit int) ([]PostStat, error) {
	user, err := c.xUser(ctx)
	if err != nil {
		return nil, err
	}
	token, err := c.x.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	if limit < 5 {
		limit = 5 // the tweets endpoint rejects max_results below 5
	}
	if limit > 100 {
		limit = 100
	}

	var out struct {
		Data []struct {
			Text          string `json:"text"`
			CreatedAt     string `json:"created_at"`
			PublicMetrics struct {
				LikeCount    int64 `json:"like_count"`
				RetweetCount int64 `json:"retweet_count"`
				ReplyCount   int64 `json:"reply_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}
	headers := map[string]string{"Authorization": "Bearer " + token}
	params := url.Values{
		"max_results":  {strconv.Itoa(limit)},
		"tweet.fields": {"created_at,public_metrics,text"},
	}
	if err := httpx.Get(ctx, c.http, xAPIBase+"/users/"+user.ID+"/tweets", headers, params, &out); err != nil {
		return nil, err
	}

	posts := make([]PostStat, 0, len(out.Data))
	for _, tweet := range out.Data {
		posts = append(posts, PostStat{
			Date:     clipDate(tweet.CreatedAt),
			Likes:    tweet.PublicMetrics.LikeCount,
			Comments: tweet.PublicMetrics.ReplyCount,
			Shares:   tweet.PublicMetrics.RetweetCount,
			Text:     tweet.Text,
		})
	}
	return posts, nil
}

// YouTubeSummary returns the channel's subscriber and view counts.
func (c *Client) YouTubeSummary(ctx context.Context) (Summary, error) {
	stats, err := c.youtube.ChannelStats(ctx)
	if err != nil {
		return Summary{}, err
	}

	subs, _ := strconv.ParseInt(stats.SubscriberCount, 10, 64)
	views, _ := strconv.ParseInt(stats.ViewCount, 10, 64)
	return Summary{
		Platform:  credstore.PlatformYouTube,
		Name:      stats.Title,
		Followers: subs,
		Detail:    fmt.Sprintf("%d views", views),
	}, nil
}

// clipDate reduces an ISO timestamp to its date part.
func clipDate(ts string) string {
	if len(ts) > 10 {
		return ts[:10]
	}
	return ts
}
