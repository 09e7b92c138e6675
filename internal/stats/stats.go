// Package stats fetches audience and post metrics from every platform.
package stats

import (
	"context"
	"net/http"

	"github.com/guptarohit/asciigraph"

	"github.com/vbsocial/vbsocial/internal/auth"
	"github.com/vbsocial/vbsocial/internal/credstore"
	"github.com/vbsocial/vbsocial/internal/platform/youtube"
)

// Summary is a one-line account overview for a platform.
type Summary struct {
	Platform  string
	Name      string
	Followers int64
	Detail    string // secondary metric, e.g. post or tweet count
	Err       error  // set when the platform could not be queried
}

// PostStat is one recent post with engagement counts.
type PostStat struct {
	Date     string
	Kind     string
	Likes    int64
	Comments int64
	Shares   int64
	Text     string
}

// Client queries platform APIs for account and post metrics.
type Client struct {
	http           *http.Client
	instagram      *auth.Graph
	facebook       *auth.Graph
	linkedin       *auth.LinkedIn
	x              *auth.X
	youtube        *youtube.Client
	organizationID string
}

// New creates a stats client over the given per-platform authenticators.
func New(client *http.Client, instagram, facebook *auth.Graph, linkedin *auth.LinkedIn, x *auth.X, yt *youtube.Client, organizationID string) *Client {
	return &Client{
		http:           client,
		instagram:      instagram,
		facebook:       facebook,
		linkedin:       linkedin,
		x:              x,
		youtube:        yt,
		organizationID: organizationID,
	}
}

// All returns a summary per platform. Platforms that fail carry the error
// in their summary instead of aborting the rest.
func (c *Client) All(ctx context.Context) []Summary {
	summaries := make([]Summary, 0, 5)

	for _, fetch := range []struct {
		platform string
		fn       func(context.Context) (Summary, error)
	}{
		{credstore.PlatformInstagram, c.InstagramSummary},
		{credstore.PlatformFacebook, c.FacebookSummary},
		{credstore.PlatformLinkedIn, c.LinkedInSummary},
		{credstore.PlatformX, c.XSummary},
		{credstore.PlatformYouTube, c.YouTubeSummary},
	} {
		summary, err := fetch.fn(ctx)
		if err != nil {
			summary = Summary{Platform: fetch.platform, Err: err}
		}
		summaries = append(summaries, summary)
	}

	return summaries
}

// Chart renders follower history as an ASCII line chart.
func Chart(values []float64, width, height int, caption string) string {
	if len(values) == 0 {
		return "No data available"
	}

	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}
