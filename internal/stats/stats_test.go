package stats

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/vbsocial/vbsocial/internal/auth"
	"github.com/vbsocial/vbsocial/internal/credstore"
	"github.com/vbsocial/vbsocial/internal/platform/youtube"
)

// MockRoundTripper lets tests stub HTTP responses without a live server.
type MockRoundTripper struct {
	RoundTripFunc func(req *http.Request) (*http.Response, error)
	Requests      []*http.Request
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.Requests = append(m.Requests, req)
	return m.RoundTripFunc(req)
}

func mockResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

// newTestClient wires a fully configured stats client against mock over a
// temp credential store.
func newTestClient(t *testing.T, mock *MockRoundTripper) *Client {
	t.Helper()
	store := credstore.New(t.TempDir())
	httpClient := &http.Client{Transport: mock}

	token := &auth.Token{
		AccessToken: "token-1",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
	}
	for _, platform := range []string{credstore.PlatformLinkedIn, credstore.PlatformX, credstore.PlatformYouTube} {
		if err := store.Save(platform, credstore.TokenFile, token); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}
	}
	for platform, cfg := range map[string]*auth.GraphConfig{
		credstore.PlatformInstagram: {AccessToken: "token-1", InstagramAccountID: "ig-acc-1"},
		credstore.PlatformFacebook:  {AccessToken: "token-1", PageID: "page-1"},
	} {
		if err := store.Save(platform, credstore.ConfigFile, cfg); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}
	}
	secret := &auth.ClientSecret{}
	secret.Installed.ClientID = "cid"
	secret.Installed.ClientSecret = "csecret"
	if err := store.Save(credstore.PlatformYouTube, credstore.ClientSecretFile, secret); err != nil {
		t.Fatalf("failed to save client secret: %v", err)
	}

	yt := youtube.New(httpClient, auth.NewYouTube(httpClient, store), nil)
	return New(httpClient,
		auth.NewGraph(httpClient, store, credstore.PlatformInstagram),
		auth.NewGraph(httpClient, store, credstore.PlatformFacebook),
		auth.NewLinkedIn(httpClient, store, "cid", "csecret"),
		auth.NewX(httpClient, store, "cid", "csecret"),
		yt,
		"")
}

func TestInstagramSummary(t *testing.T) {
	mock := &MockRoundTripper{
		RoundTripFunc: func(req *http.Request) (*http.Response, error) {
			if !strings.Contains(req.URL.Path, "ig-acc-1") {
				t.Errorf("unexpected path %s", req.URL.Path)
			}
			if req.URL.Query().Get("access_token") != "token-1" {
				t.Error("access token missing from query")
			}
			return mockResponse(http.StatusOK,
				`{"username": "physicsdaily", "followers_count": 1234, "follows_count": 10, "media_count": 87}`), nil
		},
	}
	c := newTestClient(t, mock)

	summary, err := c.InstagramSummary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Name != "@physicsdaily" || summary.Followers != 1234 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if summary.Detail != "87 posts" {
		t.Errorf("unexpected detail %q", summary.Detail)
	}
}

func TestFacebookSummary(t *testing.T) {
	mock := &MockRoundTripper{
		RoundTripFunc: func(req *http.Request) (*http.Response, error) {
			return mockResponse(http.StatusOK,
				`{"name": "Physics Daily", "followers_count": 500, "fan_count": 480}`), nil
		},
	}
	c := newTestClient(t, mock)

	summary, err := c.FacebookSummary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Name != "Physics Daily" || summary.Followers != 500 || summary.Detail != "480 likes" {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestFacebookPosts(t *testing.T) {
	mock := &MockRoundTripper{
		RoundTripFunc: func(req *http.Request) (*http.Response, error) {
			if !strings.HasSuffix(req.URL.Path, "page-1/posts") {
				t.Errorf("unexpected path %s", req.URL.Path)
			}
			return mockResponse(http.StatusOK, `{"data": [{
				"message": "projectile motion",
				"created_time": "2026-08-29T10:00:00+0000",
				"shares": {"count": 3},
				"reactions": {"summary": {"total_count": 42}},
				"comments": {"summary": {"total_count": 7}}
			}]}`), nil
		},
	}
	c := newTestClient(t, mock)

	posts, err := c.FacebookPosts(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	p := posts[0]
	if p.Date != "2026-08-29" || p.Likes != 42 || p.Comments != 7 || p.Shares != 3 {
		t.Errorf("unexpected post %+v", p)
	}
}

func TestLinkedInSummaryMember(t *testing.T) {
	mock := &MockRoundTripper{
		RoundTripFunc: func(req *http.Request) (*http.Response, error) {
			if !strings.HasSuffix(req.URL.Path, "/v2/userinfo") {
				t.Errorf("unexpected path %s", req.URL.Path)
			}
			return mockResponse(http.StatusOK, `{"sub": "member-1", "name": "Ada Lovelace"}`), nil
		},
	}
	c := newTestClient(t, mock)

	summary, err := c.LinkedInSummary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Name != "Ada Lovelace" || summary.Detail != "connected" {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestLinkedInSummaryOrganization(t *testing.T) {
	mock := &MockRoundTripper{
		RoundTripFunc: func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("LinkedIn-Version") != linkedinVersion {
				t.Error("missing LinkedIn-Version header")
			}
			switch {
			case strings.Contains(req.URL.Path, "/rest/organizations/"):
				return mockResponse(http.StatusOK, `{"localizedName": "Physics Daily"}`), nil
			case strings.Contains(req.URL.Path, "/rest/networkSizes/"):
				if req.URL.Query().Get("edgeType") != "COMPANY_FOLLOWED_BY_MEMBER" {
					t.Errorf("unexpected edgeType %q", req.URL.Query().Get("edgeType"))
				}
				return mockResponse(http.StatusOK, `{"firstDegreeSize": 321}`), nil
			default:
				t.Errorf("unexpected path %s", req.URL.Path)
				return mockResponse(http.StatusNotFound, `{}`), nil
			}
		},
	}
	c := newTestClient(t, mock)
	c.organizationID = "9001"

	summary, err := c.LinkedInSummary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Name != "Physics Daily" || summary.Followers != 321 {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestXSummaryAndPosts(t *testing.T) {
	mock := &MockRoundTripper{
		RoundTripFunc: func(req *http.Request) (*http.Response, error) {
			switch {
			case strings.HasSuffix(req.URL.Path, "/users/me"):
				return mockResponse(http.StatusOK, `{"data": {
					"id": "u1", "username": "physicsdaily",
					"public_metrics": {"followers_count": 99, "tweet_count": 240}
				}}`), nil
			case strings.HasSuffix(req.URL.Path, "/users/u1/tweets"):
				if req.URL.Query().Get("max_results") != "5" {
					t.Errorf("max_results should be clamped to 5, got %q", req.URL.Query().Get("max_results"))
				}
				return mockResponse(http.StatusOK, `{"data": [{
					"text": "falling bodies",
					"created_at": "2026-08-28T08:00:00Z",
					"public_metrics": {"like_count": 4, "retweet_count": 1, "reply_count": 2}
				}]}`), nil
			default:
				t.Errorf("unexpected path %s", req.URL.Path)
				return mockResponse(http.StatusNotFound, `{}`), nil
			}
		},
	}
	c := newTestClient(t, mock)

	summary, err := c.XSummary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Name != "@physicsdaily" || summary.Followers != 99 {
		t.Errorf("unexpected summary %+v", summary)
	}

	posts, err := c.XPosts(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 1 || posts[0].Shares != 1 || posts[0].Date != "2026-08-28" {
		t.Errorf("unexpected posts %+v", posts)
	}
}

func TestYouTubeSummary(t *testing.T) {
	mock := &MockRoundTripper{
		RoundTripFunc: func(req *http.Request) (*http.Response, error) {
			return mockResponse(http.StatusOK, `{"items": [{
				"snippet": {"title": "Physics Daily"},
				"statistics": {"subscriberCount": "1200", "viewCount": "99000", "videoCount": "48"}
			}]}`), nil
		},
	}
	c := newTestClient(t, mock)

	summary, err := c.YouTubeSummary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Name != "Physics Daily" || summary.Followers != 1200 || summary.Detail != "99000 views" {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestAll_CollectsPerPlatformErrors(t *testing.T) {
	// Empty store: every platform is unconfigured
	store := credstore.New(t.TempDir())
	httpClient := &http.Client{Transport: &MockRoundTripper{
		RoundTripFunc: func(req *http.Request) (*http.Response, error) {
			t.Errorf("unexpected request to %s", req.URL)
			return mockResponse(http.StatusInternalServerError, `{}`), nil
		},
	}}

	yt := youtube.New(httpClient, auth.NewYouTube(httpClient, store), nil)
	c := New(httpClient,
		auth.NewGraph(httpClient, store, credstore.PlatformInstagram),
		auth.NewGraph(httpClient, store, credstore.PlatformFacebook),
		auth.NewLinkedIn(httpClient, store, "cid", "csecret"),
		auth.NewX(httpClient, store, "cid", "csecret"),
		yt,
		"")

	summaries := c.All(context.Background())
	if len(summaries) != 5 {
		t.Fatalf("expected 5 summaries, got %d", len(summaries))
	}
	for _, s := range summaries {
		if s.Err == nil {
			t.Errorf("platform %s should carry an error", s.Platform)
		}
		if s.Platform == "" {
			t.Error("platform name missing")
		}
	}
}

func TestChart(t *testing.T) {
	out := Chart([]float64{100, 110, 120, 130}, 40, 5, "instagram followers")
	if !strings.Contains(out, "instagram followers") {
		t.Error("chart should include the caption")
	}

	if got := Chart(nil, 40, 5, "x"); got != "No data available" {
		t.Errorf("unexpected empty-chart output %q", got)
	}
}
