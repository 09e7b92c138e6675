package instagram

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vbsocial/vbsocial/internal/auth"
	"github.com/vbsocial/vbsocial/internal/credstore"
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

func newTestClient(t *testing.T, mock *MockRoundTripper) *Client {
	t.Helper()
	store := credstore.New(t.TempDir())
	cfg := &auth.GraphConfig{
		AccessToken:        "page-token",
		PageID:             "page-1",
		InstagramAccountID: "ig-1",
		TokenExpiry:        time.Now().Add(time.Hour).Unix(),
	}
	if err := store.Save(credstore.PlatformInstagram, credstore.ConfigFile, cfg); err != nil {
		t.Fatal(err)
	}

	httpClient := &http.Client{Transport: mock}
	return New(httpClient, auth.NewGraph(httpClient, store, credstore.PlatformInstagram), nil)
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPostPhotoContainerFlow(t *testing.T) {
	var steps []string
	mock := &MockRoundTripper{}
	mock.RoundTripFunc = func(req *http.Request) (*http.Response, error) {
		switch {
		case strings.Contains(req.URL.Path, "/page-1/photos"):
			steps = append(steps, "upload")
			return mockResponse(http.StatusOK, `{"id":"photo-7"}`), nil
		case strings.Contains(req.URL.Path, "/photo-7"):
			steps = append(steps, "resolve")
			return mockResponse(http.StatusOK, `{"images":[{"source":"https://cdn/img.jpg"}]}`), nil
		case strings.Contains(req.URL.Path, "/ig-1/media_publish"):
			steps = append(steps, "publish")
			body, _ := io.ReadAll(req.Body)
			if !strings.Contains(string(body), "creation_id=container-1") {
				t.Errorf("publish missing creation_id: %s", body)
			}
			return mockResponse(http.StatusOK, `{"id":"media-9"}`), nil
		case strings.Contains(req.URL.Path, "/ig-1/media"):
			steps = append(steps, "container")
			body, _ := io.ReadAll(req.Body)
			for _, want := range []string{"media_type=IMAGE", "caption=hello"} {
				if !strings.Contains(string(body), want) {
					t.Errorf("container missing %q: %s", want, body)
				}
			}
			return mockResponse(http.StatusOK, `{"id":"container-1"}`), nil
		default:
			t.Fatalf("unexpected request to %s", req.URL)
			return nil, nil
		}
	}

	c := newTestClient(t, mock)
	photo := writeTempFile(t, "pic.jpg", "jpegdata")

	id, err := c.PostPhoto(context.Background(), photo, "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "media-9" {
		t.Errorf("expected media-9, got %q", id)
	}

	want := []string{"upload", "resolve", "container", "publish"}
	if len(steps) != len(want) {
		t.Fatalf("expected steps %v, got %v", want, steps)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Errorf("step %d: expected %s, got %s", i, want[i], steps[i])
		}
	}
}

func TestPostCarouselLimits(t *testing.T) {
	c := newTestClient(t, &MockRoundTripper{
		RoundTripFunc: func(req *http.Request) (*http.Response, error) {
			t.Fatalf("unexpected request to %s", req.URL)
			return nil, nil
		},
	})

	if _, err := c.PostCarousel(context.Background(), []string{"one.jpg"}, ""); err == nil {
		t.Error("expected error for single-image carousel")
	}

	eleven := make([]string, 11)
	for i := range eleven {
		eleven[i] = "img.jpg"
	}
	if _, err := c.PostCarousel(context.Background(), eleven, ""); err == nil {
		t.Error("expected error for 11-image carousel")
	}
}

func TestPostCarouselChildren(t *testing.T) {
	var childContainers, parentChildren int
	mock := &MockRoundTripper{}
	mock.RoundTripFunc = func(req *http.Request) (*http.Response, error) {
		switch {
		case strings.Contains(req.URL.Path, "/page-1/photos"):
			return mockResponse(http.StatusOK, `{"id":"photo"}`), nil
		case strings.Contains(req.URL.Path, "/photo"):
			return mockResponse(http.StatusOK, `{"images":[{"source":"https://cdn/img.jpg"}]}`), nil
		case strings.Contains(req.URL.Path, "/ig-1/media_publish"):
			return mockResponse(http.StatusOK, `{"id":"media-c"}`), nil
		case strings.Contains(req.URL.Path, "/ig-1/media"):
			body, _ := io.ReadAll(req.Body)
			if strings.Contains(string(body), "is_carousel_item=true") {
				childContainers++
				return mockResponse(http.StatusOK, `{"id":"child"}`), nil
			}
			if strings.Contains(string(body), "media_type=CAROUSEL") {
				parentChildren++
				if !strings.Contains(string(body), "children=child%2Cchild") {
					t.Errorf("parent container missing children: %s", body)
				}
			}
			return mockResponse(http.StatusOK, `{"id":"parent"}`), nil
		default:
			t.Fatalf("unexpected request to %s", req.URL)
			return nil, nil
		}
	}

	c := newTestClient(t, mock)
	img := writeTempFile(t, "a.jpg", "x")

	id, err := c.PostCarousel(context.Background(), []string{img, img}, "two up")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "media-c" {
		t.Errorf("expected media-c, got %q", id)
	}
	if childContainers != 2 || parentChildren != 1 {
		t.Errorf("expected 2 child containers and 1 parent, got %d/%d", childContainers, parentChildren)
	}
}

func TestPostStoryPhotoUsesStoriesMediaType(t *testing.T) {
	mock := &MockRoundTripper{}
	mock.RoundTripFunc = func(req *http.Request) (*http.Response, error) {
		switch {
		case strings.Contains(req.URL.Path, "/me/photos"):
			return mockResponse(http.StatusOK, `{"id":"photo-s"}`), nil
		case strings.Contains(req.URL.Path, "/photo-s"):
			return mockResponse(http.StatusOK, `{"images":[{"source":"https://cdn/s.jpg"}]}`), nil
		case strings.Contains(req.URL.Path, "/ig-1/media_publish"):
			return mockResponse(http.StatusOK, `{"id":"story-1"}`), nil
		case strings.Contains(req.URL.Path, "/ig-1/media"):
			body, _ := io.ReadAll(req.Body)
			for _, want := range []string{"media_type=STORIES", "sharing_type=STORY"} {
				if !strings.Contains(string(body), want) {
					t.Errorf("story container missing %q: %s", want, body)
				}
			}
			return mockResponse(http.StatusOK, `{"id":"container-s"}`), nil
		default:
			t.Fatalf("unexpected request to %s", req.URL)
			return nil, nil
		}
	}

	c := newTestClient(t, mock)
	img := writeTempFile(t, "story.jpg", "x")

	id, err := c.PostStoryPhoto(context.Background(), img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "story-1" {
		t.Errorf("expected story-1, got %q", id)
	}
}

func TestPostVideoProcessingError(t *testing.T) {
	mock := &MockRoundTripper{}
	mock.RoundTripFunc = func(req *http.Request) (*http.Response, error) {
		switch {
		case strings.Contains(req.URL.Path, "/me/videos"):
			return mockResponse(http.StatusOK, `{"id":"vid-1"}`), nil
		case strings.Contains(req.URL.Path, "/vid-1"):
			return mockResponse(http.StatusOK, `{"source":"https://cdn/v.mp4"}`), nil
		case strings.Contains(req.URL.Path, "/container-v"):
			return mockResponse(http.StatusOK, `{"status_code":"ERROR"}`), nil
		case strings.Contains(req.URL.Path, "/ig-1/media"):
			return mockResponse(http.StatusOK, `{"id":"container-v"}`), nil
		default:
			t.Fatalf("unexpected request to %s", req.URL)
			return nil, nil
		}
	}

	c := newTestClient(t, mock)
	vid := writeTempFile(t, "clip.mp4", "x")

	_, err := c.PostVideo(context.Background(), vid, "")
	if err == nil || !strings.Contains(err.Error(), "failed to process") {
		t.Fatalf("expected processing error, got %v", err)
	}
}
