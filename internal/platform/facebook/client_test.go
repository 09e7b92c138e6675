package facebook

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
		AccessToken: "fb-token",
		PageID:      "page-3",
		TokenExpiry: time.Now().Add(time.Hour).Unix(),
	}
	if err := store.Save(credstore.PlatformFacebook, credstore.ConfigFile, cfg); err != nil {
		t.Fatal(err)
	}

	httpClient := &http.Client{Transport: mock}
	return New(httpClient, auth.NewGraph(httpClient, store, credstore.PlatformFacebook), nil)
}

func writeTempFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("data"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPostPhoto(t *testing.T) {
	mock := &MockRoundTripper{
		RoundTripFunc: func(req *http.Request) (*http.Response, error) {
			if !strings.Contains(req.URL.Path, "/me/photos") {
				t.Errorf("unexpected path %s", req.URL.Path)
			}
			body, _ := io.ReadAll(req.Body)
			for _, want := range []string{`name="message"`, "good morning", `name="source"`} {
				if !strings.Contains(string(body), want) {
					t.Errorf("body missing %q", want)
				}
			}
			return mockResponse(http.StatusOK, `{"id":"post-1"}`), nil
		},
	}
	c := newTestClient(t, mock)

	id, err := c.PostPhoto(context.Background(), writeTempFile(t, "a.jpg"), "good morning")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "post-1" {
		t.Errorf("expected post-1, got %q", id)
	}
}

func TestPostVideoUsesDescriptionField(t *testing.T) {
	mock := &MockRoundTripper{
		RoundTripFunc: func(req *http.Request) (*http.Response, error) {
			if !strings.Contains(req.URL.Path, "/me/videos") {
				t.Errorf("unexpected path %s", req.URL.Path)
			}
			body, _ := io.ReadAll(req.Body)
			if !strings.Contains(string(body), `name="description"`) {
				t.Error("video post should carry description field")
			}
			return mockResponse(http.StatusOK, `{"id":"vid-1"}`), nil
		},
	}
	c := newTestClient(t, mock)

	if _, err := c.PostVideo(context.Background(), writeTempFile(t, "a.mp4"), "clip"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPostPhotoUpstreamError(t *testing.T) {
	mock := &MockRoundTripper{
		RoundTripFunc: func(req *http.Request) (*http.Response, error) {
			return mockResponse(http.StatusForbidden, `{"error":{"message":"Permissions error"}}`), nil
		},
	}
	c := newTestClient(t, mock)

	_, err := c.PostPhoto(context.Background(), writeTempFile(t, "a.jpg"), "")
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected error carrying status 403, got %v", err)
	}
}

func TestPostStoryPhoto(t *testing.T) {
	mock := &MockRoundTripper{}
	mock.RoundTripFunc = func(req *http.Request) (*http.Response, error) {
		switch {
		case req.Method == http.MethodGet && strings.Contains(req.URL.Path, "/page-3"):
			return mockResponse(http.StatusOK, `{"access_token":"page-scoped"}`), nil
		case strings.Contains(req.URL.Path, "/page-3/photos"):
			body, _ := io.ReadAll(req.Body)
			if !strings.Contains(string(body), "page-scoped") {
				t.Error("upload should use the page-scoped token")
			}
			return mockResponse(http.StatusOK, `{"id":"photo-5"}`), nil
		case strings.Contains(req.URL.Path, "/page-3/photo_stories"):
			body, _ := io.ReadAll(req.Body)
			if !strings.Contains(string(body), "photo_id=photo-5") {
				t.Errorf("story creation missing photo_id: %s", body)
			}
			return mockResponse(http.StatusOK, `{"success":true,"post_id":"story-2"}`), nil
		default:
			t.Fatalf("unexpected request to %s %s", req.Method, req.URL)
			return nil, nil
		}
	}
	c := newTestClient(t, mock)

	id, err := c.PostStoryPhoto(context.Background(), writeTempFile(t, "s.jpg"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "story-2" {
		t.Errorf("expected story-2, got %q", id)
	}
}

func TestPostStoryPhotoUnsuccessful(t *testing.T) {
	mock := &MockRoundTripper{}
	mock.RoundTripFunc = func(req *http.Request) (*http.Response, error) {
		switch {
		case req.Method == http.MethodGet:
			return mockResponse(http.StatusOK, `{"access_token":"page-scoped"}`), nil
		case strings.Contains(req.URL.Path, "/photos"):
			return mockResponse(http.StatusOK, `{"id":"photo-5"}`), nil
		default:
			return mockResponse(http.StatusOK, `{"success":false}`), nil
		}
	}
	c := newTestClient(t, mock)

	_, err := c.PostStoryPhoto(context.Background(), writeTempFile(t, "s.jpg"))
	if err == nil || !strings.Contains(err.Error(), "not successful") {
		t.Fatalf("expected story failure, got %v", err)
	}
}

func TestPostStoryVideoPhases(t *testing.T) {
	var phases []string
	mock := &MockRoundTripper{}
	mock.RoundTripFunc = func(req *http.Request) (*http.Response, error) {
		switch {
		case req.Method == http.MethodGet && strings.Contains(req.URL.Path, "/vid-7"):
			phases = append(phases, "status")
			return mockResponse(http.StatusOK,
				`{"status":{"uploading_phase":{"status":"complete"},"processing_phase":{"status":"complete"}}}`), nil
		case req.Method == http.MethodGet:
			return mockResponse(http.StatusOK, `{"access_token":"page-scoped"}`), nil
		case req.URL.Host == "upload.example.com":
			phases = append(phases, "upload")
			if auth := req.Header.Get("Authorization"); auth != "OAuth page-scoped" {
				t.Errorf("unexpected auth header %q", auth)
			}
			return mockResponse(http.StatusOK, `{"success":true}`), nil
		case strings.Contains(req.URL.Path, "/video_stories"):
			body, _ := io.ReadAll(req.Body)
			if strings.Contains(string(body), "upload_phase=start") {
				phases = append(phases, "start")
				return mockResponse(http.StatusOK,
					`{"video_id":"vid-7","upload_url":"https://upload.example.com/v"}`), nil
			}
			phases = append(phases, "finish")
			return mockResponse(http.StatusOK, `{"success":true,"post_id":"story-v"}`), nil
		default:
			t.Fatalf("unexpected request to %s %s", req.Method, req.URL)
			return nil, nil
		}
	}
	c := newTestClient(t, mock)

	id, err := c.PostStoryVideo(context.Background(), writeTempFile(t, "s.mp4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "story-v" {
		t.Errorf("expected story-v, got %q", id)
	}

	want := []string{"start", "upload", "status", "finish"}
	if len(phases) != len(want) {
		t.Fatalf("expected phases %v, got %v", want, phases)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("phase %d: expected %s, got %s", i, want[i], phases[i])
		}
	}
}
