package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
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

func TestNewDefaultTimeout(t *testing.T) {
	client := New(0)
	if client.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout %v, got %v", DefaultTimeout, client.Timeout)
	}

	client = New(5 * time.Second)
	if client.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", client.Timeout)
	}
}

func TestDecodePreservesStatusCode(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"forbidden", http.StatusForbidden, `{"error":{"message":"not allowed"}}`},
		{"rate limited", http.StatusTooManyRequests, `{"message":"slow down"}`},
		{"server error", http.StatusInternalServerError, "internal failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out map[string]any
			err := Decode(mockResponse(tt.status, tt.body), &out)
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, apiErr.StatusCode)
			}
			if apiErr.Body != tt.body {
				t.Errorf("expected body %q, got %q", tt.body, apiErr.Body)
			}
		})
	}
}

func TestDecodeSuccess(t *testing.T) {
	var out struct {
		ID string `json:"id"`
	}
	err := Decode(mockResponse(http.StatusOK, `{"id":"12345"}`), &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ID != "12345" {
		t.Errorf("expected id 12345, got %q", out.ID)
	}
}

func TestDecodeNilTargetAndEmptyBody(t *testing.T) {
	if err := Decode(mockResponse(http.StatusOK, `{"ok":true}`), nil); err != nil {
		t.Errorf("nil target: unexpected error: %v", err)
	}
	var out map[string]any
	if err := Decode(mockResponse(http.StatusNoContent, ""), &out); err != nil {
		t.Errorf("empty body: unexpected error: %v", err)
	}
}

func TestAPIErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{"graph envelope", &APIError{400, `{"error":{"message":"Invalid parameter"}}`}, "Invalid parameter"},
		{"flat message", &APIError{429, `{"message":"Too many requests"}`}, "Too many requests"},
		{"plain body", &APIError{500, "boom"}, "boom"},
		{"empty body", &APIError{502, ""}, "HTTP 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Message(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPostFormEncodesBody(t *testing.T) {
	mock := &MockRoundTripper{
		RoundTripFunc: func(req *http.Request) (*http.Response, error) {
			body, _ := io.ReadAll(req.Body)
			vals, err := url.ParseQuery(string(body))
			if err != nil {
				t.Fatalf("failed to parse form body: %v", err)
			}
			if vals.Get("grant_type") != "refresh_token" {
				t.Errorf("expected grant_type=refresh_token, got %q", vals.Get("grant_type"))
			}
			if ct := req.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
				t.Errorf("unexpected content type %q", ct)
			}
			return mockResponse(http.StatusOK, `{"access_token":"new"}`), nil
		},
	}
	client := &http.Client{Transport: mock}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	form := url.Values{"grant_type": {"refresh_token"}}
	err := PostForm(context.Background(), client, "https://example.com/token", nil, form, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.AccessToken != "new" {
		t.Errorf("expected access_token new, got %q", out.AccessToken)
	}
}

func TestGetAppendsParams(t *testing.T) {
	mock := &MockRoundTripper{
		RoundTripFunc: func(req *http.Request) (*http.Response, error) {
			if req.URL.Query().Get("fields") != "id,name" {
				t.Errorf("expected fields param, got %q", req.URL.RawQuery)
			}
			if req.Header.Get("Authorization") != "Bearer tok" {
				t.Errorf("missing authorization header")
			}
			return mockResponse(http.StatusOK, `{"id":"1"}`), nil
		},
	}
	client := &http.Client{Transport: mock}

	var out map[string]any
	err := Get(context.Background(), client, "https://example.com/me",
		map[string]string{"Authorization": "Bearer tok"},
		url.Values{"fields": {"id,name"}}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUploadFileBuildsMultipart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	if err := os.WriteFile(path, []byte("jpegdata"), 0o600); err != nil {
		t.Fatal(err)
	}

	mock := &MockRoundTripper{
		RoundTripFunc: func(req *http.Request) (*http.Response, error) {
			if !strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data") {
				t.Errorf("expected multipart content type, got %q", req.Header.Get("Content-Type"))
			}
			body, _ := io.ReadAll(req.Body)
			if !strings.Contains(string(body), "jpegdata") {
				t.Error("file bytes missing from body")
			}
			if !strings.Contains(string(body), `name="media_category"`) {
				t.Error("extra field missing from body")
			}
			return mockResponse(http.StatusOK, `{"id":"media-1"}`), nil
		},
	}
	client := &http.Client{Transport: mock}

	var out struct {
		ID string `json:"id"`
	}
	err := UploadFile(context.Background(), client, "https://example.com/media", nil,
		"media", path, map[string]string{"media_category": "tweet_image"}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ID != "media-1" {
		t.Errorf("expected media-1, got %q", out.ID)
	}
}
