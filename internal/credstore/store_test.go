package credstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type record struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	PageID       string `json:"page_id,omitempty"`
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New(t.TempDir())

	want := record{
		AccessToken:  "tok",
		RefreshToken: "ref",
		ExpiresAt:    1767225600,
		PageID:       "12345",
	}

	if err := s.Save("facebook", ConfigFile, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var got record
	if err := s.Load("facebook", ConfigFile, &got); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := New(t.TempDir())

	var got record
	err := s.Load("x", TokenFile, &got)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Load() error = %v, want ErrNotConfigured", err)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	if err := os.MkdirAll(filepath.Join(dir, "linkedin"), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "linkedin", TokenFile), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	var got record
	err := s.Load("linkedin", TokenFile, &got)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("Load() error = %v, want ErrCorrupt", err)
	}
	if errors.Is(err, ErrNotConfigured) {
		t.Error("corrupt file must not report ErrNotConfigured")
	}
}

func TestSavePermissions(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	if err := s.Save("instagram", ConfigFile, record{AccessToken: "tok"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(s.Path("instagram", ConfigFile))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file perm = %o, want 600", perm)
	}

	dirInfo, err := os.Stat(filepath.Join(dir, "instagram"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := dirInfo.Mode().Perm(); perm != 0o700 {
		t.Errorf("dir perm = %o, want 700", perm)
	}
}

func TestSaveOverwrite(t *testing.T) {
	s := New(t.TempDir())

	if err := s.Save("x", TokenFile, record{AccessToken: "old"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("x", TokenFile, record{AccessToken: "new"}); err != nil {
		t.Fatal(err)
	}

	var got record
	if err := s.Load("x", TokenFile, &got); err != nil {
		t.Fatal(err)
	}
	if got.AccessToken != "new" {
		t.Errorf("AccessToken = %q, want %q", got.AccessToken, "new")
	}

	// No temp file left behind
	if _, err := os.Stat(s.Path("x", TokenFile) + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Error("temp file left behind after save")
	}
}

func TestDelete(t *testing.T) {
	s := New(t.TempDir())

	if err := s.Save("youtube", TokenFile, record{AccessToken: "tok"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("youtube", TokenFile); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	var got record
	if err := s.Load("youtube", TokenFile, &got); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Load() after delete error = %v, want ErrNotConfigured", err)
	}

	// Deleting again is fine
	if err := s.Delete("youtube", TokenFile); err != nil {
		t.Errorf("Delete() on missing file error = %v", err)
	}
}
