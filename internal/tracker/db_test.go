package tracker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "posts.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "posts.db")

	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if db.Path() != dbPath {
		t.Errorf("Expected path %s, got %s", dbPath, db.Path())
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestSchema_TablesExist(t *testing.T) {
	db := newTestDB(t)

	for _, table := range []string{"posts", "follower_snapshots"} {
		var name string
		err := db.QueryRowContext(context.Background(),
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s does not exist: %v", table, err)
		}
	}
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	if len(a) != 6 || len(b) != 6 {
		t.Errorf("Expected 6-character IDs, got %q and %q", a, b)
	}
	for _, c := range a + b {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Errorf("IDs should be lowercase hex, got %q %q", a, b)
		}
	}
}

func TestCreateAndGetPost(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.CreatePost(ctx, Post{
		FolderPath: "/posts/abc123_2026_08_30_draft",
		SourceType: SourceImage,
		SourceFile: "pendulum.png",
		Title:      "pendulum",
	})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	post, err := db.GetPost(ctx, id)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if post.Status != StatusDraft {
		t.Errorf("Expected draft status, got %s", post.Status)
	}
	if post.Title != "pendulum" || post.SourceFile != "pendulum.png" {
		t.Errorf("Unexpected post fields: %+v", post)
	}
	if post.CreatedAt.IsZero() || post.UpdatedAt.IsZero() {
		t.Error("Timestamps should be set")
	}
	if !post.ScheduledFor.IsZero() || !post.PostedAt.IsZero() {
		t.Error("New post should have no schedule or posted time")
	}
}

func TestGetPost_NotFound(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.GetPost(context.Background(), "nope42"); err == nil {
		t.Error("Expected error for unknown post")
	}
}

func TestScheduleRequiresReady(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.CreatePost(ctx, Post{FolderPath: "/posts/p1"})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	// Draft posts cannot be scheduled
	ok, err := db.Schedule(ctx, id, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if ok {
		t.Error("Scheduling a draft post should report false")
	}

	if _, err := db.UpdateStatus(ctx, id, StatusReady); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	ok, err = db.Schedule(ctx, id, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if !ok {
		t.Error("Scheduling a ready post should report true")
	}

	post, err := db.GetPost(ctx, id)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if post.ScheduledFor.IsZero() {
		t.Error("ScheduledFor should be set")
	}

	ok, err = db.Unschedule(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Unschedule failed: ok=%v err=%v", ok, err)
	}
	post, _ = db.GetPost(ctx, id)
	if !post.ScheduledFor.IsZero() {
		t.Error("ScheduledFor should be cleared")
	}
}

func TestDuePosts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	due, err := db.CreatePost(ctx, Post{FolderPath: "/posts/due"})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	future, err := db.CreatePost(ctx, Post{FolderPath: "/posts/future"})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	for _, id := range []string{due, future} {
		if _, err := db.UpdateStatus(ctx, id, StatusReady); err != nil {
			t.Fatalf("UpdateStatus failed: %v", err)
		}
	}
	if _, err := db.Schedule(ctx, due, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if _, err := db.Schedule(ctx, future, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	posts, err := db.DuePosts(ctx)
	if err != nil {
		t.Fatalf("DuePosts failed: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != due {
		t.Errorf("Expected only the past-due post, got %+v", posts)
	}
}

func TestMarkPostedAndFailed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.CreatePost(ctx, Post{FolderPath: "/posts/p1"})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	ids := map[string]string{"instagram": "ig-1", "x": "tweet-1"}
	if _, err := db.MarkPosted(ctx, id, ids); err != nil {
		t.Fatalf("MarkPosted failed: %v", err)
	}

	post, err := db.GetPost(ctx, id)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if post.Status != StatusPosted {
		t.Errorf("Expected posted status, got %s", post.Status)
	}
	if post.PostedAt.IsZero() {
		t.Error("PostedAt should be set")
	}
	if post.PostIDs["instagram"] != "ig-1" || post.PostIDs["x"] != "tweet-1" {
		t.Errorf("Unexpected post IDs: %v", post.PostIDs)
	}

	if _, err := db.MarkFailed(ctx, id, "upstream 500"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}
	post, _ = db.GetPost(ctx, id)
	if post.Status != StatusFailed || post.LastError != "upstream 500" {
		t.Errorf("Unexpected failed post: %+v", post)
	}
}

func TestRetryFailed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.CreatePost(ctx, Post{FolderPath: "/posts/p1"})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	// Only failed posts can be retried
	ok, err := db.RetryFailed(ctx, id)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if ok {
		t.Error("Retrying a draft post should report false")
	}

	if _, err := db.MarkFailed(ctx, id, "boom"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}
	ok, err = db.RetryFailed(ctx, id)
	if err != nil || !ok {
		t.Fatalf("RetryFailed failed: ok=%v err=%v", ok, err)
	}

	post, _ := db.GetPost(ctx, id)
	if post.Status != StatusReady || post.LastError != "" {
		t.Errorf("Expected ready post with cleared error, got %+v", post)
	}
}

func TestListPostsAndCounts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := db.CreatePost(ctx, Post{FolderPath: "/posts/p"}); err != nil {
			t.Fatalf("CreatePost failed: %v", err)
		}
	}
	ready, err := db.CreatePost(ctx, Post{FolderPath: "/posts/ready"})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if _, err := db.UpdateStatus(ctx, ready, StatusReady); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	all, err := db.ListPosts(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("Expected 4 posts, got %d", len(all))
	}

	drafts, err := db.ListPosts(ctx, StatusDraft, 0)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(drafts) != 3 {
		t.Errorf("Expected 3 drafts, got %d", len(drafts))
	}

	counts, err := db.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if counts[StatusDraft] != 3 || counts[StatusReady] != 1 {
		t.Errorf("Unexpected counts: %v", counts)
	}
}

func TestDeletePost(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.CreatePost(ctx, Post{FolderPath: "/posts/p1"})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	ok, err := db.DeletePost(ctx, id)
	if err != nil || !ok {
		t.Fatalf("DeletePost failed: ok=%v err=%v", ok, err)
	}
	if _, err := db.GetPost(ctx, id); err == nil {
		t.Error("Expected error after delete")
	}

	ok, _ = db.DeletePost(ctx, id)
	if ok {
		t.Error("Deleting twice should report false")
	}
}

func TestFindByFolder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.CreatePost(ctx, Post{FolderPath: "/posts/abc123_2026_08_30_draft"})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	post, err := db.FindByFolder(ctx, "/posts/abc123_2026_08_30_draft")
	if err != nil {
		t.Fatalf("FindByFolder failed: %v", err)
	}
	if post == nil || post.ID != id {
		t.Errorf("Expected post %s, got %+v", id, post)
	}

	post, err = db.FindByFolder(ctx, "/posts/missing")
	if err != nil {
		t.Fatalf("FindByFolder failed: %v", err)
	}
	if post != nil {
		t.Errorf("Expected nil for unknown folder, got %+v", post)
	}
}

func TestSnapshots(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, n := range []int64{100, 110, 120} {
		if err := db.InsertSnapshot(ctx, "instagram", n); err != nil {
			t.Fatalf("InsertSnapshot failed: %v", err)
		}
	}
	if err := db.InsertSnapshot(ctx, "x", 50); err != nil {
		t.Fatalf("InsertSnapshot failed: %v", err)
	}

	snaps, err := db.Snapshots(ctx, "instagram", 0)
	if err != nil {
		t.Fatalf("Snapshots failed: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("Expected 3 snapshots, got %d", len(snaps))
	}
	if snaps[0].Followers != 100 || snaps[2].Followers != 120 {
		t.Errorf("Snapshots should be chronological: %+v", snaps)
	}
}

func TestValidStatus(t *testing.T) {
	if !ValidStatus("ready") || ValidStatus("pending") {
		t.Error("ValidStatus misclassified a status")
	}
}
