// Package tracker manages the local post pipeline: draft folders, scheduling
// and a publish history backed by SQLite.
package tracker

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	// Import modernc.org/sqlite as a blank import to register the driver
	_ "modernc.org/sqlite"
)

// Status is the lifecycle state of a tracked post.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusReady   Status = "ready"
	StatusPosting Status = "posting"
	StatusPosted  Status = "posted"
	StatusFailed  Status = "failed"
)

// Statuses lists every valid status in lifecycle order.
var Statuses = []Status{StatusDraft, StatusReady, StatusPosting, StatusPosted, StatusFailed}

// ValidStatus reports whether s is a known status value.
func ValidStatus(s string) bool {
	for _, st := range Statuses {
		if string(st) == s {
			return true
		}
	}
	return false
}

// NewID returns a short post identifier, the first 6 hex characters of a
// random UUID. Collisions are tolerable at this scale; inserts fail loudly
// on the primary key if one ever happens.
func NewID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])[:6]
}

// Post is a tracked post row.
type Post struct {
	ID           string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Status       Status
	ScheduledFor time.Time // zero when unscheduled
	FolderPath   string
	SourceType   string
	SourceFile   string
	Title        string
	PostIDs      map[string]string // platform -> remote post ID
	LastError    string
	PostedAt     time.Time
}

// Snapshot is a follower-count sample for one platform.
type Snapshot struct {
	Platform  string
	Followers int64
	TakenAt   time.Time
}

// DB wraps the SQL database connection with post tracking queries.
type DB struct {
	*sql.DB
	path string
}

// NewDB opens (or creates) the tracker database at path and initializes
// the schema.
func NewDB(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{
		DB:   sqlDB,
		path: path,
	}

	if err := db.configure(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	if err := db.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

func (db *DB) createSchema() error {
	if err := db.createPostsTable(); err != nil {
		return err
	}
	return db.createSnapshotsTable()
}

func (db *DB) createPostsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		scheduled_for TEXT,
		folder_path TEXT NOT NULL,
		source_type TEXT,
		source_file TEXT,
		title TEXT,
		post_ids TEXT,
		last_error TEXT,
		posted_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_posts_status ON posts(status);
	CREATE INDEX IF NOT EXISTS idx_posts_scheduled ON posts(scheduled_for);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

func (db *DB) createSnapshotsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS follower_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		platform TEXT NOT NULL,
		followers INTEGER NOT NULL,
		taken_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_platform ON follower_snapshots(platform, taken_at);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

// Close closes the database connection gracefully.
func (db *DB) Close() error {
	// Checkpoint WAL before closing
	_, _ = db.ExecContext(context.Background(), "PRAGMA wal_checkpoint(TRUNCATE)")
	return db.DB.Close()
}

// Timestamps are stored as UTC RFC 3339 strings so that string comparison
// in SQL matches time ordering.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CreatePost inserts a new draft post and returns its ID.
func (db *DB) CreatePost(ctx context.Context, post Post) (string, error) {
	if post.ID == "" {
		post.ID = NewID()
	}
	now := formatTime(time.Now())

	query := `
		INSERT INTO posts (id, created_at, updated_at, status, folder_path, source_type, source_file, title)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		post.ID,
		now,
		now,
		string(StatusDraft),
		post.FolderPath,
		nullString(post.SourceType),
		nullString(post.SourceFile),
		nullString(post.Title),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert post: %w", err)
	}

	return post.ID, nil
}

const postColumns = "id, created_at, updated_at, status, scheduled_for, folder_path, source_type, source_file, title, post_ids, last_error, posted_at"

// GetPost returns the post with the given ID.
func (db *DB) GetPost(ctx context.Context, id string) (*Post, error) {
	row := db.QueryRowContext(ctx, "SELECT "+postColumns+" FROM posts WHERE id = ?", id)
	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("post %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

// FindByFolder returns the post whose folder path matches, or nil.
func (db *DB) FindByFolder(ctx context.Context, folderPath string) (*Post, error) {
	row := db.QueryRowContext(ctx, "SELECT "+postColumns+" FROM posts WHERE folder_path = ?", folderPath)
	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post by folder: %w", err)
	}
	return post, nil
}

// ListPosts returns posts newest first, optionally filtered by status.
func (db *DB) ListPosts(ctx context.Context, status Status, limit int) ([]Post, error) {
	if limit <= 0 {
		limit = 100
	}

	var (
		rows *sql.Rows
		err  error
	)
	if status != "" {
		rows, err = db.QueryContext(ctx,
			"SELECT "+postColumns+" FROM posts WHERE status = ? ORDER BY created_at DESC LIMIT ?",
			string(status), limit)
	} else {
		rows, err = db.QueryContext(ctx,
			"SELECT "+postColumns+" FROM posts ORDER BY created_at DESC LIMIT ?", limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *post)
	}

	return posts, rows.Err()
}

// DuePosts returns ready posts whose schedule time has passed, oldest first.
func (db *DB) DuePosts(ctx context.Context) ([]Post, error) {
	query := "SELECT " + postColumns + ` FROM posts
		WHERE status = ? AND scheduled_for IS NOT NULL AND scheduled_for <= ?
		ORDER BY scheduled_for ASC`

	rows, err := db.QueryContext(ctx, query, string(StatusReady), formatTime(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to query due posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *post)
	}

	return posts, rows.Err()
}

// UpdateStatus sets a post's status.
func (db *DB) UpdateStatus(ctx context.Context, id string, status Status) (bool, error) {
	return db.update(ctx, "UPDATE posts SET status = ?, updated_at = ? WHERE id = ?",
		string(status), formatTime(time.Now()), id)
}

// UpdateFolderPath records a post's new folder location.
func (db *DB) UpdateFolderPath(ctx context.Context, id, folderPath string) (bool, error) {
	return db.update(ctx, "UPDATE posts SET folder_path = ?, updated_at = ? WHERE id = ?",
		folderPath, formatTime(time.Now()), id)
}

// Schedule sets the publish time for a ready post. Posts in any other
// status report false.
func (db *DB) Schedule(ctx context.Context, id string, at time.Time) (bool, error) {
	return db.update(ctx,
		"UPDATE posts SET scheduled_for = ?, updated_at = ? WHERE id = ? AND status = ?",
		formatTime(at), formatTime(time.Now()), id, string(StatusReady))
}

// Unschedule clears a post's publish time.
func (db *DB) Unschedule(ctx context.Context, id string) (bool, error) {
	return db.update(ctx, "UPDATE posts SET scheduled_for = NULL, updated_at = ? WHERE id = ?",
		formatTime(time.Now()), id)
}

// MarkPosting flags a post as currently being published.
func (db *DB) MarkPosting(ctx context.Context, id string) (bool, error) {
	return db.UpdateStatus(ctx, id, StatusPosting)
}

// MarkPosted records a successful publish along with the per-platform
// remote post IDs.
func (db *DB) MarkPosted(ctx context.Context, id string, platformIDs map[string]string) (bool, error) {
	ids, err := json.Marshal(platformIDs)
	if err != nil {
		return false, fmt.Errorf("failed to encode post ids: %w", err)
	}

	now := formatTime(time.Now())
	return db.update(ctx,
		"UPDATE posts SET status = ?, post_ids = ?, posted_at = ?, last_error = NULL, updated_at = ? WHERE id = ?",
		string(StatusPosted), string(ids), now, now, id)
}

// MarkFailed records a publish failure.
func (db *DB) MarkFailed(ctx context.Context, id, errMsg string) (bool, error) {
	return db.update(ctx,
		"UPDATE posts SET status = ?, last_error = ?, updated_at = ? WHERE id = ?",
		string(StatusFailed), errMsg, formatTime(time.Now()), id)
}

// RetryFailed moves a failed post back to ready.
func (db *DB) RetryFailed(ctx context.Context, id string) (bool, error) {
	return db.update(ctx,
		"UPDATE posts SET status = ?, last_error = NULL, updated_at = ? WHERE id = ? AND status = ?",
		string(StatusReady), formatTime(time.Now()), id, string(StatusFailed))
}

// DeletePost removes a post row. The post folder is left alone.
func (db *DB) DeletePost(ctx context.Context, id string) (bool, error) {
	result, err := db.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete post: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountByStatus returns the number of posts in each status.
func (db *DB) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := db.QueryContext(ctx, "SELECT status, COUNT(*) FROM posts GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[Status(status)] = count
	}

	return counts, rows.Err()
}

// InsertSnapshot records a follower-count sample.
func (db *DB) InsertSnapshot(ctx context.Context, platform string, followers int64) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO follower_snapshots (platform, followers, taken_at) VALUES (?, ?, ?)",
		platform, followers, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// Snapshots returns the most recent follower samples for a platform in
// chronological order.
func (db *DB) Snapshots(ctx context.Context, platform string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 90
	}

	query := `
		SELECT platform, followers, taken_at FROM (
			SELECT id, platform, followers, taken_at FROM follower_snapshots
			WHERE platform = ? ORDER BY taken_at DESC, id DESC LIMIT ?
		) ORDER BY taken_at ASC, id ASC`

	rows, err := db.QueryContext(ctx, query, platform, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshots []Snapshot
	for rows.Next() {
		var snap Snapshot
		var takenAt string
		if err := rows.Scan(&snap.Platform, &snap.Followers, &takenAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snap.TakenAt = parseTime(takenAt)
		snapshots = append(snapshots, snap)
	}

	return snapshots, rows.Err()
}

func (db *DB) update(ctx context.Context, query string, args ...any) (bool, error) {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update post: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*Post, error) {
	var post Post
	var createdAt, updatedAt, status string
	var scheduledFor, sourceType, sourceFile sql.NullString
	var title, postIDs, lastError, postedAt sql.NullString

	err := row.Scan(
		&post.ID,
		&createdAt,
		&updatedAt,
		&status,
		&scheduledFor,
		&post.FolderPath,
		&sourceType,
		&sourceFile,
		&title,
		&postIDs,
		&lastError,
		&postedAt,
	)
	if err != nil {
		return nil, err
	}

	post.CreatedAt = parseTime(createdAt)
	post.UpdatedAt = parseTime(updatedAt)
	post.Status = Status(status)
	post.ScheduledFor = parseTime(scheduledFor.String)
	post.SourceType = sourceType.String
	post.SourceFile = sourceFile.String
	post.Title = title.String
	post.LastError = lastError.String
	post.PostedAt = parseTime(postedAt.String)

	if postIDs.String != "" {
		if err := json.Unmarshal([]byte(postIDs.String), &post.PostIDs); err != nil {
			return nil, fmt.Errorf("failed to decode post ids: %w", err)
		}
	}

	return &post, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
