package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/elonfeng/mindshare/pkg/source"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "./mindshare.db"
	}
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertPosts inserts posts, ignoring ids that already exist. It returns
// the number of new rows.
func (s *SQLiteStore) UpsertPosts(ctx context.Context, src source.SourceType, posts []source.Post) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	now := time.Now().UTC()
	inserted := 0
	for i := range posts {
		p := &posts[i]
		res, err := tx.ExecContext(ctx, `
			INSERT INTO tweets (tweet_id, username, profile_pic, text, date, likes, retweets, replies, quotes, followers, source, collected_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(tweet_id) DO NOTHING
		`, p.ID, p.Username, p.ProfilePic, p.Text, p.Date.UTC(), p.Likes, p.Retweets,
			p.Replies, p.Quotes, p.Followers, string(src), now)
		if err != nil {
			return 0, fmt.Errorf("insert post %s: %w", p.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return inserted, nil
}

func (s *SQLiteStore) RecentPosts(ctx context.Context, since time.Time, limit int) ([]source.Post, error) {
	var rows []postRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM tweets WHERE date >= ? ORDER BY date DESC LIMIT ?",
		since.UTC(), normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent posts: %w", err)
	}

	posts := make([]source.Post, len(rows))
	for i := range rows {
		posts[i] = rows[i].post()
	}
	return posts, nil
}

func (s *SQLiteStore) LatestFollowers(ctx context.Context, handle string) (int, error) {
	var followers sql.NullInt64
	err := s.db.GetContext(ctx, &followers,
		"SELECT followers FROM tweets WHERE username = ? AND followers IS NOT NULL ORDER BY date DESC LIMIT 1",
		handle)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("followers of %s: %w", handle, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("followers of %s: %w", handle, err)
	}
	return int(followers.Int64), nil
}

func (s *SQLiteStore) CountPosts(ctx context.Context) (map[source.SourceType]int, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT source, COUNT(*) AS cnt FROM tweets GROUP BY source")
	if err != nil {
		return nil, fmt.Errorf("count posts by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[source.SourceType]int)
	for rows.Next() {
		var src string
		var cnt int
		if err := rows.Scan(&src, &cnt); err != nil {
			return nil, err
		}
		counts[source.SourceType(src)] = cnt
	}
	return counts, rows.Err()
}
