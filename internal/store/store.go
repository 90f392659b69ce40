package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/elonfeng/mindshare/pkg/source"
)

const defaultRecentLimit = 100

// ErrUnknownDriver is returned by Open for an unsupported database driver.
var ErrUnknownDriver = errors.New("unknown database driver")

// ErrNotFound is returned when a lookup has no matching row.
var ErrNotFound = errors.New("not found")

// Store is the persistence interface. It is the post source of the
// leaderboard service and the sink of the collectors.
type Store interface {
	source.PostSource
	source.FollowerLookup

	UpsertPosts(ctx context.Context, src source.SourceType, posts []source.Post) (int, error)
	CountPosts(ctx context.Context) (map[source.SourceType]int, error)
	Ping(ctx context.Context) error
	Close() error
}

// Options selects and configures the backend.
type Options struct {
	Driver string // "sqlite" or "postgres"
	Path   string // sqlite file
	DSN    string // postgres connection string
}

// Open connects to the configured backend and applies its schema.
func Open(ctx context.Context, opts Options, logger *zerolog.Logger) (Store, error) {
	switch opts.Driver {
	case "", "sqlite":
		return New(opts.Path)
	case "postgres":
		return NewPostgres(ctx, opts.DSN, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}

// postRow is a tweets row as scanned; every column but the key may be NULL.
type postRow struct {
	TweetID     string         `db:"tweet_id"`
	Username    string         `db:"username"`
	ProfilePic  sql.NullString `db:"profile_pic"`
	Text        sql.NullString `db:"text"`
	Date        time.Time      `db:"date"`
	Likes       sql.NullInt64  `db:"likes"`
	Retweets    sql.NullInt64  `db:"retweets"`
	Replies     sql.NullInt64  `db:"replies"`
	Quotes      sql.NullInt64  `db:"quotes"`
	Followers   sql.NullInt64  `db:"followers"`
	Source      string         `db:"source"`
	CollectedAt time.Time      `db:"collected_at"`
}

func (r postRow) post() source.Post {
	return source.NewPost(source.RawPost{
		ID:         r.TweetID,
		Username:   r.Username,
		ProfilePic: nullString(r.ProfilePic),
		Text:       nullString(r.Text),
		Date:       r.Date.UTC(),
		Followers:  nullInt(r.Followers),
		Likes:      nullInt(r.Likes),
		Retweets:   nullInt(r.Retweets),
		Replies:    nullInt(r.Replies),
		Quotes:     nullInt(r.Quotes),
	})
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultRecentLimit
	}
	return limit
}
