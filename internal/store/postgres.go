package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/elonfeng/mindshare/internal/store/migrations"
	"github.com/elonfeng/mindshare/pkg/source"
)

const (
	pgConnectRetries    = 3
	pgConnectRetrySleep = 2 * time.Second
)

// PostgresStore implements Store on the Postgres tweets table the scrapers write to.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

// NewPostgres connects to Postgres and applies pending migrations.
func NewPostgres(ctx context.Context, dsn string, logger *zerolog.Logger) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn not set: %w", source.ErrSourceUnavailable)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := connectWithRetries(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &PostgresStore{pool: pool, logger: logger}
	if err := s.migrate(); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func connectWithRetries(ctx context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error) {
	return connectWithRetriesFunc(ctx, cfg, pgConnectRetrySleep, pgxpool.NewWithConfig)
}

// connectWithRetriesFunc tries connect up to pgConnectRetries times, sleeping
// between attempts but not after the last one.
func connectWithRetriesFunc(
	ctx context.Context,
	cfg *pgxpool.Config,
	sleep time.Duration,
	connect func(context.Context, *pgxpool.Config) (*pgxpool.Pool, error),
) (*pgxpool.Pool, error) {
	var err error
	for i := 0; i < pgConnectRetries; i++ {
		var pool *pgxpool.Pool
		pool, err = connect(ctx, cfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		if i == pgConnectRetries-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
	return nil, fmt.Errorf("connect postgres after %d attempts: %w", pgConnectRetries, err)
}

type gooseLogger struct {
	logger *zerolog.Logger
}

func (l *gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Fatal().Msgf(format, v...)
}

func (l *gooseLogger) Printf(format string, v ...any) {
	l.logger.Debug().Msgf(format, v...)
}

func (s *PostgresStore) migrate() error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(&gooseLogger{logger: s.logger})

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) UpsertPosts(ctx context.Context, src source.SourceType, posts []source.Post) (int, error) {
	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for i := range posts {
		p := &posts[i]
		batch.Queue(`
			INSERT INTO tweets (tweet_id, username, profile_pic, text, date, likes, retweets, replies, quotes, followers, source, collected_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (tweet_id) DO NOTHING`,
			p.ID, p.Username, p.ProfilePic, p.Text, p.Date.UTC(), p.Likes, p.Retweets,
			p.Replies, p.Quotes, p.Followers, string(src), now)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for i := range posts {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert post %s: %w", posts[i].ID, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (s *PostgresStore) RecentPosts(ctx context.Context, since time.Time, limit int) ([]source.Post, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tweet_id, username, profile_pic, text, date, likes, retweets, replies, quotes, followers
		FROM tweets
		WHERE date >= $1
		ORDER BY date DESC
		LIMIT $2`, since.UTC(), normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent posts: %w", err)
	}
	defer rows.Close()

	var posts []source.Post
	for rows.Next() {
		var (
			id, username     string
			profilePic, text pgtype.Text
			date             pgtype.Timestamptz
			likes, retweets  pgtype.Int8
			replies, quotes  pgtype.Int8
			followers        pgtype.Int8
		)
		if err := rows.Scan(&id, &username, &profilePic, &text, &date,
			&likes, &retweets, &replies, &quotes, &followers); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, source.NewPost(source.RawPost{
			ID:         id,
			Username:   username,
			ProfilePic: pgText(profilePic),
			Text:       pgText(text),
			Date:       date.Time.UTC(),
			Followers:  pgInt(followers),
			Likes:      pgInt(likes),
			Retweets:   pgInt(retweets),
			Replies:    pgInt(replies),
			Quotes:     pgInt(quotes),
		}))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

func (s *PostgresStore) LatestFollowers(ctx context.Context, handle string) (int, error) {
	var followers int
	err := s.pool.QueryRow(ctx, `
		SELECT followers FROM tweets
		WHERE username = $1 AND followers IS NOT NULL
		ORDER BY date DESC LIMIT 1`, handle).Scan(&followers)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("followers of %s: %w", handle, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("followers of %s: %w", handle, err)
	}
	return followers, nil
}

func (s *PostgresStore) CountPosts(ctx context.Context) (map[source.SourceType]int, error) {
	rows, err := s.pool.Query(ctx, "SELECT source, COUNT(*) FROM tweets GROUP BY source")
	if err != nil {
		return nil, fmt.Errorf("count posts by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[source.SourceType]int)
	for rows.Next() {
		var src string
		var cnt int64
		if err := rows.Scan(&src, &cnt); err != nil {
			return nil, err
		}
		counts[source.SourceType(src)] = int(cnt)
	}
	return counts, rows.Err()
}

func pgText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func pgInt(n pgtype.Int8) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
