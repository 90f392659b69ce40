package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/elonfeng/mindshare/internal/metrics"
	"github.com/elonfeng/mindshare/pkg/mindshare"
	"github.com/elonfeng/mindshare/pkg/source"
)

// ErrNoStore is returned by CollectAll when the scheduler has nowhere to write posts.
var ErrNoStore = errors.New("no post store configured")

// PostWriter is the part of the store the scheduler writes collected posts to.
type PostWriter interface {
	UpsertPosts(ctx context.Context, src source.SourceType, posts []source.Post) (int, error)
}

// Scheduler runs periodic collection and leaderboard refresh.
type Scheduler struct {
	store          PostWriter
	collectors     []source.Collector
	service        *mindshare.Service
	logger         *zerolog.Logger
	collectInt     time.Duration
	leaderboardInt time.Duration
	window         time.Duration
	now            func() time.Time
}

// New creates a new scheduler.
func New(
	s PostWriter,
	collectors []source.Collector,
	service *mindshare.Service,
	logger *zerolog.Logger,
	collectInt, leaderboardInt, window time.Duration,
) *Scheduler {
	if collectInt == 0 {
		collectInt = 24 * time.Hour
	}
	if leaderboardInt == 0 {
		leaderboardInt = 15 * time.Minute
	}
	if window == 0 {
		window = 24 * time.Hour
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Scheduler{
		store:          s,
		collectors:     collectors,
		service:        service,
		logger:         logger,
		collectInt:     collectInt,
		leaderboardInt: leaderboardInt,
		window:         window,
		now:            time.Now,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	collectTicker := time.NewTicker(s.collectInt)
	boardTicker := time.NewTicker(s.leaderboardInt)
	defer collectTicker.Stop()
	defer boardTicker.Stop()

	s.logger.Info().Msg("initial collection")
	_, _ = s.CollectAll(ctx) //nolint:errcheck // failures are logged per collector
	s.RefreshLeaderboards(ctx)

	s.logger.Info().
		Dur("collect_every", s.collectInt).
		Dur("leaderboard_every", s.leaderboardInt).
		Msg("scheduler running")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-collectTicker.C:
			_, _ = s.CollectAll(ctx) //nolint:errcheck // failures are logged per collector
			s.RefreshLeaderboards(ctx)
		case <-boardTicker.C:
			s.RefreshLeaderboards(ctx)
		}
	}
}

// CollectAll runs every collector once and stores what they return.
// A failing collector does not stop the others. It returns the number
// of newly stored posts, and an error only when no collector succeeded.
func (s *Scheduler) CollectAll(ctx context.Context) (int, error) {
	if s.store == nil {
		if len(s.collectors) == 0 {
			return 0, nil
		}
		s.logger.Warn().Msg("no post store; skipping collection")
		return 0, ErrNoStore
	}

	since := s.now().Add(-s.window)
	total := 0
	var errs []error

	for _, c := range s.collectors {
		name := string(c.Name())
		posts, err := c.Collect(ctx, since)
		if err != nil {
			metrics.CollectErrors.WithLabelValues(name).Inc()
			s.logger.Error().Err(err).Str("source", name).Msg("collect failed")
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}

		n, err := s.store.UpsertPosts(ctx, c.Name(), posts)
		if err != nil {
			metrics.CollectErrors.WithLabelValues(name).Inc()
			s.logger.Error().Err(err).Str("source", name).Msg("store posts failed")
			errs = append(errs, fmt.Errorf("%s store: %w", name, err))
			continue
		}

		metrics.PostsCollected.WithLabelValues(name).Add(float64(n))
		s.logger.Info().
			Str("source", name).
			Int("fetched", len(posts)).
			Int("new", n).
			Msg("collected")
		total += n
	}

	s.logger.Info().Int("new", total).Msg("collection done")
	if len(s.collectors) > 0 && len(errs) == len(s.collectors) {
		return 0, fmt.Errorf("every collector failed: %w", errors.Join(errs...))
	}
	return total, nil
}

// RefreshLeaderboards recomputes every period and records the result.
func (s *Scheduler) RefreshLeaderboards(ctx context.Context) map[mindshare.Period]mindshare.Result {
	results := make(map[mindshare.Period]mindshare.Result, len(mindshare.Periods()))
	if s.service == nil {
		return results
	}

	for _, p := range mindshare.Periods() {
		res := s.service.Leaderboard(ctx, p)
		results[p] = res
		metrics.ObserveLeaderboard(string(p), string(res.Outcome), len(res.Entries))

		ev := s.logger.Info().
			Str("period", string(p)).
			Str("outcome", string(res.Outcome)).
			Int("entries", len(res.Entries))
		if len(res.Entries) > 0 {
			top := res.Entries[0]
			ev = ev.Str("top", top.Username).Float64("mindshare", top.Mindshare)
		}
		ev.Msg("leaderboard refreshed")
	}
	return results
}
