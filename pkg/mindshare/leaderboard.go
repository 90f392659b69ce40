package mindshare

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/elonfeng/mindshare/pkg/source"
)

// DefaultFetchLimit caps how many of the newest posts one request considers.
const DefaultFetchLimit = 100

// Outcome tells apart the ways a leaderboard request can end. Callers
// outside this package see an empty list for every outcome except OutcomeOK.
type Outcome string

const (
	OutcomeOK                Outcome = "ok"
	OutcomeEmptyWindow       Outcome = "empty_window"
	OutcomeSourceUnavailable Outcome = "source_unavailable"
	OutcomeNoneQualified     Outcome = "none_qualified"
)

// Result is a computed leaderboard plus diagnostics.
type Result struct {
	Period    Period
	Since     time.Time
	Entries   []Entry
	Outcome   Outcome
	Err       error
	Fetched   int
	Qualified int
	Rejected  map[Verdict]int
}

// Service computes leaderboards from an injected post source.
type Service struct {
	source source.PostSource
	rules  *Rules
	limit  int
	now    func() time.Time
	logger *zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRules overrides the default thresholds and allowlist.
func WithRules(r *Rules) Option {
	return func(s *Service) {
		if r != nil {
			s.rules = r
		}
	}
}

// WithFetchLimit overrides how many posts are fetched per request.
func WithFetchLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a leaderboard service reading from src. src may be nil,
// in which case every request reports OutcomeSourceUnavailable.
func NewService(src source.PostSource, opts ...Option) *Service {
	nop := zerolog.Nop()
	s := &Service{
		source: src,
		rules:  DefaultRules(),
		limit:  DefaultFetchLimit,
		now:    time.Now,
		logger: &nop,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Leaderboard computes the ranked list for the period. It never fails:
// fetch errors and empty windows produce an empty, non-nil Entries slice
// with the cause recorded in Outcome and Err.
func (s *Service) Leaderboard(ctx context.Context, period Period) Result {
	res := Result{
		Period:   period,
		Since:    period.Since(s.now()),
		Entries:  []Entry{},
		Rejected: make(map[Verdict]int),
	}

	posts, err := s.fetch(ctx, res.Since)
	if err != nil {
		res.Outcome = OutcomeSourceUnavailable
		res.Err = err
		s.logger.Warn().Err(err).Str("period", string(period)).Msg("leaderboard source unavailable")
		return res
	}
	res.Fetched = len(posts)

	if len(posts) == 0 {
		res.Outcome = OutcomeEmptyWindow
		s.logger.Debug().Str("period", string(period)).Msg("leaderboard window empty")
		return res
	}

	users := s.score(posts, res.Rejected)
	res.Qualified = len(users)
	if len(users) == 0 {
		res.Outcome = OutcomeNoneQualified
		s.logger.Debug().
			Str("period", string(period)).
			Int("fetched", res.Fetched).
			Msg("no qualifying posts")
		return res
	}

	res.Entries = Rank(users)
	res.Outcome = OutcomeOK
	s.logger.Debug().
		Str("period", string(period)).
		Int("fetched", res.Fetched).
		Int("qualified", res.Qualified).
		Msg("leaderboard computed")
	return res
}

// fetch isolates the single I/O call; a panicking source is treated as unavailable.
func (s *Service) fetch(ctx context.Context, since time.Time) (posts []source.Post, err error) {
	if s.source == nil {
		return nil, source.ErrSourceUnavailable
	}

	defer func() {
		if r := recover(); r != nil {
			posts = nil
			err = fmt.Errorf("%w: %v", source.ErrSourceUnavailable, r)
		}
	}()

	posts, err = s.source.RecentPosts(ctx, since, s.limit)
	if err != nil {
		if !errors.Is(err, source.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", source.ErrSourceUnavailable, err)
		}
		return nil, err
	}
	if len(posts) > s.limit {
		posts = posts[:s.limit]
	}
	return posts, nil
}

// score runs the filter chain and engagement scorer over posts in fetch order.
func (s *Service) score(posts []source.Post, rejected map[Verdict]int) []ScoredUser {
	filter := NewFilter(s.rules)
	users := make([]ScoredUser, 0, len(posts))

	for _, p := range posts {
		verdict, quality := filter.Check(p)
		if verdict != VerdictQualified {
			rejected[verdict]++
			continue
		}

		users = append(users, ScoredUser{
			Username:       p.Username,
			ProfilePic:     p.Avatar(),
			Score:          EngagementScore(p, quality, s.rules),
			ContentQuality: quality,
			Tweets:         1,
			Likes:          p.Likes,
			Retweets:       p.Retweets,
			Replies:        p.Replies,
			Quotes:         p.Quotes,
			Followers:      p.Followers,
		})
	}
	return users
}
