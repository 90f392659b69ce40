package mindshare

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/mindshare/pkg/source"
)

type fakeSource struct {
	posts     []source.Post
	err       error
	gotSince  time.Time
	gotLimit  int
	callCount int
}

func (f *fakeSource) RecentPosts(_ context.Context, since time.Time, limit int) ([]source.Post, error) {
	f.callCount++
	f.gotSince = since
	f.gotLimit = limit
	return f.posts, f.err
}

type panicSource struct{}

func (panicSource) RecentPosts(context.Context, time.Time, int) ([]source.Post, error) {
	panic("backend exploded")
}

var testNow = time.Date(2025, 10, 11, 12, 0, 0, 0, time.UTC)

func newTestService(src source.PostSource, opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewService(src, opts...)
}

func scoredPost(id, username string, likes, followers int) source.Post {
	return source.Post{
		ID:        id,
		Username:  username,
		Text:      richText,
		Likes:     likes,
		Retweets:  likes / 10,
		Quotes:    likes / 20,
		Replies:   3,
		Followers: followers,
	}
}

func TestLeaderboard_RanksQualifyingAuthors(t *testing.T) {
	src := &fakeSource{posts: []source.Post{
		scoredPost("1", "@alice", 10, 1000),
		scoredPost("2", "@bob", 50, 1000),
		scoredPost("3", "@carol", 30, 100), // below follower floor
		scoredPost("4", "@dave", 20, 800),
	}}

	res := newTestService(src).Leaderboard(context.Background(), PeriodWeekly)

	assert.Equal(t, OutcomeOK, res.Outcome)
	require.NoError(t, res.Err)
	assert.Equal(t, 4, res.Fetched)
	assert.Equal(t, 3, res.Qualified)
	assert.Equal(t, 1, res.Rejected[VerdictFewFollowers])
	assert.Equal(t, testNow.AddDate(0, 0, -7), src.gotSince)
	assert.Equal(t, DefaultFetchLimit, src.gotLimit)

	require.Len(t, res.Entries, 3)
	assert.Equal(t, "@bob", res.Entries[0].Username)
	assert.Equal(t, "@dave", res.Entries[1].Username)
	assert.Equal(t, "@alice", res.Entries[2].Username)

	sum := 0.0
	for i, e := range res.Entries {
		assert.Equal(t, i+1, e.Rank)
		assert.Equal(t, 1, e.Tweets)
		assert.Equal(t, source.DefaultAvatar, e.ProfilePic)
		sum += e.Mindshare
	}
	assert.InDelta(t, 100.0, sum, 0.1)
}

func TestLeaderboard_FirstPostPerAuthorWins(t *testing.T) {
	src := &fakeSource{posts: []source.Post{
		scoredPost("new", "@alice", 5, 1000),
		scoredPost("old", "@alice", 500, 1000),
	}}

	res := newTestService(src).Leaderboard(context.Background(), PeriodDaily)

	require.Len(t, res.Entries, 1)
	assert.Equal(t, 5, res.Entries[0].Likes)
	assert.Equal(t, 1, res.Rejected[VerdictDuplicate])
	assert.Equal(t, 100.0, res.Entries[0].Mindshare)
}

func TestLeaderboard_TieGoesToEarlierPost(t *testing.T) {
	src := &fakeSource{posts: []source.Post{
		scoredPost("1", "@newer", 40, 1000),
		scoredPost("2", "@older", 40, 1000),
	}}

	res := newTestService(src).Leaderboard(context.Background(), PeriodDaily)

	require.Len(t, res.Entries, 2)
	assert.Equal(t, res.Entries[0].Score, res.Entries[1].Score)
	assert.Equal(t, "@newer", res.Entries[0].Username)
	assert.Equal(t, 1, res.Entries[0].Rank)
	assert.Equal(t, 2, res.Entries[1].Rank)
}

func TestLeaderboard_Outcomes(t *testing.T) {
	tests := []struct {
		name string
		src  source.PostSource
		want Outcome
	}{
		{"nil source", nil, OutcomeSourceUnavailable},
		{"source error", &fakeSource{err: errors.New("connection refused")}, OutcomeSourceUnavailable},
		{"source panic", panicSource{}, OutcomeSourceUnavailable},
		{"empty window", &fakeSource{}, OutcomeEmptyWindow},
		{"nothing qualifies", &fakeSource{posts: []source.Post{scoredPost("1", "@a", 10, 5)}}, OutcomeNoneQualified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestService(tt.src).Leaderboard(context.Background(), PeriodDaily)

			assert.Equal(t, tt.want, res.Outcome)
			assert.NotNil(t, res.Entries)
			assert.Empty(t, res.Entries)
			if tt.want == OutcomeSourceUnavailable {
				assert.ErrorIs(t, res.Err, source.ErrSourceUnavailable)
			}
		})
	}
}

func TestLeaderboard_FetchLimit(t *testing.T) {
	posts := make([]source.Post, 0, 5)
	for _, name := range []string{"@a", "@b", "@c", "@d", "@e"} {
		posts = append(posts, scoredPost(name, name, 10, 1000))
	}
	src := &fakeSource{posts: posts}

	res := newTestService(src, WithFetchLimit(3)).Leaderboard(context.Background(), PeriodDaily)

	assert.Equal(t, 3, src.gotLimit)
	assert.Equal(t, 3, res.Fetched)
	assert.Len(t, res.Entries, 3)
}

func TestLeaderboard_CustomRules(t *testing.T) {
	src := &fakeSource{posts: []source.Post{
		{ID: "1", Username: "@vip", Text: "gm", Followers: 10, Likes: 1},
	}}

	res := newTestService(src, WithRules(NewRules(0, 20, []string{"@vip"}))).
		Leaderboard(context.Background(), PeriodDaily)

	require.Len(t, res.Entries, 1)
	assert.Greater(t, res.Entries[0].Score, 50.0)
}

func TestLeaderboard_DoesNotShareStateBetweenRequests(t *testing.T) {
	src := &fakeSource{posts: []source.Post{scoredPost("1", "@alice", 10, 1000)}}
	svc := newTestService(src)

	first := svc.Leaderboard(context.Background(), PeriodDaily)
	second := svc.Leaderboard(context.Background(), PeriodDaily)

	require.Len(t, first.Entries, 1)
	require.Len(t, second.Entries, 1)
	assert.Equal(t, first.Entries, second.Entries)
	assert.Equal(t, 2, src.callCount)
}
