package mindshare

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/elonfeng/mindshare/pkg/source"
)

func TestEngagementScore_Scenario(t *testing.T) {
	p := source.Post{
		Username:  "@alice",
		Text:      richText,
		Likes:     100,
		Retweets:  10,
		Quotes:    5,
		Replies:   20,
		Followers: 1000,
	}
	quality := ContentQuality(p.Text)
	assert.Equal(t, 100, quality)

	// impressions 1000*0.4, rate (115/1000*100)*0.3, quality 100*0.2, followers log10(1001)*0.1
	want := 400 + 3.45 + 20 + math.Log10(1001)*0.1

	assert.InDelta(t, want, EngagementScore(p, quality, DefaultRules()), 1e-9)
}

func TestScoreBreakdown_Terms(t *testing.T) {
	p := source.Post{Username: "@bob", Likes: 10, Retweets: 5, Quotes: 5, Followers: 999}

	b := ScoreBreakdown(p, 50, DefaultRules())

	assert.InDelta(t, 40.0, b.Impressions, 1e-9)
	assert.InDelta(t, 6.0, b.EngagementRate, 1e-9)
	assert.InDelta(t, 10.0, b.ContentQuality, 1e-9)
	assert.InDelta(t, 0.3, b.Followers, 1e-9)
	assert.Zero(t, b.SpecialBonus)
	assert.InDelta(t, 56.3, b.Total(), 1e-9)
}

func TestEngagementScore_NoLikesMeansNoEngagementRate(t *testing.T) {
	p := source.Post{Username: "@bob", Retweets: 50, Quotes: 50, Followers: 0}

	b := ScoreBreakdown(p, 0, DefaultRules())

	assert.Zero(t, b.Impressions)
	assert.Zero(t, b.EngagementRate)
	assert.Zero(t, b.Followers)
	assert.False(t, math.IsNaN(b.Total()))
}

func TestEngagementScore_RepliesIgnored(t *testing.T) {
	base := source.Post{Username: "@bob", Likes: 10, Retweets: 2, Quotes: 1, Followers: 300}
	withReplies := base
	withReplies.Replies = 1000

	assert.Equal(t,
		EngagementScore(base, 30, DefaultRules()),
		EngagementScore(withReplies, 30, DefaultRules()))
}

func TestEngagementScore_MoreLikesScoresHigher(t *testing.T) {
	rules := DefaultRules()
	p := source.Post{Username: "@bob", Followers: 300}

	prev := EngagementScore(p, 40, rules)
	for likes := 1; likes <= 500; likes++ {
		p.Likes = likes
		cur := EngagementScore(p, 40, rules)
		assert.Greater(t, cur, prev, "likes=%d", likes)
		prev = cur
	}
}

func TestEngagementScore_SpecialBonusIsExactly50(t *testing.T) {
	rules := DefaultRules()
	regular := source.Post{Username: "@someone", Likes: 7, Retweets: 3, Quotes: 2, Followers: 1200}
	special := regular
	special.Username = "@SamuelXeus"

	diff := EngagementScore(special, 60, rules) - EngagementScore(regular, 60, rules)

	assert.InDelta(t, 50.0, diff, 1e-9)
}
