package mindshare

import (
	"math"

	"github.com/elonfeng/mindshare/pkg/source"
)

const (
	impressionsPerLike = 10

	impressionWeight = 0.4
	engagementWeight = 0.3
	qualityWeight    = 0.2
	followerWeight   = 0.1
)

// Breakdown holds the individual terms of an engagement score.
type Breakdown struct {
	Impressions    float64
	EngagementRate float64
	ContentQuality float64
	Followers      float64
	SpecialBonus   float64
}

// Total sums the terms.
func (b Breakdown) Total() float64 {
	return b.Impressions + b.EngagementRate + b.ContentQuality + b.Followers + b.SpecialBonus
}

// ScoreBreakdown computes each weighted term for a qualifying post.
// Likes stand in for impressions; replies never count toward engagement.
func ScoreBreakdown(p source.Post, quality int, rules *Rules) Breakdown {
	impressions := float64(p.Likes * impressionsPerLike)

	totalEngagement := float64(p.Likes + p.Retweets + p.Quotes)
	rate := 0.0
	if impressions > 0 {
		rate = totalEngagement / impressions * 100
	}

	b := Breakdown{
		Impressions:    impressions * impressionWeight,
		EngagementRate: rate * engagementWeight,
		ContentQuality: float64(quality) * qualityWeight,
		Followers:      math.Log10(float64(p.Followers)+1) * followerWeight,
	}
	if rules.IsSpecial(p.Username) {
		b.SpecialBonus = specialAccountBonus
	}
	return b
}

// EngagementScore returns the composite score of a qualifying post.
func EngagementScore(p source.Post, quality int, rules *Rules) float64 {
	return ScoreBreakdown(p, quality, rules).Total()
}
