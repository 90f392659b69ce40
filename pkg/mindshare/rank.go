package mindshare

import (
	"math"
	"sort"
)

// ScoredUser is one qualifying author with the counters of the post that counted.
type ScoredUser struct {
	Username       string  `json:"username"`
	ProfilePic     string  `json:"profile_pic"`
	Score          float64 `json:"score"`
	ContentQuality int     `json:"-"`
	Tweets         int     `json:"tweets"`
	Likes          int     `json:"likes"`
	Retweets       int     `json:"retweets"`
	Replies        int     `json:"replies"`
	Quotes         int     `json:"quotes"`
	Followers      int     `json:"followers"`
}

// Entry is a ranked leaderboard row.
type Entry struct {
	Rank      int     `json:"rank"`
	Mindshare float64 `json:"mindshare"`
	ScoredUser
}

// Rank orders users by score (stable on ties), assigns 1-based ranks and
// computes each user's percentage of the total score. The input is not modified.
func Rank(users []ScoredUser) []Entry {
	sorted := make([]ScoredUser, len(users))
	copy(sorted, users)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	total := 0.0
	for _, u := range sorted {
		total += u.Score
	}
	if total == 0 {
		total = 1
	}

	entries := make([]Entry, len(sorted))
	for i, u := range sorted {
		entries[i] = Entry{
			Rank:       i + 1,
			Mindshare:  round2(u.Score / total * 100),
			ScoredUser: u,
		}
	}
	return entries
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
