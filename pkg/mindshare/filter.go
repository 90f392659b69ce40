package mindshare

import (
	"strings"

	"github.com/elonfeng/mindshare/pkg/source"
)

// DefaultSpecialAccounts are exempt from the quality floor and earn a flat score bonus.
var DefaultSpecialAccounts = []string{
	"@samuelxeus", "@blockfestafrica", "@thenirvanacad", "@xeusthegreat",
}

const (
	DefaultFollowerFloor = 250
	DefaultQualityFloor  = 20
	specialAccountBonus  = 50
)

// Rules holds the qualification thresholds and the special-account allowlist.
type Rules struct {
	FollowerFloor int
	QualityFloor  int
	special       map[string]bool
}

// NewRules builds rules with the given thresholds. Allowlist entries are
// matched case-insensitively against the full handle.
func NewRules(followerFloor, qualityFloor int, specialAccounts []string) *Rules {
	special := make(map[string]bool, len(specialAccounts))
	for _, h := range specialAccounts {
		special[strings.ToLower(strings.TrimSpace(h))] = true
	}
	return &Rules{
		FollowerFloor: followerFloor,
		QualityFloor:  qualityFloor,
		special:       special,
	}
}

// DefaultRules returns the deployed thresholds and allowlist.
func DefaultRules() *Rules {
	return NewRules(DefaultFollowerFloor, DefaultQualityFloor, DefaultSpecialAccounts)
}

// IsSpecial reports whether the handle is on the allowlist.
func (r *Rules) IsSpecial(handle string) bool {
	return r.special[strings.ToLower(handle)]
}

// Verdict is the filter decision for one post.
type Verdict string

const (
	VerdictQualified    Verdict = "qualified"
	VerdictDuplicate    Verdict = "duplicate"
	VerdictFewFollowers Verdict = "few_followers"
	VerdictLowQuality   Verdict = "low_quality"
)

// Filter decides which posts are scored within one request. It remembers
// every author it has seen; only an author's first post is ever a candidate.
// A Filter must not be reused across requests.
type Filter struct {
	rules *Rules
	seen  map[string]bool
}

// NewFilter creates a filter with an empty seen set.
func NewFilter(rules *Rules) *Filter {
	return &Filter{rules: rules, seen: make(map[string]bool)}
}

// Check runs the ordered filter chain and returns the verdict together with
// the content quality (zero when the chain stopped before scoring text).
func (f *Filter) Check(p source.Post) (Verdict, int) {
	if f.seen[p.Username] {
		return VerdictDuplicate, 0
	}
	f.seen[p.Username] = true

	if p.Followers < f.rules.FollowerFloor {
		return VerdictFewFollowers, 0
	}

	quality := ContentQuality(p.Text)
	if quality < f.rules.QualityFloor && !f.rules.IsSpecial(p.Username) {
		return VerdictLowQuality, quality
	}
	return VerdictQualified, quality
}
