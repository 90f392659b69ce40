package source

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// SourceType identifies which collector a post came from.
type SourceType string

const (
	SourceXAPI   SourceType = "xapi"
	SourceNitter SourceType = "nitter"
	SourceFile   SourceType = "file"
)

// DefaultAvatar is shown for authors without a profile picture.
const DefaultAvatar = "https://abs.twimg.com/sticky/default_profile_images/default_profile_normal.png"

// ErrSourceUnavailable is returned when a post source is not configured or cannot be reached.
var ErrSourceUnavailable = errors.New("post source unavailable")

// Post is a single social post with the author's follower count at post time.
// Posts are built with NewPost and are not modified afterwards.
type Post struct {
	ID         string    `json:"tweet_id" db:"tweet_id"`
	Username   string    `json:"username" db:"username"`
	ProfilePic string    `json:"profile_pic" db:"profile_pic"`
	Text       string    `json:"text" db:"text"`
	Date       time.Time `json:"date" db:"date"`
	Followers  int       `json:"followers" db:"followers"`
	Likes      int       `json:"likes" db:"likes"`
	Retweets   int       `json:"retweets" db:"retweets"`
	Replies    int       `json:"replies" db:"replies"`
	Quotes     int       `json:"quotes" db:"quotes"`
}

// RawPost is a post as it arrives from a backend, where any field may be absent.
type RawPost struct {
	ID         string
	Username   string
	ProfilePic *string
	Text       *string
	Date       time.Time
	Followers  *int
	Likes      *int
	Retweets   *int
	Replies    *int
	Quotes     *int
}

// NewPost normalizes a raw record: absent counters become zero and absent
// text becomes the empty string. Scorers never see a missing field.
func NewPost(raw RawPost) Post {
	return Post{
		ID:         raw.ID,
		Username:   strings.TrimSpace(raw.Username),
		ProfilePic: deref(raw.ProfilePic),
		Text:       deref(raw.Text),
		Date:       raw.Date,
		Followers:  nonNegative(raw.Followers),
		Likes:      nonNegative(raw.Likes),
		Retweets:   nonNegative(raw.Retweets),
		Replies:    nonNegative(raw.Replies),
		Quotes:     nonNegative(raw.Quotes),
	}
}

// Avatar returns the profile picture or the default avatar.
func (p Post) Avatar() string {
	if p.ProfilePic == "" {
		return DefaultAvatar
	}
	return p.ProfilePic
}

// PostSource returns up to limit posts published at or after since, newest first.
type PostSource interface {
	RecentPosts(ctx context.Context, since time.Time, limit int) ([]Post, error)
}

// Collector is the interface every ingest collector must implement.
type Collector interface {
	Name() SourceType
	Collect(ctx context.Context, since time.Time) ([]Post, error)
}

// AllSourceTypes returns all known source types.
func AllSourceTypes() []SourceType {
	return []SourceType{SourceXAPI, SourceNitter, SourceFile}
}

// NormalizeHandle returns the handle with exactly one leading "@".
func NormalizeHandle(handle string) string {
	h := strings.TrimSpace(handle)
	h = strings.TrimLeft(h, "@")
	if h == "" {
		return ""
	}
	return "@" + h
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonNegative(n *int) int {
	if n == nil || *n < 0 {
		return 0
	}
	return *n
}

// truncate cuts s to at most maxLen bytes on a rune boundary.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// IntPtr is a helper for building RawPost values.
func IntPtr(n int) *int { return &n }

// StringPtr is a helper for building RawPost values.
func StringPtr(s string) *string { return &s }
