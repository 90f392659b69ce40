package mindshare

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/elonfeng/mindshare/pkg/source"
)

const richText = "BlockFest Africa #blockfestafrica returning Oct 11 2025"

func post(username string, followers int, text string) source.Post {
	return source.Post{ID: username + "-1", Username: username, Followers: followers, Text: text}
}

func TestFilter_FollowerFloor(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		followers int
		want      Verdict
	}{
		{"below floor", "@alice", 249, VerdictFewFollowers},
		{"at floor", "@alice", 250, VerdictQualified},
		{"special account below floor", "@blockfestafrica", 249, VerdictFewFollowers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFilter(DefaultRules())
			got, _ := f.Check(post(tt.username, tt.followers, richText))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilter_QualityFloor(t *testing.T) {
	f := NewFilter(DefaultRules())

	verdict, quality := f.Check(post("@alice", 1000, "gm"))
	assert.Equal(t, VerdictLowQuality, verdict)
	assert.Zero(t, quality)

	verdict, quality = f.Check(post("@bob", 1000, "Lagos networking panels"))
	assert.Equal(t, VerdictQualified, verdict)
	assert.Equal(t, 8+8+8+20, quality)
}

func TestFilter_SpecialAccountSkipsQualityFloor(t *testing.T) {
	f := NewFilter(DefaultRules())

	verdict, quality := f.Check(post("@BlockfestAfrica", 1000, "gm"))
	assert.Equal(t, VerdictQualified, verdict)
	assert.Zero(t, quality)
}

func TestFilter_OnlyFirstPostPerAuthorIsCandidate(t *testing.T) {
	f := NewFilter(DefaultRules())

	first, _ := f.Check(post("@alice", 10, richText))
	second, _ := f.Check(post("@alice", 5000, richText))
	other, _ := f.Check(post("@bob", 5000, richText))

	assert.Equal(t, VerdictFewFollowers, first)
	assert.Equal(t, VerdictDuplicate, second)
	assert.Equal(t, VerdictQualified, other)
}

func TestRules_IsSpecial(t *testing.T) {
	r := DefaultRules()

	assert.True(t, r.IsSpecial("@samuelxeus"))
	assert.True(t, r.IsSpecial("@XeusTheGreat"))
	assert.False(t, r.IsSpecial("samuelxeus"))
	assert.False(t, r.IsSpecial("@samuelxeus2"))

	custom := NewRules(10, 5, []string{" @Custom "})
	assert.True(t, custom.IsSpecial("@custom"))
	assert.False(t, custom.IsSpecial("@blockfestafrica"))
}
