package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nitterFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Blockfest / @blockfestafrica</title>
    <image><url>https://nitter.example/pic/blockfest.jpg</url><title>blockfestafrica</title><link>https://nitter.example/blockfestafrica</link></image>
    <item>
      <title>Speakers for #BlockfestAfrica are live</title>
      <pubDate>Fri, 10 Oct 2025 09:00:00 GMT</pubDate>
      <guid>https://nitter.example/blockfestafrica/status/111#m</guid>
      <link>https://nitter.example/blockfestafrica/status/111#m</link>
    </item>
    <item>
      <title>RT by @blockfestafrica: someone else</title>
      <pubDate>Fri, 10 Oct 2025 08:00:00 GMT</pubDate>
      <guid>https://nitter.example/other/status/112#m</guid>
    </item>
    <item>
      <title>Old news</title>
      <pubDate>Mon, 01 Sep 2025 08:00:00 GMT</pubDate>
      <guid>https://nitter.example/blockfestafrica/status/100#m</guid>
    </item>
  </channel>
</rss>`

type stubFollowers map[string]int

func (s stubFollowers) LatestFollowers(_ context.Context, handle string) (int, error) {
	n, ok := s[handle]
	if !ok {
		return 0, errors.New("unknown handle")
	}
	return n, nil
}

func TestNitter_Collect(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(nitterFeed))
	}))
	defer ts.Close()

	n := NewNitter(ts.URL, []string{"@blockfestafrica"}, stubFollowers{"@blockfestafrica": 5000}, nil)

	since := time.Date(2025, 10, 9, 0, 0, 0, 0, time.UTC)
	posts, err := n.Collect(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, posts, 1)

	assert.Equal(t, "/blockfestafrica/rss", gotPath)
	p := posts[0]
	assert.Equal(t, "111", p.ID)
	assert.Equal(t, "@blockfestafrica", p.Username)
	assert.Equal(t, "Speakers for #BlockfestAfrica are live", p.Text)
	assert.Equal(t, 5000, p.Followers)
	assert.Equal(t, "https://nitter.example/pic/blockfest.jpg", p.ProfilePic)
	assert.Zero(t, p.Likes)
}

func TestNitter_AllAccountsFailing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	n := NewNitter(ts.URL, []string{"a", "b"}, nil, nil)

	posts, err := n.Collect(context.Background(), time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 accounts failed")
	assert.Empty(t, posts)
}

func TestNitter_FailingAccountIsSkipped(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down/rss" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(nitterFeed))
	}))
	defer ts.Close()

	n := NewNitter(ts.URL, []string{"down", "blockfestafrica"}, nil, nil)

	posts, err := n.Collect(context.Background(), time.Date(2025, 10, 9, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "@blockfestafrica", posts[0].Username)
}

func TestNitter_LongMultibyteTitleStaysValidUTF8(t *testing.T) {
	title := strings.Repeat("€", 400)
	feed := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>x</title>
<item><title>` + title + `</title><pubDate>Fri, 10 Oct 2025 09:00:00 GMT</pubDate><guid>https://nitter.example/x/status/7#m</guid></item>
</channel></rss>`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(feed))
	}))
	defer ts.Close()

	posts, err := NewNitter(ts.URL, []string{"x"}, nil, nil).Collect(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.True(t, utf8.ValidString(posts[0].Text))
	assert.True(t, strings.HasSuffix(posts[0].Text, "..."))
	assert.LessOrEqual(t, len(posts[0].Text), 1000+len("..."))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short", "hello", 10, "hello"},
		{"ascii cut", "hello world", 5, "hello..."},
		{"mid rune backs off", "a€b", 2, "a..."},
		{"on rune boundary", "a€b", 4, "a€..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}

	long := truncate(strings.Repeat("€", 400), 1000)
	assert.True(t, utf8.ValidString(long))
}

func TestStatusID(t *testing.T) {
	assert.Equal(t, "42", statusID("https://nitter.net/x/status/42#m"))
	assert.Equal(t, "plain", statusID("plain"))
}
