package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
)

// FollowerLookup returns the most recent known follower count for a handle.
type FollowerLookup interface {
	LatestFollowers(ctx context.Context, handle string) (int, error)
}

// Nitter collects posts via Nitter RSS feeds. It needs no API key but the
// feeds carry no engagement counters or follower counts; followers are
// taken from the lookup when one is configured.
type Nitter struct {
	client    *http.Client
	parser    *gofeed.Parser
	nitterURL string
	accounts  []string
	followers FollowerLookup
	logger    *zerolog.Logger
}

// NewNitter creates a new Nitter RSS collector. followers may be nil.
func NewNitter(nitterURL string, accounts []string, followers FollowerLookup, logger *zerolog.Logger) *Nitter {
	if nitterURL == "" {
		nitterURL = "https://nitter.net"
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Nitter{
		client:    &http.Client{Timeout: 30 * time.Second},
		parser:    gofeed.NewParser(),
		nitterURL: strings.TrimRight(nitterURL, "/"),
		accounts:  accounts,
		followers: followers,
		logger:    logger,
	}
}

func (n *Nitter) Name() SourceType { return SourceNitter }

// Collect reads every account feed. A failing account is logged and
// skipped; an error is returned only when every account failed.
func (n *Nitter) Collect(ctx context.Context, since time.Time) ([]Post, error) {
	var (
		allPosts []Post
		errs     []error
	)

	for _, account := range n.accounts {
		posts, err := n.collectAccount(ctx, account, since)
		if err != nil {
			n.logger.Warn().Err(err).Str("account", account).Msg("nitter account failed")
			errs = append(errs, err)
			continue
		}
		allPosts = append(allPosts, posts...)
	}

	if len(n.accounts) > 0 && len(errs) == len(n.accounts) {
		return nil, fmt.Errorf("nitter: all %d accounts failed: %w", len(errs), errors.Join(errs...))
	}
	return allPosts, nil
}

func (n *Nitter) collectAccount(ctx context.Context, account string, since time.Time) ([]Post, error) {
	account = strings.TrimLeft(strings.TrimSpace(account), "@")
	feedURL := fmt.Sprintf("%s/%s/rss", n.nitterURL, account)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create nitter request @%s: %w", account, err)
	}
	req.Header.Set("User-Agent", "mindshare/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch nitter @%s: %w", account, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nitter @%s status %d", account, resp.StatusCode)
	}

	feed, err := n.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse nitter @%s: %w", account, err)
	}

	handle := NormalizeHandle(account)

	var followers *int
	if n.followers != nil {
		if f, err := n.followers.LatestFollowers(ctx, handle); err == nil {
			followers = IntPtr(f)
		}
	}

	var avatar *string
	if feed.Image != nil && feed.Image.URL != "" {
		avatar = StringPtr(feed.Image.URL)
	}

	var posts []Post
	for _, entry := range feed.Items {
		published := time.Now().UTC()
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		}

		if !since.IsZero() && published.Before(since) {
			continue
		}

		// Nitter marks retweets with an "RT by" title prefix.
		if strings.HasPrefix(entry.Title, "RT by ") {
			continue
		}

		id := entry.GUID
		if id == "" {
			id = entry.Link
		}
		id = statusID(id)

		posts = append(posts, NewPost(RawPost{
			ID:         id,
			Username:   handle,
			ProfilePic: avatar,
			Text:       StringPtr(truncate(entry.Title, 1000)),
			Date:       published,
			Followers:  followers,
		}))
	}

	return posts, nil
}

// statusID extracts the numeric status id from a Nitter link or GUID.
func statusID(ref string) string {
	ref = strings.TrimSuffix(ref, "#m")
	if i := strings.LastIndex(ref, "/status/"); i >= 0 {
		return ref[i+len("/status/"):]
	}
	return ref
}
