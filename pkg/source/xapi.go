package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	xAPIBaseURL      = "https://api.twitter.com/2"
	xAPIMaxPageSize  = 100
	xAPIMinPageSize  = 10
	defaultXQuery    = "blockfest OR #blockfest OR #blockfestafrica"
	defaultXRPM      = 30
	defaultXMaxPosts = 100
)

// XSearch collects posts from the X API v2 recent search endpoint.
type XSearch struct {
	client   *http.Client
	limiter  *rate.Limiter
	baseURL  string
	token    string
	query    string
	maxPosts int
}

// NewXSearch creates a new X API collector. rpm caps requests per minute.
func NewXSearch(token, query string, maxPosts, rpm int) *XSearch {
	if query == "" {
		query = defaultXQuery
	}
	if maxPosts <= 0 {
		maxPosts = defaultXMaxPosts
	}
	if rpm <= 0 {
		rpm = defaultXRPM
	}
	return &XSearch{
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		baseURL:  xAPIBaseURL,
		token:    token,
		query:    query,
		maxPosts: maxPosts,
	}
}

func (x *XSearch) Name() SourceType { return SourceXAPI }

func (x *XSearch) Collect(ctx context.Context, since time.Time) ([]Post, error) {
	if x.token == "" {
		return nil, fmt.Errorf("xapi: bearer token required (set TWITTER_BEARER_TOKEN): %w", ErrSourceUnavailable)
	}

	var (
		posts     []Post
		nextToken string
	)

	for len(posts) < x.maxPosts {
		page, err := x.search(ctx, since, x.maxPosts-len(posts), nextToken)
		if err != nil {
			if len(posts) > 0 {
				return posts, nil
			}
			return nil, err
		}
		posts = append(posts, page.posts()...)

		nextToken = page.Meta.NextToken
		if nextToken == "" {
			break
		}
	}

	if len(posts) > x.maxPosts {
		posts = posts[:x.maxPosts]
	}
	return posts, nil
}

func (x *XSearch) search(ctx context.Context, since time.Time, want int, nextToken string) (*xSearchResult, error) {
	if err := x.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("xapi rate limit wait: %w", err)
	}

	pageSize := min(max(want, xAPIMinPageSize), xAPIMaxPageSize)

	params := url.Values{}
	params.Set("query", x.query+" -is:retweet lang:en")
	params.Set("max_results", strconv.Itoa(pageSize))
	params.Set("tweet.fields", "created_at,public_metrics,author_id")
	params.Set("user.fields", "username,profile_image_url,public_metrics")
	params.Set("expansions", "author_id")
	if !since.IsZero() {
		params.Set("start_time", since.UTC().Format(time.RFC3339))
	}
	if nextToken != "" {
		params.Set("next_token", nextToken)
	}

	reqURL := strings.TrimRight(x.baseURL, "/") + "/tweets/search/recent?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create xapi request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+x.token)
	req.Header.Set("User-Agent", "mindshare/1.0")

	resp, err := x.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch xapi search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("xapi search status %d", resp.StatusCode)
	}

	var result xSearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode xapi search: %w", err)
	}
	return &result, nil
}

// X API v2 response types.

type xSearchResult struct {
	Data     []xTweet `json:"data"`
	Includes struct {
		Users []xUser `json:"users"`
	} `json:"includes"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

type xTweet struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	AuthorID      string    `json:"author_id"`
	CreatedAt     time.Time `json:"created_at"`
	PublicMetrics struct {
		LikeCount    *int `json:"like_count"`
		RetweetCount *int `json:"retweet_count"`
		ReplyCount   *int `json:"reply_count"`
		QuoteCount   *int `json:"quote_count"`
	} `json:"public_metrics"`
}

type xUser struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url"`
	PublicMetrics   struct {
		FollowersCount *int `json:"followers_count"`
	} `json:"public_metrics"`
}

// posts joins tweets with their expanded authors. Tweets whose author was
// not expanded are skipped.
func (r *xSearchResult) posts() []Post {
	users := make(map[string]xUser, len(r.Includes.Users))
	for _, u := range r.Includes.Users {
		users[u.ID] = u
	}

	posts := make([]Post, 0, len(r.Data))
	for _, t := range r.Data {
		u, ok := users[t.AuthorID]
		if !ok {
			continue
		}

		created := t.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}

		raw := RawPost{
			ID:        t.ID,
			Username:  NormalizeHandle(u.Username),
			Text:      StringPtr(t.Text),
			Date:      created.UTC(),
			Followers: u.PublicMetrics.FollowersCount,
			Likes:     t.PublicMetrics.LikeCount,
			Retweets:  t.PublicMetrics.RetweetCount,
			Replies:   t.PublicMetrics.ReplyCount,
			Quotes:    t.PublicMetrics.QuoteCount,
		}
		if u.ProfileImageURL != "" {
			raw.ProfilePic = StringPtr(u.ProfileImageURL)
		}
		posts = append(posts, NewPost(raw))
	}
	return posts
}
