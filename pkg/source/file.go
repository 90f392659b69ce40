package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/araddon/dateparse"
)

// File imports posts from a JSON array export, as written by scrapers or
// database dumps. Records without a parseable date or author are skipped.
type File struct {
	path string
}

// NewFile creates a collector reading the JSON file at path.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Name() SourceType { return SourceFile }

func (f *File) Collect(ctx context.Context, since time.Time) ([]Post, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open import %s: %w", f.path, err)
	}
	defer fh.Close()

	return DecodeExport(fh, since)
}

type exportRecord struct {
	TweetID    string  `json:"tweet_id"`
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	ProfilePic *string `json:"profile_pic"`
	Text       *string `json:"text"`
	Content    *string `json:"content"`
	Date       string  `json:"date"`
	Likes      *int    `json:"likes"`
	Retweets   *int    `json:"retweets"`
	Replies    *int    `json:"replies"`
	Quotes     *int    `json:"quotes"`
	Followers  *int    `json:"followers"`
}

// DecodeExport reads a JSON array of post records. Posts older than since are dropped.
func DecodeExport(r io.Reader, since time.Time) ([]Post, error) {
	var records []exportRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode import: %w", err)
	}

	posts := make([]Post, 0, len(records))
	for _, rec := range records {
		id := rec.TweetID
		if id == "" {
			id = rec.ID
		}
		if id == "" || rec.Username == "" {
			continue
		}

		date, err := dateparse.ParseAny(rec.Date)
		if err != nil {
			continue
		}
		date = date.UTC()
		if !since.IsZero() && date.Before(since) {
			continue
		}

		text := rec.Text
		if text == nil {
			text = rec.Content
		}

		posts = append(posts, NewPost(RawPost{
			ID:         id,
			Username:   NormalizeHandle(rec.Username),
			ProfilePic: rec.ProfilePic,
			Text:       text,
			Date:       date,
			Followers:  rec.Followers,
			Likes:      rec.Likes,
			Retweets:   rec.Retweets,
			Replies:    rec.Replies,
			Quotes:     rec.Quotes,
		}))
	}
	return posts, nil
}
