package store

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tweets (
    tweet_id     TEXT PRIMARY KEY,
    username     TEXT NOT NULL,
    profile_pic  TEXT,
    text         TEXT,
    date         DATETIME NOT NULL,
    likes        INTEGER,
    retweets     INTEGER,
    replies      INTEGER,
    quotes       INTEGER,
    followers    INTEGER,
    source       TEXT NOT NULL DEFAULT '',
    collected_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tweets_date ON tweets(date);
CREATE INDEX IF NOT EXISTS idx_tweets_username ON tweets(username);
`
