// Package cache persists validated remote alignment responses so repeated
// runs over the same material skip paid capability calls.
package cache

import (
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"readalign/internal/transcript"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS remote_alignments (
    key TEXT PRIMARY KEY,
    start_ms INTEGER NOT NULL,
    end_ms INTEGER NOT NULL,
    confidence REAL NOT NULL,
    created_at TEXT NOT NULL
);
`

// Entry is one cached alignment, un-padded, exactly as validated.
type Entry struct {
	StartMS    int64
	EndMS      int64
	Confidence float64
}

type Cache struct {
	db *sql.DB
}

// Open creates or opens the cache file and applies the schema.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached entry for key, reporting whether one exists.
func (c *Cache) Get(key string) (Entry, bool, error) {
	row := c.db.QueryRow(`SELECT start_ms, end_ms, confidence FROM remote_alignments WHERE key = ?`, key)
	var e Entry
	switch err := row.Scan(&e.StartMS, &e.EndMS, &e.Confidence); err {
	case nil:
		return e, true, nil
	case sql.ErrNoRows:
		return Entry{}, false, nil
	default:
		return Entry{}, false, fmt.Errorf("read cache: %w", err)
	}
}

// Put stores an entry, replacing any previous value for the key.
func (c *Cache) Put(key string, e Entry) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO remote_alignments(key, start_ms, end_ms, confidence, created_at) VALUES(?,?,?,?,?)`,
		key, e.StartMS, e.EndMS, e.Confidence, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

// Key derives the cache key for a sentence within a specific transcript.
func Key(transcriptDigest, sentence string) string {
	sum := sha1.Sum([]byte(transcriptDigest + "\n" + sentence))
	return hex.EncodeToString(sum[:])
}

// TranscriptDigest fingerprints the word stream so cached alignments never
// leak across transcripts.
func TranscriptDigest(words []transcript.Word) string {
	h := sha1.New()
	for _, w := range words {
		fmt.Fprintf(h, "%s\x1f%d\x1f%d\x1e", w.Text, w.StartMS, w.EndMS)
	}
	return hex.EncodeToString(h.Sum(nil))
}
