package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/deusflow/batterynews/internal/similarity"
)

// PublishedItem is one title committed to durable history.
type PublishedItem struct {
	Hash        string    `json:"hash"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
}

// HistoryStore persists published titles across restarts. Load returns items
// oldest first.
type HistoryStore interface {
	Load(ctx context.Context) ([]PublishedItem, error)
	Record(ctx context.Context, title, link string) error
	Close() error
}

// TitleHash is the stable key of a title: the hash of its normalized form, so
// case and punctuation variants collapse.
func TitleHash(title string) string {
	key := similarity.Normalize(title)
	if key == "" {
		key = strings.ToLower(strings.TrimSpace(title))
	}
	h := sha256.New()
	h.Write([]byte(key))
	return hex.EncodeToString(h.Sum(nil))[:16] // Use first 16 characters
}

// Titles extracts titles in order.
func Titles(items []PublishedItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Title)
	}
	return out
}
