package rss

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"
)

// FeedsConfig is YAML config structure
// feeds:
//   - https://...
type FeedsConfig struct {
	Feeds []string `yaml:"feeds"`
}

// LoadFeeds reads RSS feeds list from YAML file
func LoadFeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg FeedsConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	feeds := cfg.Feeds[:0]
	for _, u := range cfg.Feeds {
		if u = strings.TrimSpace(u); u != "" {
			feeds = append(feeds, u)
		}
	}
	return feeds, nil
}

// Headline is one feed item reduced to what discovery needs.
type Headline struct {
	Title     string
	Link      string
	Source    string
	Published time.Time
}

const DefaultMaxHeadlines = 20

// Reader fetches headlines from a fixed set of feeds.
type Reader struct {
	feeds  []string
	parser *gofeed.Parser
	maxAge time.Duration
	limit  int
	logger *slog.Logger
	now    func() time.Time
}

func NewReader(feeds []string, maxAge time.Duration, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{
		feeds:  feeds,
		parser: gofeed.NewParser(),
		maxAge: maxAge,
		limit:  DefaultMaxHeadlines,
		logger: logger,
		now:    time.Now,
	}
}

// Headlines downloads all feeds and returns the newest items first. A broken
// feed is logged and skipped. Items older than maxAge are dropped when the
// feed carries a publish date.
func (r *Reader) Headlines(ctx context.Context) ([]Headline, error) {
	var all []Headline
	seen := make(map[string]struct{})
	successCount := 0

	for _, url := range r.feeds {
		feed, err := r.parser.ParseURLWithContext(url, ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Warn("error parsing RSS", "url", url, "error", err)
			continue
		}
		successCount++

		for _, item := range feed.Items {
			h, ok := r.headline(feed, item)
			if !ok {
				continue
			}
			if _, dup := seen[h.Link]; dup {
				continue
			}
			seen[h.Link] = struct{}{}
			all = append(all, h)
		}
		r.logger.Debug("loaded feed", "url", url, "items", len(feed.Items))
	}

	r.logger.Info("processed RSS feeds", "ok", successCount, "total", len(r.feeds), "headlines", len(all))

	sort.SliceStable(all, func(i, j int) bool { return all[i].Published.After(all[j].Published) })
	if r.limit > 0 && len(all) > r.limit {
		all = all[:r.limit]
	}
	return all, nil
}

func (r *Reader) headline(feed *gofeed.Feed, item *gofeed.Item) (Headline, bool) {
	if item == nil {
		return Headline{}, false
	}
	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.Link)
	if title == "" || !strings.HasPrefix(link, "http") {
		return Headline{}, false
	}

	h := Headline{Title: title, Link: link, Source: feed.Title}
	if item.PublishedParsed != nil {
		h.Published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		h.Published = *item.UpdatedParsed
	}
	if r.maxAge > 0 && !h.Published.IsZero() && r.now().Sub(h.Published) > r.maxAge {
		return Headline{}, false
	}
	return h, true
}

// Titles is a convenience for prompt building.
func Titles(hs []Headline) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = h.Title
	}
	return out
}
