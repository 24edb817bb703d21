// Package state holds the process-local history, article list and log ring.
package state

import (
	"strings"
	"sync"

	"github.com/deusflow/batterynews/internal/news"
	"github.com/deusflow/batterynews/internal/similarity"
)

const (
	DefaultArticleCap = 50
	DefaultLogCap     = 50
)

// Store is safe for concurrent use. Readers always receive copies.
type Store struct {
	mu sync.RWMutex

	titles []string
	seen   map[string]struct{}

	articles   []news.Article
	articleCap int

	logs   []string
	logCap int
}

// New creates an empty store. Non-positive caps fall back to the defaults.
func New(articleCap, logCap int) *Store {
	if articleCap <= 0 {
		articleCap = DefaultArticleCap
	}
	if logCap <= 0 {
		logCap = DefaultLogCap
	}
	return &Store{
		seen:       make(map[string]struct{}),
		articleCap: articleCap,
		logCap:     logCap,
	}
}

// RecentTitles returns up to n most recently recorded titles, newest first.
func (s *Store) RecentTitles(n int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.titles) {
		n = len(s.titles)
	}
	out := make([]string, 0, n)
	for i := len(s.titles) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.titles[i])
	}
	return out
}

// IsDuplicate reports whether title matches any title in history, either
// exactly after normalization or through the similarity matcher.
func (s *Store) IsDuplicate(title string) bool {
	key := titleKey(title)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.seen[key]; ok && key != "" {
		return true
	}
	for _, existing := range s.titles {
		if similarity.IsSimilar(title, existing) {
			return true
		}
	}
	return false
}

// CommitPublished records a published article: its title joins history and
// the article is prepended to the capped article list.
func (s *Store) CommitPublished(a news.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.addTitleLocked(a.Title)

	s.articles = append([]news.Article{a}, s.articles...)
	if len(s.articles) > s.articleCap {
		s.articles = s.articles[:s.articleCap]
	}
}

// MergeTitles adds titles not already present and returns how many were new.
func (s *Store) MergeTitles(titles []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, t := range titles {
		if s.addTitleLocked(t) {
			added++
		}
	}
	return added
}

// HistorySize is the number of distinct titles recorded.
func (s *Store) HistorySize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.titles)
}

// Articles returns the published articles, newest first.
func (s *Store) Articles() []news.Article {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]news.Article, len(s.articles))
	copy(out, s.articles)
	return out
}

// AppendLog pushes a line to the front of the log ring.
func (s *Store) AppendLog(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs = append(s.logs, "")
	copy(s.logs[1:], s.logs)
	s.logs[0] = line
	if len(s.logs) > s.logCap {
		s.logs = s.logs[:s.logCap]
	}
}

// Logs returns the log ring, newest first.
func (s *Store) Logs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.logs))
	copy(out, s.logs)
	return out
}

func (s *Store) addTitleLocked(title string) bool {
	title = strings.TrimSpace(title)
	key := titleKey(title)
	if key == "" {
		return false
	}
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	s.titles = append(s.titles, title)
	return true
}

func titleKey(title string) string {
	if k := similarity.Normalize(title); k != "" {
		return k
	}
	return strings.ToLower(strings.TrimSpace(title))
}
