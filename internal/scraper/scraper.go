// Package scraper resolves source links to the canonical article page.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/batterynews/internal/cache"
	"github.com/deusflow/batterynews/internal/retry"
)

// Page is what Resolve learned about a link.
type Page struct {
	URL   string
	Title string
}

// HTTPError is a non-2xx answer from the source site.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string { return fmt.Sprintf("HTTP error: %d", e.StatusCode) }

// Resolver follows redirects (grounding links are redirect wrappers) and reads
// the canonical URL from the landing page.
type Resolver struct {
	client *http.Client
	cache  *cache.Cache[Page]
	retry  retry.RetryConfig
	logger *slog.Logger
}

func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		client: &http.Client{Timeout: 15 * time.Second},
		cache:  cache.New[Page](6 * time.Hour),
		retry: retry.RetryConfig{
			MaxAttempts: 2,
			Delay:       time.Second,
			Retryable:   isTemporary,
		},
		logger: logger,
	}
}

// Resolve returns the canonical page for link. An error means the link is not
// reachable and must not be presented as a source.
func (r *Resolver) Resolve(ctx context.Context, link string) (Page, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Page{}, fmt.Errorf("not an http link: %q", link)
	}

	if p, ok := r.cache.Get(u.String()); ok {
		return p, nil
	}

	var page Page
	err = retry.WithRetry(ctx, r.retry, func() error {
		var ferr error
		page, ferr = r.fetch(ctx, u.String())
		return ferr
	})
	if err != nil {
		return Page{}, err
	}

	r.cache.Set(u.String(), page)
	if page.URL != u.String() {
		r.logger.Debug("source resolved", "from", u.String(), "to", page.URL)
	}
	return page, nil
}

func (r *Resolver) fetch(ctx context.Context, link string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; batterynews/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Page{}, &HTTPError{StatusCode: resp.StatusCode}
	}

	final := resp.Request.URL
	page := Page{URL: final.String()}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "" && mediaType != "text/html" && mediaType != "application/xhtml+xml" {
		return page, nil
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return page, nil
	}

	if canonical := canonicalURL(doc, final); canonical != "" {
		page.URL = canonical
	}
	page.Title = extractTitle(doc)
	return page, nil
}

func canonicalURL(doc *goquery.Document, base *url.URL) string {
	candidates := []string{
		doc.Find(`link[rel="canonical"]`).First().AttrOr("href", ""),
		doc.Find(`meta[property="og:url"]`).First().AttrOr("content", ""),
	}
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		ref, err := url.Parse(c)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme == "http" || abs.Scheme == "https" {
			return abs.String()
		}
	}
	return ""
}

func extractTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if og = strings.TrimSpace(og); og != "" {
			return og
		}
	}

	// Try different selectors for title
	selectors := []string{
		"h1",
		"title",
		".article-title",
		".headline",
		".entry-title",
	}

	for _, selector := range selectors {
		title := doc.Find(selector).First().Text()
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	return ""
}

func isTemporary(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}
