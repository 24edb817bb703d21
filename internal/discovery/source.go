package discovery

import (
	"context"
	"net/url"
	"strings"

	"github.com/deusflow/batterynews/internal/format"
	"github.com/deusflow/batterynews/internal/news"
	"github.com/deusflow/batterynews/internal/rss"
	"github.com/deusflow/batterynews/internal/similarity"
)

// minSegmentKey keeps tiny segments like "2025" from matching every candidate.
const minSegmentKey = 12

// resolveSource picks the link shown under a post. Grounding sources come
// first, then feed headlines; both count as verified. A URL the model wrote
// itself is used only in lax mode and only if it is reachable.
func (p *Pipeline) resolveSource(ctx context.Context, c news.Candidate, sources []news.GroundingSource, headlines []rss.Headline, total int) (string, bool) {
	if s, ok := matchGrounding(c, sources, total); ok {
		return p.canonical(ctx, s.URI), true
	}
	if h, ok := matchHeadline(c.Title, headlines); ok {
		return p.canonical(ctx, h.Link), true
	}

	if p.cfg.RequireVerifiedSource || c.SourceURL == "" || p.deps.Resolver == nil {
		return "", false
	}
	page, err := p.deps.Resolver.Resolve(ctx, c.SourceURL)
	if err != nil {
		p.log.Debug("model source unreachable", "url", c.SourceURL, "error", err)
		return "", false
	}
	return page.URL, false
}

// canonical unwraps redirect links; the original link is kept when the page
// cannot be fetched.
func (p *Pipeline) canonical(ctx context.Context, link string) string {
	if p.deps.Resolver == nil {
		return link
	}
	page, err := p.deps.Resolver.Resolve(ctx, link)
	if err != nil || page.URL == "" {
		return link
	}
	return page.URL
}

func matchGrounding(c news.Candidate, sources []news.GroundingSource, total int) (news.GroundingSource, bool) {
	if len(sources) == 0 {
		return news.GroundingSource{}, false
	}

	text := similarity.Normalize(c.Title + " " + c.Summary + " " + c.Body)
	for _, s := range sources {
		for _, seg := range s.Segments {
			key := similarity.Normalize(seg)
			if len(key) >= minSegmentKey && strings.Contains(text, key) {
				return s, true
			}
		}
	}

	if host := hostOf(c.SourceURL); host != "" {
		for _, s := range sources {
			if hostOf(s.URI) == host || strings.EqualFold(strings.TrimPrefix(s.Title, "www."), host) {
				return s, true
			}
		}
	}

	// With a single candidate every source backs it.
	if total == 1 {
		return sources[0], true
	}
	return news.GroundingSource{}, false
}

// matchHeadline skips the containment shortcut of IsSimilar: a short title
// like "QuantumScape" is contained in every headline about the company.
func matchHeadline(title string, headlines []rss.Headline) (rss.Headline, bool) {
	for _, h := range headlines {
		if similarity.Dice(title, h.Title) > similarity.Threshold {
			return h, true
		}
	}
	return rss.Headline{}, false
}

func hostOf(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// BuildCaption assembles the post: bold title, formatted body and source link.
func BuildCaption(a news.Article, linkLabel string) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(format.Escape(a.Title))
	b.WriteString("</b>")

	if body := format.TelegramHTML(format.SanitizeAIText(a.Body)); body != "" {
		b.WriteString("\n\n")
		b.WriteString(body)
	}

	if a.SourceURL != "" {
		b.WriteString("\n\n🔗 <a href=\"")
		b.WriteString(format.Escape(a.SourceURL))
		b.WriteString("\">")
		b.WriteString(format.Escape(linkLabel))
		b.WriteString("</a>")
	}
	return b.String()
}
