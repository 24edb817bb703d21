// Package discovery runs one discover, dedupe and publish cycle.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/batterynews/internal/gemini"
	"github.com/deusflow/batterynews/internal/metrics"
	"github.com/deusflow/batterynews/internal/news"
	"github.com/deusflow/batterynews/internal/ratelimit"
	"github.com/deusflow/batterynews/internal/rss"
	"github.com/deusflow/batterynews/internal/scraper"
	"github.com/deusflow/batterynews/internal/state"
	"github.com/deusflow/batterynews/internal/telegram"
)

const (
	DefaultCooldown       = 3 * time.Minute
	DefaultHistoryContext = 50
)

type Discoverer interface {
	Discover(ctx context.Context, req news.DiscoveryRequest) (news.DiscoveryResult, error)
}

type Illustrator interface {
	Illustrate(ctx context.Context, prompt string) ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, dest telegram.Destination, caption string, image []byte) telegram.Result
}

type HeadlineSource interface {
	Headlines(ctx context.Context) ([]rss.Headline, error)
}

type SourceResolver interface {
	Resolve(ctx context.Context, link string) (scraper.Page, error)
}

type HistoryRecorder interface {
	Record(ctx context.Context, title, link string) error
}

type Config struct {
	Topic          string
	Language       string
	Cooldown       time.Duration
	HistoryContext int
	// RequireVerifiedSource rejects candidates without a grounding or feed URL.
	RequireVerifiedSource bool
	// RequireImage skips candidates whose illustration failed.
	RequireImage bool
	LinkLabel    string
	Destination  telegram.Destination
}

// Deps are the collaborators of a Pipeline. Discoverer, Publisher and Store are
// required; the rest are optional.
type Deps struct {
	Discoverer  Discoverer
	Illustrator Illustrator
	Publisher   Publisher
	Headlines   HeadlineSource
	Resolver    SourceResolver
	History     HistoryRecorder
	Store       *state.Store
	Metrics     *metrics.Metrics
	Quota       *ratelimit.Quota
	Logger      *slog.Logger
}

// Report summarizes one Run.
type Report struct {
	Skipped    bool
	Candidates int
	Duplicates int
	Unsourced  int
	Failed     int
	Published  int
}

type Pipeline struct {
	cfg  Config
	deps Deps
	log  *slog.Logger

	now   func() time.Time
	newID func() string

	mu      sync.Mutex
	lastRun time.Time
}

func New(cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Discoverer == nil || deps.Publisher == nil || deps.Store == nil {
		return nil, errors.New("discovery: discoverer, publisher and store are required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}
	if cfg.HistoryContext <= 0 {
		cfg.HistoryContext = DefaultHistoryContext
	}
	if cfg.LinkLabel == "" {
		cfg.LinkLabel = "Source"
	}

	return &Pipeline{
		cfg:   cfg,
		deps:  deps,
		log:   deps.Logger.With("component", "discovery"),
		now:   time.Now,
		newID: uuid.NewString,
	}, nil
}

// LastRun is the start time of the last cycle that passed the cooldown.
func (p *Pipeline) LastRun() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRun
}

// tryStart is the cooldown check-and-set. The timestamp is taken before any
// fallible work so that a failing cycle still holds the debounce.
func (p *Pipeline) tryStart() (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if !p.lastRun.IsZero() && now.Sub(p.lastRun) < p.cfg.Cooldown {
		return p.lastRun, false
	}
	p.lastRun = now
	return now, true
}

// Run executes one cycle. Calls during the cooldown are dropped, not queued.
// Nothing in here is fatal: every failure is logged and the cycle returns.
func (p *Pipeline) Run(ctx context.Context, trigger news.Trigger) (report Report) {
	started, ok := p.tryStart()
	if !ok {
		wait := p.cfg.Cooldown - p.now().Sub(started)
		p.log.Info("cycle skipped: cooldown active", "trigger", trigger, "retry_in", wait.Round(time.Second))
		p.deps.Metrics.IncrementCyclesSkipped()
		return Report{Skipped: true}
	}

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("cycle aborted by panic", "panic", r, "stack", string(debug.Stack()))
			p.deps.Metrics.SetError(fmt.Sprint(r))
		}
	}()

	p.deps.Metrics.IncrementCyclesStarted()
	p.log.Info("discovery cycle started", "trigger", trigger)

	candidates, sources, headlines, err := p.discover(ctx)
	if err != nil {
		p.deps.Metrics.RecordError(err.Error())
		return report
	}
	report.Candidates = len(candidates)
	if len(candidates) == 0 {
		p.log.Info("no new stories found")
		p.finish(started)
		return report
	}
	p.deps.Metrics.AddCandidates(len(candidates))

	for _, c := range candidates {
		switch p.processItem(ctx, c, sources, headlines, len(candidates)) {
		case outcomePublished:
			report.Published++
		case outcomeDuplicate:
			report.Duplicates++
		case outcomeUnsourced:
			report.Unsourced++
		default:
			report.Failed++
		}
	}

	p.finish(started)
	p.log.Info("discovery cycle finished",
		"candidates", report.Candidates,
		"published", report.Published,
		"duplicates", report.Duplicates,
		"unsourced", report.Unsourced,
		"failed", report.Failed)
	return report
}

func (p *Pipeline) finish(started time.Time) {
	p.deps.Metrics.RecordProcessingTime(p.now().Sub(started))
	p.deps.Metrics.SetLastRun()
}

// discover asks the collaborator and parses its answer. A returned error has
// already been logged.
func (p *Pipeline) discover(ctx context.Context) ([]news.Candidate, []news.GroundingSource, []rss.Headline, error) {
	if p.deps.Quota != nil {
		if err := p.deps.Quota.Use(ratelimit.KindDiscovery); err != nil {
			p.deps.Metrics.IncrementRateLimited()
			p.log.Warn("discovery skipped: daily AI quota exhausted, raise MAX_GEMINI_REQUESTS or wait for reset", "error", err)
			return nil, nil, nil, err
		}
	}

	var headlines []rss.Headline
	if p.deps.Headlines != nil {
		hs, err := p.deps.Headlines.Headlines(ctx)
		if err != nil {
			p.log.Warn("feed headlines unavailable", "error", err)
		}
		headlines = hs
	}

	req := news.DiscoveryRequest{
		Topic:     p.cfg.Topic,
		Language:  p.cfg.Language,
		Exclude:   p.deps.Store.RecentTitles(p.cfg.HistoryContext),
		Headlines: rss.Titles(headlines),
	}

	res, err := p.deps.Discoverer.Discover(ctx, req)
	if err != nil {
		if gemini.IsRateLimited(err) {
			p.deps.Metrics.IncrementRateLimited()
			p.log.Warn("discovery rejected by AI rate limit; not retrying this cycle, check the API plan quota", "error", err)
		} else {
			p.log.Error("discovery call failed", "error", err)
		}
		return nil, nil, nil, err
	}

	candidates, dropped, err := news.ParseCandidates(res.Text)
	if err != nil {
		p.log.Error("discovery response unparseable", "model", res.Model, "error", err)
		return nil, nil, nil, err
	}
	if dropped > 0 {
		p.log.Warn("dropped invalid candidates", "count", dropped)
	}
	p.log.Info("discovery returned candidates", "model", res.Model, "count", len(candidates), "sources", len(res.Sources))
	return candidates, res.Sources, headlines, nil
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeDuplicate
	outcomeUnsourced
	outcomePublished
)

// processItem handles one candidate in isolation; a panic here only loses
// this candidate.
func (p *Pipeline) processItem(ctx context.Context, c news.Candidate, sources []news.GroundingSource, headlines []rss.Headline, total int) (result outcome) {
	title := strings.TrimSpace(c.Title)
	log := p.log.With("title", title)

	defer func() {
		if r := recover(); r != nil {
			log.Error("candidate aborted by panic", "panic", r)
			result = outcomeFailed
		}
	}()

	if p.deps.Store.IsDuplicate(title) {
		p.deps.Metrics.IncrementDuplicatesFiltered()
		log.Info("duplicate skipped")
		return outcomeDuplicate
	}

	link, verified := p.resolveSource(ctx, c, sources, headlines, total)
	if link == "" && p.cfg.RequireVerifiedSource {
		p.deps.Metrics.IncrementUnsourced()
		log.Warn("skipped: no verified source")
		return outcomeUnsourced
	}

	article := news.Article{
		ID:             p.newID(),
		Title:          title,
		Summary:        strings.TrimSpace(c.Summary),
		Body:           strings.TrimSpace(c.Body),
		VisualPrompt:   strings.TrimSpace(c.VisualPrompt),
		SourceURL:      link,
		SourceVerified: verified,
		Status:         news.StatusDraft,
		CreatedAt:      p.now(),
	}

	if !p.attachImage(ctx, log, &article) && p.cfg.RequireImage {
		log.Warn("skipped: image required but unavailable")
		return outcomeFailed
	}

	caption := BuildCaption(article, p.cfg.LinkLabel)
	res := p.deps.Publisher.Publish(ctx, p.cfg.Destination, caption, article.ImageData)
	if !res.OK {
		p.deps.Metrics.IncrementPublishFailures()
		log.Error("publish failed, story left for a later cycle", "error", res.Description)
		return outcomeFailed
	}

	article.Status = news.StatusPublished
	article.PublishedAt = p.now()
	p.deps.Store.CommitPublished(article)
	if p.deps.History != nil {
		if err := p.deps.History.Record(ctx, article.Title, article.SourceURL); err != nil {
			log.Warn("durable history write failed", "error", err)
		}
	}

	p.deps.Metrics.IncrementPostsPublished()
	log.Info("published", "source", article.SourceURL, "verified", article.SourceVerified, "image", len(article.ImageData) > 0)
	return outcomePublished
}

// attachImage reports whether the article ended up with an image.
func (p *Pipeline) attachImage(ctx context.Context, log *slog.Logger, a *news.Article) bool {
	if a.VisualPrompt == "" || p.deps.Illustrator == nil {
		return false
	}
	if p.deps.Quota != nil {
		if err := p.deps.Quota.Use(ratelimit.KindImage); err != nil {
			p.deps.Metrics.IncrementRateLimited()
			log.Warn("image skipped: daily image quota exhausted", "error", err)
			return false
		}
	}

	img, err := p.deps.Illustrator.Illustrate(ctx, a.VisualPrompt)
	if err != nil || len(img) == 0 {
		p.deps.Metrics.IncrementImageFailures()
		if gemini.IsRateLimited(err) {
			p.deps.Metrics.IncrementRateLimited()
		}
		log.Warn("image generation failed, continuing without image", "error", err)
		return false
	}

	a.AttachImage(img)
	p.deps.Metrics.IncrementImagesGenerated()
	return true
}
