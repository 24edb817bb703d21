// Package app wires configuration, collaborators and the HTTP surface into a
// running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/batterynews/internal/config"
	"github.com/deusflow/batterynews/internal/discovery"
	"github.com/deusflow/batterynews/internal/gemini"
	"github.com/deusflow/batterynews/internal/imagegen"
	"github.com/deusflow/batterynews/internal/logger"
	"github.com/deusflow/batterynews/internal/metrics"
	"github.com/deusflow/batterynews/internal/news"
	"github.com/deusflow/batterynews/internal/ratelimit"
	"github.com/deusflow/batterynews/internal/rss"
	"github.com/deusflow/batterynews/internal/scheduler"
	"github.com/deusflow/batterynews/internal/scraper"
	"github.com/deusflow/batterynews/internal/server"
	"github.com/deusflow/batterynews/internal/state"
	"github.com/deusflow/batterynews/internal/storage"
	"github.com/deusflow/batterynews/internal/telegram"
)

const shutdownTimeout = 30 * time.Second

// App owns every long-lived component of the service.
type App struct {
	cfg     *config.Config
	log     *slog.Logger
	store   *state.Store
	metrics *metrics.Metrics

	pipeline  *discovery.Pipeline
	scheduler *scheduler.Scheduler
	server    *server.Server

	closers []func() error
}

// New builds the application from cfg. The returned App must be closed.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store := state.New(cfg.ArticlesCap, cfg.LogsCap)
	log := logger.Init(logger.Options{
		Level: cfg.LogLevel,
		Debug: cfg.Debug,
		File:  cfg.LogFile,
		Sink:  store,
	})

	a := &App{
		cfg:     cfg,
		log:     log,
		store:   store,
		metrics: metrics.New(),
	}

	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.cfg

	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:      cfg.GeminiAPIKey,
		Model:       cfg.DiscoveryModel,
		ImageModel:  cfg.ImageModel,
		AspectRatio: cfg.ImageAspectRatio,
		Logger:      a.log.With("component", "gemini"),
	})
	if err != nil {
		return err
	}

	var discoverer discovery.Discoverer = client
	if cfg.FallbackModel != "" {
		legacy, err := gemini.NewLegacyClient(ctx, cfg.GeminiAPIKey, cfg.FallbackModel)
		if err != nil {
			a.log.Warn("fallback model disabled", "model", cfg.FallbackModel, "error", err)
		} else {
			a.closers = append(a.closers, func() error { legacy.Close(); return nil })
			discoverer = &gemini.Fallback{Primary: client, Secondary: legacy, Logger: a.log}
		}
	}

	illustrators := []imagegen.Named{{Name: "gemini", Illustrator: client}}
	if cfg.OpenAIAPIKey != "" {
		illustrators = append(illustrators, imagegen.Named{
			Name:        "openai",
			Illustrator: imagegen.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIImageModel),
		})
	}

	tg := telegram.NewClient(
		telegram.WithSendInterval(cfg.TelegramSendInterval),
		telegram.WithLogger(a.log.With("component", "telegram")),
	)
	publisher := telegram.NewPublisher(tg, a.log.With("component", "publisher"))
	publisher.CaptionLimit = cfg.CaptionLimit
	publisher.CaptionMargin = cfg.CaptionMargin
	publisher.TextLimit = cfg.TextLimit

	images := imagegen.NewChain(a.log.With("component", "imagegen"), illustrators...)
	a.log.Info("image providers configured", "count", images.Len())

	deps := discovery.Deps{
		Discoverer:  discoverer,
		Illustrator: images,
		Publisher:   publisher,
		Store:       a.store,
		Metrics:     a.metrics,
		Quota: ratelimit.NewQuota(map[ratelimit.Kind]int{
			ratelimit.KindDiscovery: cfg.MaxGeminiRequests,
			ratelimit.KindImage:     cfg.MaxImageRequests,
		}),
		Logger: a.log,
	}

	if cfg.FeedsConfigPath != "" {
		feeds, err := rss.LoadFeeds(cfg.FeedsConfigPath)
		if err != nil {
			a.log.Warn("feed headlines disabled", "path", cfg.FeedsConfigPath, "error", err)
		} else if len(feeds) > 0 {
			deps.Headlines = rss.NewReader(feeds, cfg.FeedMaxAge, a.log.With("component", "rss"))
		}
	}

	if cfg.ResolveSources {
		deps.Resolver = scraper.NewResolver(a.log.With("component", "scraper"))
	}

	history, err := a.openHistory(ctx)
	if err != nil {
		return err
	}
	if history != nil {
		deps.History = history
	}

	a.pipeline, err = discovery.New(discovery.Config{
		Topic:                 cfg.Topic,
		Language:              cfg.Language,
		Cooldown:              cfg.DiscoveryCooldown,
		HistoryContext:        cfg.HistoryContext,
		RequireVerifiedSource: cfg.RequireVerifiedSource,
		RequireImage:          cfg.RequireImage,
		LinkLabel:             cfg.SourceLinkLabel,
		Destination:           telegram.Destination{Token: cfg.TelegramToken, ChatID: cfg.TelegramChatID},
	}, deps)
	if err != nil {
		return err
	}

	a.scheduler, err = scheduler.New(a.runCycle, scheduler.Options{
		Spec:       cfg.Schedule,
		Location:   cfg.Location(),
		RunOnStart: cfg.RunOnStart,
		Logger:     a.log.With("component", "scheduler"),
	})
	if err != nil {
		return err
	}

	a.server = server.New(cfg.Addr(), server.Deps{
		Store:   a.store,
		Metrics: a.metrics,
		Trigger: a.runCycle,
		LastRun: a.pipeline.LastRun,
		NextRun: a.scheduler.Next,
		Logger:  a.log,
	})
	return nil
}

// openHistory connects the durable history, if any, and seeds the in-memory
// store from it. Postgres wins over the JSON file when both are configured.
func (a *App) openHistory(ctx context.Context) (storage.HistoryStore, error) {
	var (
		history storage.HistoryStore
		err     error
	)
	switch {
	case a.cfg.DatabaseURL != "":
		history, err = storage.NewPostgresHistory(ctx, a.cfg.DatabaseURL, a.log.With("component", "storage"))
		if err != nil {
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
	case a.cfg.HistoryFilePath != "":
		history = storage.NewFileHistory(a.cfg.HistoryFilePath)
	default:
		return nil, nil
	}
	a.closers = append(a.closers, history.Close)

	items, err := history.Load(ctx)
	if err != nil {
		a.log.Warn("could not load published history", "error", err)
		return history, nil
	}
	added := a.store.MergeTitles(storage.Titles(items))
	a.log.Info("published history loaded", "titles", added)
	return history, nil
}

func (a *App) runCycle(ctx context.Context, trigger news.Trigger) {
	a.pipeline.Run(ctx, trigger)
}

// RunOnce runs a single cycle, ignoring the schedule.
func (a *App) RunOnce(ctx context.Context) discovery.Report {
	return a.pipeline.Run(ctx, news.TriggerManual)
}

// Serve starts the scheduler and the HTTP server and blocks until ctx is
// canceled, SIGINT/SIGTERM arrives or the server fails.
func (a *App) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	a.scheduler.Start(gctx)

	g.Go(a.server.Start)
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(
			a.server.Shutdown(shutdownCtx),
			a.scheduler.Stop(shutdownCtx),
		)
	})

	a.log.Info("service started",
		"addr", a.cfg.Addr(),
		"schedule", a.cfg.Schedule,
		"topic", a.cfg.Topic,
		"history", a.store.HistorySize())
	return g.Wait()
}

// Close releases external resources. It is safe to call more than once.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
