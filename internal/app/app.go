// Package app wires configuration into the running object graph shared by the
// API server and the worker.
package app

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/config"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/generation"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/persistence"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/prompts"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/provider"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/queue"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/repository"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/service"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/storage"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/store"
)

// Options select the parts of the graph a binary needs.
type Options struct {
	// Publish sends generation commands to the queue instead of running them in
	// process. It is ignored when the queue is disabled.
	Publish bool

	// Provider replaces the configured text provider.
	Provider provider.Provider
}

// App is the wired object graph.
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	Collections *repository.CollectionRepository
	Persistence *persistence.FallbackStore
	Projects    *store.ProjectStore
	Niches      *store.NicheStore
	Notices     *service.NoticeFeed
	Saver       *service.Saver
	Engine      *generation.Engine
	Executor    *service.Executor
	Storage     storage.ObjectStorage

	ProjectService *service.ProjectService
	NicheService   *service.NicheService

	local     *service.LocalDispatcher
	publisher *queue.Publisher
	closers   []func() error
}

// New builds the graph and restores the persisted collections. The saver is not
// started; call Run for that.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}
	log := logger.GetDefault().WithField(logger.FieldComponent, "app")

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.DB = db
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	a.Collections = repository.NewCollectionRepository(db)
	a.Notices = service.NewNoticeFeed(cfg.Generation.NoticeCapacity)

	var remote persistence.Collections
	if cfg.Persistence.RemoteURL != "" && !cfg.Persistence.LocalOnly {
		remote = persistence.NewRemoteCollections(&persistence.RemoteConfig{
			BaseURL: cfg.Persistence.RemoteURL,
			Token:   cfg.Persistence.RemoteToken,
			Timeout: cfg.Persistence.Timeout,
		})
		log.Infof("Remote collections at %s", cfg.Persistence.RemoteURL)
	}
	a.Persistence = persistence.NewFallbackStore(remote, persistence.NewLocalCollections(a.Collections), a.Notices.Notify)

	a.Projects = store.NewProjectStore()
	a.Niches = store.NewNicheStore()
	a.Saver = service.NewSaver(a.Persistence)
	if err := service.Restore(ctx, a.Persistence, a.Projects, a.Niches, a.Saver); err != nil {
		a.Close()
		return nil, err
	}

	text := opts.Provider
	var images provider.ImageGenerator
	if text == nil {
		text, images, err = a.providers(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	if cfg.Storage.Enabled {
		a.Storage, err = storage.NewStorage(&cfg.Storage)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init storage: %w", err)
		}
		if b, ok := a.Storage.(interface{ EnsureBucket(context.Context) error }); ok {
			if err := b.EnsureBucket(ctx); err != nil {
				a.Close()
				return nil, fmt.Errorf("ensure bucket: %w", err)
			}
		}
	}

	deps := generation.Deps{
		Provider:  text,
		Images:    images,
		Store:     a.Projects,
		Niches:    a.Niches,
		Cost:      generation.NewCostMeter(prices(cfg.Generation.Costs)),
		Notifier:  a.Notices,
		Throttler: generation.NewImageThrottler(cfg.Generation.ImageInterval),
		Retry: &generation.RetryPolicy{
			MaxRetries:   cfg.Generation.Retry.MaxRetries,
			InitialDelay: cfg.Generation.Retry.InitialDelay,
		},
		Config: generation.Config{
			Bounds: prompts.LengthBounds{
				MinLength: cfg.Generation.Script.MinLength,
				MaxLength: cfg.Generation.Script.MaxLength,
				MinWords:  cfg.Generation.Script.MinWords,
				MaxWords:  cfg.Generation.Script.MaxWords,
			},
			ChunkSize:     cfg.Generation.ChunkSize,
			ContextWindow: cfg.Generation.ContextWindow,
			DefaultModel:  cfg.Provider.DefaultModel,
		},
	}
	if a.Storage != nil {
		deps.Artifacts = a.Storage
	}
	a.Engine = generation.NewEngine(deps)
	a.Executor = service.NewExecutor(a.Engine, a.Projects)

	var dispatcher service.Dispatcher
	if opts.Publish && cfg.Queue.Enabled {
		a.publisher, err = queue.NewPublisher(ctx, QueueConfig(&cfg.Queue))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init queue publisher: %w", err)
		}
		publisher := a.publisher
		a.closers = append(a.closers, func() error {
			publisher.Close()
			return nil
		})
		dispatcher = a.publisher
	} else {
		a.local = service.NewLocalDispatcher(a.Executor)
		dispatcher = a.local
	}

	a.ProjectService = service.NewProjectService(service.ProjectServiceDeps{
		Projects:   a.Projects,
		Niches:     a.Niches,
		Engine:     a.Engine,
		Dispatcher: dispatcher,
		Storage:    a.Storage,
		Notices:    a.Notices,
	})
	a.NicheService = service.NewNicheService(a.Niches, a.Engine.Refine, a.Engine.Analysis)
	return a, nil
}

// Run persists changes in the background until ctx is done. In queue mode it also
// pulls the projects written by workers. The returned channel is closed after the
// final flush.
func (a *App) Run(ctx context.Context) <-chan struct{} {
	go a.Saver.Run(ctx)
	if a.publisher != nil {
		go service.PullEvery(ctx, a.Config.Queue.SyncInterval, a.Persistence, a.Projects, nil)
	}
	return a.Saver.Done()
}

// Wait blocks until in-process generation work has finished.
func (a *App) Wait() {
	if a.local != nil {
		a.local.Wait()
	}
}

// Close releases connections. Errors are logged.
func (a *App) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		logger.GetDefault().WithField(logger.FieldComponent, "app").Warnf("Close: %v", err)
	}
}

// QueueConfig converts the queue section of the configuration.
func QueueConfig(cfg *config.QueueConfig) queue.Config {
	return queue.Config{
		URL:             cfg.URL,
		Stream:          cfg.Stream,
		Subject:         cfg.Subject,
		ConsumerName:    cfg.Consumer,
		Concurrency:     cfg.Concurrency,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
}

func (a *App) providers(ctx context.Context) (provider.Provider, provider.ImageGenerator, error) {
	cfg := a.Config.Provider
	var openai, gemini provider.Provider
	var images provider.ImageGenerator

	if cfg.OpenAI.APIKey != "" {
		openai = provider.NewOpenAIProvider(&provider.OpenAIConfig{
			APIKey:       cfg.OpenAI.APIKey,
			BaseURL:      cfg.OpenAI.BaseURL,
			DefaultModel: cfg.DefaultModel,
			Temperature:  cfg.OpenAI.Temperature,
			Timeout:      cfg.Timeout,
		})
	}
	if cfg.Gemini.APIKey != "" {
		g, err := provider.NewGeminiProvider(ctx, &provider.GeminiConfig{
			APIKey:      cfg.Gemini.APIKey,
			TextModel:   cfg.Gemini.TextModel,
			ImageModel:  cfg.Gemini.ImageModel,
			Temperature: cfg.OpenAI.Temperature,
			Timeout:     cfg.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, g.Close)
		gemini = g
		images = g
	}
	if openai == nil && gemini == nil {
		logger.GetDefault().WithField(logger.FieldComponent, "app").
			Warn("No provider API key configured; generation requests will fail")
	}
	return provider.NewRouter(openai, gemini, cfg.DefaultModel), images, nil
}

func prices(c config.CostConfig) generation.Prices {
	return generation.Prices{
		generation.CostStructureGroup: c.StructureGroup,
		generation.CostRefinement:     c.Refinement,
		generation.CostScriptSection:  c.ScriptSection,
		generation.CostSectionRewrite: c.SectionRewrite,
		generation.CostImagePrompts:   c.ImagePrompts,
		generation.CostImageBatch:     c.ImageBatch,
		generation.CostImage:          c.Image,
		generation.CostPromptRefine:   c.PromptRefine,
		generation.CostScenes:         c.Scenes,
		generation.CostImagePrompt:    c.ImagePrompt,
		generation.CostNicheAnalysis:  c.NicheAnalysis,
		generation.CostTitleAnalysis:  c.TitleAnalysis,
	}
}
