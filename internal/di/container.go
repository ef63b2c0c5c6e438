package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-task-extractor/internal/adapters/httpserver"
	"github.com/mikey/llm-task-extractor/internal/adapters/session"
	"github.com/mikey/llm-task-extractor/internal/adapters/taskstore"
	"github.com/mikey/llm-task-extractor/internal/config"
	"github.com/mikey/llm-task-extractor/internal/core"
	"github.com/mikey/llm-task-extractor/internal/factory"
	"github.com/mikey/llm-task-extractor/internal/logging"
	"github.com/mikey/llm-task-extractor/internal/metrics"
	"github.com/mikey/llm-task-extractor/internal/ports"
	"github.com/mikey/llm-task-extractor/internal/senderfilter"
	"github.com/mikey/llm-task-extractor/internal/utils"
	"golang.org/x/oauth2"
)

// frontEndParams gathers everything the front ends share
type frontEndParams struct {
	dig.In

	Factory   *factory.FrontEndFactory
	Service   *core.TaskService
	Tasks     core.TaskStore
	Sessions  session.Store
	OAuth     *oauth2.Config
	Mailboxes httpserver.MailboxFactory
	Filter    *senderfilter.Checker
	Metrics   *metrics.Manager
}

// BuildContainer creates and configures the dependency injection container
// for the server. ctx bounds the connections made while providers run.
func BuildContainer(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideFactories(container); err != nil {
		return nil, err
	}
	if err := providePipeline(ctx, container); err != nil {
		return nil, err
	}

	// Register cache
	if err := container.Provide(func(f *factory.CacheFactory) (core.ExtractionCache, error) {
		return f.CreateCache()
	}); err != nil {
		return nil, err
	}

	// Register metrics
	if err := container.Provide(func(f *factory.PipelineFactory) *metrics.Manager {
		return f.CreateMetrics()
	}); err != nil {
		return nil, err
	}

	// Register task store
	if err := container.Provide(func(cfg *config.Config) core.TaskStore {
		return taskstore.NewMemoryStore(cfg.GetInt("tasks.max_per_owner"))
	}); err != nil {
		return nil, err
	}

	// Register session store and OAuth client
	if err := container.Provide(func(f *factory.MailboxFactory) (session.Store, error) {
		return f.CreateSessionStore(ctx)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.MailboxFactory) (*oauth2.Config, error) {
		return f.CreateOAuthConfig()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.MailboxFactory, filter *senderfilter.Checker) httpserver.MailboxFactory {
		return f.GmailMailboxes(filter)
	}); err != nil {
		return nil, err
	}

	// Register front ends
	if err := container.Provide(func(p frontEndParams) ([]ports.FrontEnd, error) {
		return p.Factory.CreateFrontEnds(factory.FrontEndDeps{
			Service:   p.Service,
			Tasks:     p.Tasks,
			Sessions:  p.Sessions,
			OAuth:     p.OAuth,
			Mailboxes: p.Mailboxes,
			Filter:    p.Filter,
			Metrics:   p.Metrics,
		})
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideFactories registers the factories shared by both containers
func provideFactories(container *dig.Container) error {
	for _, constructor := range []any{
		factory.NewLLMFactory,
		factory.NewCacheFactory,
		factory.NewPipelineFactory,
		factory.NewMailboxFactory,
		factory.NewFrontEndFactory,
	} {
		if err := container.Provide(constructor); err != nil {
			return err
		}
	}

	// Register sender filter
	return container.Provide(func(f *factory.MailboxFactory) (*senderfilter.Checker, error) {
		return f.CreateSenderFilter()
	})
}

// providePipeline registers the text model, extractor and task service.
// The service expects a core.ExtractionCache and *metrics.Manager to be provided.
func providePipeline(ctx context.Context, container *dig.Container) error {
	if err := container.Provide(func(f *factory.LLMFactory, logger *zap.Logger) (core.TextGenerator, error) {
		generator, err := f.CreateTextGenerator(ctx)
		if err != nil {
			return nil, err
		}
		logger.Info("Text model ready", zap.String("model", generator.Name()))
		return generator, nil
	}); err != nil {
		return err
	}

	if err := container.Provide(func(f *factory.PipelineFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	if err := container.Provide(func(f *factory.PipelineFactory, g core.TextGenerator, tp *utils.TextProcessor) (*core.Extractor, error) {
		return f.CreateExtractor(g, tp)
	}); err != nil {
		return err
	}

	return container.Provide(func(
		f *factory.PipelineFactory,
		extractor *core.Extractor,
		cache core.ExtractionCache,
		recorder *metrics.Manager,
	) (*core.TaskService, error) {
		return f.CreateTaskService(extractor, cache, recorder)
	})
}
