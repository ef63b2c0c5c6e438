package factory

import (
	"fmt"

	"github.com/mikey/llm-task-extractor/internal/config"
	"github.com/mikey/llm-task-extractor/internal/core"
	"github.com/mikey/llm-task-extractor/internal/metrics"
	"github.com/mikey/llm-task-extractor/internal/utils"
	"go.uber.org/zap"
)

// PipelineFactory assembles the extraction pipeline from its parts
type PipelineFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewPipelineFactory creates a new pipeline factory
func NewPipelineFactory(cfg *config.Config, logger *zap.Logger) *PipelineFactory {
	return &PipelineFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTextProcessor creates the prompt text sanitizer
func (f *PipelineFactory) CreateTextProcessor() *utils.TextProcessor {
	return utils.NewTextProcessor(f.logger.Named("text"))
}

// CreateMetrics creates the Prometheus metrics manager, or nil when metrics are disabled
func (f *PipelineFactory) CreateMetrics() *metrics.Manager {
	if !f.cfg.GetBool("metrics.enabled") {
		return nil
	}
	var opts []metrics.Option
	if f.cfg.GetBool("metrics.runtime_collectors") {
		opts = append(opts, metrics.WithRuntimeCollectors())
	}
	return metrics.NewManager(opts...)
}

// CreateExtractor creates the extractor around generator
func (f *PipelineFactory) CreateExtractor(generator core.TextGenerator, tp *utils.TextProcessor) (*core.Extractor, error) {
	extraction, err := f.cfg.GetExtraction()
	if err != nil {
		return nil, fmt.Errorf("invalid extraction configuration: %w", err)
	}
	return core.NewExtractor(generator, tp, f.logger.Named("extractor"), extraction.Timeout, extraction.MaxBodySize), nil
}

// CreateTaskService creates the task service. cache and recorder may be nil.
func (f *PipelineFactory) CreateTaskService(
	extractor *core.Extractor,
	cache core.ExtractionCache,
	recorder *metrics.Manager,
) (*core.TaskService, error) {
	extraction, err := f.cfg.GetExtraction()
	if err != nil {
		return nil, fmt.Errorf("invalid extraction configuration: %w", err)
	}
	cacheCfg, err := f.cfg.GetCache()
	if err != nil {
		return nil, fmt.Errorf("invalid cache configuration: %w", err)
	}

	var rec core.MetricsRecorder
	if recorder != nil {
		rec = recorder
	}

	return core.NewTaskService(
		extractor,
		cache,
		rec,
		f.logger.Named("service"),
		cacheCfg.Enabled,
		cacheCfg.TTL,
		extraction.Concurrency,
	), nil
}
