package factory

import (
	"context"
	"fmt"

	"github.com/mikey/llm-task-extractor/internal/adapters/throttle"
	"github.com/mikey/llm-task-extractor/internal/config"
	"github.com/mikey/llm-task-extractor/internal/core"
	"go.uber.org/zap"
)

// LLMFactory creates the text generator for the configured provider
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTextGenerator creates a generator for llm.provider, throttled to
// extraction.rate_per_minute when that is positive
func (f *LLMFactory) CreateTextGenerator(ctx context.Context) (core.TextGenerator, error) {
	var (
		generator core.TextGenerator
		err       error
	)

	provider := f.cfg.GetLLM().Provider
	switch provider {
	case "bedrock":
		generator, err = NewBedrockFactory(f.cfg, f.logger).CreateTextGenerator(ctx)
	case "gemini":
		generator, err = NewGeminiFactory(f.cfg, f.logger).CreateTextGenerator(ctx)
	case "openai":
		generator, err = NewOpenAIFactory(f.cfg, f.logger).CreateTextGenerator()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
	if err != nil {
		return nil, err
	}

	extraction, err := f.cfg.GetExtraction()
	if err != nil {
		return nil, fmt.Errorf("invalid extraction configuration: %w", err)
	}
	if extraction.RatePerMinute > 0 {
		f.logger.Info("Throttling model calls",
			zap.String("model", generator.Name()),
			zap.Int("rate_per_minute", extraction.RatePerMinute))
	}
	return throttle.New(generator, extraction.RatePerMinute), nil
}
