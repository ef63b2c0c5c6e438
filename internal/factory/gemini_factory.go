package factory

import (
	"context"

	"github.com/mikey/llm-task-extractor/internal/adapters/gemini"
	"github.com/mikey/llm-task-extractor/internal/config"
	"github.com/mikey/llm-task-extractor/internal/core"
	"go.uber.org/zap"
)

// GeminiFactory creates Gemini text generators
type GeminiFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewGeminiFactory creates a new Gemini factory
func NewGeminiFactory(cfg *config.Config, logger *zap.Logger) *GeminiFactory {
	return &GeminiFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTextGenerator creates a Gemini client
func (f *GeminiFactory) CreateTextGenerator(ctx context.Context) (core.TextGenerator, error) {
	geminiCfg := f.cfg.GetGemini()
	client, err := gemini.NewGeminiClient(
		ctx,
		geminiCfg.APIKey,
		geminiCfg.ModelName,
		geminiCfg.MaxTokens,
		geminiCfg.Temperature,
		geminiCfg.TopP,
		f.logger.Named("gemini"),
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}
