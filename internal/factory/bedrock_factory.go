package factory

import (
	"context"
	"fmt"

	"github.com/mikey/llm-task-extractor/internal/adapters/bedrock"
	"github.com/mikey/llm-task-extractor/internal/config"
	"github.com/mikey/llm-task-extractor/internal/core"
	"go.uber.org/zap"
)

// BedrockFactory creates Bedrock text generators
type BedrockFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewBedrockFactory creates a new Bedrock factory
func NewBedrockFactory(cfg *config.Config, logger *zap.Logger) *BedrockFactory {
	return &BedrockFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTextGenerator creates a Bedrock client using the default AWS credential chain
func (f *BedrockFactory) CreateTextGenerator(ctx context.Context) (core.TextGenerator, error) {
	bedrockCfg := f.cfg.GetBedrock()
	if bedrockCfg.ModelID == "" {
		return nil, fmt.Errorf("bedrock model id is required")
	}

	client, err := bedrock.NewFromRegion(
		ctx,
		bedrockCfg.Region,
		bedrockCfg.ModelID,
		bedrockCfg.MaxTokens,
		bedrockCfg.Temperature,
		bedrockCfg.TopP,
		f.logger.Named("bedrock"),
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}
