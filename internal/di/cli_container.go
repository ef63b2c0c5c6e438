package di

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-task-extractor/internal/config"
	"github.com/mikey/llm-task-extractor/internal/core"
	"github.com/mikey/llm-task-extractor/internal/logging"
	"github.com/mikey/llm-task-extractor/internal/metrics"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// LLM provider flags
	Provider    string
	MaxTokens   int
	Temperature float64
	TopP        float64
	MaxBodySize int
	Timeout     time.Duration

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Gemini flags
	GeminiAPIKey    string
	GeminiModelName string

	// OpenAI flags
	OpenAIAPIKey    string
	OpenAIModelName string
	OpenAIBaseURL   string

	// Input flags
	InputFile   string
	InputDir    string
	Limit       int
	Concurrency int
	Now         string
	Timezone    string

	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses args into a CLIFlags struct
func ParseFlags(name string, args []string, output io.Writer) (*CLIFlags, error) {
	flags := &CLIFlags{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)

	// LLM provider flags
	fs.StringVar(&flags.Provider, "provider", "gemini", "LLM provider (bedrock, gemini, openai)")
	fs.IntVar(&flags.MaxTokens, "max-tokens", 1000, "Maximum tokens for LLM response")
	fs.Float64Var(&flags.Temperature, "temperature", 0.1, "Temperature for LLM generation")
	fs.Float64Var(&flags.TopP, "top-p", 0.9, "Top-p for LLM generation")
	fs.IntVar(&flags.MaxBodySize, "max-body-size", 4096, "Maximum email body size to send to LLM")
	fs.DurationVar(&flags.Timeout, "timeout", 30*time.Second, "Timeout for one model call")

	// Bedrock flags
	fs.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	fs.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	fs.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	fs.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-1.5-flash", "Gemini model name")

	// OpenAI flags
	fs.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	fs.StringVar(&flags.OpenAIModelName, "openai-model", "gpt-4o-mini", "OpenAI model name")
	fs.StringVar(&flags.OpenAIBaseURL, "openai-base-url", "", "Base URL of an OpenAI compatible API")

	// Input flags
	fs.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if neither -file nor -dir is given)")
	fs.StringVar(&flags.InputDir, "dir", "", "Directory of .eml files to process")
	fs.IntVar(&flags.Limit, "limit", 10, "Maximum number of messages read from -dir")
	fs.IntVar(&flags.Concurrency, "concurrency", 1, "Number of emails extracted in parallel")
	fs.StringVar(&flags.Now, "now", "", "Reference instant in RFC 3339 (defaults to the current time)")
	fs.StringVar(&flags.Timezone, "timezone", "Local", "Time zone the reference instant is taken in")

	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if flags.InputFile != "" && flags.InputDir != "" {
		return nil, fmt.Errorf("-file and -dir are mutually exclusive")
	}
	return flags, nil
}

// Reference returns the reference instant selected by -now and -timezone
func (f *CLIFlags) Reference(loc *time.Location) (time.Time, error) {
	if f.Now == "" {
		return time.Now().In(loc), nil
	}
	t, err := time.Parse(time.RFC3339, f.Now)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid -now value: %w", err)
	}
	return t.In(loc), nil
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(ctx context.Context, flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.Load(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	if err := provideFactories(container); err != nil {
		return nil, err
	}
	if err := providePipeline(ctx, container); err != nil {
		return nil, err
	}

	// One-shot runs neither cache nor export metrics
	if err := container.Provide(func() core.ExtractionCache { return nil }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() *metrics.Manager { return nil }); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Set LLM provider
	v.Set("llm.provider", flags.Provider)

	// Set provider-specific configuration
	switch flags.Provider {
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
		v.Set("bedrock.max_tokens", flags.MaxTokens)
		v.Set("bedrock.temperature", flags.Temperature)
		v.Set("bedrock.top_p", flags.TopP)
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
		v.Set("gemini.model_name", flags.GeminiModelName)
		v.Set("gemini.max_tokens", flags.MaxTokens)
		v.Set("gemini.temperature", flags.Temperature)
		v.Set("gemini.top_p", flags.TopP)
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
		v.Set("openai.base_url", flags.OpenAIBaseURL)
		v.Set("openai.model_name", flags.OpenAIModelName)
		v.Set("openai.max_tokens", flags.MaxTokens)
		v.Set("openai.temperature", flags.Temperature)
		v.Set("openai.top_p", flags.TopP)
	}

	v.Set("extraction.max_body_size", flags.MaxBodySize)
	v.Set("extraction.timeout", flags.Timeout.String())
	v.Set("extraction.concurrency", flags.Concurrency)
	v.Set("extraction.rate_per_minute", 0)
	v.Set("pipeline.timezone", flags.Timezone)
	v.Set("cache.enabled", false)
	v.Set("metrics.enabled", false)

	return config.NewFromViper(v)
}
