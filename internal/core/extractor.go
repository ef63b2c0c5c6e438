package core

import (
	"context"
	"errors"
	"time"

	"github.com/mikey/llm-task-extractor/internal/utils"
	"go.uber.org/zap"
)

// replyPreviewSize bounds how much of an unusable reply is logged
const replyPreviewSize = 200

// Extractor asks the text model for task metadata about one email.
// It never returns an error: any failure yields the fallback record.
type Extractor struct {
	generator     TextGenerator
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
	timeout       time.Duration
	maxBodySize   int
}

// NewExtractor creates a new extractor. A zero timeout disables the per-call deadline.
func NewExtractor(
	generator TextGenerator,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
	timeout time.Duration,
	maxBodySize int,
) *Extractor {
	if generator == nil {
		panic("core: NewExtractor requires a TextGenerator")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if textProcessor == nil {
		textProcessor = utils.NewTextProcessor(logger)
	}
	return &Extractor{
		generator:     generator,
		textProcessor: textProcessor,
		logger:        logger,
		timeout:       timeout,
		maxBodySize:   maxBodySize,
	}
}

// Extract returns the fields the model reports for email, resolving
// relative dates in the prompt against reference.
func (e *Extractor) Extract(ctx context.Context, email RawEmail, reference time.Time) ExtractedFields {
	fields, _ := e.extract(ctx, email, reference)
	return fields
}

// extract is Extract that also reports the outcome for metrics
func (e *Extractor) extract(ctx context.Context, email RawEmail, reference time.Time) (fields ExtractedFields, outcome string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Text generator panicked",
				zap.String("model", e.generator.Name()),
				zap.Any("panic", r))
			fields, outcome = FallbackFields(email.Subject), OutcomeFallback
		}
	}()

	// Queueing for a rate slot happens before the call deadline starts
	if admitter, ok := e.generator.(Admitter); ok {
		admitted, err := admitter.Admit(ctx)
		if err != nil {
			e.logger.Warn("No rate slot for model call, using fallback",
				zap.String("model", e.generator.Name()),
				zap.String("subject", email.Subject),
				zap.Error(err))
			return FallbackFields(email.Subject), OutcomeThrottled
		}
		ctx = admitted
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	body := e.textProcessor.ProcessText(email.Body, e.maxBodySize)
	subject := e.textProcessor.SanitizeUTF8(email.Subject)
	prompt := BuildExtractionPrompt(subject, body, reference)

	reply, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		outcome = OutcomeFallback
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = OutcomeTimeout
		}
		e.logger.Warn("Extraction failed, using fallback",
			zap.String("model", e.generator.Name()),
			zap.String("subject", email.Subject),
			zap.String("outcome", outcome),
			zap.Error(err))
		return FallbackFields(email.Subject), outcome
	}

	fields, found := ParseExtraction(reply, email.Subject)
	if found == 0 {
		e.logger.Warn("Model reply had no recognizable fields, using fallback",
			zap.String("model", e.generator.Name()),
			zap.String("subject", email.Subject),
			zap.String("reply_preview", e.textProcessor.ProcessText(reply, replyPreviewSize)))
		return fields, OutcomeFallback
	}
	if found < len(knownKeys) {
		e.logger.Debug("Model reply was missing fields, defaults substituted",
			zap.String("subject", email.Subject),
			zap.Int("found", found),
			zap.Int("expected", len(knownKeys)))
	}

	return fields, OutcomeSuccess
}
