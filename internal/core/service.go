package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TaskService is the core service that turns emails into prioritized tasks
type TaskService struct {
	extractor    *Extractor
	cache        ExtractionCache
	metrics      MetricsRecorder
	logger       *zap.Logger
	cacheEnabled bool
	cacheTTL     time.Duration
	concurrency  int
}

// NewTaskService creates a new task service. cache and metrics may be nil;
// a concurrency below 1 processes batches sequentially.
func NewTaskService(
	extractor *Extractor,
	cache ExtractionCache,
	metrics MetricsRecorder,
	logger *zap.Logger,
	cacheEnabled bool,
	cacheTTL time.Duration,
	concurrency int,
) *TaskService {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &TaskService{
		extractor:    extractor,
		cache:        cache,
		metrics:      metrics,
		logger:       logger,
		cacheEnabled: cacheEnabled && cache != nil,
		cacheTTL:     cacheTTL,
		concurrency:  concurrency,
	}
}

// Assemble runs one email through extraction, deadline normalization and
// classification. It always returns a Task.
func (s *TaskService) Assemble(ctx context.Context, email RawEmail, reference time.Time) Task {
	fields := s.extractFields(ctx, email, reference)

	deadline, recognized := resolveDeadline(fields.DeadlineText, reference)
	if !recognized {
		s.logger.Debug("Unrecognized deadline, using default window",
			zap.String("deadline_text", fields.DeadlineText),
			zap.String("subject", email.Subject))
	}

	priority := ClassifyPriority(deadline, fields.Urgency, fields.Importance, reference)
	s.metrics.IncTask(priority)

	return Task{
		EventType:        fields.EventType,
		Subject:          fields.Subject,
		Deadline:         deadline,
		Urgency:          fields.Urgency,
		Importance:       fields.Importance,
		Score:            fields.Score,
		Priority:         priority,
		RegistrationLink: fields.RegistrationLink,
		Summary:          fields.Summary,
	}
}

// AssembleBatch assembles every email against the same reference instant.
// The result has one Task per email, in input order.
func (s *TaskService) AssembleBatch(ctx context.Context, emails []RawEmail, reference time.Time) []Task {
	tasks := make([]Task, len(emails))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, email := range emails {
		i, email := i, email
		g.Go(func() error {
			tasks[i] = s.Assemble(ctx, email, reference)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("Assembled task batch",
		zap.Int("emails", len(emails)),
		zap.Int("concurrency", s.concurrency),
		zap.Time("reference", reference))

	return tasks
}

// extractFields consults the cache before calling the model
func (s *TaskService) extractFields(ctx context.Context, email RawEmail, reference time.Time) ExtractedFields {
	start := time.Now()
	key := CacheKey(email, reference)

	if s.cacheEnabled {
		if entry, err := s.cache.Get(ctx, key); err == nil {
			s.logger.Debug("Cache hit for email", zap.String("subject", email.Subject))
			s.metrics.ObserveExtraction(OutcomeCached, time.Since(start))
			return entry.Fields
		}
	}

	fields, outcome := s.extractor.extract(ctx, email, reference)
	s.metrics.ObserveExtraction(outcome, time.Since(start))

	// Fallback records are never cached so a later run can retry the model
	if s.cacheEnabled && outcome == OutcomeSuccess {
		now := time.Now()
		entry := &CacheEntry{
			Key:       key,
			Fields:    fields,
			CreatedAt: now,
			ExpiresAt: now.Add(s.cacheTTL),
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.logger.Error("Failed to update cache", zap.Error(err))
		}
	}

	return fields
}

// CacheKey identifies an extraction by email content and reference date.
// Relative deadlines depend on the date, so the same email on another day
// is a different key.
func CacheKey(email RawEmail, reference time.Time) string {
	h := sha256.New()
	h.Write([]byte(reference.Format("2006-01-02")))
	h.Write([]byte{0})
	h.Write([]byte(email.Subject))
	h.Write([]byte{0})
	h.Write([]byte(email.Body))
	return hex.EncodeToString(h.Sum(nil))
}
