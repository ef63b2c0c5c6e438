package core

import (
	"context"
	"time"
)

// TextGenerator defines the interface for interacting with generative text models
type TextGenerator interface {
	// Generate sends a prompt to the model and returns its raw text reply
	Generate(ctx context.Context, prompt string) (string, error)

	// Name identifies the model behind the generator, for logs
	Name() string
}

// Admitter is implemented by generators that pace their calls. Admit blocks
// until a call may start and returns a context whose Generate calls are let
// through without queueing again.
type Admitter interface {
	Admit(ctx context.Context) (context.Context, error)
}

// Mailbox hands back recent messages already decoded to plain text
type Mailbox interface {
	ListRecent(ctx context.Context, limit int) ([]RawEmail, error)
}

// ExtractionCache defines the interface for caching extraction results
type ExtractionCache interface {
	// Get retrieves a live cache entry by key
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// TaskStore keeps the latest assembled tasks per owner (a session id or an intake name)
type TaskStore interface {
	Replace(owner string, tasks []Task)
	Append(owner string, task Task)
	List(owner string) []Task
}

// MetricsRecorder receives pipeline observations
type MetricsRecorder interface {
	ObserveExtraction(outcome string, d time.Duration)
	IncTask(priority PriorityLabel)
}

// Extraction outcomes reported to MetricsRecorder
const (
	OutcomeSuccess  = "success"
	OutcomeCached   = "cached"
	OutcomeFallback = "fallback"
	OutcomeTimeout  = "timeout"
	// OutcomeThrottled means the call never started because no rate slot was granted
	OutcomeThrottled = "throttled"
)

type nopRecorder struct{}

func (nopRecorder) ObserveExtraction(string, time.Duration) {}
func (nopRecorder) IncTask(PriorityLabel)                   {}

// SMTPIntakeOwner is the TaskStore owner for tasks received over SMTP
const SMTPIntakeOwner = "smtp"
