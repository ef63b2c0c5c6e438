package core

import (
	"strings"
	"time"
)

// Level is a coarse high/medium/low hint reported by the model
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// ParseLevel maps free text onto a Level. Anything unrecognized yields fallback.
func ParseLevel(text string, fallback Level) Level {
	switch Level(strings.ToLower(strings.TrimSpace(text))) {
	case LevelHigh:
		return LevelHigh
	case LevelMedium:
		return LevelMedium
	case LevelLow:
		return LevelLow
	default:
		return fallback
	}
}

// PriorityLabel is the tier a task is classified into
type PriorityLabel string

const (
	PriorityUrgent    PriorityLabel = "Urgent"
	PriorityImportant PriorityLabel = "Important"
	PriorityLater     PriorityLabel = "Later"
)

// RawEmail represents one already-decoded email message
type RawEmail struct {
	// ID and From are filled by mailbox adapters when known. The pipeline
	// only reads Subject and Body.
	ID      string `json:"id,omitempty"`
	From    string `json:"from,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ExtractedFields is the model's answer reduced to a fixed record.
// Every field is always populated, with a default if the model omitted it.
type ExtractedFields struct {
	EventType        string `json:"event_type"`
	Subject          string `json:"subject"`
	DeadlineText     string `json:"deadline"`
	Urgency          Level  `json:"urgency"`
	Importance       Level  `json:"importance"`
	Score            string `json:"score"`
	RegistrationLink string `json:"registration_link"`
	Summary          string `json:"summary"`
}

// Fallback values used when the model fails or omits a field
const (
	DefaultEventType        = "Email"
	DefaultDeadlineText     = "none"
	DefaultScore            = "none"
	DefaultRegistrationLink = "none"
	DefaultSummary          = "Could not extract information."
	DefaultUrgency          = LevelLow
	DefaultImportance       = LevelLow
)

// FallbackFields returns the all-defaults record for an email subject
func FallbackFields(subject string) ExtractedFields {
	return ExtractedFields{
		EventType:        DefaultEventType,
		Subject:          subject,
		DeadlineText:     DefaultDeadlineText,
		Urgency:          DefaultUrgency,
		Importance:       DefaultImportance,
		Score:            DefaultScore,
		RegistrationLink: DefaultRegistrationLink,
		Summary:          DefaultSummary,
	}
}

// Task is the prioritized record produced for one email
type Task struct {
	EventType        string        `json:"eventType"`
	Subject          string        `json:"subject"`
	Deadline         time.Time     `json:"deadline"`
	Urgency          Level         `json:"urgency"`
	Importance       Level         `json:"importance"`
	Score            string        `json:"score"`
	Priority         PriorityLabel `json:"priority"`
	RegistrationLink string        `json:"registrationLink"`
	Summary          string        `json:"summary"`
}

// CacheEntry is a stored extraction result
type CacheEntry struct {
	Key       string
	Fields    ExtractedFields
	CreatedAt time.Time
	ExpiresAt time.Time
}
