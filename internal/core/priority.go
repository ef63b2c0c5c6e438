package core

import "time"

// Policy thresholds, in whole hours
const (
	UrgentWithinHours    = 24
	ImportantWithinHours = 72
)

// ClassifyPriority maps a deadline and the model's hints onto a priority tier.
// Checks short-circuit in precedence order: Urgent, Important, Later.
func ClassifyPriority(deadline time.Time, urgency, importance Level, reference time.Time) PriorityLabel {
	hoursLeft := int64(deadline.Sub(reference) / time.Hour)

	switch {
	case hoursLeft <= UrgentWithinHours || urgency == LevelHigh:
		return PriorityUrgent
	case hoursLeft <= ImportantWithinHours || importance == LevelHigh:
		return PriorityImportant
	default:
		return PriorityLater
	}
}
