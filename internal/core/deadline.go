package core

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultDeadlineWindow is how far out an unrecognized deadline lands
const DefaultDeadlineWindow = 7 * 24 * time.Hour

// maxWithinHours keeps reference + N hours inside time.Duration range
const maxWithinHours = 1_000_000

var withinHoursPattern = regexp.MustCompile(`^within\s+(\d+)\s+hours?\b`)

// deadlineLayout is an absolute date format the model may answer with
type deadlineLayout struct {
	layout  string
	hasTime bool
}

// Tried in order, first success wins
var deadlineLayouts = []deadlineLayout{
	{layout: "2/1/2006 15:04", hasTime: true},
	{layout: "2/1/2006"},
	{layout: "2006-1-2"},
	{layout: "January 2, 2006"},
	{layout: "2 Jan 2006"},
}

// NormalizeDeadline converts a free-text deadline into an absolute instant.
// It never fails: text it does not understand resolves to reference + 7 days.
func NormalizeDeadline(text string, reference time.Time) time.Time {
	t, _ := resolveDeadline(text, reference)
	return t
}

// resolveDeadline is NormalizeDeadline that also reports whether the text was recognized
func resolveDeadline(text string, reference time.Time) (time.Time, bool) {
	phrase := strings.ToLower(strings.TrimSpace(text))

	switch phrase {
	case "today":
		return endOfDay(reference), true
	case "tomorrow":
		// Same time of day as the reference, unlike "today"
		return reference.AddDate(0, 0, 1), true
	case "day after tomorrow":
		return reference.AddDate(0, 0, 2), true
	case "none":
		return reference.Add(DefaultDeadlineWindow), true
	}

	if m := withinHoursPattern.FindStringSubmatch(phrase); m != nil {
		if hours, err := strconv.Atoi(m[1]); err == nil && hours <= maxWithinHours {
			return reference.Add(time.Duration(hours) * time.Hour), true
		}
	}

	for _, l := range deadlineLayouts {
		parsed, err := time.ParseInLocation(l.layout, strings.TrimSpace(text), reference.Location())
		if err != nil {
			continue
		}
		if !l.hasTime {
			parsed = endOfDay(parsed)
		}
		return parsed, true
	}

	return reference.Add(DefaultDeadlineWindow), false
}

// endOfDay returns 23:59:59 on t's calendar date in t's location
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
