package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Canonical field keys, after normalizeKey
const (
	keyEventType        = "eventtype"
	keySubject          = "subject"
	keyDeadline         = "deadline"
	keyUrgency          = "urgency"
	keyImportance       = "importance"
	keyScore            = "score"
	keyRegistrationLink = "registrationlink"
	keySummary          = "summary"
)

var knownKeys = map[string]bool{
	keyEventType:        true,
	keySubject:          true,
	keyDeadline:         true,
	keyUrgency:          true,
	keyImportance:       true,
	keyScore:            true,
	keyRegistrationLink: true,
	keySummary:          true,
}

// ParseExtraction turns a model reply into ExtractedFields.
// The reply may be a JSON object or "Label: value" lines in any order.
// Fields that are missing or empty get their individual default; the
// returned count says how many fields the reply actually supplied.
func ParseExtraction(reply, subject string) (ExtractedFields, int) {
	values, ok := parseJSONReply(reply)
	if !ok {
		values = parseLabelledLines(reply)
	}

	fields := FallbackFields(subject)
	found := 0
	set := func(key string, dst *string) {
		if v := values[key]; v != "" {
			*dst = v
			found++
		}
	}

	set(keyEventType, &fields.EventType)
	set(keySubject, &fields.Subject)
	set(keyDeadline, &fields.DeadlineText)
	set(keyScore, &fields.Score)
	set(keyRegistrationLink, &fields.RegistrationLink)
	set(keySummary, &fields.Summary)

	if v := values[keyUrgency]; v != "" {
		fields.Urgency = ParseLevel(v, DefaultUrgency)
		found++
	}
	if v := values[keyImportance]; v != "" {
		fields.Importance = ParseLevel(v, DefaultImportance)
		found++
	}

	return fields, found
}

// parseJSONReply extracts the outermost {...} of the reply and flattens it to strings
func parseJSONReply(reply string) (map[string]string, bool) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return nil, false
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		key := normalizeKey(k)
		if !knownKeys[key] || v == nil {
			continue
		}
		var s string
		switch tv := v.(type) {
		case string:
			s = tv
		case float64:
			s = strconv.FormatFloat(tv, 'f', -1, 64)
		default:
			s = fmt.Sprint(tv)
		}
		values[key] = cleanValue(s)
	}
	return values, len(values) > 0
}

// parseLabelledLines reads "Label: value" lines. The first occurrence of a label wins.
func parseLabelledLines(reply string) map[string]string {
	values := make(map[string]string)
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(strings.ReplaceAll(line, "**", ""))
		line = strings.TrimLeft(line, "-*• ")
		if line == "" {
			continue
		}

		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key := normalizeKey(label)
		if !knownKeys[key] {
			continue
		}
		if _, seen := values[key]; seen {
			continue
		}
		values[key] = cleanValue(value)
	}
	return values
}

// normalizeKey folds "Event Type", "event_type" and "eventType" to the same key
func normalizeKey(label string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(label)))
}

// cleanValue trims whitespace and one pair of surrounding quotes
func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		v = strings.TrimSpace(v[1 : len(v)-1])
	}
	return v
}
