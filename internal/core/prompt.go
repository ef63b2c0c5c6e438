package core

import (
	"fmt"
	"time"
)

// promptDateLayout is how the reference date is shown to the model
const promptDateLayout = "Monday, 2 January 2006"

const extractionPromptFormat = `You are an assistant that turns emails into tasks.
Today is %s. Resolve relative dates against today.

Read the email below and respond with a JSON object containing exactly these keys:
- event_type: short category of the email (e.g. "Hackathon", "Assignment", "Meeting", "Newsletter")
- subject: a concise subject for the task
- deadline: one of "today", "tomorrow", "day after tomorrow", "within N hours", "none",
  or an absolute date as "DD/MM/YYYY HH:MM", "DD/MM/YYYY", "YYYY-MM-DD", "Month D, YYYY" or "D Mon YYYY"
- urgency: "high", "medium" or "low"
- importance: "high", "medium" or "low"
- score: a score or grade mentioned in the email, or "none"
- registration_link: a registration or action URL from the email, or "none"
- summary: one or two sentences describing what needs to be done

Email:
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`

// BuildExtractionPrompt embeds an email and the reference date into the instruction
func BuildExtractionPrompt(subject, body string, reference time.Time) string {
	return fmt.Sprintf(extractionPromptFormat, reference.Format(promptDateLayout), subject, body)
}
