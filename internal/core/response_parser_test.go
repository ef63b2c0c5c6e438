package core_test

import (
	"testing"

	"github.com/mikey/llm-task-extractor/internal/core"
)

func TestParseExtraction(t *testing.T) {
	const subject = "Original subject"

	tests := []struct {
		name      string
		reply     string
		want      core.ExtractedFields
		wantFound int
	}{
		{
			name: "JSON object",
			reply: `{"event_type":"Hackathon","subject":"Register for HackFest","deadline":"within 48 hours",
				"urgency":"high","importance":"medium","score":"none",
				"registration_link":"https://hackfest.example/register","summary":"Sign up before seats run out."}`,
			want: core.ExtractedFields{
				EventType:        "Hackathon",
				Subject:          "Register for HackFest",
				DeadlineText:     "within 48 hours",
				Urgency:          core.LevelHigh,
				Importance:       core.LevelMedium,
				Score:            "none",
				RegistrationLink: "https://hackfest.example/register",
				Summary:          "Sign up before seats run out.",
			},
			wantFound: 8,
		},
		{
			name:  "JSON wrapped in a code fence with a numeric score",
			reply: "Sure!\n```json\n{\"eventType\": \"Exam\", \"score\": 87.5, \"deadline\": \"2026-04-05\"}\n```",
			want: core.ExtractedFields{
				EventType:        "Exam",
				Subject:          subject,
				DeadlineText:     "2026-04-05",
				Urgency:          core.LevelLow,
				Importance:       core.LevelLow,
				Score:            "87.5",
				RegistrationLink: "none",
				Summary:          "Could not extract information.",
			},
			wantFound: 3,
		},
		{
			name: "labelled lines in the legacy order",
			reply: "Event Type: Assignment\nSubject: Submit lab 3\nDeadline: tomorrow\nUrgency: High\n" +
				"Importance: high\nScore: none\nRegistration Link: none\nSummary: Upload the lab report.",
			want: core.ExtractedFields{
				EventType:        "Assignment",
				Subject:          "Submit lab 3",
				DeadlineText:     "tomorrow",
				Urgency:          core.LevelHigh,
				Importance:       core.LevelHigh,
				Score:            "none",
				RegistrationLink: "none",
				Summary:          "Upload the lab report.",
			},
			wantFound: 8,
		},
		{
			name:  "labelled lines reordered with markdown and a URL value",
			reply: "**Summary:** Pay the fee.\n\n- Registration Link: https://pay.example/fee?x=1\n- Event Type: Payment",
			want: core.ExtractedFields{
				EventType:        "Payment",
				Subject:          subject,
				DeadlineText:     "none",
				Urgency:          core.LevelLow,
				Importance:       core.LevelLow,
				Score:            "none",
				RegistrationLink: "https://pay.example/fee?x=1",
				Summary:          "Pay the fee.",
			},
			wantFound: 3,
		},
		{
			name:  "three line reply keeps defaults for the rest",
			reply: "Event Type: Meeting\nSubject: Standup\nDeadline: today",
			want: core.ExtractedFields{
				EventType:        "Meeting",
				Subject:          "Standup",
				DeadlineText:     "today",
				Urgency:          core.LevelLow,
				Importance:       core.LevelLow,
				Score:            "none",
				RegistrationLink: "none",
				Summary:          "Could not extract information.",
			},
			wantFound: 3,
		},
		{
			name:  "empty values and unknown levels use defaults",
			reply: "Event Type:\nUrgency: extreme\nImportance:  \nSummary: \"Read it.\"",
			want: core.ExtractedFields{
				EventType:        "Email",
				Subject:          subject,
				DeadlineText:     "none",
				Urgency:          core.LevelLow,
				Importance:       core.LevelLow,
				Score:            "none",
				RegistrationLink: "none",
				Summary:          "Read it.",
			},
			wantFound: 2,
		},
		{
			name:      "garbage",
			reply:     "I cannot help with that {not json}",
			want:      core.FallbackFields(subject),
			wantFound: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := core.ParseExtraction(tt.reply, subject)
			if got != tt.want {
				t.Errorf("ParseExtraction() got = %+v, want %+v", got, tt.want)
			}
			if found != tt.wantFound {
				t.Errorf("ParseExtraction() found = %d, want %d", found, tt.wantFound)
			}
		})
	}
}
