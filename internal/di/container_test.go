package di

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/mikey/llm-task-extractor/internal/core"
	"github.com/mikey/llm-task-extractor/internal/senderfilter"
)

func TestParseFlags(t *testing.T) {
	var out bytes.Buffer
	flags, err := ParseFlags("task-extractor", []string{
		"-provider", "openai",
		"-openai-api-key", "sk-test",
		"-dir", "/tmp/mail",
		"-now", "2026-03-10T14:30:00Z",
	}, &out)
	if err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if flags.Provider != "openai" || flags.InputDir != "/tmp/mail" || flags.Limit != 10 {
		t.Errorf("unexpected flags %+v", flags)
	}

	if _, err := ParseFlags("task-extractor", []string{"-file", "a.eml", "-dir", "mail"}, &out); err == nil {
		t.Error("expected error when both -file and -dir are set")
	}
}

func TestCLIFlags_Reference(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)

	ref, err := (&CLIFlags{Now: "2026-03-10T14:30:00Z"}).Reference(loc)
	if err != nil {
		t.Fatalf("Reference() error = %v", err)
	}
	if ref.Location() != loc || ref.Hour() != 21 {
		t.Errorf("Reference() = %v", ref)
	}

	if _, err := (&CLIFlags{Now: "yesterday"}).Reference(loc); err == nil {
		t.Error("expected error for malformed -now")
	}
}

func TestBuildCLIContainer(t *testing.T) {
	flags, err := ParseFlags("task-extractor", []string{
		"-provider", "openai",
		"-openai-api-key", "sk-test",
		"-timezone", "UTC",
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}

	container, err := BuildCLIContainer(context.Background(), flags)
	if err != nil {
		t.Fatalf("BuildCLIContainer() error = %v", err)
	}

	err = container.Invoke(func(service *core.TaskService, generator core.TextGenerator, filter *senderfilter.Checker) {
		if service == nil || filter == nil {
			t.Error("expected service and filter")
		}
		if generator.Name() != "openai/gpt-4o-mini" {
			t.Errorf("generator = %q", generator.Name())
		}
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
}

func TestBuildCLIContainer_MissingKey(t *testing.T) {
	flags, err := ParseFlags("task-extractor", []string{"-provider", "gemini"}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	container, err := BuildCLIContainer(context.Background(), flags)
	if err != nil {
		t.Fatalf("BuildCLIContainer() error = %v", err)
	}
	if err := container.Invoke(func(*core.TaskService) {}); err == nil {
		t.Error("expected the missing API key to surface on Invoke")
	}
}
