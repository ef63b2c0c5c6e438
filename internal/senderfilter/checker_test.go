package senderfilter_test

import (
	"testing"

	"github.com/mikey/llm-task-extractor/internal/senderfilter"
	"go.uber.org/zap"
)

func TestChecker_IsIgnored(t *testing.T) {
	checker := senderfilter.NewChecker([]string{" News.Example.com ", "@promo.test", ""}, zap.NewNop())

	tests := []struct {
		from string
		want bool
	}{
		{"digest@news.example.com", true},
		{"Weekly Digest <digest@NEWS.example.com>", true},
		{"deals@mail.promo.test", true},
		{"alice@example.com", false},
		{"bob@notpromo.test", false},
		{"not-an-address", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := checker.IsIgnored(tt.from); got != tt.want {
			t.Errorf("IsIgnored(%q) = %v, want %v", tt.from, got, tt.want)
		}
	}
}

func TestChecker_Empty(t *testing.T) {
	var nilChecker *senderfilter.Checker
	if nilChecker.IsIgnored("a@b.com") {
		t.Error("nil checker should ignore nothing")
	}
	if senderfilter.NewChecker(nil, nil).IsIgnored("a@b.com") {
		t.Error("empty checker should ignore nothing")
	}
}
