package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kiwihelp/visa-assistant/internal/core/domain"
)

func TestIsAffirmative(t *testing.T) {
	cases := []struct {
		reply string
		want  bool
	}{
		{"yes", true},
		{"Yes", true},
		{"YES.", true},
		{" yes\n", true},
		{"yes, it is about visas", true},
		{"yes. definitely", true},
		{"no", false},
		{"No.", false},
		{"maybe", false},
		{"", false},
		{"yesterday", false},
		{"the answer is yes", false},
		{"it depends", false},
	}

	for _, tc := range cases {
		if got := isAffirmative(tc.reply); got != tc.want {
			t.Errorf("isAffirmative(%q) = %v, want %v", tc.reply, got, tc.want)
		}
	}
}

func TestIsInDomainReportsUsage(t *testing.T) {
	llm := &fakeModelProvider{respond: func(string) (domain.Completion, error) {
		return domain.Completion{Text: "yes", Usage: domain.TokenUsage{PromptTokens: 42, CompletionTokens: 1}}, nil
	}}
	gate := NewRelevanceGate(llm)

	inDomain, usage, err := gate.IsInDomain(context.Background(), "how do I extend a visitor visa")
	if err != nil {
		t.Fatalf("IsInDomain: %v", err)
	}
	if !inDomain {
		t.Fatal("expected in-domain classification")
	}
	if usage.PromptTokens != 42 || usage.CompletionTokens != 1 {
		t.Fatalf("usage = %+v", usage)
	}
}

func TestIsInDomainPropagatesProviderError(t *testing.T) {
	llm := &fakeModelProvider{respond: func(string) (domain.Completion, error) {
		return domain.Completion{}, errors.New("model unavailable")
	}}
	gate := NewRelevanceGate(llm)

	if _, _, err := gate.IsInDomain(context.Background(), "anything"); err == nil {
		t.Fatal("expected error from failed classification")
	}
}
