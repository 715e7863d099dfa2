package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kiwihelp/visa-assistant/internal/core/domain"
	"github.com/kiwihelp/visa-assistant/internal/core/ports"
)

// RelevanceGate decides whether a translated query is about the served
// domain. Any reply that is not unambiguously affirmative is treated as
// out-of-domain, so a flaky classifier can never pull irrelevant queries
// through retrieval.
type RelevanceGate struct {
	llm ports.ModelProvider
}

func NewRelevanceGate(llm ports.ModelProvider) *RelevanceGate {
	return &RelevanceGate{llm: llm}
}

// IsInDomain classifies the text and returns the billed token usage so the
// caller can add it to the run tally.
func (g *RelevanceGate) IsInDomain(ctx context.Context, text string) (bool, domain.TokenUsage, error) {
	completion, err := g.llm.Complete(ctx, buildGatePrompt(text))
	if err != nil {
		return false, domain.TokenUsage{}, fmt.Errorf("domain classification: %w", err)
	}
	return isAffirmative(completion.Text), completion.Usage, nil
}

func buildGatePrompt(text string) string {
	return fmt.Sprintf(`You are a classifier. Decide whether the following question is about New Zealand visas, immigration to New Zealand, or travel/work/study entry requirements for New Zealand.

Question:
%s

Answer with exactly one word: yes or no.`, text)
}

// isAffirmative accepts only replies starting with "yes" (fail closed).
func isAffirmative(reply string) bool {
	normalized := strings.ToLower(strings.TrimSpace(reply))
	normalized = strings.Trim(normalized, ".!,\"' ")
	return normalized == "yes" || strings.HasPrefix(normalized, "yes ") || strings.HasPrefix(normalized, "yes,") || strings.HasPrefix(normalized, "yes.")
}
