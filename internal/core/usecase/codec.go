package usecase

import (
	"fmt"
	"strings"
)

const (
	answerOpenTag  = "<answer>"
	answerCloseTag = "</answer>"

	// noContextMarker is rendered instead of an empty context section so the
	// model states it has no sources rather than inventing them.
	noContextMarker = "No context available. State clearly that you do not have enough information to answer."
)

// buildAnswerPrompt renders the grounded answer prompt from the translated
// question and the retrieved context. Purely deterministic template
// substitution.
func buildAnswerPrompt(question string, results []retrievedContext) string {
	return strings.TrimSpace(fmt.Sprintf(`You are an AI assistant specializing in answering questions about New Zealand visas. Your knowledge comes from official New Zealand immigration information. You will be provided with context from relevant articles and a specific question to answer.

First, review the following context:

<context>
%s
</context>

Process this context carefully. Each item in the context contains a URL, a header, and main content. Use this information to inform your answers, ensuring you provide accurate and up-to-date information about New Zealand visas.

Now, answer the following question:

<question>
%s
</question>

To answer the question:
1. Analyze the question and identify the key points related to New Zealand visas.
2. Search through the provided context for relevant information.
3. Formulate a clear, concise answer based on the official information.
4. If the question cannot be fully answered with the given context, state this clearly and provide the most relevant information available.

Write your answer using short markdown syntax, as it will be displayed in a chat window. Use **bold** for emphasis and *italics* for titles or important terms.

Always include at least one relevant URL from the context as a reference. Format the URL reference at the end of your answer like this:
[Source](URL)

If multiple sources are used, include them as separate reference links.

Provide your answer within %s tags.`, formatContext(results), question, answerOpenTag))
}

// retrievedContext is the codec's view of one retrieval result.
type retrievedContext struct {
	Header  string
	Content string
	URL     string
}

func formatContext(results []retrievedContext) string {
	if len(results) == 0 {
		return noContextMarker
	}
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "- **%s**\n  %s\n  URL: %s\n\n", r.Header, r.Content, r.URL)
	}
	return strings.TrimSpace(b.String())
}

// extractAnswer returns the payload between the answer markers. A response
// without markers is still surfaced to the user rather than discarded.
func extractAnswer(raw string) string {
	start := strings.Index(raw, answerOpenTag)
	if start >= 0 {
		rest := raw[start+len(answerOpenTag):]
		if end := strings.Index(rest, answerCloseTag); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	return strings.TrimSpace(raw)
}
