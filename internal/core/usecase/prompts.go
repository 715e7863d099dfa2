package usecase

import "fmt"

func buildRewritePrompt(text string) string {
	return fmt.Sprintf(`Rewrite the following question about New Zealand visas as a short search query. Keep the key terms, drop filler words, expand abbreviations. Return only the rewritten query on a single line.

Question:
%s`, text)
}

func buildRefusalPrompt(text string) string {
	return fmt.Sprintf(`You are an assistant that only answers questions about New Zealand visas and immigration. The user asked something outside that scope. Write a short, polite reply explaining that you can only help with New Zealand visa and immigration questions, and invite them to ask one. Do not answer the original question.

User question:
%s`, text)
}

func buildFilterPrompt(question, passage string) string {
	return fmt.Sprintf(`Does the following passage contain information relevant to answering the question?

Question:
%s

Passage:
%s

Answer with exactly one word: yes or no.`, question, passage)
}
