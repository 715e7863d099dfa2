package usecase

import (
	"fmt"
	"strings"

	"github.com/kiwihelp/visa-assistant/internal/core/domain"
)

// workingLanguage is the canonical language every internal prompt operates
// in, regardless of the user's input language.
const workingLanguage = "english"

const (
	languageLinePrefix    = "Language:"
	translationLinePrefix = "Translation:"
)

func buildDetectTranslatePrompt(text string) string {
	return fmt.Sprintf(`Detect the language of the user message below and translate the message into English.

Reply with exactly two lines and nothing else:
%s <lowercase english name of the detected language>
%s <the message translated into English>

User message:
%s`, languageLinePrefix, translationLinePrefix, text)
}

// parseDetectTranslate enforces the strict two-line contract of the combined
// detection/translation call. A malformed reply aborts the run: silently
// defaulting the language would answer the user in the wrong language.
func parseDetectTranslate(raw string) (language, translation string, err error) {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, languageLinePrefix):
			language = normalizeLanguage(strings.TrimPrefix(line, languageLinePrefix))
		case strings.HasPrefix(line, translationLinePrefix):
			translation = strings.TrimSpace(strings.TrimPrefix(line, translationLinePrefix))
		}
	}
	if language == "" || translation == "" {
		return "", "", domain.WrapError(domain.ErrPipeline, "language detection",
			fmt.Errorf("malformed detection response: %q", truncateForLog(raw, 200)))
	}
	return language, translation, nil
}

// normalizeLanguage maps tags onto canonical lowercase English names, so the
// already-in-working-language check compares a single representation.
func normalizeLanguage(tag string) string {
	normalized := strings.ToLower(strings.TrimSpace(tag))
	normalized = strings.Trim(normalized, ".\"'")
	switch normalized {
	case "en", "eng", "en-us", "en-gb", "en-nz":
		return workingLanguage
	}
	return normalized
}

func buildBackTranslatePrompt(answer, language string) string {
	return fmt.Sprintf(`Translate the following answer into %s. Preserve the markdown formatting and any URLs exactly. Return only the translated text.

%s`, language, answer)
}

func truncateForLog(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
