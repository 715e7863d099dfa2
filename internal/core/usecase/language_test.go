package usecase

import (
	"errors"
	"testing"

	"github.com/kiwihelp/visa-assistant/internal/core/domain"
)

func TestParseDetectTranslate(t *testing.T) {
	language, translation, err := parseDetectTranslate("Language: spanish\nTranslation: How do I get a work visa?")
	if err != nil {
		t.Fatalf("parseDetectTranslate: %v", err)
	}
	if language != "spanish" {
		t.Fatalf("language = %q", language)
	}
	if translation != "How do I get a work visa?" {
		t.Fatalf("translation = %q", translation)
	}
}

func TestParseDetectTranslateToleratesExtraLinesAndPadding(t *testing.T) {
	raw := "Here is the result:\n  Language: French  \n\n  Translation:  Bonjour translated.  \nDone."
	language, translation, err := parseDetectTranslate(raw)
	if err != nil {
		t.Fatalf("parseDetectTranslate: %v", err)
	}
	if language != "french" || translation != "Bonjour translated." {
		t.Fatalf("got (%q, %q)", language, translation)
	}
}

func TestParseDetectTranslateRejectsMalformedReplies(t *testing.T) {
	cases := []string{
		"",
		"Language: spanish",
		"Translation: only the translation",
		"the model rambled instead of following the format",
	}
	for _, raw := range cases {
		if _, _, err := parseDetectTranslate(raw); !errors.Is(err, domain.ErrPipeline) {
			t.Errorf("parseDetectTranslate(%q) err = %v, want ErrPipeline", raw, err)
		}
	}
}

func TestNormalizeLanguage(t *testing.T) {
	cases := map[string]string{
		"English":   "english",
		"  en ":     "english",
		"EN-NZ":     "english",
		"eng":       "english",
		"en-us":     "english",
		"en-gb":     "english",
		"Spanish.":  "spanish",
		"\"french\"": "french",
		"mandarin":  "mandarin",
	}
	for in, want := range cases {
		if got := normalizeLanguage(in); got != want {
			t.Errorf("normalizeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncateForLog(t *testing.T) {
	if got := truncateForLog("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := truncateForLog("0123456789abcdef", 10); got != "0123456789..." {
		t.Fatalf("got %q", got)
	}
}
