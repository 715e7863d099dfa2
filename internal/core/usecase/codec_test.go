package usecase

import (
	"strings"
	"testing"
)

func TestExtractAnswer(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "markers with surrounding noise",
			raw:  "Sure, here you go:\n<answer>You need form INZ 1015.</answer>\nHope that helps!",
			want: "You need form INZ 1015.",
		},
		{
			name: "markers only",
			raw:  "<answer>  padded  </answer>",
			want: "padded",
		},
		{
			name: "no markers falls back to trimmed raw",
			raw:  "  plain reply without tags \n",
			want: "plain reply without tags",
		},
		{
			name: "open tag without close tag",
			raw:  "<answer>never closed",
			want: "<answer>never closed",
		},
		{
			name: "empty payload",
			raw:  "<answer></answer>",
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractAnswer(tc.raw); got != tc.want {
				t.Fatalf("extractAnswer(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestBuildAnswerPromptEmbedsContextAndQuestion(t *testing.T) {
	results := []retrievedContext{
		{Header: "Visitor visa", Content: "Stay up to 9 months.", URL: "https://example.govt.nz/visitor"},
		{Header: "Work visa", Content: "Needs a job offer.", URL: "https://example.govt.nz/work"},
	}

	prompt := buildAnswerPrompt("How long can I stay?", results)

	for _, want := range []string{
		"How long can I stay?",
		"**Visitor visa**",
		"Stay up to 9 months.",
		"URL: https://example.govt.nz/visitor",
		"**Work visa**",
		answerOpenTag,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, noContextMarker) {
		t.Error("prompt carries the no-context marker despite having results")
	}
}

func TestBuildAnswerPromptWithoutResultsUsesMarker(t *testing.T) {
	prompt := buildAnswerPrompt("Do I qualify?", nil)
	if !strings.Contains(prompt, noContextMarker) {
		t.Fatal("empty-context prompt must carry the no-context marker")
	}
}

func TestBuildAnswerPromptIsDeterministic(t *testing.T) {
	results := []retrievedContext{{Header: "h", Content: "c", URL: "u"}}
	first := buildAnswerPrompt("q", results)
	for i := 0; i < 5; i++ {
		if buildAnswerPrompt("q", results) != first {
			t.Fatal("prompt rendering is not deterministic")
		}
	}
}
