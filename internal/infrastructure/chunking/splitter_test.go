package chunking

import (
	"strings"
	"testing"

	"github.com/kiwihelp/visa-assistant/internal/core/domain"
)

func TestNewSplitterRejectsBadParameters(t *testing.T) {
	cases := []struct {
		name      string
		chunkSize int
		overlap   int
	}{
		{"zero chunk size", 0, 0},
		{"negative chunk size", -5, 0},
		{"negative overlap", 10, -1},
		{"overlap equals chunk size", 10, 10},
		{"overlap above chunk size", 10, 12},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSplitter(tc.chunkSize, tc.overlap)
			if err == nil {
				t.Fatalf("expected error for size=%d overlap=%d", tc.chunkSize, tc.overlap)
			}
			if !domain.IsKind(err, domain.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestChunkCoversEveryCharacter(t *testing.T) {
	s, err := NewSplitter(5, 2)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}

	content := "abcdefghij"
	chunks := s.Chunk(domain.Document{URL: "u", Header: "h", MainContent: content})

	covered := make([]bool, len(content))
	pos := 0
	for i, chunk := range chunks {
		if chunk.ChunkIndex != i {
			t.Fatalf("chunk %d has index %d", i, chunk.ChunkIndex)
		}
		idx := strings.Index(content[pos:], chunk.Content)
		if idx < 0 {
			// Overlapping windows: search from the beginning instead.
			idx = strings.Index(content, chunk.Content)
			pos = 0
		}
		start := pos + idx
		for j := start; j < start+len(chunk.Content); j++ {
			covered[j] = true
		}
		pos = start
	}
	for i, ok := range covered {
		if !ok {
			t.Fatalf("character %d not covered by any chunk", i)
		}
	}
}

func TestChunkCountMatchesSteppingFormula(t *testing.T) {
	cases := []struct {
		length    int
		chunkSize int
		overlap   int
		want      int
	}{
		{10, 5, 2, 3},
		{9, 5, 2, 3},
		{8, 5, 2, 2},
		{3, 5, 2, 1},
		{1, 5, 2, 1},
		{1000, 1000, 100, 1},
		{1001, 1000, 100, 2},
	}

	for _, tc := range cases {
		s, err := NewSplitter(tc.chunkSize, tc.overlap)
		if err != nil {
			t.Fatalf("NewSplitter(%d,%d) error = %v", tc.chunkSize, tc.overlap, err)
		}
		content := strings.Repeat("x", tc.length)
		got := len(s.Chunk(domain.Document{URL: "u", MainContent: content}))

		step := tc.chunkSize - tc.overlap
		numerator := tc.length - tc.overlap
		if numerator < 1 {
			numerator = 1
		}
		want := (numerator + step - 1) / step
		if want != tc.want {
			t.Fatalf("test case self-check failed for L=%d: formula=%d, expected=%d", tc.length, want, tc.want)
		}
		if got != want {
			t.Fatalf("L=%d size=%d overlap=%d: got %d chunks, want %d", tc.length, tc.chunkSize, tc.overlap, got, want)
		}
	}
}

func TestChunkIsIdempotent(t *testing.T) {
	s, err := NewSplitter(7, 3)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}
	doc := domain.Document{URL: "https://example.org/visa", Header: "Visitor visa", MainContent: "Processing times vary by visa type and season."}

	first := s.Chunk(doc)
	second := s.Chunk(doc)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chunk %d differs between runs: %q vs %q", i, first[i].Content, second[i].Content)
		}
	}
}

func TestChunkEmptyContentProducesNothing(t *testing.T) {
	s, err := NewSplitter(5, 1)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}
	if got := s.Chunk(domain.Document{URL: "u"}); got != nil {
		t.Fatalf("expected nil for empty content, got %d chunks", len(got))
	}
}

func TestChunkIDIsStable(t *testing.T) {
	c := domain.Chunk{SourceURL: "https://example.org/visa", ChunkIndex: 3}
	if c.ID() != "https://example.org/visa#3" {
		t.Fatalf("unexpected chunk id %q", c.ID())
	}
}
