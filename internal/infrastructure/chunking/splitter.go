package chunking

import (
	"fmt"

	"github.com/kiwihelp/visa-assistant/internal/core/domain"
)

// Splitter slides a fixed-size window over document content, advancing by
// chunkSize-overlap each step. No sentence or paragraph awareness: callers
// that need semantic boundaries must pre-segment the content.
type Splitter struct {
	chunkSize int
	overlap   int
}

func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, domain.WrapError(domain.ErrConfiguration, "chunking",
			fmt.Errorf("chunk size must be positive, got %d", chunkSize))
	}
	if overlap < 0 {
		return nil, domain.WrapError(domain.ErrConfiguration, "chunking",
			fmt.Errorf("overlap must not be negative, got %d", overlap))
	}
	if overlap >= chunkSize {
		return nil, domain.WrapError(domain.ErrConfiguration, "chunking",
			fmt.Errorf("overlap %d must be smaller than chunk size %d", overlap, chunkSize))
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk windows doc.MainContent into zero-indexed chunks. The final chunk
// may be shorter than the window; identical input always produces identical
// output, so reindexing unchanged content never grows the index.
func (s *Splitter) Chunk(doc domain.Document) []domain.Chunk {
	runes := []rune(doc.MainContent)
	if len(runes) == 0 {
		return nil
	}

	step := s.chunkSize - s.overlap
	out := make([]domain.Chunk, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, domain.Chunk{
			SourceURL:  doc.URL,
			Header:     doc.Header,
			Content:    string(runes[start:end]),
			ChunkIndex: len(out),
		})
		if end == len(runes) {
			break
		}
	}
	return out
}
