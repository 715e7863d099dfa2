package ports

import (
	"context"

	"github.com/kiwihelp/visa-assistant/internal/core/domain"
)

// QuestionAnswerer is the inbound contract for one pipeline run per question.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string) (*domain.Answer, error)
}

// Retriever is the hybrid retrieval contract used by the pipeline.
type Retriever interface {
	Retrieve(ctx context.Context, queryText string) ([]domain.RankedResult, error)
}

// CorpusIndexer rebuilds the search index from the crawled corpus.
type CorpusIndexer interface {
	Reindex(ctx context.Context) error
}
