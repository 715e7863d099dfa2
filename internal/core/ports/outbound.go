package ports

import (
	"context"

	"github.com/kiwihelp/visa-assistant/internal/core/domain"
)

// IndexStore is the ranking index and chunk payload store. Search calls
// return (id, score) pairs only; payload resolution is a separate lookup.
type IndexStore interface {
	SearchKeyword(ctx context.Context, text string, limit int) ([]domain.SearchHit, error)
	SearchVector(ctx context.Context, vector []float32, limit int) ([]domain.SearchHit, error)
	FetchByID(ctx context.Context, id string) (*domain.Chunk, error)
	IndexExists(ctx context.Context) (bool, error)
	CreateIndex(ctx context.Context, dims int) error
	DeleteIndex(ctx context.Context) error
	Upsert(ctx context.Context, chunk domain.IndexedChunk) error
}

// Embedder builds dense vectors for chunks and query text. The dimension is
// fixed for the lifetime of an index.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ModelProvider is the single contract every pipeline model call routes
// through.
type ModelProvider interface {
	Complete(ctx context.Context, prompt string) (domain.Completion, error)
}

// Chunker splits a document into overlapping fixed-size windows.
type Chunker interface {
	Chunk(doc domain.Document) []domain.Chunk
}

// CorpusSource loads the crawled corpus for indexing.
type CorpusSource interface {
	Load(ctx context.Context) ([]domain.Document, error)
}

// DialogStore persists dialogs and feedback. The core never reads them back.
type DialogStore interface {
	SaveDialog(ctx context.Context, rec domain.DialogRecord) (string, error)
	SaveFeedback(ctx context.Context, fb domain.Feedback) error
}

// FeedbackQueue relays feedback events from the transport to the
// persistence worker.
type FeedbackQueue interface {
	PublishFeedback(ctx context.Context, fb domain.Feedback) error
	SubscribeFeedback(ctx context.Context, handler func(context.Context, domain.Feedback) error) error
}
