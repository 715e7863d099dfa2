package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kiwihelp/visa-assistant/internal/core/domain"
	"github.com/kiwihelp/visa-assistant/internal/core/ports"
)

// ReindexOptions tunes the corpus indexing run.
type ReindexOptions struct {
	// Recreate drops an existing index before indexing. A full reindex is
	// the only way indexed chunks are ever deleted.
	Recreate bool
	// EmbedBatchSize caps how many chunk texts go into one embedding call.
	EmbedBatchSize int
}

// ReindexUseCase builds the search index from the crawled corpus: load,
// chunk, embed, upsert.
type ReindexUseCase struct {
	corpus   ports.CorpusSource
	chunker  ports.Chunker
	embedder ports.Embedder
	index    ports.IndexStore
	opts     ReindexOptions
	logger   *slog.Logger
}

func NewReindexUseCase(
	corpus ports.CorpusSource,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.IndexStore,
	opts ReindexOptions,
	logger *slog.Logger,
) *ReindexUseCase {
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = 16
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReindexUseCase{
		corpus:   corpus,
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		opts:     opts,
		logger:   logger,
	}
}

func (uc *ReindexUseCase) Reindex(ctx context.Context) error {
	docs, err := uc.corpus.Load(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	if len(docs) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "reindex", errors.New("corpus is empty"))
	}

	if err := uc.ensureIndex(ctx); err != nil {
		return err
	}

	totalChunks := 0
	for _, doc := range docs {
		chunks := uc.chunker.Chunk(doc)
		if len(chunks) == 0 {
			uc.logger.Warn("document produced no chunks", "url", doc.URL)
			continue
		}
		if err := uc.indexChunks(ctx, chunks); err != nil {
			return fmt.Errorf("index %s: %w", doc.URL, err)
		}
		totalChunks += len(chunks)
		uc.logger.Info("indexed document", "url", doc.URL, "chunks", len(chunks))
	}

	uc.logger.Info("reindex complete", "documents", len(docs), "chunks", totalChunks)
	return nil
}

// ensureIndex probes the embedding dimension and creates the index when
// absent. The dimension is fixed once at index-creation time.
func (uc *ReindexUseCase) ensureIndex(ctx context.Context) error {
	exists, err := uc.index.IndexExists(ctx)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists && !uc.opts.Recreate {
		return nil
	}
	if exists {
		if err := uc.index.DeleteIndex(ctx); err != nil {
			return fmt.Errorf("delete index: %w", err)
		}
		uc.logger.Info("dropped existing index for full rebuild")
	}

	probe, err := uc.embedder.EmbedQuery(ctx, "embedding dimension probe")
	if err != nil {
		return fmt.Errorf("probe embedding dimension: %w", err)
	}
	if len(probe) == 0 {
		return domain.WrapError(domain.ErrConfiguration, "reindex", errors.New("embedding provider returned an empty vector"))
	}

	if err := uc.index.CreateIndex(ctx, len(probe)); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	uc.logger.Info("created index", "embedding_dim", len(probe))
	return nil
}

func (uc *ReindexUseCase) indexChunks(ctx context.Context, chunks []domain.Chunk) error {
	for start := 0; start < len(chunks); start += uc.opts.EmbedBatchSize {
		end := start + uc.opts.EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			// Header joins the chunk text so page titles pull weight in
			// semantic matching.
			texts[i] = chunk.Header + " " + chunk.Content
		}

		vectors, err := uc.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
		if len(vectors) != len(batch) {
			return domain.WrapError(domain.ErrInvalidInput, "embed chunks",
				fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(batch)))
		}

		for i, chunk := range batch {
			if err := uc.index.Upsert(ctx, domain.IndexedChunk{Chunk: chunk, Vector: vectors[i]}); err != nil {
				return fmt.Errorf("upsert chunk %s: %w", chunk.ID(), err)
			}
		}
	}
	return nil
}
