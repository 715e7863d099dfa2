package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kiwihelp/visa-assistant/internal/core/domain"
	"github.com/kiwihelp/visa-assistant/internal/core/ports"
)

const (
	defaultTopK       = 10
	defaultCandidates = 20
	defaultRRFK       = 60
)

// RetrievalOptions tunes the hybrid retrieval engine.
type RetrievalOptions struct {
	// TopK is the maximum number of results returned per query.
	TopK int
	// Candidates is how many hits each modality contributes before fusion.
	Candidates int
	// RRFK dampens the influence of low-ranked hits without zeroing them.
	RRFK int
	// OnDegraded, when set, is called with the failed modality ("keyword"
	// or "vector") whenever retrieval ranks on a single list.
	OnDegraded func(modality string)
}

func (o RetrievalOptions) normalize() RetrievalOptions {
	if o.TopK <= 0 {
		o.TopK = defaultTopK
	}
	if o.Candidates <= 0 {
		o.Candidates = defaultCandidates
	}
	if o.RRFK <= 0 {
		o.RRFK = defaultRRFK
	}
	return o
}

// RetrievalEngine runs keyword and vector search against the index, fuses
// the two ranked lists with RRF, and resolves the surviving ids to chunk
// payloads. Ranking and payload fetch are separate passes, so a gap between
// the ranking index and the document store degrades a single result instead
// of the whole request.
type RetrievalEngine struct {
	index    ports.IndexStore
	embedder ports.Embedder
	opts     RetrievalOptions
	logger   *slog.Logger
}

func NewRetrievalEngine(index ports.IndexStore, embedder ports.Embedder, opts RetrievalOptions, logger *slog.Logger) *RetrievalEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrievalEngine{
		index:    index,
		embedder: embedder,
		opts:     opts.normalize(),
		logger:   logger,
	}
}

func (e *RetrievalEngine) Retrieve(ctx context.Context, queryText string) ([]domain.RankedResult, error) {
	keywordHits, keywordErr := e.index.SearchKeyword(ctx, queryText, e.opts.Candidates)
	vectorHits, vectorErr := e.vectorSearch(ctx, queryText)

	if keywordErr != nil && vectorErr != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "hybrid retrieval",
			fmt.Errorf("keyword: %w; vector: %w", keywordErr, vectorErr))
	}
	if keywordErr != nil {
		e.logger.Warn("keyword search failed, ranking on vector hits only", "error", keywordErr)
		keywordHits = nil
		e.degraded("keyword")
	}
	if vectorErr != nil {
		e.logger.Warn("vector search failed, ranking on keyword hits only", "error", vectorErr)
		vectorHits = nil
		e.degraded("vector")
	}

	fused := fuseRanksRRF(hitIDs(keywordHits), hitIDs(vectorHits), e.opts.RRFK)
	fused = trimCandidates(fused, e.opts.TopK)

	out := make([]domain.RankedResult, 0, len(fused))
	for _, candidate := range fused {
		chunk, err := e.index.FetchByID(ctx, candidate.chunkID)
		if err != nil {
			// Ranking index and document store may be momentarily out of
			// sync; drop the id rather than failing the request.
			e.logger.Warn("dropping unresolvable chunk id", "chunk_id", candidate.chunkID, "error", err)
			continue
		}
		out = append(out, domain.RankedResult{
			ChunkID:    candidate.chunkID,
			FusedScore: candidate.score,
			Source:     *chunk,
		})
	}
	return out, nil
}

func (e *RetrievalEngine) degraded(modality string) {
	if e.opts.OnDegraded != nil {
		e.opts.OnDegraded(modality)
	}
}

func (e *RetrievalEngine) vectorSearch(ctx context.Context, queryText string) ([]domain.SearchHit, error) {
	vector, err := e.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := e.index.SearchVector(ctx, vector, e.opts.Candidates)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return hits, nil
}

func hitIDs(hits []domain.SearchHit) []string {
	if len(hits) == 0 {
		return nil
	}
	out := make([]string, len(hits))
	for i, hit := range hits {
		out[i] = hit.ChunkID
	}
	return out
}
