package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kiwihelp/visa-assistant/internal/core/domain"
)

// fakeModelProvider routes each prompt through respond. Prompts observed
// during the test are recorded in order.
type fakeModelProvider struct {
	respond func(prompt string) (domain.Completion, error)
	prompts []string
}

func (f *fakeModelProvider) Complete(_ context.Context, prompt string) (domain.Completion, error) {
	f.prompts = append(f.prompts, prompt)
	if f.respond == nil {
		return domain.Completion{}, errors.New("no responder configured")
	}
	return f.respond(prompt)
}

// scriptedReply matches prompts by substring and returns the paired reply
// with a fixed token usage, failing loudly on an unexpected prompt.
func scriptedReply(script map[string]string) func(string) (domain.Completion, error) {
	return func(prompt string) (domain.Completion, error) {
		for marker, reply := range script {
			if strings.Contains(prompt, marker) {
				return domain.Completion{
					Text:  reply,
					Usage: domain.TokenUsage{PromptTokens: 10, CompletionTokens: 5},
				}, nil
			}
		}
		return domain.Completion{}, fmt.Errorf("unscripted prompt: %.80s", prompt)
	}
}

type fakeRetriever struct {
	results []domain.RankedResult
	err     error
	calls   int
}

func (f *fakeRetriever) Retrieve(context.Context, string) ([]domain.RankedResult, error) {
	f.calls++
	return f.results, f.err
}

// fakeIndexStore serves canned hits and resolves payloads from the chunks
// map. Upserts accumulate so indexing tests can inspect them.
type fakeIndexStore struct {
	keywordHits []domain.SearchHit
	keywordErr  error
	vectorHits  []domain.SearchHit
	vectorErr   error
	chunks      map[string]domain.Chunk

	exists    bool
	existsErr error
	created   int
	createdAt int
	deleted   int
	upserted  []domain.IndexedChunk
}

func (f *fakeIndexStore) SearchKeyword(context.Context, string, int) ([]domain.SearchHit, error) {
	return f.keywordHits, f.keywordErr
}

func (f *fakeIndexStore) SearchVector(context.Context, []float32, int) ([]domain.SearchHit, error) {
	return f.vectorHits, f.vectorErr
}

func (f *fakeIndexStore) FetchByID(_ context.Context, id string) (*domain.Chunk, error) {
	chunk, ok := f.chunks[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "fetch chunk", fmt.Errorf("id %q", id))
	}
	return &chunk, nil
}

func (f *fakeIndexStore) IndexExists(context.Context) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeIndexStore) CreateIndex(_ context.Context, dims int) error {
	f.created++
	f.createdAt = dims
	f.exists = true
	return nil
}

func (f *fakeIndexStore) DeleteIndex(context.Context) error {
	f.deleted++
	f.exists = false
	return nil
}

func (f *fakeIndexStore) Upsert(_ context.Context, chunk domain.IndexedChunk) error {
	f.upserted = append(f.upserted, chunk)
	return nil
}

type fakeEmbedder struct {
	dim      int
	embedErr error
	queryErr error
}

func (f *fakeEmbedder) vector() []float32 {
	v := make([]float32, f.dim)
	for i := range v {
		v[i] = 0.1
	}
	return v
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = f.vector()
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.vector(), nil
}

type fakeCorpusSource struct {
	docs []domain.Document
	err  error
}

func (f *fakeCorpusSource) Load(context.Context) ([]domain.Document, error) {
	return f.docs, f.err
}

type fakeChunker struct {
	perDoc int
}

func (f *fakeChunker) Chunk(doc domain.Document) []domain.Chunk {
	out := make([]domain.Chunk, f.perDoc)
	for i := range out {
		out[i] = domain.Chunk{
			SourceURL:  doc.URL,
			Header:     doc.Header,
			Content:    fmt.Sprintf("%s part %d", doc.MainContent, i),
			ChunkIndex: i,
		}
	}
	return out
}

func hits(ids ...string) []domain.SearchHit {
	out := make([]domain.SearchHit, len(ids))
	for i, id := range ids {
		out[i] = domain.SearchHit{ChunkID: id, Score: float64(len(ids) - i)}
	}
	return out
}

func chunkFixture(id string) domain.Chunk {
	return domain.Chunk{SourceURL: "https://example.govt.nz/" + id, Header: "h " + id, Content: "c " + id}
}
