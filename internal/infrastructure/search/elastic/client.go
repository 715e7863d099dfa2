package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kiwihelp/visa-assistant/internal/core/domain"
	"github.com/kiwihelp/visa-assistant/internal/infrastructure/resilience"
)

// Store is the Elasticsearch-backed index: documents carry both the chunk
// payload and its dense vector, so one index serves keyword search, vector
// search and payload resolution.
type Store struct {
	baseURL    string
	index      string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	RequestTimeout     time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, index string, options Options) *Store {
	timeout := options.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Store{
		baseURL:    strings.TrimRight(baseURL, "/"),
		index:      index,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

// chunkDocument is the wire shape of one indexed chunk.
type chunkDocument struct {
	URL           string    `json:"url"`
	Header        string    `json:"header"`
	Content       string    `json:"content"`
	ChunkIndex    int       `json:"chunk_index"`
	ContentVector []float32 `json:"content_vector,omitempty"`
}

func (s *Store) IndexExists(ctx context.Context) (bool, error) {
	var exists bool
	err := s.execute(ctx, "elastic.index_exists", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.indexURL(""), nil)
		if err != nil {
			return fmt.Errorf("create exists request: %w", err)
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("elasticsearch exists request: %w", err)
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		switch resp.StatusCode {
		case http.StatusOK:
			exists = true
			return nil
		case http.StatusNotFound:
			exists = false
			return nil
		default:
			return &HTTPStatusError{Operation: "index_exists", StatusCode: resp.StatusCode, Status: resp.Status}
		}
	})
	return exists, err
}

func (s *Store) CreateIndex(ctx context.Context, dims int) error {
	if dims <= 0 {
		return domain.WrapError(domain.ErrInvalidInput, "create index", fmt.Errorf("vector dims %d", dims))
	}

	mapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"url":         map[string]any{"type": "keyword"},
				"header":      map[string]any{"type": "text"},
				"content":     map[string]any{"type": "text"},
				"chunk_index": map[string]any{"type": "integer"},
				"content_vector": map[string]any{
					"type":       "dense_vector",
					"dims":       dims,
					"index":      true,
					"similarity": "cosine",
				},
			},
		},
	}
	return s.execute(ctx, "elastic.create_index", func(ctx context.Context) error {
		return s.sendJSON(ctx, http.MethodPut, s.indexURL(""), mapping, nil, "create_index")
	})
}

func (s *Store) DeleteIndex(ctx context.Context) error {
	return s.execute(ctx, "elastic.delete_index", func(ctx context.Context) error {
		return s.sendJSON(ctx, http.MethodDelete, s.indexURL(""), nil, nil, "delete_index")
	})
}

// Upsert indexes one chunk under its deterministic id, replacing any
// previous version. A refresh per document keeps indexing idempotent at the
// cost of throughput; the corpus is small.
func (s *Store) Upsert(ctx context.Context, chunk domain.IndexedChunk) error {
	doc := chunkDocument{
		URL:           chunk.SourceURL,
		Header:        chunk.Header,
		Content:       chunk.Content,
		ChunkIndex:    chunk.ChunkIndex,
		ContentVector: chunk.Vector,
	}
	return s.execute(ctx, "elastic.upsert", func(ctx context.Context) error {
		return s.sendJSON(ctx, http.MethodPut, s.docURL(chunk.ID())+"?refresh=true", doc, nil, "upsert")
	})
}

func (s *Store) FetchByID(ctx context.Context, id string) (*domain.Chunk, error) {
	var response struct {
		Found  bool          `json:"found"`
		Source chunkDocument `json:"_source"`
	}

	err := s.execute(ctx, "elastic.fetch", func(ctx context.Context) error {
		return s.sendJSON(ctx, http.MethodGet, s.docURL(id), nil, &response, "fetch")
	})
	if err != nil {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, domain.WrapError(domain.ErrNotFound, "fetch chunk", fmt.Errorf("id %q", id))
		}
		return nil, err
	}
	if !response.Found {
		return nil, domain.WrapError(domain.ErrNotFound, "fetch chunk", fmt.Errorf("id %q", id))
	}

	return &domain.Chunk{
		SourceURL:  response.Source.URL,
		Header:     response.Source.Header,
		Content:    response.Source.Content,
		ChunkIndex: response.Source.ChunkIndex,
	}, nil
}

// SearchKeyword runs a best-fields multi_match over header and content.
// Only ids and scores come back; payloads resolve through FetchByID.
func (s *Store) SearchKeyword(ctx context.Context, text string, limit int) ([]domain.SearchHit, error) {
	query := map[string]any{
		"size":    limit,
		"_source": false,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":       text,
				"fields":      []string{"header", "content"},
				"type":        "best_fields",
				"tie_breaker": 0.3,
			},
		},
	}
	return s.search(ctx, "elastic.search_keyword", query)
}

// SearchVector scores every document by cosine similarity to the query
// vector. The +1.0 keeps script scores non-negative as Elasticsearch
// requires.
func (s *Store) SearchVector(ctx context.Context, vector []float32, limit int) ([]domain.SearchHit, error) {
	query := map[string]any{
		"size":    limit,
		"_source": false,
		"query": map[string]any{
			"script_score": map[string]any{
				"query": map[string]any{"exists": map[string]any{"field": "content_vector"}},
				"script": map[string]any{
					"source": "cosineSimilarity(params.query_vector, 'content_vector') + 1.0",
					"params": map[string]any{"query_vector": vector},
				},
			},
		},
	}
	return s.search(ctx, "elastic.search_vector", query)
}

func (s *Store) search(ctx context.Context, operation string, query map[string]any) ([]domain.SearchHit, error) {
	var response struct {
		Hits struct {
			Hits []struct {
				ID    string  `json:"_id"`
				Score float64 `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}

	err := s.execute(ctx, operation, func(ctx context.Context) error {
		return s.sendJSON(ctx, http.MethodPost, s.indexURL("/_search"), query, &response, operation)
	})
	if err != nil {
		return nil, err
	}

	hits := make([]domain.SearchHit, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		hits = append(hits, domain.SearchHit{ChunkID: hit.ID, Score: hit.Score})
	}
	return hits, nil
}

func (s *Store) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if s.executor == nil {
		return fn(ctx)
	}
	return s.executor.Execute(ctx, operation, fn, classifyError)
}

func (s *Store) indexURL(suffix string) string {
	return s.baseURL + "/" + url.PathEscape(s.index) + suffix
}

func (s *Store) docURL(id string) string {
	return s.indexURL("/_doc/" + url.PathEscape(id))
}

func (s *Store) sendJSON(ctx context.Context, method, rawURL string, payload, out any, operation string) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", operation, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("elasticsearch %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
