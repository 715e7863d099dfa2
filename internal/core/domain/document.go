package domain

import "fmt"

// Document is a page of the crawled corpus. Identity is the URL.
type Document struct {
	URL         string `json:"url"`
	Header      string `json:"header"`
	MainContent string `json:"main_content"`
}

// Chunk is a fixed-size window of a document's main content, the unit of
// indexing and retrieval.
type Chunk struct {
	SourceURL  string `json:"source_url"`
	Header     string `json:"header"`
	Content    string `json:"content"`
	ChunkIndex int    `json:"chunk_index"`
}

// ID is the deterministic index identifier of the chunk.
func (c Chunk) ID() string {
	return fmt.Sprintf("%s#%d", c.SourceURL, c.ChunkIndex)
}

// IndexedChunk is a chunk with its dense embedding, written once at
// index-build time.
type IndexedChunk struct {
	Chunk
	Vector []float32 `json:"vector"`
}

// SearchHit is a (chunk id, native score) pair from one search modality.
// Scores are only comparable within a single result list.
type SearchHit struct {
	ChunkID string
	Score   float64
}

// RankedResult is a fusion-ranked retrieval result resolved to its payload.
// Ordering by FusedScore descending is the only contract consumers may rely
// on; absolute magnitudes are not meaningful across runs.
type RankedResult struct {
	ChunkID    string  `json:"chunk_id"`
	FusedScore float64 `json:"fused_score"`
	Source     Chunk   `json:"source"`
}
