package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/kiwihelp/visa-assistant/internal/core/domain"
)

// Loader reads the crawled corpus from a JSON file keyed by page URL.
type Loader struct {
	path string
}

func New(path string) *Loader {
	return &Loader{path: path}
}

type pageEntry struct {
	Header      string `json:"header"`
	MainContent string `json:"main_content"`
}

// Load parses the corpus file into documents, sorted by URL so indexing
// runs are reproducible. Pages with no content are skipped.
func (l *Loader) Load(ctx context.Context) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}

	var pages map[string]pageEntry
	if err := json.Unmarshal(raw, &pages); err != nil {
		return nil, fmt.Errorf("parse corpus file %s: %w", l.path, err)
	}

	urls := make([]string, 0, len(pages))
	for url := range pages {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	docs := make([]domain.Document, 0, len(pages))
	for _, url := range urls {
		page := pages[url]
		if strings.TrimSpace(page.MainContent) == "" {
			continue
		}
		docs = append(docs, domain.Document{
			URL:         url,
			Header:      page.Header,
			MainContent: page.MainContent,
		})
	}
	return docs, nil
}
