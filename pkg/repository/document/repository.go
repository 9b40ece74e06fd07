package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrDocumentMissing is returned when the addressed document does not exist.
var ErrDocumentMissing = errors.New("document missing")

// ScriptLangPainless is the only scripting language the search backends accept here.
const ScriptLangPainless = "painless"

// Script is a stored-procedure style partial update: static source plus bound parameters.
// Values must only travel through Params; Source is never assembled from caller input.
type Script struct {
	Source string
	Lang   string
	Params map[string]interface{}
}

// Result is the store-reported outcome of a scripted update.
type Result string

const (
	ResultCreated Result = "created"
	ResultUpdated Result = "updated"
	ResultDeleted Result = "deleted"
	ResultNoop    Result = "noop"
)

// UpdateResult carries the store response of a scripted update.
type UpdateResult struct {
	Result  Result
	Version int64
}

// ScriptExecutor applies a scripted partial update to a single document.
type ScriptExecutor interface {
	UpdateByScript(ctx context.Context, index, id string, script Script) (UpdateResult, error)
}

// Reader loads a single document by ID into out.
type Reader interface {
	GetDocument(ctx context.Context, index, id string, out interface{}) error
}

// Indexer stores and removes whole documents.
type Indexer interface {
	IndexDocument(ctx context.Context, index, id string, doc interface{}) error
	DeleteDocument(ctx context.Context, index, id string) error
}

// Searcher runs a query DSL request and returns the raw response body.
type Searcher interface {
	Search(ctx context.Context, index string, query interface{}) (json.RawMessage, error)
}

// Store groups every document capability used by the services.
type Store interface {
	ScriptExecutor
	Reader
	Indexer
	Searcher
}

// Hit is a single search hit with its decoded source.
type Hit[T any] struct {
	ID     string `json:"_id"`
	Source T      `json:"_source"`
}

// SearchResult is the decoded hits section of a search response.
type SearchResult[T any] struct {
	Total int64
	Hits  []Hit[T]
}

// Docs returns the decoded sources in hit order.
func (r SearchResult[T]) Docs() []T {
	out := make([]T, 0, len(r.Hits))
	for _, h := range r.Hits {
		out = append(out, h.Source)
	}
	return out
}

type rawSearchResponse[T any] struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []Hit[T] `json:"hits"`
	} `json:"hits"`
}

// DecodeHits decodes a raw search response into typed hits.
func DecodeHits[T any](raw json.RawMessage) (SearchResult[T], error) {
	var resp rawSearchResponse[T]
	if err := json.Unmarshal(raw, &resp); err != nil {
		return SearchResult[T]{}, fmt.Errorf("failed to decode search hits: %w", err)
	}
	return SearchResult[T]{
		Total: resp.Hits.Total.Value,
		Hits:  resp.Hits.Hits,
	}, nil
}
