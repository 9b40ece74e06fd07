package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gamakdragons/wheretruck/pkg/resilience"
)

// Backend is the raw search-store surface implemented by the OpenSearch/Elasticsearch adapters.
type Backend interface {
	UpdateByScript(ctx context.Context, index, id string, script Script) (UpdateResult, error)
	GetSource(ctx context.Context, index, id string) (json.RawMessage, error)
	IndexDocument(ctx context.Context, index, id string, doc interface{}) error
	DeleteDocument(ctx context.Context, index, id string) error
	Search(ctx context.Context, index string, query interface{}) (json.RawMessage, error)
}

// SearchStore implements Store on top of a search Backend, optionally behind a circuit breaker.
type SearchStore struct {
	backend Backend
	breaker *resilience.CircuitBreaker
}

// NewSearchStore wraps backend. A nil breaker disables fail-fast behavior.
func NewSearchStore(backend Backend, breaker *resilience.CircuitBreaker) *SearchStore {
	return &SearchStore{backend: backend, breaker: breaker}
}

// NewBreaker returns a circuit breaker that does not count missing documents as failures.
func NewBreaker(maxFailures int, cooldown time.Duration) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(resilience.Options{
		MaxFailures: maxFailures,
		Cooldown:    cooldown,
		IsFailure: func(err error) bool {
			return !errors.Is(err, ErrDocumentMissing) && !errors.Is(err, context.Canceled)
		},
	})
}

func (s *SearchStore) guard(fn func() error) error {
	if s.breaker == nil {
		return fn()
	}
	return s.breaker.Execute(fn)
}

// UpdateByScript applies script to the document index/id.
func (s *SearchStore) UpdateByScript(ctx context.Context, index, id string, script Script) (UpdateResult, error) {
	var res UpdateResult
	err := s.guard(func() error {
		var err error
		res, err = s.backend.UpdateByScript(ctx, index, id, script)
		return err
	})
	return res, err
}

// GetDocument decodes the source of index/id into out.
func (s *SearchStore) GetDocument(ctx context.Context, index, id string, out interface{}) error {
	var raw json.RawMessage
	err := s.guard(func() error {
		var err error
		raw, err = s.backend.GetSource(ctx, index, id)
		return err
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode document %s/%s: %w", index, id, err)
	}
	return nil
}

// IndexDocument stores doc under index/id, replacing any previous version.
func (s *SearchStore) IndexDocument(ctx context.Context, index, id string, doc interface{}) error {
	return s.guard(func() error {
		return s.backend.IndexDocument(ctx, index, id, doc)
	})
}

// DeleteDocument removes index/id. Missing documents are not an error.
func (s *SearchStore) DeleteDocument(ctx context.Context, index, id string) error {
	return s.guard(func() error {
		return s.backend.DeleteDocument(ctx, index, id)
	})
}

// Search runs query against index.
func (s *SearchStore) Search(ctx context.Context, index string, query interface{}) (json.RawMessage, error) {
	var raw json.RawMessage
	err := s.guard(func() error {
		var err error
		raw, err = s.backend.Search(ctx, index, query)
		return err
	})
	return raw, err
}
