// Package store builds the storage adapters selected by configuration.
package store

import (
	"context"

	"github.com/gamakdragons/wheretruck/pkg/repository/document"
)

// Adapter is a storage connection that can be probed and released.
type Adapter interface {
	HealthCheck(ctx context.Context) error
	Close() error
}

// SearchAdapter is the document backend behind the search store.
type SearchAdapter interface {
	Adapter
	document.Backend
}
