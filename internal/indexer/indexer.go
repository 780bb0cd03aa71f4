// Package indexer defines the adapter contract exercised by the conformance suites.
package indexer

import (
	"context"

	"github.com/slipstream/providercheck/internal/indexer/types"
)

// Adapter is a content-source integration that can be checked against the result contract.
type Adapter interface {
	// ID returns the stable identifier used for suite and cassette names.
	ID() string

	// Name returns the display name. Override and skip tables are keyed by it.
	Name() string

	// Capabilities returns the declared flags, or an error when they cannot be determined.
	Capabilities() (types.Capabilities, error)

	// SearchParams returns the adapter's own default search strings.
	SearchParams() types.SearchStrings

	// Configure injects the HTTP client and credentials used for subsequent calls.
	Configure(session types.Session)

	// Search runs a search for the single mode held by req.
	Search(ctx context.Context, req types.SearchStrings) ([]types.Result, error)

	// UpdateCache runs the adapter's background refresh path.
	UpdateCache(ctx context.Context) error

	// Size extracts the size in bytes from a result, -1 when unknown.
	Size(r types.Result) int64

	// TitleAndLink extracts the title and download link from a result.
	TitleAndLink(r types.Result) (string, string)
}

// Registry enumerates adapters.
type Registry interface {
	IDs() ([]string, error)
	Lookup(id string) (Adapter, error)
}
