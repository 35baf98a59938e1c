package driven

import (
	"context"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
)

// Loader extracts raw elements from one source document (a PDF file, a web
// URL or a SQL table). Elements are emitted in document order; the processors
// assign chunk indices from that order.
type Loader interface {
	// Load extracts all elements from the source.
	Load(ctx context.Context) ([]domain.Element, error)

	// Name identifies the loader for manifests ("pdf", "web", "sqlite").
	Name() string
}

// RowLoader extracts table rows from a relational source. Each row is a
// column-name to string-value map; row order follows the table's natural
// order and determines chunk identity.
type RowLoader interface {
	// LoadRows reads every row of the source table.
	LoadRows(ctx context.Context) ([]map[string]string, error)

	// Name identifies the loader for manifests.
	Name() string
}

// TokenVerifier validates a provider-issued access token and derives the
// calling principal from its claims.
type TokenVerifier interface {
	// Verify checks signature, issuer, expiry, client and token_use, and
	// returns the principal on success. Failures map to
	// domain.ErrAuthInvalid.
	Verify(ctx context.Context, token string) (domain.Principal, error)
}
