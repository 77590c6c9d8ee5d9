package engine

import (
	"context"

	"github.com/kailas-cloud/evidex/internal/domain/evidence"
)

// Retriever supplies ranked scored documents from the external vector index.
// It is the engine's only suspension point; everything after it is pure
// computation.
type Retriever interface {
	Retrieve(ctx context.Context, queryText string, fetchK int) ([]evidence.Document, error)
}
