package ports

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// CatalogSource yields command definitions for catalog loading. Sources are
// merged in the order they are given to the loader; the order of the
// returned slice fixes the matcher's tie-break order.
type CatalogSource interface {
	// Commands returns the definitions with Name populated, in a
	// deterministic order.
	Commands(ctx context.Context) ([]domain.CommandDefinition, error)
}
