package catalog

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// StaticSource serves an in-memory list of definitions. Useful for tests and
// for programs that build their catalog in code.
type StaticSource struct {
	Defs []domain.CommandDefinition
}

// NewStaticSource creates a source over the given definitions.
func NewStaticSource(defs ...domain.CommandDefinition) *StaticSource {
	return &StaticSource{Defs: defs}
}

// Commands implements ports.CatalogSource.
func (s *StaticSource) Commands(ctx context.Context) ([]domain.CommandDefinition, error) {
	out := make([]domain.CommandDefinition, len(s.Defs))
	copy(out, s.Defs)
	return out, nil
}
