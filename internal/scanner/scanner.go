package scanner

import (
	"context"
	"fmt"

	"ContentCurator/internal/domain"
)

// Scanner captures a single source-type strategy (feed, web, social).
// Implementations signal failure by returning an error and a dried-up
// source by returning an empty slice; the orchestrator classifies the two.
type Scanner interface {
	Type() string
	Scan(ctx context.Context, src domain.Source) ([]domain.ScannedItem, error)
}

// Registry keeps a mapping from source types to scanner implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Type()] = scanner
}

// Resolve returns a scanner by source type or an error if it is absent.
func (r *Registry) Resolve(sourceType string) (Scanner, error) {
	if scanner, ok := r.scanners[sourceType]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("no scanner registered for source type %s", sourceType)
}
