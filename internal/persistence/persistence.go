// Package persistence stores the saved mappings of each template. Saving
// replaces the template's mapping set wholesale; loading a template that
// was never saved yields an empty set, not an error.
package persistence

import (
	"context"

	"github.com/a3tai/mcp-pdf-mapper/internal/schema"
)

// Store persists per-template mapping sets. Implementations satisfy both
// mapping.Persister and discovery.MappingLoader.
type Store interface {
	SaveMappings(ctx context.Context, templateID string, mappings map[string]schema.AttributeID) error
	LoadMappings(ctx context.Context, templateID string) (map[string]schema.AttributeID, error)
}
