// Package discovery implements the field-discovery collaborator: it turns
// a PDF template into the raw field records, category index and persisted
// mappings that seed a mapping session. Two implementations exist, a
// local pdfcpu-backed one and an HTTP client for a remote discovery
// service. All semantic inference lives here; the mapping engine only
// consumes the results.
package discovery

import (
	"sort"

	"github.com/a3tai/mcp-pdf-mapper/internal/mapping"
	"github.com/a3tai/mcp-pdf-mapper/internal/schema"
)

// Payload is the wire shape of one discovery response. Untyped JSON stops
// at this boundary; everything past it is the typed DiscoveryResult.
type Payload struct {
	Fields          map[string]mapping.RawField     `json:"fields"`
	Categories      map[string][]string             `json:"categories"`
	CurrentMappings map[string]schema.AttributeID   `json:"current_mappings"`
}

// toResult folds the category index into the field records and fixes a
// deterministic field order: category lists in sorted category order
// first, then any uncategorized fields sorted by name. JSON object order
// is not preserved by decoding, so the order cannot come from the wire.
func (p *Payload) toResult() *mapping.DiscoveryResult {
	fields := make(map[string]mapping.RawField, len(p.Fields))
	for name, rf := range p.Fields {
		fields[name] = rf
	}

	order := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))

	for _, category := range sortedKeys(p.Categories) {
		for _, name := range p.Categories[category] {
			rf, ok := fields[name]
			if !ok || seen[name] {
				continue
			}
			rf.Category = category
			fields[name] = rf
			order = append(order, name)
			seen[name] = true
		}
	}

	rest := make([]string, 0, len(fields))
	for name := range fields {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	mappings := p.CurrentMappings
	if mappings == nil {
		mappings = map[string]schema.AttributeID{}
	}

	return &mapping.DiscoveryResult{
		Order:    order,
		Fields:   fields,
		Mappings: mappings,
	}
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
