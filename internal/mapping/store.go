package mapping

import (
	"github.com/a3tai/mcp-pdf-mapper/internal/schema"
)

// Store holds the current field-to-attribute assignment for one editing
// session. A field maps to at most one attribute (last write wins);
// multiple fields may map to the same attribute. The store is seeded from
// the persisted mapping at session start and written back wholesale on an
// explicit save.
type Store struct {
	catalog *Catalog
	entries map[string]schema.AttributeID
}

// NewStore creates an empty store validating against the given catalog
func NewStore(catalog *Catalog) *Store {
	return &Store{
		catalog: catalog,
		entries: make(map[string]schema.AttributeID),
	}
}

// Seed loads persisted mappings into the store. Entries referencing fields
// no longer in the catalog or attributes outside the schema are dropped at
// this boundary; they never surface past it.
func (s *Store) Seed(persisted map[string]schema.AttributeID) {
	for name, attr := range persisted {
		if !s.catalog.Contains(name) || !schema.Valid(attr) {
			continue
		}
		s.entries[name] = attr
	}
}

// Set assigns an attribute to a single field, overwriting any prior value.
// It fails with InvalidFieldError or InvalidAttributeError when either
// side is outside the current catalogs, leaving the store unchanged.
func (s *Store) Set(fieldName string, attr schema.AttributeID) error {
	if !s.catalog.Contains(fieldName) {
		return &InvalidFieldError{Field: fieldName}
	}
	if !schema.Valid(attr) {
		return &InvalidAttributeError{Attribute: attr}
	}

	s.entries[fieldName] = attr
	return nil
}

// Unset removes the mapping for a field, if any
func (s *Store) Unset(fieldName string) {
	delete(s.entries, fieldName)
}

// BulkApply assigns one attribute to every field in a group snapshot. The
// attribute is validated once up front; field names that no longer exist
// in the catalog (stale group snapshot) are skipped silently, so a bulk
// edit never fails because one stale name remains in a cached group.
// Re-applying the same bulk edit is a no-op on the final state.
func (s *Store) BulkApply(fieldNames []string, attr schema.AttributeID) (int, error) {
	if !schema.Valid(attr) {
		return 0, &InvalidAttributeError{Attribute: attr}
	}

	applied := 0
	for _, name := range fieldNames {
		if !s.catalog.Contains(name) {
			continue
		}
		s.entries[name] = attr
		applied++
	}

	return applied, nil
}

// Get returns the attribute a field is mapped to
func (s *Store) Get(fieldName string) (schema.AttributeID, bool) {
	attr, ok := s.entries[fieldName]
	return attr, ok
}

// Len returns the number of mapped fields
func (s *Store) Len() int {
	return len(s.entries)
}

// Snapshot returns a copy of the current mappings for persistence. The
// copy is detached; later edits do not leak into an in-flight save.
func (s *Store) Snapshot() map[string]schema.AttributeID {
	out := make(map[string]schema.AttributeID, len(s.entries))
	for name, attr := range s.entries {
		out[name] = attr
	}
	return out
}
