// Package mapping implements the field-mapping resolution engine: it
// normalizes extracted PDF form fields into typed descriptors, groups them
// by semantic type and by category, and maintains the field-to-attribute
// assignment that document generation consumes.
package mapping

import (
	"sort"
	"strconv"
	"strings"
)

// CategoryOther is where fields without an upstream category land
const CategoryOther = "other"

// RawField is one extracted-field record as delivered by the field
// discovery collaborator, before normalization.
type RawField struct {
	DisplayName         string `json:"display_name"`
	Category            string `json:"category,omitempty"`
	SemanticFingerprint string `json:"semantic_fingerprint,omitempty"`
}

// FieldDescriptor is the normalized record for one PDF form field.
// SemanticType is empty when the fingerprint was missing or malformed;
// such fields still participate in category grouping but never in
// semantic grouping.
type FieldDescriptor struct {
	Name         string  `json:"name"`
	DisplayName  string  `json:"display_name"`
	Category     string  `json:"category"`
	SemanticType string  `json:"semantic_type,omitempty"`
	Confidence   float64 `json:"confidence"`
}

// Classified reports whether the field carries a usable semantic type
func (d FieldDescriptor) Classified() bool {
	return d.SemanticType != ""
}

// ParseFingerprint splits a "type:confidence" fingerprint. A fingerprint
// with fewer than two parts, or whose confidence part is not a number in
// [0,1], yields ("", 0): degraded, not an error.
func ParseFingerprint(fp string) (string, float64) {
	parts := strings.SplitN(fp, ":", 3)
	if len(parts) < 2 {
		return "", 0
	}

	confidence, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || confidence < 0 || confidence > 1 {
		return "", 0
	}

	return parts[0], confidence
}

// Catalog is the immutable snapshot of a template's fields for one editing
// session. It is rebuilt fresh on every fetch; there is no incremental
// diffing.
type Catalog struct {
	fields map[string]FieldDescriptor
	order  []string
}

// BuildCatalog normalizes raw field records into a catalog. The order
// slice fixes first-seen order for category grouping; names missing from
// raw are skipped, names missing from order are appended sorted so the
// result does not depend on map iteration.
func BuildCatalog(order []string, raw map[string]RawField) *Catalog {
	c := &Catalog{
		fields: make(map[string]FieldDescriptor, len(raw)),
		order:  make([]string, 0, len(raw)),
	}

	add := func(name string) {
		rf, ok := raw[name]
		if !ok {
			return
		}
		if _, dup := c.fields[name]; dup {
			return
		}

		desc := FieldDescriptor{
			Name:        name,
			DisplayName: rf.DisplayName,
			Category:    rf.Category,
		}
		if desc.DisplayName == "" {
			desc.DisplayName = name
		}
		if desc.Category == "" {
			desc.Category = CategoryOther
		}
		desc.SemanticType, desc.Confidence = ParseFingerprint(rf.SemanticFingerprint)

		c.fields[name] = desc
		c.order = append(c.order, name)
	}

	for _, name := range order {
		add(name)
	}

	rest := make([]string, 0, len(raw))
	for name := range raw {
		if _, seen := c.fields[name]; !seen {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		add(name)
	}

	return c
}

// Field returns the descriptor for a field name
func (c *Catalog) Field(name string) (FieldDescriptor, bool) {
	d, ok := c.fields[name]
	return d, ok
}

// Contains reports whether a field name exists in this snapshot
func (c *Catalog) Contains(name string) bool {
	_, ok := c.fields[name]
	return ok
}

// Names returns all field names in first-seen order as a copy
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of fields in the catalog
func (c *Catalog) Len() int {
	return len(c.fields)
}
