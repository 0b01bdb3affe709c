package mapping

import "sort"

// GroupMember carries the per-field detail shown inside a semantic group
type GroupMember struct {
	Confidence  float64 `json:"confidence"`
	DisplayName string  `json:"display_name"`
}

// GroupBySemantics partitions classified fields by semantic type and drops
// every group with fewer than two members: a singleton group carries no
// bulk-edit value and must not appear in the index. Membership depends
// only on the catalog contents, never on input iteration order.
func GroupBySemantics(c *Catalog) map[string]map[string]GroupMember {
	groups := make(map[string]map[string]GroupMember)

	for _, name := range c.order {
		desc := c.fields[name]
		if !desc.Classified() {
			continue
		}

		g, ok := groups[desc.SemanticType]
		if !ok {
			g = make(map[string]GroupMember)
			groups[desc.SemanticType] = g
		}
		g[name] = GroupMember{
			Confidence:  desc.Confidence,
			DisplayName: desc.DisplayName,
		}
	}

	for semanticType, members := range groups {
		if len(members) < 2 {
			delete(groups, semanticType)
		}
	}

	return groups
}

// GroupByCategory partitions fields by their category label, preserving
// first-seen order within each category. Fields without a category were
// already normalized to CategoryOther by BuildCatalog.
func GroupByCategory(c *Catalog) map[string][]string {
	groups := make(map[string][]string)

	for _, name := range c.order {
		desc := c.fields[name]
		groups[desc.Category] = append(groups[desc.Category], name)
	}

	return groups
}

// GroupFieldNames returns a semantic group's member names sorted, for
// deterministic iteration over the member map.
func GroupFieldNames(members map[string]GroupMember) []string {
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SortedKeys returns the group keys of either index in sorted order. The
// first key is the default active group for a fresh view.
func SortedKeys[V any](index map[string]V) []string {
	keys := make([]string, 0, len(index))
	for k := range index {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
