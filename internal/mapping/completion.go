package mapping

import "math"

// Completion is the mapped/total accounting for one group of fields
type Completion struct {
	Total      int `json:"total"`
	Mapped     int `json:"mapped"`
	Percentage int `json:"percentage"`
}

// Status computes completion for a group of field names against the
// current store. It is recomputed on demand, never cached: the store
// mutates independently of the grouping indices. Percentage rounds
// half up; an empty group is 0%.
func Status(s *Store, groupFieldNames []string) Completion {
	c := Completion{Total: len(groupFieldNames)}

	for _, name := range groupFieldNames {
		if _, ok := s.Get(name); ok {
			c.Mapped++
		}
	}

	if c.Total > 0 {
		c.Percentage = int(math.Floor(100*float64(c.Mapped)/float64(c.Total) + 0.5))
	}

	return c
}
