package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-mapper/internal/schema"
)

func TestStatusEmptyGroup(t *testing.T) {
	s := newTestStore(t)

	c := Status(s, nil)
	assert.Equal(t, Completion{}, c)
	assert.Equal(t, 0, c.Percentage)
}

func TestStatusScenario(t *testing.T) {
	// Fields f1/f2 are the email group, f3 is phone; bulk-mapping the
	// email group leaves the contact category at 2 of 3, 67%.
	s := newTestStore(t)
	_, err := s.BulkApply([]string{"f1", "f2"}, schema.AttrEmail)
	require.NoError(t, err)

	c := Status(s, []string{"f1", "f2", "f3"})
	assert.Equal(t, 3, c.Total)
	assert.Equal(t, 2, c.Mapped)
	assert.Equal(t, 67, c.Percentage)
}

func TestStatusRounding(t *testing.T) {
	tests := []struct {
		name     string
		mapped   int
		total    int
		expected int
	}{
		{"none", 0, 4, 0},
		{"exact_half_rounds_up", 1, 8, 13}, // 12.5
		{"one_third", 1, 3, 33},
		{"two_thirds", 2, 3, 67},
		{"complete", 3, 3, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names := make([]string, tt.total)
			raw := make(map[string]RawField, tt.total)
			for i := range names {
				names[i] = string(rune('a' + i))
				raw[names[i]] = RawField{}
			}
			s := NewStore(BuildCatalog(names, raw))
			_, err := s.BulkApply(names[:tt.mapped], schema.AttrFirstName)
			require.NoError(t, err)

			c := Status(s, names)
			assert.Equal(t, tt.expected, c.Percentage)
			assert.Equal(t, tt.mapped, c.Mapped)
			assert.Equal(t, tt.total, c.Total)
		})
	}
}

func TestStatusCountsStaleNamesAsUnmapped(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set("f1", schema.AttrEmail))

	c := Status(s, []string{"f1", "gone"})
	assert.Equal(t, 2, c.Total)
	assert.Equal(t, 1, c.Mapped)
	assert.Equal(t, 50, c.Percentage)
}
