package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogIsClosed(t *testing.T) {
	attrs := Attributes()
	assert.Len(t, attrs, 18)
	assert.Equal(t, 18, Count())

	// Mutating the returned slice must not affect the catalog
	attrs[0].Label = "mutated"
	fresh := Attributes()
	assert.Equal(t, "First Name", fresh[0].Label)
}

func TestLookup(t *testing.T) {
	a, ok := Lookup(AttrEmail)
	assert.True(t, ok)
	assert.Equal(t, "Email", a.Label)

	_, ok = Lookup("favourite_colour")
	assert.False(t, ok)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(AttrBranchCode))
	assert.True(t, Valid(AttrIncome))
	assert.False(t, Valid(""))
	assert.False(t, Valid("EMAIL"))
}

func TestTier(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		expected   ConfidenceTier
	}{
		{"high_above_threshold", 0.71, TierHigh},
		{"high_perfect", 1.0, TierHigh},
		{"medium_upper_bound", 0.7, TierMedium},
		{"medium_lower_bound", 0.4, TierMedium},
		{"low_below_threshold", 0.39, TierLow},
		{"low_zero", 0.0, TierLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Tier(tt.confidence))
		})
	}
}
