package filler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-mapper/internal/mapping"
	"github.com/a3tai/mcp-pdf-mapper/internal/schema"
)

func fillCatalog(t *testing.T) *mapping.Catalog {
	t.Helper()
	return mapping.BuildCatalog(
		[]string{"email_1", "email_2", "email_3", "phone_1", "notes"},
		map[string]mapping.RawField{
			"email_1": {SemanticFingerprint: "email:0.9"},
			"email_2": {SemanticFingerprint: "email:0.8"},
			"email_3": {SemanticFingerprint: "email:0.3"},
			"phone_1": {SemanticFingerprint: "phone:0.8"},
			"notes":   {SemanticFingerprint: "unclassified:a1b2c3d4"},
		},
	)
}

func TestResolveValuesExplicitOnly(t *testing.T) {
	c := fillCatalog(t)
	values := ResolveValues(c,
		map[string]schema.AttributeID{"phone_1": schema.AttrPhoneNumber},
		ClientData{schema.AttrPhoneNumber: "555-0100"},
	)

	// phone_1 is the only phone field, so there is no group to spread into.
	assert.Equal(t, map[string]string{"phone_1": "555-0100"}, values)
}

func TestResolveValuesAutoFillsSemanticSiblings(t *testing.T) {
	c := fillCatalog(t)
	values := ResolveValues(c,
		map[string]schema.AttributeID{"email_1": schema.AttrEmail},
		ClientData{schema.AttrEmail: "jane@example.com"},
	)

	assert.Equal(t, "jane@example.com", values["email_1"])
	assert.Equal(t, "jane@example.com", values["email_2"],
		"high-confidence sibling inherits the value")
	assert.NotContains(t, values, "email_3",
		"confidence 0.3 is below the auto-fill floor")
	assert.NotContains(t, values, "notes")
}

func TestResolveValuesNeverOverridesExplicit(t *testing.T) {
	c := fillCatalog(t)
	values := ResolveValues(c,
		map[string]schema.AttributeID{
			"email_1": schema.AttrEmail,
			"email_2": schema.AttrFirstName,
		},
		ClientData{
			schema.AttrEmail:     "jane@example.com",
			schema.AttrFirstName: "Jane",
		},
	)

	assert.Equal(t, "Jane", values["email_2"],
		"an explicitly mapped field keeps its own attribute value")
}

func TestResolveValuesSkipsMissingClientData(t *testing.T) {
	c := fillCatalog(t)
	values := ResolveValues(c,
		map[string]schema.AttributeID{"email_1": schema.AttrEmail},
		ClientData{},
	)

	assert.Empty(t, values)
}

func TestFillRejectsEmptyValues(t *testing.T) {
	f, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = f.Fill(context.Background(), "template.pdf", nil)
	assert.Error(t, err)
}
