// Package schema defines the fixed client-profile schema that PDF form
// fields are mapped onto. The attribute set is closed; changing it is a
// schema migration, not a runtime event.
package schema

// AttributeID identifies one attribute of the client profile
type AttributeID string

const (
	AttrFirstName     AttributeID = "first_name"
	AttrLastName      AttributeID = "last_name"
	AttrIDNumber      AttributeID = "id_number"
	AttrDateOfBirth   AttributeID = "date_of_birth"
	AttrEmail         AttributeID = "email"
	AttrPhoneNumber   AttributeID = "phone_number"
	AttrAddress       AttributeID = "address"
	AttrCity          AttributeID = "city"
	AttrPostalCode    AttributeID = "postal_code"
	AttrCountry       AttributeID = "country"
	AttrTaxNumber     AttributeID = "tax_number"
	AttrBankName      AttributeID = "bank_name"
	AttrAccountNumber AttributeID = "account_number"
	AttrBranchCode    AttributeID = "branch_code"
	AttrAccountType   AttributeID = "account_type"
	AttrEmployer      AttributeID = "employer"
	AttrOccupation    AttributeID = "occupation"
	AttrIncome        AttributeID = "income"
)

// Attribute is one entry of the client schema
type Attribute struct {
	ID    AttributeID `json:"id"`
	Label string      `json:"label"`
}

// catalog is the versioned list of client attributes, in display order.
// Order matters for presentation; membership matters for validation.
var catalog = []Attribute{
	{AttrFirstName, "First Name"},
	{AttrLastName, "Last Name"},
	{AttrIDNumber, "ID Number"},
	{AttrDateOfBirth, "Date of Birth"},
	{AttrEmail, "Email"},
	{AttrPhoneNumber, "Phone Number"},
	{AttrAddress, "Address"},
	{AttrCity, "City"},
	{AttrPostalCode, "Postal Code"},
	{AttrCountry, "Country"},
	{AttrTaxNumber, "Tax Number"},
	{AttrBankName, "Bank Name"},
	{AttrAccountNumber, "Account Number"},
	{AttrBranchCode, "Branch Code"},
	{AttrAccountType, "Account Type"},
	{AttrEmployer, "Employer"},
	{AttrOccupation, "Occupation"},
	{AttrIncome, "Income"},
}

var byID = func() map[AttributeID]Attribute {
	m := make(map[AttributeID]Attribute, len(catalog))
	for _, a := range catalog {
		m[a.ID] = a
	}
	return m
}()

// Attributes returns the full catalog in display order. The returned slice
// is a copy; callers may not mutate the catalog.
func Attributes() []Attribute {
	out := make([]Attribute, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the attribute for an id
func Lookup(id AttributeID) (Attribute, bool) {
	a, ok := byID[id]
	return a, ok
}

// Valid reports whether id is a member of the catalog
func Valid(id AttributeID) bool {
	_, ok := byID[id]
	return ok
}

// Count returns the number of attributes in the catalog
func Count() int {
	return len(catalog)
}

// ConfidenceTier classifies a semantic-match confidence for display
// emphasis. Tiers never drive mapping decisions.
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
)

// Tier returns the display tier for a confidence score:
// > 0.7 high, 0.4-0.7 medium, < 0.4 low.
func Tier(confidence float64) ConfidenceTier {
	switch {
	case confidence > 0.7:
		return TierHigh
	case confidence >= 0.4:
		return TierMedium
	default:
		return TierLow
	}
}
