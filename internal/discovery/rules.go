package discovery

import (
	"crypto/md5" //nolint:gosec // fingerprint bucketing, not security
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// categoryRule buckets a field into a coarse category by name patterns.
// Rules are evaluated in order; the first match wins.
type categoryRule struct {
	name     string
	patterns []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile("(?i)"+e))
	}
	return out
}

var categoryRules = []categoryRule{
	{
		name: "personal_info",
		patterns: compileAll(
			`name`, `first.*name`, `last.*name`, `surname`,
			`id.*number`, `identification`, `birth.*date`, `gender`,
			`title`, `mr\.?`, `mrs\.?`, `ms\.?`, `citizenship`,
		),
	},
	{
		name: "contact_info",
		patterns: compileAll(
			`email`, `phone`, `mobile`, `tel`, `address`,
			`street`, `city`, `postal`, `zip`, `country`,
			`state`, `province`,
		),
	},
	{
		name: "banking_info",
		patterns: compileAll(
			`bank`, `account.*number`, `branch.*code`, `swift`,
			`iban`, `credit.*card`, `savings`, `cheque`, `checking`,
		),
	},
	{
		name: "employment_info",
		patterns: compileAll(
			`employer`, `company`, `occupation`, `job.*title`,
			`income`, `salary`, `employment`,
		),
	},
	{
		name:     "tax_info",
		patterns: compileAll(`tax.*number`, `tax.*id`, `vat`, `tin`),
	},
	{
		name:     "signature",
		patterns: compileAll(`sign`, `signature`),
	},
}

// semanticKeywords maps each semantic type to the keywords that indicate
// it. Confidence is the matched fraction of keywords, boosted by 0.5 when
// a keyword appears as a whole word in the raw field name.
var semanticKeywords = []struct {
	semanticType string
	keywords     []string
}{
	{"id_number", []string{"id", "identification", "number", "identity", "id number", "id no"}},
	{"name", []string{"name", "first name", "last name", "surname", "full name"}},
	{"email", []string{"email", "e-mail", "email address"}},
	{"phone", []string{"phone", "telephone", "mobile", "cell", "contact number", "tel"}},
	{"address", []string{"address", "street", "residential", "physical address"}},
	{"city", []string{"city", "town", "municipality"}},
	{"postal_code", []string{"postal code", "zip", "zip code", "post code"}},
	{"country", []string{"country", "nation", "state"}},
	{"date_of_birth", []string{"birth", "dob", "date of birth", "birth date", "born"}},
	{"tax_number", []string{"tax", "tax no", "tax number", "tin", "taxpayer"}},
	{"bank_name", []string{"bank", "bank name", "financial institution"}},
	{"account_number", []string{"account", "account no", "account number", "acc no"}},
	{"branch_code", []string{"branch", "branch code", "sort code", "routing"}},
	{"signature", []string{"sign", "signature", "signed"}},
	{"date", []string{"date", "day", "month", "year", "dated"}},
}

// minFingerprintConfidence is the floor below which a field is treated as
// unclassified rather than given a weak type.
const minFingerprintConfidence = 0.2

var (
	atPrefixRe    = regexp.MustCompile(`^@`)
	subformRe     = regexp.MustCompile(`^topmostSubform\[\d+\]\.Page\d+\[\d+\]\.`)
	digitsRe      = regexp.MustCompile(`\d+`)
	positionalRe  = regexp.MustCompile(`(^|\s)(top|bottom|left|right|first|second|third|last)(\s|$)`)
	formWordsRe   = regexp.MustCompile(`(^|\s)(field|input|text|box|form|entry)(\s|$)`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// normalizeFieldName turns a raw AcroForm name into a human-readable
// display name: strips tool prefixes like @ and topmostSubform[0].Page1[0].,
// replaces underscores and title-cases the words.
func normalizeFieldName(fieldName string) string {
	normalized := atPrefixRe.ReplaceAllString(fieldName, "")
	normalized = subformRe.ReplaceAllString(normalized, "")
	normalized = strings.ReplaceAll(normalized, "_", " ")

	words := strings.Fields(normalized)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// categorizeField returns the category label for a field name, or "other"
// when no rule matches.
func categorizeField(fieldName string) string {
	normalized := normalizeFieldName(fieldName)
	for _, rule := range categoryRules {
		for _, p := range rule.patterns {
			if p.MatchString(normalized) {
				return rule.name
			}
		}
	}
	return "other"
}

// fingerprintField computes the "type:confidence" semantic fingerprint
// for a field name. Positional and form-related words are stripped before
// keyword matching so "first_email_field" and "email" fingerprint alike.
// Unclassifiable fields get "unclassified:<hash8>" whose second part is
// deliberately not a number: downstream parsing degrades it, so the field
// never joins a semantic group, which is the intended behavior.
func fingerprintField(fieldName string) string {
	cleaned := strings.ToLower(normalizeFieldName(fieldName))
	cleaned = digitsRe.ReplaceAllString(cleaned, "")
	cleaned = positionalRe.ReplaceAllString(cleaned, " ")
	cleaned = formWordsRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(whitespaceRe.ReplaceAllString(cleaned, " "))

	lowerName := strings.ToLower(fieldName)

	detected := ""
	highest := 0.0
	for _, entry := range semanticKeywords {
		matches := 0
		direct := false
		for _, keyword := range entry.keywords {
			if strings.Contains(cleaned, keyword) {
				matches++
			}
			if !direct && wholeWordMatch(lowerName, keyword) {
				direct = true
			}
		}

		confidence := float64(matches) / float64(len(entry.keywords))
		if direct {
			confidence += 0.5
		}

		if confidence > highest {
			highest = confidence
			detected = entry.semanticType
		}
	}

	if detected == "" || highest < minFingerprintConfidence {
		sum := md5.Sum([]byte(cleaned)) //nolint:gosec
		return "unclassified:" + hex.EncodeToString(sum[:])[:8]
	}

	if highest > 1.0 {
		highest = 1.0
	}
	return fmt.Sprintf("%s:%.2f", detected, highest)
}

func wholeWordMatch(text, keyword string) bool {
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(keyword) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}
