// Package phone normalizes phone numbers for storage and duplicate checks.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Numbers entered without a country prefix are read as French.
const defaultRegion = "FR"

// NormalizeE164 converts the input to E.164 ("0612345678" becomes
// "+33612345678"). Input that does not parse as a valid number is returned
// trimmed but otherwise untouched.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}
	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}
