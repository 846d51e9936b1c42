// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used for numbers entered without a country prefix.
const DefaultRegion = "US"

// ErrInvalidNumber is returned by ParseE164 for input that is not a valid number.
var ErrInvalidNumber = errors.New("invalid phone number")

// ParseE164 strictly parses input in region and returns its E.164 form.
// Empty input yields an empty string and no error.
func ParseE164(input, region string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", nil
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return "", ErrInvalidNumber
	}
	if !phonenumbers.IsValidNumber(number) {
		return "", ErrInvalidNumber
	}
	return phonenumbers.Format(number, phonenumbers.E164), nil
}
