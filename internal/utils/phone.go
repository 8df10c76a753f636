package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// phoneRegex is the wire-format contract for phone numbers: E.164, a plus
// sign followed by 6 to 15 digits.
var phoneRegex = regexp.MustCompile(`^\+\d{6,15}$`)

// ValidatePhoneFormat validates that a phone string matches the E.164
// wire format accepted by the API.
func ValidatePhoneFormat(phone string) error {
	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("invalid phone number format")
	}
	return nil
}

// NormalizePhoneNumber parses a free-form phone string and returns it in
// E.164 format. Numbers without a leading + are parsed with the given
// default region (e.g. "US", "BR", "IN").
func NormalizePhoneNumber(phone, defaultRegion string) (string, error) {
	cleanPhone := strings.TrimSpace(phone)

	num, err := phonenumbers.Parse(cleanPhone, defaultRegion)
	if err != nil {
		return "", fmt.Errorf("failed to parse phone number: %w", err)
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone number")
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
