package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")

	// ErrInvalidLength indicates the number is outside E.164 bounds
	ErrInvalidLength = errors.New("phone number must have between 8 and 15 digits including country code")

	// ErrInvalidFormat indicates phone number contains no usable digits
	ErrInvalidFormat = errors.New("phone number can only contain digits, spaces, dashes, dots, parentheses and a leading +")

	// ErrInvalidCountryCode indicates the configured default country code is unusable
	ErrInvalidCountryCode = errors.New("default country code must be 1-3 digits")
)

// phoneCharsRegex matches the characters a pasted phone number may contain
var phoneCharsRegex = regexp.MustCompile(`^[0-9+\-\s().]+$`)

// nonDigitRegex matches everything Sanitize strips
var nonDigitRegex = regexp.MustCompile(`[^0-9+]`)

var countryCodeRegex = regexp.MustCompile(`^[1-9][0-9]{0,2}$`)

// PhoneValidator normalizes phone numbers into E.164 (+<country><number>).
// Numbers written with a local trunk prefix (leading 0) get the default
// country code in place of the trunk digit.
type PhoneValidator struct {
	defaultCountryCode string
}

// NewPhoneValidator creates a new phone validator instance.
// defaultCountryCode is given without "+" (e.g. "1", "44", "52").
func NewPhoneValidator(defaultCountryCode string) *PhoneValidator {
	return &PhoneValidator{defaultCountryCode: strings.TrimPrefix(strings.TrimSpace(defaultCountryCode), "+")}
}

// Validate checks a phone number and returns it in E.164 form.
// Accepts: +1 (555) 123-4567, 0044 20 7946 0958, 020 7946 0958 (trunk prefix)
func (v *PhoneValidator) Validate(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", ErrEmptyPhone
	}

	if !phoneCharsRegex.MatchString(phone) {
		return "", ErrInvalidFormat
	}

	sanitized := v.Sanitize(phone)

	var digits string
	switch {
	case strings.HasPrefix(sanitized, "+"):
		digits = sanitized[1:]
	case strings.HasPrefix(sanitized, "00"):
		// International call prefix
		digits = sanitized[2:]
	case strings.HasPrefix(sanitized, "0"):
		// Local trunk prefix: swap for the default country code
		if !countryCodeRegex.MatchString(v.defaultCountryCode) {
			return "", ErrInvalidCountryCode
		}
		digits = v.defaultCountryCode + sanitized[1:]
	default:
		// Assume the country code is already there
		digits = sanitized
	}

	if digits == "" {
		return "", ErrInvalidFormat
	}
	if len(digits) < 8 || len(digits) > 15 {
		return "", ErrInvalidLength
	}

	return "+" + digits, nil
}

// Sanitize strips every character except digits and a single leading "+"
func (v *PhoneValidator) Sanitize(phone string) string {
	phone = nonDigitRegex.ReplaceAllString(strings.TrimSpace(phone), "")

	leadingPlus := strings.HasPrefix(phone, "+")
	phone = strings.ReplaceAll(phone, "+", "")
	if leadingPlus {
		return "+" + phone
	}
	return phone
}

// IsValid is a convenience method that returns true if phone is valid
func (v *PhoneValidator) IsValid(phone string) bool {
	_, err := v.Validate(phone)
	return err == nil
}
