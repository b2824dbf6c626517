package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPhoneValidator(t *testing.T) {
	validator := NewPhoneValidator("+44")
	assert.NotNil(t, validator)
	assert.Equal(t, "44", validator.defaultCountryCode)
}

func TestValidate_ValidNumbers(t *testing.T) {
	validator := NewPhoneValidator("1")

	validNumbers := []struct {
		input    string
		expected string
		name     string
	}{
		{"+15551234567", "+15551234567", "E.164"},
		{"+1 (555) 123-4567", "+15551234567", "Formatted with country code"},
		{"+44 20 7946 0958", "+442079460958", "UK with spaces"},
		{"0044 20 7946 0958", "+442079460958", "International 00 prefix"},
		{"05551234567", "+15551234567", "Trunk prefix gets default country code"},
		{"15551234567", "+15551234567", "Country code without plus"},
		{"555.123.4567.0", "+55512345670", "Dots"},
		{"  +15551234567  ", "+15551234567", "Surrounding whitespace"},
	}

	for _, tc := range validNumbers {
		t.Run(tc.name, func(t *testing.T) {
			normalized, err := validator.Validate(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, normalized)
		})
	}
}

func TestValidate_TrunkPrefixUsesConfiguredCountry(t *testing.T) {
	validator := NewPhoneValidator("52")

	normalized, err := validator.Validate("055 1234 5678")
	require.NoError(t, err)
	assert.Equal(t, "+525512345678", normalized)
}

func TestValidate_InvalidNumbers(t *testing.T) {
	validator := NewPhoneValidator("1")

	invalidNumbers := []struct {
		input       string
		expectedErr error
		name        string
	}{
		{"", ErrEmptyPhone, "Empty string"},
		{"   ", ErrEmptyPhone, "Only spaces"},
		{"+1 555 CALL NOW", ErrInvalidFormat, "Contains letters"},
		{"+", ErrInvalidFormat, "Only plus"},
		{"+1234", ErrInvalidLength, "Too short"},
		{"+1234567890123456", ErrInvalidLength, "Too long"},
	}

	for _, tc := range invalidNumbers {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validator.Validate(tc.input)
			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
}

func TestValidate_BadDefaultCountryCode(t *testing.T) {
	validator := NewPhoneValidator("")

	_, err := validator.Validate("05551234567")
	assert.ErrorIs(t, err, ErrInvalidCountryCode)

	// Numbers that already carry a country code do not need the default
	normalized, err := validator.Validate("+15551234567")
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", normalized)
}

func TestSanitize(t *testing.T) {
	validator := NewPhoneValidator("1")

	assert.Equal(t, "+15551234567", validator.Sanitize("+1 (555) 123-4567"))
	assert.Equal(t, "15551234567", validator.Sanitize("1+555+123+4567"))
	assert.Equal(t, "0771234567", validator.Sanitize("077-123-4567"))
}

func TestIsValid(t *testing.T) {
	validator := NewPhoneValidator("1")
	assert.True(t, validator.IsValid("+15551234567"))
	assert.False(t, validator.IsValid("abc"))
}
