package validator

import (
	"errors"
	"strings"

	playground "github.com/go-playground/validator/v10"
)

var (
	// ErrMissingName indicates first or last name is blank
	ErrMissingName = errors.New("first and last name are required")

	// ErrEmptyEmail indicates the email is blank
	ErrEmptyEmail = errors.New("email is required")

	// ErrInvalidEmail indicates the email is not a valid address
	ErrInvalidEmail = errors.New("email address is invalid")
)

var fieldValidator = playground.New()

// ContactValidator validates the contact block of a quote request
type ContactValidator struct {
	phones *PhoneValidator
}

// NewContactValidator creates a validator that normalizes phones with the given validator
func NewContactValidator(phones *PhoneValidator) *ContactValidator {
	return &ContactValidator{phones: phones}
}

// ValidateEmail checks the email is present and well formed
func (v *ContactValidator) ValidateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrEmptyEmail
	}
	if err := fieldValidator.Var(email, "email,max=254"); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Validate checks every contact field and returns the normalized phone and email
func (v *ContactValidator) Validate(firstName, lastName, email, phone string) (normalizedPhone, normalizedEmail string, err error) {
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return "", "", ErrMissingName
	}

	normalizedEmail, err = v.ValidateEmail(email)
	if err != nil {
		return "", "", err
	}

	normalizedPhone, err = v.phones.Validate(phone)
	if err != nil {
		return "", "", err
	}

	return normalizedPhone, normalizedEmail, nil
}
