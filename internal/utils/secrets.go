package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateSecret generates a hex-encoded random secret of the given byte length
func GenerateSecret(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// SigningSecrets are the HMAC keys the service needs at startup
type SigningSecrets struct {
	JWTSecret          string
	ConfirmationSecret string
}

// GenerateSigningSecrets generates two independent 256-bit secrets
func GenerateSigningSecrets() (SigningSecrets, error) {
	jwtSecret, err := GenerateSecret(32)
	if err != nil {
		return SigningSecrets{}, fmt.Errorf("failed to generate jwt secret: %w", err)
	}

	confirmationSecret, err := GenerateSecret(32)
	if err != nil {
		return SigningSecrets{}, fmt.Errorf("failed to generate confirmation secret: %w", err)
	}

	return SigningSecrets{JWTSecret: jwtSecret, ConfirmationSecret: confirmationSecret}, nil
}
