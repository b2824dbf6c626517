package document

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
)

// ErrInvalidSignature is returned when a scanned confirmation was not issued by us
var ErrInvalidSignature = errors.New("confirmation signature mismatch")

// Confirmation is the content encoded into a booking confirmation QR
type Confirmation struct {
	Reference   string    `json:"ref"`
	Passenger   string    `json:"pax_name"`
	Seats       int       `json:"seats"`
	Route       string    `json:"route"` // "KTEB-KPBI"
	DepartureAt time.Time `json:"dep"`
	PaidAt      time.Time `json:"paid"`
}

// ConfirmationGenerator renders signed confirmation QR codes
type ConfirmationGenerator struct {
	secret []byte
	size   int
}

// NewConfirmationGenerator creates a generator that signs payloads with secret
func NewConfirmationGenerator(secret string) *ConfirmationGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &ConfirmationGenerator{secret: hashed[:], size: 256}
}

// Encode returns the signed text placed inside the QR: base64url(json).base64url(hmac)
func (g *ConfirmationGenerator) Encode(c Confirmation) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal confirmation: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(data)
	return payload + "." + g.sign(payload), nil
}

// Decode verifies and parses text produced by Encode
func (g *ConfirmationGenerator) Decode(token string) (*Confirmation, error) {
	payload, sig, ok := strings.Cut(token, ".")
	if !ok {
		return nil, fmt.Errorf("malformed confirmation token")
	}
	if !hmac.Equal([]byte(sig), []byte(g.sign(payload))) {
		return nil, ErrInvalidSignature
	}

	data, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("malformed confirmation payload: %w", err)
	}
	var c Confirmation
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("malformed confirmation payload: %w", err)
	}
	return &c, nil
}

// GeneratePNG renders the confirmation as a PNG QR code
func (g *ConfirmationGenerator) GeneratePNG(c Confirmation) ([]byte, error) {
	token, err := g.Encode(c)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(token, qrcode.Medium, g.size)
}

func (g *ConfirmationGenerator) sign(payload string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
