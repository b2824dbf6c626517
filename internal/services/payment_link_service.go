package services

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/skyleg/emptyleg-backend/internal/config"
	"github.com/skyleg/emptyleg-backend/internal/models"
)

// PaymentLinkService builds signed payment links handed to clients on approval.
// The payment page verifies checkValue; no gateway call is made here.
type PaymentLinkService struct {
	config config.PaymentConfig
}

// NewPaymentLinkService creates a new payment link service
func NewPaymentLinkService(cfg config.PaymentConfig) *PaymentLinkService {
	return &PaymentLinkService{config: cfg}
}

// GenerateCheckValue creates the SHA-512 checkValue for a payment link
// Step 1: hash1 = SHA512(merchantToken) uppercase hex
// Step 2: SHA512("merchantKey|invoice|amount|currency|hash1") uppercase hex
func (s *PaymentLinkService) GenerateCheckValue(invoice, amount, currency string) string {
	hash1 := sha512.Sum512([]byte(s.config.MerchantToken))
	hash1Hex := strings.ToUpper(hex.EncodeToString(hash1[:]))

	data := fmt.Sprintf("%s|%s|%s|%s|%s",
		s.config.MerchantKey,
		invoice,
		amount,
		currency,
		hash1Hex,
	)
	hash2 := sha512.Sum512([]byte(data))
	return strings.ToUpper(hex.EncodeToString(hash2[:]))
}

// BuildLink returns the payment URL for an approved booking at the given amount
func (s *PaymentLinkService) BuildLink(booking *models.Booking, amount float64) (string, error) {
	base, err := url.Parse(s.config.LinkBaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("invalid payment link base url %q", s.config.LinkBaseURL)
	}

	amountStr := fmt.Sprintf("%.2f", amount)
	query := base.Query()
	query.Set("invoice", booking.ReferenceNumber)
	query.Set("amount", amountStr)
	query.Set("currency", s.config.Currency)
	query.Set("merchantKey", s.config.MerchantKey)
	query.Set("checkValue", s.GenerateCheckValue(booking.ReferenceNumber, amountStr, s.config.Currency))
	base.RawQuery = query.Encode()

	return base.String(), nil
}
