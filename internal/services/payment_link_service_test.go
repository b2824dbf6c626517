package services

import (
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyleg/emptyleg-backend/internal/config"
	"github.com/skyleg/emptyleg-backend/internal/models"
)

func upperSHA512(s string) string {
	sum := sha512.Sum512([]byte(s))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func TestGenerateCheckValue(t *testing.T) {
	svc := testPaymentLinks()

	got := svc.GenerateCheckValue("EL-2026-ABC234", "4200.00", "USD")
	want := upperSHA512("MK-1|EL-2026-ABC234|4200.00|USD|" + upperSHA512("secret-token"))

	assert.Equal(t, want, got)
	assert.Len(t, got, 128)
	assert.NotEqual(t, got, svc.GenerateCheckValue("EL-2026-ABC234", "4200.01", "USD"))
}

func TestBuildLink(t *testing.T) {
	svc := testPaymentLinks()
	booking := &models.Booking{ReferenceNumber: "EL-2026-XYZ789"}

	link, err := svc.BuildLink(booking, 1234.5)
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "pay.example.com", u.Host)
	assert.Equal(t, "/checkout", u.Path)

	q := u.Query()
	assert.Equal(t, "EL-2026-XYZ789", q.Get("invoice"))
	assert.Equal(t, "1234.50", q.Get("amount"))
	assert.Equal(t, "USD", q.Get("currency"))
	assert.Equal(t, "MK-1", q.Get("merchantKey"))
	assert.Equal(t, svc.GenerateCheckValue("EL-2026-XYZ789", "1234.50", "USD"), q.Get("checkValue"))
	assert.NotContains(t, link, "secret-token")
}

func TestBuildLink_InvalidBaseURL(t *testing.T) {
	for _, base := range []string{"", "not a url", "/relative/pay"} {
		svc := NewPaymentLinkService(config.PaymentConfig{LinkBaseURL: base, Currency: "USD"})
		_, err := svc.BuildLink(&models.Booking{ReferenceNumber: "EL-1"}, 10)
		assert.Error(t, err, base)
	}
}
