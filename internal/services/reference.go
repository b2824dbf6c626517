package services

import (
	"crypto/rand"
	"fmt"
	"time"
)

// 32 symbols, no 0/O/1/I. 256 is a multiple of 32 so byte%32 is unbiased.
const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const baseReferenceSuffixLength = 6

// ReferenceGenerator builds human-readable booking references: PREFIX-YYYY-SUFFIX
type ReferenceGenerator struct {
	prefix string
	now    func() time.Time
}

// NewReferenceGenerator creates a generator with the given prefix (e.g. "EL")
func NewReferenceGenerator(prefix string) *ReferenceGenerator {
	return &ReferenceGenerator{prefix: prefix, now: time.Now}
}

// Next returns a reference for the given creation attempt.
// Each retry widens the random suffix by one character.
func (g *ReferenceGenerator) Next(attempt int) string {
	return fmt.Sprintf("%s-%d-%s", g.prefix, g.now().UTC().Year(), randomSuffix(baseReferenceSuffixLength+attempt))
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(fmt.Sprintf("reference suffix: %v", err))
	}
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return string(buf)
}
