package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReferenceGenerator_Next(t *testing.T) {
	gen := NewReferenceGenerator("EL")
	gen.now = func() time.Time { return time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC) }

	ref := gen.Next(0)
	assert.Regexp(t, `^EL-2026-[A-HJ-NP-Z2-9]{6}$`, ref)

	// every retry widens the suffix by one
	for attempt := 1; attempt <= 4; attempt++ {
		parts := strings.Split(gen.Next(attempt), "-")
		assert.Len(t, parts[2], 6+attempt)
	}
}

func TestReferenceGenerator_Unique(t *testing.T) {
	gen := NewReferenceGenerator("EL")
	seen := make(map[string]bool)
	for i := 0; i < 2000; i++ {
		ref := gen.Next(0)
		assert.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}

func TestRandomSuffix_UsesAlphabetOnly(t *testing.T) {
	suffix := randomSuffix(500)
	for _, r := range suffix {
		assert.True(t, strings.ContainsRune(referenceAlphabet, r), "unexpected rune %q", r)
	}
	assert.NotContains(t, suffix, "0")
	assert.NotContains(t, suffix, "O")
}
