package services

import (
	"strings"
	"testing"

	relay_errors "relaydesk/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
		valid bool
	}{
		{"plain digits", "4915112345678", "4915112345678", true},
		{"plus prefix", "+4915112345678", "4915112345678", true},
		{"formatted", "+49 (151) 123-45.678", "4915112345678", true},
		{"surrounding space", "  4915112345678  ", "4915112345678", true},
		{"shortest allowed", "123456", "123456", true},
		{"longest allowed", "123456789012345", "123456789012345", true},
		{"too short", "12345", "", false},
		{"too long", "1234567890123456", "", false},
		{"leading zero", "0915112345678", "", false},
		{"letters", "49151abc", "", false},
		{"empty", "", "", false},
		{"bare plus", "+", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := normalizePhone(tc.input)
			if !tc.valid {
				assert.ErrorIs(t, err, relay_errors.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestValidateEmailAddress(t *testing.T) {
	cases := []struct {
		input string
		valid bool
	}{
		{"ada@example.com", true},
		{"  ada@example.com  ", true},
		{"first.last+tag@sub.example.co", true},
		{"no-at-sign", false},
		{"two@@example.com", false},
		{"spaces in@example.com", false},
		{"ada@nodot", false},
		{"", false},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := validateEmailAddress(tc.input)
			if !tc.valid {
				assert.ErrorIs(t, err, relay_errors.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tc.input), got)
		})
	}
}

func TestTruncatePreview(t *testing.T) {
	assert.Equal(t, "short message", truncatePreview("  short message  "))

	long := strings.Repeat("a", 200)
	got := truncatePreview(long)
	assert.Equal(t, 160, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))

	// Multibyte input must be cut on rune boundaries.
	wide := strings.Repeat("ü", 200)
	got = truncatePreview(wide)
	assert.Equal(t, 160, len([]rune(got)))
	assert.Equal(t, strings.Repeat("ü", 159)+"…", got)

	exact := strings.Repeat("b", 160)
	assert.Equal(t, exact, truncatePreview(exact))
}
