package services

import (
	"fmt"
	"regexp"
	"strings"

	relay_errors "relaydesk/pkg/errors"
)

const previewLength = 160

var (
	phonePattern = regexp.MustCompile(`^[1-9][0-9]{5,14}$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// normalizePhone canonicalizes a remote phone number to bare E.164
// digits. Thread identity depends on this being stable across webhook
// deliveries and user input.
func normalizePhone(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	cleaned = strings.TrimPrefix(cleaned, "+")
	if !phonePattern.MatchString(cleaned) {
		return "", fmt.Errorf("%w: malformed phone number %q", relay_errors.ErrValidation, raw)
	}
	return cleaned, nil
}

func validateEmailAddress(raw string) (string, error) {
	addr := strings.TrimSpace(raw)
	if !emailPattern.MatchString(addr) {
		return "", fmt.Errorf("%w: malformed email address %q", relay_errors.ErrValidation, raw)
	}
	return addr, nil
}

// truncatePreview shortens a body for the thread list rollup.
func truncatePreview(body string) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) <= previewLength {
		return string(runes)
	}
	return string(runes[:previewLength-1]) + "…"
}
