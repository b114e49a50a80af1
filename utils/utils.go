package utils

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var whitespace = regexp.MustCompile(`\s+`)

func IsValidUUID(u string) bool {
	_, err := uuid.Parse(u)
	return err == nil
}

// SanitizeJobLabel trims the label and replaces inner whitespace with underscores.
func SanitizeJobLabel(label string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(label), "_")
}
