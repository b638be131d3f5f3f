package domain

import "strings"

// normalizeOptional trims value and maps the empty string to nil.
func normalizeOptional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// OptionalString is the exported form of normalizeOptional used by boundary adapters.
func OptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	return normalizeOptional(*value)
}
