package models

import "strings"

func normalizeEnum(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
