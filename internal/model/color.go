package model

import (
	"regexp"
	"strings"
)

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// IsHexColor reports whether s is a #RGB, #RRGGBB or #RRGGBBAA color.
func IsHexColor(s string) bool {
	return hexColorPattern.MatchString(s)
}

// ValidColor accepts any non-empty palette token; tokens written in hex
// notation must be well formed.
func ValidColor(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, "#") {
		return IsHexColor(s)
	}
	return true
}
