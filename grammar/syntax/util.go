package syntax

import "strings"

// ValidIdentifierComponent reports whether a single dot-separated component
// of an identifier follows the naming rule: characters drawn from
// [A-Za-z0-9_], not empty, not all-numeric, and not all-underscore.
func ValidIdentifierComponent(s string) bool {
	if s == "" {
		return false
	}
	allDigits, allUnderscore := true, true
	for _, r := range s {
		isAlnumOrUnderscore := (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
		if !isAlnumOrUnderscore {
			return false
		}
		if r < '0' || r > '9' {
			allDigits = false
		}
		if r != '_' {
			allUnderscore = false
		}
	}
	return !allDigits && !allUnderscore
}

// ValidIdentifier reports whether every dot-separated component of name is a
// valid identifier component.
func ValidIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, part := range strings.Split(name, ".") {
		if !ValidIdentifierComponent(part) {
			return false
		}
	}
	return true
}
