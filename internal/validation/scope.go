// Package validation contiene las reglas de nombres compartidas por la API,
// el CLI y el emisor de tokens.
package validation

import (
	"regexp"
	"unicode/utf8"
)

// Scope name rules:
// - Lowercase only.
// - Start and end with [a-z0-9].
// - Middle chars may include [a-z0-9:_.-].
// - Length 1..64.
//
// Examples valid: docs:read, docs:write, a, a_b-c.d:scope2
// Examples invalid: ;hack, BAD, bad space, :leader, trailer:, "", 65+ chars.
var scopeNameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9:_\.-]{0,62}[a-z0-9])?$`)

// ValidScopeName returns true if the provided scope name matches the allowed pattern.
func ValidScopeName(name string) bool {
	return scopeNameRe.MatchString(name)
}

const (
	MaxIndexLen = 255
	MaxIDLen    = 512
)

var indexNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// ValidIndexName: minúsculas [a-z0-9._-], empieza con letra o dígito, hasta MaxIndexLen bytes.
func ValidIndexName(name string) bool {
	if len(name) == 0 || len(name) > MaxIndexLen {
		return false
	}
	return indexNameRe.MatchString(name)
}

// ValidDocumentID: cualquier UTF-8 no vacío de hasta MaxIDLen bytes.
func ValidDocumentID(id string) bool {
	return id != "" && len(id) <= MaxIDLen && utf8.ValidString(id)
}
