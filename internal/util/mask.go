// Package util contiene helpers chicos sin dependencias del dominio.
package util

import (
	"net/url"
	"strings"
)

// MaskDSN oculta la contraseña de un DSN tipo URL para poder loguearlo.
// Formatos que no son URL (key=value de libpq) enmascaran password=...
func MaskDSN(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return ""
	}
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.Host != "" {
		return u.Redacted()
	}
	parts := strings.Fields(dsn)
	for i, p := range parts {
		if k, _, ok := strings.Cut(p, "="); ok && strings.EqualFold(k, "password") {
			parts[i] = k + "=***"
		}
	}
	return strings.Join(parts, " ")
}
