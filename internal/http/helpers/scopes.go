package helpers

import "strings"

// ExtractScopes extrae los scopes de claims JWT.
// Soporta múltiples formatos:
//   - "scp" como []any (array de strings)
//   - "scp" como string (space-separated)
//   - "scope" como string (space-separated)
func ExtractScopes(claims map[string]any) []string {
	if v, ok := claims["scp"].([]any); ok {
		scopes := make([]string, 0, len(v))
		for _, i := range v {
			if s, ok := i.(string); ok {
				scopes = append(scopes, s)
			}
		}
		return scopes
	}
	if v, ok := claims["scp"].(string); ok {
		return strings.Fields(v)
	}
	if v, ok := claims["scope"].(string); ok {
		return strings.Fields(v)
	}
	return nil
}

// HasScope verifica si un scope específico está presente en la lista.
// La comparación es case-insensitive.
func HasScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}
