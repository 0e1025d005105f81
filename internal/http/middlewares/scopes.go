package middlewares

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/docstore/internal/http/errors"
	"github.com/dropDatabas3/docstore/internal/http/helpers"
)

// RequireScope verifica que el access token contenga el scope requerido.
// Debe usarse después de RequireAuth. Sin claims en el contexto (auth
// deshabilitada) el request pasa si required es false.
func RequireScope(scope string, required bool) Middleware {
	scope = strings.ToLower(strings.TrimSpace(scope))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if scope == "" {
				next.ServeHTTP(w, r)
				return
			}

			cl := GetClaims(r.Context())
			if cl == nil {
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				errors.WriteError(w, errors.ErrUnauthorized.WithDetail("no claims in context"))
				return
			}

			if !helpers.HasScope(helpers.ExtractScopes(cl), scope) {
				w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+scope+`"`)
				errors.WriteError(w, errors.ErrInsufficientScopes.WithDetail("required scope: "+scope))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteMethods aplica mw sólo a métodos de escritura.
func WriteMethods(mw Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isWrite(r.Method) {
				wrapped.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
