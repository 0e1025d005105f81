package middlewares

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/docstore/internal/http/errors"
	jwtx "github.com/dropDatabas3/docstore/internal/jwt"
	"github.com/dropDatabas3/docstore/internal/observability/logger"
)

// RequireAuth valida Authorization: Bearer <JWT> y guarda las claims en el contexto.
// Si el token es inválido o no está presente, responde 401.
// Con issuer nil la autenticación está deshabilitada y el request pasa.
func RequireAuth(issuer *jwtx.Issuer) Middleware {
	return func(next http.Handler) http.Handler {
		if issuer == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := strings.TrimSpace(r.Header.Get("Authorization"))
			if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				w.Header().Set("WWW-Authenticate", `Bearer realm="docstore", error="invalid_token", error_description="missing bearer token"`)
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}
			raw := strings.TrimSpace(ah[len("Bearer "):])

			claims, err := issuer.Parse(raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="docstore", error="invalid_token", error_description="`+err.Error()+`"`)
				errors.WriteError(w, errors.ErrTokenInvalid.WithDetail(err.Error()))
				return
			}

			ctx := WithClaims(r.Context(), claims)
			if sub := ClaimString(claims, "sub"); sub != "" {
				ctx = WithSubject(ctx, sub)
				ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.Subject(sub)))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
