// Package jwt firma y valida los bearer tokens (HS256) de la API de documentos.
package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/docstore/internal/validation"
)

// Scopes reconocidos por la API.
const (
	ScopeRead  = "docs:read"
	ScopeWrite = "docs:write"
)

var (
	ErrInvalidIssuer = errors.New("invalid_issuer")
	ErrMissingSecret = errors.New("jwt secret not configured")
	ErrInvalidScope  = errors.New("invalid_scope")
)

// Issuer firma tokens con un secreto compartido.
type Issuer struct {
	Iss       string        // "iss"
	Secret    []byte        // clave HMAC
	AccessTTL time.Duration // TTL por defecto (ej: 1h)
}

func NewIssuer(iss string, secret []byte) *Issuer {
	return &Issuer{
		Iss:       iss,
		Secret:    secret,
		AccessTTL: time.Hour,
	}
}

// Keyfunc devuelve el jwt.Keyfunc que valida con el secreto del issuer.
func (i *Issuer) Keyfunc() jwtv5.Keyfunc {
	return func(t *jwtv5.Token) (any, error) {
		if len(i.Secret) == 0 {
			return nil, ErrMissingSecret
		}
		return i.Secret, nil
	}
}

// IssueAccess emite un access token para sub con los scopes dados.
// ttl 0 usa AccessTTL.
func (i *Issuer) IssueAccess(sub string, scopes []string, ttl time.Duration) (string, time.Time, error) {
	if len(i.Secret) == 0 {
		return "", time.Time{}, ErrMissingSecret
	}
	for _, sc := range scopes {
		if !validation.ValidScopeName(sc) {
			return "", time.Time{}, fmt.Errorf("%w: %q", ErrInvalidScope, sc)
		}
	}
	if ttl <= 0 {
		ttl = i.AccessTTL
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)

	claims := jwtv5.MapClaims{
		"iss": i.Iss,
		"sub": sub,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": exp.Unix(),
		"scp": strings.Join(scopes, " "),
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(i.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}
