package jwt

import (
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	iss := NewIssuer("docstore", []byte("secret"))
	tok, exp, err := iss.IssueAccess("ci", []string{ScopeRead, ScopeWrite}, time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)

	claims, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "ci", claims["sub"])
	assert.Equal(t, "docs:read docs:write", claims["scp"])
}

func TestParse_WrongSecret(t *testing.T) {
	tok, _, err := NewIssuer("docstore", []byte("a")).IssueAccess("ci", nil, 0)
	require.NoError(t, err)

	_, err = NewIssuer("docstore", []byte("b")).Parse(tok)
	require.Error(t, err)
}

func TestParse_WrongIssuer(t *testing.T) {
	tok, _, err := NewIssuer("other", []byte("s")).IssueAccess("ci", nil, 0)
	require.NoError(t, err)

	_, err = NewIssuer("docstore", []byte("s")).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidIssuer)
}

func TestParse_Expired(t *testing.T) {
	iss := NewIssuer("docstore", []byte("s"))
	claims := jwtv5.MapClaims{"iss": "docstore", "sub": "ci", "exp": time.Now().Add(-time.Hour).Unix()}
	tok, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(iss.Secret)
	require.NoError(t, err)

	_, err = iss.Parse(tok)
	require.Error(t, err)
}

func TestParse_RejectsNoneAlg(t *testing.T) {
	iss := NewIssuer("docstore", []byte("s"))
	tok, err := jwtv5.NewWithClaims(jwtv5.SigningMethodNone, jwtv5.MapClaims{"iss": "docstore"}).
		SignedString(jwtv5.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = iss.Parse(tok)
	require.Error(t, err)
}

func TestIssueAccess_NoSecret(t *testing.T) {
	_, _, err := NewIssuer("docstore", nil).IssueAccess("ci", nil, 0)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestIssueAccess_InvalidScope(t *testing.T) {
	_, _, err := NewIssuer("docstore", []byte("s")).IssueAccess("ci", []string{ScopeRead, "bad scope;"}, 0)
	assert.ErrorIs(t, err, ErrInvalidScope)
}
