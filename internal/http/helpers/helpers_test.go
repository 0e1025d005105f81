package helpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIfMatch(t *testing.T) {
	cases := []struct {
		header  string
		version int64
		star    bool
		present bool
		ok      bool
	}{
		{"", 0, false, false, true},
		{"*", 0, true, true, true},
		{`"3"`, 3, false, true, true},
		{`W/"4"`, 4, false, true, true},
		{"5", 5, false, true, true},
		{`"abc"`, 0, false, true, false},
		{`"0"`, 0, false, true, false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodPut, "/", nil)
		if tc.header != "" {
			r.Header.Set("If-Match", tc.header)
		}
		v, star, present, ok := IfMatch(r)
		assert.Equal(t, tc.version, v, tc.header)
		assert.Equal(t, tc.star, star, tc.header)
		assert.Equal(t, tc.present, present, tc.header)
		assert.Equal(t, tc.ok, ok, tc.header)
	}
}

func TestVersionETag(t *testing.T) {
	assert.Equal(t, `"12"`, VersionETag(12))
}

func TestReadBody_Limit(t *testing.T) {
	r := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"a":"0123456789"}`))
	_, err := ReadBody(httptest.NewRecorder(), r, 4)
	assert.ErrorIs(t, err, ErrBodyTooLarge)

	r = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{}`))
	b, err := ReadBody(httptest.NewRecorder(), r, 4)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))
}

func TestExtractScopes(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, ExtractScopes(map[string]any{"scp": "a b"}))
	assert.Equal(t, []string{"a"}, ExtractScopes(map[string]any{"scp": []any{"a", 1}}))
	assert.Equal(t, []string{"c"}, ExtractScopes(map[string]any{"scope": "c"}))
	assert.True(t, HasScope([]string{"Docs:Write"}, "docs:write"))
}
