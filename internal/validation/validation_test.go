package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidScopeName(t *testing.T) {
	for _, v := range []string{"a", "docs:read", "docs:write", "a_b-c.d:scope2", strings.Repeat("a", 64)} {
		assert.True(t, ValidScopeName(v), v)
	}
	for _, v := range []string{"", ":lead", "trail:", "bad space", "UPPER", "semicolon;hack", strings.Repeat("a", 65)} {
		assert.False(t, ValidScopeName(v), v)
	}
}

func TestValidIndexName(t *testing.T) {
	for _, v := range []string{"books", "b", "logs-2024.01", "a_b", strings.Repeat("x", MaxIndexLen)} {
		assert.True(t, ValidIndexName(v), v)
	}
	for _, v := range []string{"", "Books", "_hidden", "-x", ".", "..", "a/b", "a b", strings.Repeat("x", MaxIndexLen+1)} {
		assert.False(t, ValidIndexName(v), v)
	}
}

func TestValidDocumentID(t *testing.T) {
	assert.True(t, ValidDocumentID("1"))
	assert.True(t, ValidDocumentID("a/b c"))
	assert.True(t, ValidDocumentID(strings.Repeat("x", MaxIDLen)))
	assert.False(t, ValidDocumentID(""))
	assert.False(t, ValidDocumentID(strings.Repeat("x", MaxIDLen+1)))
	assert.False(t, ValidDocumentID(string([]byte{0xff, 0xfe})))
}
