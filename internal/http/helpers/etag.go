package helpers

import (
	"net/http"
	"strconv"
	"strings"
)

// VersionETag arma el ETag fuerte de un documento a partir de su versión.
func VersionETag(version int64) string {
	return `"` + strconv.FormatInt(version, 10) + `"`
}

// IfMatch interpreta el header If-Match.
// present=false si no hay header; wildcard=true para "*".
// Un valor que no es una versión devuelve ok=false.
func IfMatch(r *http.Request) (version int64, wildcard bool, present bool, ok bool) {
	v := strings.TrimSpace(r.Header.Get("If-Match"))
	if v == "" {
		return 0, false, false, true
	}
	if v == "*" {
		return 0, true, true, true
	}
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, `"`)
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 1 {
		return 0, false, true, false
	}
	return n, false, true, true
}
