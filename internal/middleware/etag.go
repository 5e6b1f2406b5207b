package middleware

import "strings"

// ETagMatch reports whether an If-None-Match header value matches etag.
// The header may list several tags separated by commas or be "*".  Tags
// are compared weakly, so W/"x" and "x" are equal.
func ETagMatch(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" || etag == "" {
		return false
	}
	want := opaqueTag(etag)
	for _, tag := range strings.Split(ifNoneMatch, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" {
			return true
		}
		if tag != "" && opaqueTag(tag) == want {
			return true
		}
	}
	return false
}

func opaqueTag(tag string) string {
	return strings.TrimPrefix(strings.TrimSpace(tag), "W/")
}
