package auth

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

const basicPrefix = "Basic "

// ParseBasic extracts email and password from an `Authorization: Basic`
// header value. The password may itself contain colons.
func ParseBasic(header string) (email, password string, ok bool) {
	if !strings.HasPrefix(header, basicPrefix) {
		return "", "", false
	}
	raw, err := base64.StdEncoding.DecodeString(header[len(basicPrefix):])
	if err != nil || !utf8.Valid(raw) {
		return "", "", false
	}
	email, password, ok = strings.Cut(string(raw), ":")
	if !ok {
		return "", "", false
	}
	return email, password, true
}

// RequireAuth reports whether path needs credentials. Paths are compared with
// a trailing slash; an excluded entry ending in `*` matches as a prefix.
func RequireAuth(path string, excluded []string) bool {
	if path == "" || len(excluded) == 0 {
		return true
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	for _, ex := range excluded {
		if prefix, wild := strings.CutSuffix(ex, "*"); wild {
			if strings.HasPrefix(path, prefix) {
				return false
			}
			continue
		}
		if path == ex {
			return false
		}
	}
	return true
}
