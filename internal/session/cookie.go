package session

import (
	"net/http"
	"net/url"
	"strings"
)

// ParseCookie finds name in a document.cookie style header ("a=1; b=2").
// The first match wins and its value is percent-decoded.
func ParseCookie(header, name string) (string, bool) {
	if header == "" || name == "" {
		return "", false
	}
	prefix := name + "="
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, prefix) {
			return decodeCookieValue(part[len(prefix):]), true
		}
	}
	return "", false
}

// SplitCookies converts a cookie header into jar-ready cookies.
func SplitCookies(header string) []*http.Cookie {
	var cookies []*http.Cookie
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		name, value, ok := strings.Cut(part, "=")
		if !ok || name == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	return cookies
}

func decodeCookieValue(v string) string {
	decoded, err := url.PathUnescape(v)
	if err != nil {
		return v
	}
	return decoded
}
