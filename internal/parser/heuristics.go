package parser

import (
	"regexp"
	"strings"
)

// Look-alike predicates used to disambiguate commonly confused CSV roles.
// Kept as independent functions, out of the parse loop's control flow, so
// each can be unit-tested with literal fixtures.

var (
	uaClientTokenRe = regexp.MustCompile(`(?i)Mozilla|AppleWebKit|Chrome|Firefox|Safari|Edge|Opera|curl|wget|python-requests|okhttp|bot|spider`)
	// product/version with a parenthesized comment, e.g. "Foo/1.2 (X11; Linux)".
	uaProductRe = regexp.MustCompile(`\S+/[\d.]+\s*\(`)
)

// LooksLikeUserAgent reports whether s resembles an HTTP user-agent string:
// longer than 10 characters and either carrying a known client token or a
// product/version pattern with parentheses.
func LooksLikeUserAgent(s string) bool {
	if len(s) <= 10 {
		return false
	}
	return uaClientTokenRe.MatchString(s) || uaProductRe.MatchString(s)
}

// HostHasPath reports whether s is a host-like string that actually carries
// a path ("example.com/download/x"), meaning it should be promoted to a URL.
func HostHasPath(s string) bool {
	if s == "" || strings.HasPrefix(s, "/") || strings.HasPrefix(s, "http") {
		return false
	}
	slash := strings.Index(s, "/")
	if slash <= 0 {
		return false
	}
	host := s[:slash]
	return strings.Contains(host, ".") && !strings.ContainsAny(host, " \t")
}
