package parser

import (
	"regexp"
	"strconv"
)

// namedRe wraps a regexp whose submatches are all named, exposing matches as
// a map.
type namedRe struct {
	re *regexp.Regexp
}

func mustNamed(pattern string) namedRe {
	return namedRe{re: regexp.MustCompile(pattern)}
}

// groups returns the named submatches of s, or nil when s does not match.
func (n namedRe) groups(s string) map[string]string {
	m := n.re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	out := make(map[string]string)
	for i, name := range n.re.SubexpNames() {
		if name != "" && i < len(m) {
			out[name] = m[i]
		}
	}
	return out
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
