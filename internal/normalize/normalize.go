// Package normalize provides pure field normalizers used by the format
// parsers: string to typed-value conversion, URL decomposition, and
// time-bucket truncation.
package normalize

import (
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ToInt parses s as a base-10 integer. Returns 0, false for empty or
// non-numeric input.
func ToInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ToBigInt parses s as an arbitrary-precision integer, tolerating comma and
// space grouping ("1,234,567"). Returns nil for empty or non-numeric input.
func ToBigInt(s string) *big.Int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || r == ' ' {
			return -1
		}
		return r
	}, s)
	n, ok := new(big.Int).SetString(cleaned, 10)
	if !ok {
		return nil
	}
	return n
}

// timeLayouts are tried in order by ToTime. Proxy CSV exports are loose about
// timestamp shape, so several common layouts are accepted.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"Mon Jan 2 15:04:05 2006",
	"2006-01-02",
}

// ToTime parses s against a fixed list of common timestamp layouts.
// Layouts without an explicit offset are interpreted as UTC. Returns nil when
// no layout matches.
func ToTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t = t.UTC()
			return &t
		}
	}
	// Epoch seconds show up in some exporter CSVs.
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 1e8 && secs < 1e11 {
		t := time.Unix(secs, 0).UTC()
		return &t
	}
	return nil
}

// URLParts is the decomposition of an absolute URL.
type URLParts struct {
	Host string
	Path string
	Tld  string
}

// SplitURL decomposes an absolute URL into host, path, and top-level domain.
// Parse failures are swallowed: the zero URLParts is returned.
func SplitURL(raw string) URLParts {
	if raw == "" {
		return URLParts{}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return URLParts{}
	}
	host := u.Hostname()
	parts := URLParts{Host: host, Path: u.Path}
	if i := strings.LastIndex(host, "."); i >= 0 && i < len(host)-1 {
		parts.Tld = host[i+1:]
	} else {
		parts.Tld = host // bare hostname, e.g. "localhost"
	}
	return parts
}

// TruncateToHour floors t to the hour in UTC. nil in, nil out.
func TruncateToHour(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	h := t.UTC().Truncate(time.Hour)
	return &h
}

// TruncateToDay floors t to midnight UTC. nil in, nil out.
func TruncateToDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	d := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}
