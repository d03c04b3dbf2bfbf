// Package format classifies raw log sources by filename and content so the
// ingestion orchestrator can pick a parser. Classification is pure: no I/O,
// no state.
package format

import (
	"regexp"
	"strings"
)

// Kind is the detected shape of a log source.
type Kind string

const (
	KindCSV     Kind = "tabular_csv"
	KindApache  Kind = "apache_combined"
	KindJSON    Kind = "json"    // structured JSON, no parser yet
	KindW3C     Kind = "w3c"     // W3C extended, no parser yet
	KindText    Kind = "text"    // free text, no parser yet
	KindUnknown Kind = "unknown"
)

// Parseable reports whether a parser exists for the kind. JSON, W3C, and
// plain text classify distinctly but are unhandled downstream.
func (k Kind) Parseable() bool {
	return k == KindCSV || k == KindApache
}

// Bracketed combined-log timestamp, e.g. [10/Oct/2000:13:55:36 -0700].
var combinedTimeRe = regexp.MustCompile(`\d{2}/\w{3}/\d{4}:\d{2}:\d{2}:\d{2} [+-]\d{4}`)

// FromFilename classifies by file extension alone. Returns KindUnknown when
// the extension is not decisive.
func FromFilename(name string) Kind {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return KindCSV
	case strings.HasSuffix(lower, ".log"), strings.HasSuffix(lower, ".txt"):
		return KindApache
	default:
		return KindUnknown
	}
}

// FromSample classifies by inspecting a sample line (typically the first
// non-empty line of the source).
func FromSample(line string) Kind {
	s := strings.TrimSpace(line)
	switch {
	case s == "":
		return KindUnknown
	case strings.HasPrefix(s, "{"), strings.HasPrefix(s, "["):
		return KindJSON
	case strings.HasPrefix(s, "#Fields:"):
		return KindW3C
	case combinedTimeRe.MatchString(s):
		return KindApache
	default:
		return KindText
	}
}

// Detect classifies using the filename first, then the sample line.
func Detect(filename, sampleLine string) Kind {
	if k := FromFilename(filename); k != KindUnknown {
		return k
	}
	return FromSample(sampleLine)
}
