package parser

import (
	"strings"

	"github.com/jinishshah00/logsleuth/internal/schema"
)

// extractor pulls one role's value out of a decoded row. The CSV parser
// decides on an extractor once, after sampling, and passes it into every
// per-row transform; it is never swapped mid-stream.
type extractor interface {
	get(row schema.Row, role schema.Role) string
}

// staticExtractor resolves roles through the fixed alias table, matching
// header names case-insensitively.
type staticExtractor struct {
	byLower map[string]string // lowercased header -> actual header
}

func newStaticExtractor(headers []string) staticExtractor {
	byLower := make(map[string]string, len(headers))
	for _, h := range headers {
		lower := strings.ToLower(h)
		if _, ok := byLower[lower]; !ok {
			byLower[lower] = h
		}
	}
	return staticExtractor{byLower: byLower}
}

func (s staticExtractor) get(row schema.Row, role schema.Role) string {
	for _, alias := range schema.Aliases(role) {
		if h, ok := s.byLower[alias]; ok {
			if v, ok := row[h]; ok && v != "" {
				return v
			}
		}
	}
	return ""
}

// mappedExtractor resolves roles through an inferred header mapping.
type mappedExtractor struct {
	mapping schema.Mapping
}

func (m mappedExtractor) get(row schema.Row, role schema.Role) string {
	h := m.mapping.Header(role)
	if h == "" {
		return ""
	}
	return row[h]
}
