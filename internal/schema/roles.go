package schema

import (
	"regexp"
	"strings"

	"github.com/jinishshah00/logsleuth/internal/normalize"
)

// Role is a semantic field category a raw column may be mapped to.
type Role string

const (
	RoleLogin     Role = "login"
	RoleClientIP  Role = "cip"
	RoleHost      Role = "host"
	RoleURL       Role = "url"
	RoleMethod    Role = "method"
	RoleStatus    Role = "status"
	RoleBytesOut  Role = "bytes_out"
	RoleBytesIn   Role = "bytes_in"
	RoleUserAgent Role = "useragent"
	RoleCategory  Role = "category"
	RoleAction    Role = "action"
	RoleCountry   Role = "country"
	RoleCity      Role = "city"

	// RoleTime is not part of the default role set; the CSV parser infers
	// it separately when no known time column name is present.
	RoleTime Role = "time"
)

// AllRoles is the fixed role iteration order. Greedy assignment walks this
// slice, so the order is part of the engine's observable behavior and must
// stay stable for reproducible mappings.
var AllRoles = []Role{
	RoleLogin,
	RoleClientIP,
	RoleHost,
	RoleURL,
	RoleMethod,
	RoleStatus,
	RoleBytesOut,
	RoleBytesIn,
	RoleUserAgent,
	RoleCategory,
	RoleAction,
	RoleCountry,
	RoleCity,
}

// aliases maps each role to the header names commonly seen for it across
// proxy and web-server exports.
var aliases = map[Role][]string{
	RoleLogin:     {"login", "user", "username"},
	RoleClientIP:  {"cip", "src_ip", "source_ip", "clientip", "ip", "srcip"},
	RoleHost:      {"host", "domain", "site"},
	RoleURL:       {"url", "request", "uri", "path"},
	RoleMethod:    {"method", "reqmethod", "http_method", "verb"},
	RoleStatus:    {"status", "respcode", "status_code", "http_status"},
	RoleBytesOut:  {"bytes_out", "bytesout", "reqsize", "sentbytes", "bytes"},
	RoleBytesIn:   {"bytes_in", "bytesin", "respsize", "recvbytes"},
	RoleUserAgent: {"useragent", "ua", "user_agent"},
	RoleCategory:  {"category", "categories"},
	RoleAction:    {"action", "decision"},
	RoleCountry:   {"country"},
	RoleCity:      {"city"},
	RoleTime:      {"time", "datetime", "timestamp", "date", "eventtime"},
}

// Aliases returns the header aliases for role, in declaration order.
func Aliases(role Role) []string {
	return aliases[role]
}

var (
	dottedQuadRe = regexp.MustCompile(`^\d{1,3}(?:\.\d{1,3}){3}$`)
	methodRe     = regexp.MustCompile(`^(GET|POST|PUT|DELETE|PATCH|OPTIONS|HEAD)$`)
	statusRe     = regexp.MustCompile(`^[1-5][0-9][0-9]$`)
	numericRe    = regexp.MustCompile(`^[-+]?\d[\d, ]*$`)
	uaTokenRe    = regexp.MustCompile(`(?i)Mozilla|AppleWebKit|Chrome|Firefox|Safari|curl|bot`)
	categoryRe   = regexp.MustCompile(`^[a-zA-Z0-9_\- ]+$`)
	actionRe     = regexp.MustCompile(`(?i)allow|deny|blocked|allowed|accept|drop`)
	countryRe    = regexp.MustCompile(`^[A-Z]{2}$`)
	cityRe       = regexp.MustCompile(`^[A-Za-z\-\s]+$`)
)

// validators score a single sampled value's plausibility for a role, 0..1.
// Weak signals (host, category, city) deliberately score below 1 so that
// name similarity dominates for those roles.
var validators = map[Role]func(string) float64{
	RoleLogin: func(v string) float64 {
		return boolScore(strings.Contains(v, "@"), 1)
	},
	RoleClientIP: func(v string) float64 {
		return boolScore(dottedQuadRe.MatchString(v), 1)
	},
	RoleHost: func(v string) float64 {
		return boolScore(v != "" && (strings.HasPrefix(v, "http") || strings.Contains(v, ".")), 0.6)
	},
	RoleURL: func(v string) float64 {
		return boolScore(v != "" && (strings.HasPrefix(v, "http") || strings.Contains(v, "/")), 1)
	},
	RoleMethod: func(v string) float64 {
		return boolScore(methodRe.MatchString(strings.ToUpper(v)), 1)
	},
	RoleStatus: func(v string) float64 {
		return boolScore(statusRe.MatchString(v), 1)
	},
	RoleBytesOut: func(v string) float64 {
		return boolScore(numericRe.MatchString(v), 1)
	},
	RoleBytesIn: func(v string) float64 {
		return boolScore(numericRe.MatchString(v), 1)
	},
	RoleUserAgent: func(v string) float64 {
		return boolScore(len(v) > 10 && uaTokenRe.MatchString(v), 1)
	},
	RoleCategory: func(v string) float64 {
		return boolScore(v != "" && len(v) < 50 && categoryRe.MatchString(v), 0.2)
	},
	RoleAction: func(v string) float64 {
		return boolScore(actionRe.MatchString(v), 1)
	},
	RoleCountry: func(v string) float64 {
		return boolScore(countryRe.MatchString(v), 1)
	},
	RoleCity: func(v string) float64 {
		return boolScore(v != "" && cityRe.MatchString(v), 0.3)
	},
	RoleTime: func(v string) float64 {
		return boolScore(normalize.ToTime(v) != nil, 1)
	},
}

func boolScore(ok bool, weight float64) float64 {
	if ok {
		return weight
	}
	return 0
}

var (
	statusHintRe = regexp.MustCompile(`status|resp`)
	bytesHintRe  = regexp.MustCompile(`byte|size|len`)
	uaHintRe     = regexp.MustCompile(`agent|useragent|ua`)
)

// nameScore rates how well a header name matches a role by alias similarity:
// exact 1.0, whole word 0.95, prefix/suffix 0.85, substring 0.6, plus a few
// hand-tuned fallbacks for headers that name the concept without using any
// alias verbatim.
func nameScore(header string, role Role) float64 {
	h := strings.ToLower(header)
	for _, a := range aliases[role] {
		la := strings.ToLower(a)
		if h == la {
			return 1
		}
		// Whole-word match; avoids matching "user" inside "useragent".
		if wordRe(la).MatchString(h) {
			return 0.95
		}
		if strings.HasPrefix(h, la) || strings.HasSuffix(h, la) {
			return 0.85
		}
		if strings.Contains(h, la) {
			return 0.6
		}
	}
	switch {
	case role == RoleStatus && statusHintRe.MatchString(h):
		return 0.8
	case (role == RoleBytesOut || role == RoleBytesIn) && bytesHintRe.MatchString(h):
		return 0.8
	case role == RoleUserAgent && uaHintRe.MatchString(h):
		return 0.9
	}
	return 0
}

var wordRes = map[string]*regexp.Regexp{}

func wordRe(alias string) *regexp.Regexp {
	if re, ok := wordRes[alias]; ok {
		return re
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(alias) + `\b`)
	wordRes[alias] = re
	return re
}

func init() {
	// Pre-compile word regexes so concurrent Infer calls never mutate the map.
	for _, as := range aliases {
		for _, a := range as {
			wordRe(strings.ToLower(a))
		}
	}
}
