package model

import (
	"math/big"
	"time"
)

// Event is the canonical normalized form of one log line or record.
// Events are created in bulk during parsing and never updated in place;
// they are deleted only when their owning upload is deleted.
type Event struct {
	ID       int64
	UploadID string

	TS     *time.Time // nil when the source had no parseable timestamp
	SrcIP  string
	DstIP  string
	User   string // authenticated user / login, "" when absent
	URL    string
	Domain string
	Method string
	Status int // HTTP status code, 0 when absent

	Category string
	Action   string

	BytesIn  *big.Int // unbounded: proxy byte counters can exceed 53-bit ranges
	BytesOut *big.Int

	UserAgent string
	Referrer  string

	Country   string
	City      string
	Latitude  *float64
	Longitude *float64

	// Derived URL parts, all "" when the URL was absent or unparseable.
	URLHost string
	URLPath string
	URLTld  string

	// HourBucket/DayBucket are TS floored to the hour/day in UTC, nil iff TS is nil.
	HourBucket *time.Time
	DayBucket  *time.Time

	// Extras preserves the original record's fields for fidelity.
	Extras map[string]string

	RawLine string
}

// Actor returns the event's attributed identity: the user name when present,
// otherwise the source IP. Empty when neither is known.
func (e *Event) Actor() string {
	if e.User != "" {
		return e.User
	}
	return e.SrcIP
}
