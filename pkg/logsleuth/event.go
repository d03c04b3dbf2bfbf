package logsleuth

import (
	"math/big"
	"time"
)

// Event is a normalized log event.
// This is the stable public type; internal representations may evolve
// independently without breaking consumers.
type Event struct {
	ID        int64      `json:"id"`
	Timestamp *time.Time `json:"timestamp,omitempty"` // nil when the source had none
	SrcIP     string     `json:"src_ip,omitempty"`
	User      string     `json:"user,omitempty"`
	URL       string     `json:"url,omitempty"`
	Domain    string     `json:"domain,omitempty"`
	Method    string     `json:"method,omitempty"`
	Status    int        `json:"status,omitempty"`
	BytesIn   *big.Int   `json:"bytes_in,omitempty"`
	BytesOut  *big.Int   `json:"bytes_out,omitempty"`
	UserAgent string     `json:"user_agent,omitempty"`
	Country   string     `json:"country,omitempty"`
	City      string     `json:"city,omitempty"`
}

// Anomaly is one detector finding for an ingested file.
type Anomaly struct {
	Detector   string  `json:"detector"`           // e.g. "D3_error_ratio"
	Reason     string  `json:"reason"`             // human-readable explanation
	Confidence float64 `json:"confidence"`         // in [0,1], not a calibrated probability
	EventID    *int64  `json:"event_id,omitempty"` // representative event, when one exists
}

// Result summarizes one ingested file: row counts and the anomalies
// detected over its events.
type Result struct {
	UploadID  string    `json:"upload_id"`
	Total     int       `json:"total"`
	Parsed    int       `json:"parsed"`
	Anomalies []Anomaly `json:"anomalies"`
}
