// Package report assembles and delivers per-upload findings reports: the
// upload's final state, row counts, detector findings, and the aggregate
// summary. Sinks are pluggable destinations; a report is delivered once per
// completed parse-and-detect cycle.
package report

import (
	"context"
	"time"

	"github.com/jinishshah00/logsleuth/internal/analytics"
	"github.com/jinishshah00/logsleuth/internal/model"
)

// Report is one upload's complete findings package.
type Report struct {
	Upload      *model.Upload          `json:"upload"`
	Anomalies   []*model.Anomaly       `json:"anomalies"`
	ByDetector  map[model.Detector]int `json:"by_detector"`
	Summary     *analytics.Summary     `json:"summary,omitempty"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// Sink is a report destination.
type Sink interface {
	Deliver(ctx context.Context, r *Report) error
	Close() error
}

// New builds a Report, stamping the generation time in UTC.
func New(u *model.Upload, anomalies []*model.Anomaly, byDetector map[model.Detector]int, summary *analytics.Summary) *Report {
	return &Report{
		Upload:      u,
		Anomalies:   anomalies,
		ByDetector:  byDetector,
		Summary:     summary,
		GeneratedAt: time.Now().UTC(),
	}
}
