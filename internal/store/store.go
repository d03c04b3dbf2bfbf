// Package store defines the persistence contracts the pipeline depends on.
// The parser and detectors treat persistence as opaque: any implementation
// satisfying these interfaces can back them. store/memory is the reference
// implementation; store/bolt persists to disk.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jinishshah00/logsleuth/internal/model"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("store: not found")

// EventFilter selects events. Zero fields are ignored. Domain and Search are
// case-insensitive substring matches; Search spans url, domain, and
// user-agent.
type EventFilter struct {
	UploadID string
	Actor    string // matches user name or source IP
	SrcIP    string
	Domain   string
	Statuses []int
	Methods  []string
	From     *time.Time
	To       *time.Time
	Search   string
}

// Page bounds a FindMany result. A zero Page means everything.
type Page struct {
	Number int // 1-based
	Size   int
}

// EventStore persists normalized events. Events are immutable once created.
type EventStore interface {
	// CreateBatch persists a batch, assigning IDs in batch order.
	CreateBatch(ctx context.Context, events []*model.Event) error
	Count(ctx context.Context, f EventFilter) (int, error)
	// FindMany returns matching events ordered by (ts asc, id asc) with
	// nil timestamps last.
	FindMany(ctx context.Context, f EventFilter, page Page) ([]*model.Event, error)
	DeleteMany(ctx context.Context, f EventFilter) error
}

// UploadStore tracks upload lifecycle state. Delete cascades the upload's
// events and anomalies in one atomic step.
type UploadStore interface {
	CreateUpload(ctx context.Context, u *model.Upload) error
	GetUpload(ctx context.Context, id string) (*model.Upload, error)
	// UpdateStatus transitions the upload. counts may be nil to leave the
	// row counters untouched; errorText replaces any prior error.
	UpdateStatus(ctx context.Context, id string, status model.UploadStatus, counts *RowCounts, errorText string) error
	DeleteUpload(ctx context.Context, id string) error
}

// RowCounts carries an upload's total/parsed counters.
type RowCounts struct {
	Total  int
	Parsed int
}

// AnomalyStore persists detector findings.
type AnomalyStore interface {
	CreateAnomalies(ctx context.Context, anomalies []*model.Anomaly) error
	// DeleteAnomalies removes all anomalies for the upload.
	DeleteAnomalies(ctx context.Context, uploadID string) error
	// FindAnomalies returns the upload's anomalies ordered by creation.
	FindAnomalies(ctx context.Context, uploadID string) ([]*model.Anomaly, error)
}

// Store is the full persistence surface. Implementations back all three
// record types so upload deletion can cascade atomically.
type Store interface {
	EventStore
	UploadStore
	AnomalyStore
}

// Matches reports whether e passes the filter. Shared by scan-based
// implementations.
func (f EventFilter) Matches(e *model.Event) bool {
	if f.UploadID != "" && e.UploadID != f.UploadID {
		return false
	}
	if f.Actor != "" && e.Actor() != f.Actor {
		return false
	}
	if f.SrcIP != "" && e.SrcIP != f.SrcIP {
		return false
	}
	if f.Domain != "" && !containsFold(e.Domain, f.Domain) {
		return false
	}
	if len(f.Statuses) > 0 && !containsInt(f.Statuses, e.Status) {
		return false
	}
	if len(f.Methods) > 0 && !containsStr(f.Methods, e.Method) {
		return false
	}
	if f.From != nil && (e.TS == nil || e.TS.Before(*f.From)) {
		return false
	}
	if f.To != nil && (e.TS == nil || e.TS.After(*f.To)) {
		return false
	}
	if f.Search != "" &&
		!containsFold(e.URL, f.Search) &&
		!containsFold(e.Domain, f.Search) &&
		!containsFold(e.UserAgent, f.Search) {
		return false
	}
	return true
}
