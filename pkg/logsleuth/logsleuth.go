package logsleuth

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jinishshah00/logsleuth/internal/analytics"
	"github.com/jinishshah00/logsleuth/internal/detect"
	"github.com/jinishshah00/logsleuth/internal/geoip"
	"github.com/jinishshah00/logsleuth/internal/ingest"
	"github.com/jinishshah00/logsleuth/internal/model"
	"github.com/jinishshah00/logsleuth/internal/store"
	boltstore "github.com/jinishshah00/logsleuth/internal/store/bolt"
	"github.com/jinishshah00/logsleuth/internal/store/memory"
)

// Sleuth is a log ingestion and anomaly detection pipeline.
// It parses CSV and Apache access logs into normalized events and runs the
// fixed detector set over each ingested file. Safe for concurrent use.
type Sleuth struct {
	store      store.Store
	resolver   *geoip.Resolver
	orch       *ingest.Orchestrator
	engine     *detect.Engine
	analytics  *analytics.Service
	closeStore func() error
}

// New creates a Sleuth instance. With no options it keeps all state in
// memory and performs no geolocation enrichment.
func New(opts ...Option) (*Sleuth, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var st store.Store
	closeStore := func() error { return nil }
	if o.boltPath != "" {
		bs, err := boltstore.Open(o.boltPath)
		if err != nil {
			return nil, fmt.Errorf("logsleuth: %w", err)
		}
		st = bs
		closeStore = bs.Close
	} else {
		st = memory.New()
	}

	resolver, err := geoip.Open(o.geoIPPath, geoip.NewCache())
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("logsleuth: %w", err)
	}

	orch := ingest.New(st, ingest.LocalSource{}, resolver,
		ingest.WithBatchSize(o.batchSize),
		ingest.WithInferThreshold(o.inferThreshold))

	return &Sleuth{
		store:      st,
		resolver:   resolver,
		orch:       orch,
		engine:     detect.New(st, st),
		analytics:  analytics.New(st),
		closeStore: closeStore,
	}, nil
}

// IngestFile parses the log file at path, runs anomaly detection over its
// events, and returns the findings. Each call creates a new upload.
func (s *Sleuth) IngestFile(ctx context.Context, path string) (Result, error) {
	u := &model.Upload{
		ID:        ingest.NewUploadID(),
		Filename:  filepath.Base(path),
		Locator:   path,
		Status:    model.StatusReceived,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateUpload(ctx, u); err != nil {
		return Result{}, fmt.Errorf("logsleuth: %w", err)
	}
	res, err := s.orch.ParseUpload(ctx, u.ID)
	if err != nil {
		return Result{}, fmt.Errorf("logsleuth: %w", err)
	}
	if _, err := s.engine.Run(ctx, u.ID); err != nil {
		return Result{}, fmt.Errorf("logsleuth: %w", err)
	}
	anomalies, err := s.Anomalies(ctx, u.ID)
	if err != nil {
		return Result{}, err
	}
	return Result{
		UploadID:  u.ID,
		Total:     res.Total,
		Parsed:    res.Parsed,
		Anomalies: anomalies,
	}, nil
}

// Anomalies returns the findings for a previously ingested upload, ordered
// by creation.
func (s *Sleuth) Anomalies(ctx context.Context, uploadID string) ([]Anomaly, error) {
	found, err := s.store.FindAnomalies(ctx, uploadID)
	if err != nil {
		return nil, fmt.Errorf("logsleuth: %w", err)
	}
	anomalies := make([]Anomaly, len(found))
	for i, a := range found {
		anomalies[i] = anomalyFromModel(a)
	}
	return anomalies, nil
}

// Events returns one page of an upload's events ordered by timestamp, along
// with the total event count. Page numbers start at 1; a non-positive size
// falls back to 25, capped at 100.
func (s *Sleuth) Events(ctx context.Context, uploadID string, page, pageSize int) ([]Event, int, error) {
	found, total, err := s.analytics.ListEvents(ctx, uploadID, store.EventFilter{}, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("logsleuth: %w", err)
	}
	events := make([]Event, len(found))
	for i, e := range found {
		events[i] = eventFromModel(e)
	}
	return events, total, nil
}

// DeleteUpload removes an upload with all its events and anomalies.
func (s *Sleuth) DeleteUpload(ctx context.Context, uploadID string) error {
	if err := s.store.DeleteUpload(ctx, uploadID); err != nil {
		return fmt.Errorf("logsleuth: %w", err)
	}
	return nil
}

// Close releases the GeoIP database and the persistent store, if any.
// Must be called when the Sleuth instance is no longer needed.
func (s *Sleuth) Close() error {
	return errors.Join(s.resolver.Close(), s.closeStore())
}

// eventFromModel converts the internal event to the public Event type.
func eventFromModel(e *model.Event) Event {
	return Event{
		ID:        e.ID,
		Timestamp: e.TS,
		SrcIP:     e.SrcIP,
		User:      e.User,
		URL:       e.URL,
		Domain:    e.Domain,
		Method:    e.Method,
		Status:    e.Status,
		BytesIn:   e.BytesIn,
		BytesOut:  e.BytesOut,
		UserAgent: e.UserAgent,
		Country:   e.Country,
		City:      e.City,
	}
}

func anomalyFromModel(a *model.Anomaly) Anomaly {
	return Anomaly{
		Detector:   string(a.Detector),
		Reason:     a.Reason,
		Confidence: a.Confidence,
		EventID:    a.EventID,
	}
}
