// Package memory provides an in-memory store.Store. It is the reference
// implementation used by tests and the default backing for one-shot CLI runs.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jinishshah00/logsleuth/internal/model"
	"github.com/jinishshah00/logsleuth/internal/store"
)

// Store is a mutex-guarded in-memory implementation of store.Store.
// Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	uploads   map[string]*model.Upload
	events    []*model.Event
	anomalies []*model.Anomaly
	nextEvent int64
	nextAnom  int64
}

// New creates an empty Store.
func New() *Store {
	return &Store{uploads: make(map[string]*model.Upload)}
}

func (s *Store) CreateBatch(_ context.Context, events []*model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		s.nextEvent++
		e.ID = s.nextEvent
		cp := *e
		s.events = append(s.events, &cp)
	}
	return nil
}

func (s *Store) Count(_ context.Context, f store.EventFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.events {
		if f.Matches(e) {
			n++
		}
	}
	return n, nil
}

func (s *Store) FindMany(_ context.Context, f store.EventFilter, page store.Page) ([]*model.Event, error) {
	s.mu.RLock()
	var out []*model.Event
	for _, e := range s.events {
		if f.Matches(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	s.mu.RUnlock()
	store.SortEvents(out)
	return store.Paginate(out, page), nil
}

func (s *Store) DeleteMany(_ context.Context, f store.EventFilter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteEventsLocked(f)
	return nil
}

func (s *Store) deleteEventsLocked(f store.EventFilter) {
	kept := s.events[:0]
	for _, e := range s.events {
		if !f.Matches(e) {
			kept = append(kept, e)
		}
	}
	s.events = kept
}

func (s *Store) CreateUpload(_ context.Context, u *model.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.uploads[u.ID]; ok {
		return fmt.Errorf("upload %s already exists", u.ID)
	}
	cp := *u
	s.uploads[u.ID] = &cp
	return nil
}

func (s *Store) GetUpload(_ context.Context, id string) (*model.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.uploads[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) UpdateStatus(_ context.Context, id string, status model.UploadStatus, counts *store.RowCounts, errorText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.uploads[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Status = status
	if counts != nil {
		u.TotalRows = counts.Total
		u.ParsedRows = counts.Parsed
	}
	u.ErrorText = errorText
	return nil
}

func (s *Store) DeleteUpload(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.uploads[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.uploads, id)
	s.deleteEventsLocked(store.EventFilter{UploadID: id})
	kept := s.anomalies[:0]
	for _, a := range s.anomalies {
		if a.UploadID != id {
			kept = append(kept, a)
		}
	}
	s.anomalies = kept
	return nil
}

func (s *Store) CreateAnomalies(_ context.Context, anomalies []*model.Anomaly) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, a := range anomalies {
		s.nextAnom++
		a.ID = s.nextAnom
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		cp := *a
		s.anomalies = append(s.anomalies, &cp)
	}
	return nil
}

func (s *Store) DeleteAnomalies(_ context.Context, uploadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.anomalies[:0]
	for _, a := range s.anomalies {
		if a.UploadID != uploadID {
			kept = append(kept, a)
		}
	}
	s.anomalies = kept
	return nil
}

func (s *Store) FindAnomalies(_ context.Context, uploadID string) ([]*model.Anomaly, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Anomaly
	for _, a := range s.anomalies {
		if a.UploadID == uploadID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}
