package parser

import (
	"context"
	"errors"

	"github.com/jinishshah00/logsleuth/internal/model"
	"github.com/jinishshah00/logsleuth/internal/store"
)

// recordingStore captures created events and the size of each flushed batch.
type recordingStore struct {
	events     []*model.Event
	batchSizes []int
	failAfter  int // fail the Nth CreateBatch call (1-based); 0 never fails
	calls      int
}

var errFlushBoom = errors.New("boom")

func (r *recordingStore) CreateBatch(_ context.Context, events []*model.Event) error {
	r.calls++
	if r.failAfter > 0 && r.calls >= r.failAfter {
		return errFlushBoom
	}
	r.events = append(r.events, events...)
	r.batchSizes = append(r.batchSizes, len(events))
	return nil
}

func (r *recordingStore) Count(context.Context, store.EventFilter) (int, error) {
	return len(r.events), nil
}

func (r *recordingStore) FindMany(context.Context, store.EventFilter, store.Page) ([]*model.Event, error) {
	return r.events, nil
}

func (r *recordingStore) DeleteMany(context.Context, store.EventFilter) error {
	r.events = nil
	return nil
}

// stubGeo serves lookups from a fixed map. Missing IPs resolve to nil.
type stubGeo struct {
	byIP map[string]*model.GeoInfo
}

func (s *stubGeo) Lookup(ip string) *model.GeoInfo {
	return s.byIP[ip]
}
