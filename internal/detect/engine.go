// Package detect runs the fixed battery of statistical anomaly detectors
// over one upload's normalized events. Detection is always a full
// recomputation: prior anomalies for the upload are deleted and the run is
// safe to repeat.
package detect

import (
	"context"
	"fmt"

	"github.com/jinishshah00/logsleuth/internal/model"
	"github.com/jinishshah00/logsleuth/internal/store"
)

// Tunable detector constants. The values are inherited behavior, not derived
// statistics.
const (
	rateSpikeBucket    = 5 // minutes
	rateSpikeZ         = 3.0
	rareDomainFraction = 0.02
	errorRatioMinTotal = 5
	errorRatioMin      = 0.5
	egressP95Factor    = 5
	travelWindowHours  = 2.0
	travelConfidence   = 0.8
)

// detectorFunc computes one detector's findings over the upload's events.
// Events arrive ordered by (ts asc, id asc). Detectors with no qualifying
// input return nil, never an error; a qualifying group that cannot be scored
// is skipped independently.
type detectorFunc func(events []*model.Event) []*model.Anomaly

// Engine owns the detector battery.
type Engine struct {
	events    store.EventStore
	anomalies store.AnomalyStore
}

// New creates an Engine over the given stores.
func New(events store.EventStore, anomalies store.AnomalyStore) *Engine {
	return &Engine{events: events, anomalies: anomalies}
}

// Run deletes all existing anomalies for uploadID, runs all five detectors
// in order against the upload's events, persists the combined findings in
// one batch, and returns per-detector counts. Any store failure aborts the
// run with an error; no partial anomaly set is committed.
func (e *Engine) Run(ctx context.Context, uploadID string) (map[model.Detector]int, error) {
	events, err := e.events.FindMany(ctx, store.EventFilter{UploadID: uploadID}, store.Page{})
	if err != nil {
		return nil, fmt.Errorf("detect: load events: %w", err)
	}

	detectors := []struct {
		id model.Detector
		fn detectorFunc
	}{
		{model.DetectorRateSpike, rateSpike},
		{model.DetectorRareDomain, rareDomain},
		{model.DetectorErrorRatio, errorRatio},
		{model.DetectorEgressOutlier, egressOutlier},
		{model.DetectorImpossibleTravel, impossibleTravel},
	}

	counts := make(map[model.Detector]int, len(detectors))
	var all []*model.Anomaly
	for _, d := range detectors {
		found := d.fn(events)
		for _, a := range found {
			a.UploadID = uploadID
			a.Detector = d.id
		}
		counts[d.id] = len(found)
		all = append(all, found...)
	}

	if err := e.anomalies.DeleteAnomalies(ctx, uploadID); err != nil {
		return nil, fmt.Errorf("detect: clear anomalies: %w", err)
	}
	if len(all) > 0 {
		if err := e.anomalies.CreateAnomalies(ctx, all); err != nil {
			return nil, fmt.Errorf("detect: persist anomalies: %w", err)
		}
	}
	return counts, nil
}
