package detect

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jinishshah00/logsleuth/internal/model"
)

// rateSpike (D1) buckets each actor's events into fixed 5-minute windows and
// flags buckets whose count z-scores above rateSpikeZ against that actor's
// own bucket distribution. Actors whose bucket counts never vary (stdev 0)
// are never flagged.
func rateSpike(events []*model.Event) []*model.Anomaly {
	type bucketKey struct {
		actor  string
		bucket time.Time
	}
	counts := make(map[bucketKey]int)
	earliest := make(map[bucketKey]*model.Event)
	actorBuckets := make(map[string][]time.Time)

	for _, e := range events {
		actor := e.Actor()
		if actor == "" || e.TS == nil {
			continue
		}
		b := e.TS.UTC().Truncate(rateSpikeBucket * time.Minute)
		k := bucketKey{actor, b}
		if counts[k] == 0 {
			actorBuckets[actor] = append(actorBuckets[actor], b)
			earliest[k] = e // events arrive time-ordered
		}
		counts[k]++
	}

	actors := sortedKeys(actorBuckets)
	var out []*model.Anomaly
	for _, actor := range actors {
		buckets := actorBuckets[actor]
		vals := make([]float64, len(buckets))
		for i, b := range buckets {
			vals[i] = float64(counts[bucketKey{actor, b}])
		}
		mean, stdev := meanStdev(vals)
		for i, b := range buckets {
			z := zScore(vals[i], mean, stdev)
			if z <= rateSpikeZ {
				continue
			}
			ref := earliest[bucketKey{actor, b}]
			out = append(out, &model.Anomaly{
				Reason: fmt.Sprintf("Spike for actor=%s count=%d vs mean~%.1f (z=%.2f)",
					actor, int(vals[i]), mean, z),
				Confidence: confFromZ(z),
				EventID:    refID(ref),
			})
		}
	}
	return out
}

// rareDomain (D2) flags domains whose event count is at or below 2% of the
// upload's total (floored, minimum 1).
func rareDomain(events []*model.Event) []*model.Anomaly {
	total := len(events)
	if total == 0 {
		return nil
	}
	counts := make(map[string]int)
	earliest := make(map[string]*model.Event)
	for _, e := range events {
		if e.Domain == "" {
			continue
		}
		if counts[e.Domain] == 0 {
			earliest[e.Domain] = e
		}
		counts[e.Domain]++
	}

	thr := int(math.Floor(float64(total) * rareDomainFraction))
	if thr < 1 {
		thr = 1
	}

	domains := sortedKeys(counts)
	// Rarest first, ties by name.
	sort.SliceStable(domains, func(i, j int) bool {
		if counts[domains[i]] != counts[domains[j]] {
			return counts[domains[i]] < counts[domains[j]]
		}
		return domains[i] < domains[j]
	})

	var out []*model.Anomaly
	for _, d := range domains {
		c := counts[d]
		if c > thr {
			continue
		}
		conf := math.Min(1, 0.6+0.1*float64(thr-c+1))
		out = append(out, &model.Anomaly{
			Reason:     fmt.Sprintf("Rare domain %s (count=%d of %d)", d, c, total),
			Confidence: round2(conf),
			EventID:    refID(earliest[d]),
		})
	}
	return out
}

// errorRatio (D3) flags actors with at least errorRatioMinTotal events whose
// share of status >= 400 responses reaches errorRatioMin.
func errorRatio(events []*model.Event) []*model.Anomaly {
	type tally struct {
		total  int
		errors int
	}
	tallies := make(map[string]*tally)
	earliest := make(map[string]*model.Event)
	for _, e := range events {
		actor := e.Actor()
		if actor == "" {
			continue
		}
		t := tallies[actor]
		if t == nil {
			t = &tally{}
			tallies[actor] = t
			earliest[actor] = e
		}
		t.total++
		if e.Status >= 400 {
			t.errors++
		}
	}

	actors := sortedKeys(tallies)
	// Worst ratio first, ties by actor.
	sort.SliceStable(actors, func(i, j int) bool {
		a, b := tallies[actors[i]], tallies[actors[j]]
		ra := float64(a.errors) / float64(a.total)
		rb := float64(b.errors) / float64(b.total)
		if ra != rb {
			return ra > rb
		}
		return actors[i] < actors[j]
	})

	var out []*model.Anomaly
	for _, actor := range actors {
		t := tallies[actor]
		if t.total < errorRatioMinTotal {
			continue
		}
		ratio := float64(t.errors) / float64(t.total)
		if ratio < errorRatioMin {
			continue
		}
		out = append(out, &model.Anomaly{
			Reason: fmt.Sprintf("High error ratio for actor=%s (%d/%d=%.0f%%)",
				actor, t.errors, t.total, ratio*100),
			Confidence: round2(math.Min(1, 0.5+ratio)),
			EventID:    refID(earliest[actor]),
		})
	}
	return out
}

// egressOutlier (D4) thresholds bytes-out at max(p99, 5*p95) over the
// upload's non-null byte counts and flags every event strictly above it.
// Comparisons use the integer magnitudes, never float or string forms.
func egressOutlier(events []*model.Event) []*model.Anomaly {
	var withBytes []*model.Event
	for _, e := range events {
		if e.BytesOut != nil {
			withBytes = append(withBytes, e)
		}
	}
	if len(withBytes) == 0 {
		return nil
	}

	sorted := make([]*model.Event, len(withBytes))
	copy(sorted, withBytes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BytesOut.Cmp(sorted[j].BytesOut) < 0
	})

	vals := make([]*bigVal, len(sorted))
	for i, e := range sorted {
		vals[i] = newBigVal(e.BytesOut)
	}
	p95 := percentile(vals, 0.95)
	p99 := percentile(vals, 0.99)
	threshold := maxBig(p99, mulBig(p95, egressP95Factor))
	thrInt := ceilBig(threshold)

	var flagged []*model.Event
	for _, e := range withBytes {
		if e.BytesOut.Cmp(thrInt) > 0 {
			flagged = append(flagged, e)
		}
	}
	// Largest egress first.
	sort.SliceStable(flagged, func(i, j int) bool {
		return flagged[i].BytesOut.Cmp(flagged[j].BytesOut) > 0
	})

	var out []*model.Anomaly
	for _, e := range flagged {
		dest := e.Domain
		if dest == "" {
			dest = e.URL
		}
		if dest == "" {
			dest = "unknown"
		}
		conf := 0.6 + log10Ratio(e.BytesOut, thrInt)
		conf = math.Min(1, math.Max(0.6, conf))
		out = append(out, &model.Anomaly{
			Reason:     fmt.Sprintf("Large bytesOut ~ %s to %s", e.BytesOut.String(), dest),
			Confidence: round2(conf),
			EventID:    refID(e),
		})
	}
	return out
}

// impossibleTravel (D5) orders events with a known actor, timestamp, and
// country by actor then time and flags the later event of any adjacent
// same-actor pair whose country differs within the travel window.
func impossibleTravel(events []*model.Event) []*model.Anomaly {
	var qualified []*model.Event
	for _, e := range events {
		if e.Actor() != "" && e.TS != nil && e.Country != "" {
			qualified = append(qualified, e)
		}
	}
	sort.SliceStable(qualified, func(i, j int) bool {
		ai, aj := qualified[i].Actor(), qualified[j].Actor()
		if ai != aj {
			return ai < aj
		}
		if !qualified[i].TS.Equal(*qualified[j].TS) {
			return qualified[i].TS.Before(*qualified[j].TS)
		}
		return qualified[i].ID < qualified[j].ID
	})

	var out []*model.Anomaly
	for i := 1; i < len(qualified); i++ {
		a, b := qualified[i-1], qualified[i]
		if a.Actor() != b.Actor() || a.Country == b.Country {
			continue
		}
		dt := b.TS.Sub(*a.TS).Hours()
		if dt > travelWindowHours {
			continue
		}
		out = append(out, &model.Anomaly{
			Reason: fmt.Sprintf("User %s moved %s->%s in ~%.2fh",
				b.Actor(), a.Country, b.Country, dt),
			Confidence: travelConfidence,
			EventID:    refID(b),
		})
	}
	return out
}

func refID(e *model.Event) *int64 {
	if e == nil {
		return nil
	}
	id := e.ID
	return &id
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
