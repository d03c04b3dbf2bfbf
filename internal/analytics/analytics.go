// Package analytics computes per-upload aggregate views over the event
// store: totals, top talkers, status/method mixes, byte statistics, and a
// bucketed time series for dashboards.
package analytics

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/jinishshah00/logsleuth/internal/model"
	"github.com/jinishshah00/logsleuth/internal/store"
)

// allowedBuckets are the accepted series bucket widths in minutes. Anything
// else falls back to 5.
var allowedBuckets = map[int]bool{1: true, 5: true, 10: true, 15: true, 30: true, 60: true}

const (
	topLimit        = 10
	defaultPageSize = 25
	maxPageSize     = 100
)

// CountItem is one key with its event count.
type CountItem struct {
	Key   string
	Count int
}

// StatusCount is one HTTP status with its event count.
type StatusCount struct {
	Status int
	Count  int
}

// SeriesPoint is one time bucket's event count.
type SeriesPoint struct {
	Bucket time.Time
	Count  int
}

// BytesSummary aggregates byte counters. Sums stay arbitrary precision;
// percentiles are display values.
type BytesSummary struct {
	OutSum *big.Int
	InSum  *big.Int
	OutP50 float64
	OutP90 float64
	OutP99 float64
}

// Summary is the per-upload aggregate view.
type Summary struct {
	Total        int
	TopSrcIPs    []CountItem
	TopDomains   []CountItem
	StatusCounts []StatusCount
	MethodCounts []CountItem
	Bytes        BytesSummary
	Series       []SeriesPoint
}

// Service computes aggregates over an event store.
type Service struct {
	events store.EventStore
}

// New creates a Service.
func New(events store.EventStore) *Service {
	return &Service{events: events}
}

// Summary aggregates the upload's events with the given series bucket width
// in minutes.
func (s *Service) Summary(ctx context.Context, uploadID string, bucketMinutes int) (*Summary, error) {
	if !allowedBuckets[bucketMinutes] {
		bucketMinutes = 5
	}
	events, err := s.events.FindMany(ctx, store.EventFilter{UploadID: uploadID}, store.Page{})
	if err != nil {
		return nil, fmt.Errorf("analytics: %w", err)
	}

	sum := &Summary{
		Total: len(events),
		Bytes: BytesSummary{OutSum: big.NewInt(0), InSum: big.NewInt(0)},
	}

	srcIPs := make(map[string]int)
	domains := make(map[string]int)
	statuses := make(map[int]int)
	methods := make(map[string]int)
	series := make(map[time.Time]int)
	var bytesOut []float64

	width := time.Duration(bucketMinutes) * time.Minute
	for _, e := range events {
		if e.SrcIP != "" {
			srcIPs[e.SrcIP]++
		}
		if e.Domain != "" {
			domains[e.Domain]++
		}
		statuses[e.Status]++
		if e.Method != "" {
			methods[e.Method]++
		}
		if e.TS != nil {
			series[e.TS.UTC().Truncate(width)]++
		}
		if e.BytesOut != nil {
			sum.Bytes.OutSum.Add(sum.Bytes.OutSum, e.BytesOut)
			f, _ := new(big.Float).SetInt(e.BytesOut).Float64()
			bytesOut = append(bytesOut, f)
		}
		if e.BytesIn != nil {
			sum.Bytes.InSum.Add(sum.Bytes.InSum, e.BytesIn)
		}
	}

	sum.TopSrcIPs = topN(srcIPs, topLimit)
	sum.TopDomains = topN(domains, topLimit)
	sum.MethodCounts = topN(methods, len(methods))

	for st, c := range statuses {
		sum.StatusCounts = append(sum.StatusCounts, StatusCount{Status: st, Count: c})
	}
	sort.SliceStable(sum.StatusCounts, func(i, j int) bool {
		if sum.StatusCounts[i].Count != sum.StatusCounts[j].Count {
			return sum.StatusCounts[i].Count > sum.StatusCounts[j].Count
		}
		return sum.StatusCounts[i].Status < sum.StatusCounts[j].Status
	})

	if len(bytesOut) > 0 {
		sort.Float64s(bytesOut)
		sum.Bytes.OutP50 = percentileFloat(bytesOut, 0.5)
		sum.Bytes.OutP90 = percentileFloat(bytesOut, 0.9)
		sum.Bytes.OutP99 = percentileFloat(bytesOut, 0.99)
	}

	buckets := make([]time.Time, 0, len(series))
	for b := range series {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Before(buckets[j]) })
	for _, b := range buckets {
		sum.Series = append(sum.Series, SeriesPoint{Bucket: b, Count: series[b]})
	}

	return sum, nil
}

// ListEvents returns one page of the upload's events, filtered. Page numbers
// start at 1; size is clamped to [1,100] with a default of 25.
func (s *Service) ListEvents(ctx context.Context, uploadID string, f store.EventFilter, page, pageSize int) ([]*model.Event, int, error) {
	f.UploadID = uploadID
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	total, err := s.events.Count(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("analytics: %w", err)
	}
	items, err := s.events.FindMany(ctx, f, store.Page{Number: page, Size: pageSize})
	if err != nil {
		return nil, 0, fmt.Errorf("analytics: %w", err)
	}
	return items, total, nil
}

// Timeline returns the first limit events of the upload in time order.
func (s *Service) Timeline(ctx context.Context, uploadID string, limit int) ([]*model.Event, error) {
	if limit <= 0 {
		limit = 200
	}
	events, err := s.events.FindMany(ctx, store.EventFilter{UploadID: uploadID}, store.Page{Number: 1, Size: limit})
	if err != nil {
		return nil, fmt.Errorf("analytics: %w", err)
	}
	return events, nil
}

func topN(m map[string]int, n int) []CountItem {
	items := make([]CountItem, 0, len(m))
	for k, c := range m {
		items = append(items, CountItem{Key: k, Count: c})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Key < items[j].Key
	})
	if len(items) > n {
		items = items[:n]
	}
	return items
}

// percentileFloat interpolates the q-th percentile of ascending vals.
func percentileFloat(vals []float64, q float64) float64 {
	n := len(vals)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return vals[0]
	}
	idx := q * float64(n-1)
	lo := int(idx)
	if lo >= n-1 {
		return vals[n-1]
	}
	frac := idx - float64(lo)
	return vals[lo] + frac*(vals[lo+1]-vals[lo])
}
