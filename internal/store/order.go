package store

import (
	"sort"
	"strings"

	"github.com/jinishshah00/logsleuth/internal/model"
)

// SortEvents orders events by (ts asc, id asc) with nil timestamps last.
// Shared by scan-based store implementations.
func SortEvents(events []*model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		switch {
		case a.TS == nil && b.TS == nil:
			return a.ID < b.ID
		case a.TS == nil:
			return false
		case b.TS == nil:
			return true
		case a.TS.Equal(*b.TS):
			return a.ID < b.ID
		default:
			return a.TS.Before(*b.TS)
		}
	})
}

// Paginate applies a Page to an already-sorted slice.
func Paginate(events []*model.Event, page Page) []*model.Event {
	if page.Size <= 0 {
		return events
	}
	n := page.Number
	if n < 1 {
		n = 1
	}
	start := (n - 1) * page.Size
	if start >= len(events) {
		return nil
	}
	end := start + page.Size
	if end > len(events) {
		end = len(events)
	}
	return events[start:end]
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func containsStr(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
