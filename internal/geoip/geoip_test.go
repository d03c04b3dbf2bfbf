package geoip

import (
	"testing"

	"github.com/jinishshah00/logsleuth/internal/model"
)

func TestResolverNoDatabase(t *testing.T) {
	r, err := Open("", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if g := r.Lookup("8.8.8.8"); g != nil {
		t.Fatalf("Lookup = %+v, want nil without a database", g)
	}
}

func TestResolverOpenMissingFile(t *testing.T) {
	if _, err := Open("/nonexistent/geo.mmdb", nil); err == nil {
		t.Fatal("Open should fail for a missing database file")
	}
}

func TestResolverCacheHit(t *testing.T) {
	cache := NewCache()
	cache.Seed("203.0.113.9", &model.GeoInfo{Country: "GB", City: "London"})

	r, err := Open("", cache)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	g := r.Lookup("203.0.113.9")
	if g == nil || g.Country != "GB" || g.City != "London" {
		t.Fatalf("Lookup = %+v, want seeded entry", g)
	}
}

func TestResolverCachesMisses(t *testing.T) {
	cache := NewCache()
	r, err := Open("", cache)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if g := r.Lookup("198.51.100.1"); g != nil {
		t.Fatalf("Lookup = %+v, want nil", g)
	}
	if cache.Len() != 1 {
		t.Fatalf("cache Len = %d, want the miss recorded", cache.Len())
	}
	if g := r.Lookup("198.51.100.1"); g != nil {
		t.Fatalf("repeat Lookup = %+v, want cached nil", g)
	}
}

func TestResolverSharedCacheAcrossResolvers(t *testing.T) {
	cache := NewCache()
	cache.Seed("203.0.113.9", &model.GeoInfo{Country: "DE"})

	a, _ := Open("", cache)
	b, _ := Open("", cache)
	if g := a.Lookup("203.0.113.9"); g == nil || g.Country != "DE" {
		t.Fatalf("resolver a: %+v", g)
	}
	if g := b.Lookup("203.0.113.9"); g == nil || g.Country != "DE" {
		t.Fatalf("resolver b: %+v", g)
	}
}

func TestResolverEmptyIP(t *testing.T) {
	cache := NewCache()
	r, _ := Open("", cache)
	if g := r.Lookup(""); g != nil {
		t.Fatalf("Lookup(\"\") = %+v, want nil", g)
	}
	if cache.Len() != 0 {
		t.Fatalf("empty input must not be cached, Len = %d", cache.Len())
	}
}
