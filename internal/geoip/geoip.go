// Package geoip maps IP addresses to coarse geolocation via a local MaxMind
// database, memoizing every lookup (including misses) in a process-wide
// cache. When no database is configured the resolver degrades to returning
// no enrichment, never an error.
package geoip

import (
	"fmt"
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"

	"github.com/jinishshah00/logsleuth/internal/model"
)

// Cache memoizes lookup results keyed by IP string. Entries never expire;
// the cache lives for the process lifetime. Safe for concurrent use across
// simultaneous parses — writes are idempotent, so racing identical inserts
// are harmless.
type Cache struct {
	mu sync.RWMutex
	m  map[string]*model.GeoInfo // nil value records a known miss
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{m: make(map[string]*model.GeoInfo)}
}

func (c *Cache) get(ip string) (*model.GeoInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.m[ip]
	return g, ok
}

func (c *Cache) put(ip string, g *model.GeoInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[ip] = g
}

// Seed pre-populates an entry. Intended for tests.
func (c *Cache) Seed(ip string, g *model.GeoInfo) {
	c.put(ip, g)
}

// Len reports the number of cached entries, misses included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Resolver answers geolocation lookups from an optional MMDB database
// through a Cache.
type Resolver struct {
	cache  *Cache
	reader *geoip2.Reader
}

// Open creates a Resolver backed by the MMDB file at dbPath. An empty dbPath
// yields a resolver with no database: every lookup returns nil.
func Open(dbPath string, cache *Cache) (*Resolver, error) {
	if cache == nil {
		cache = NewCache()
	}
	r := &Resolver{cache: cache}
	if dbPath == "" {
		return r, nil
	}
	reader, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("geoip open %s: %w", dbPath, err)
	}
	r.reader = reader
	return r, nil
}

// Close releases the database handle, if any.
func (r *Resolver) Close() error {
	if r.reader == nil {
		return nil
	}
	return r.reader.Close()
}

// Lookup resolves ip to geolocation. Returns nil for empty input, unknown
// IPs, lookup errors, or when no database is configured. Every outcome is
// cached.
func (r *Resolver) Lookup(ip string) *model.GeoInfo {
	if ip == "" {
		return nil
	}
	if g, ok := r.cache.get(ip); ok {
		return g
	}
	g := r.resolve(ip)
	r.cache.put(ip, g)
	return g
}

func (r *Resolver) resolve(ip string) *model.GeoInfo {
	if r.reader == nil {
		return nil
	}
	addr := net.ParseIP(ip)
	if addr == nil {
		return nil
	}
	rec, err := r.reader.City(addr)
	if err != nil || rec == nil {
		return nil
	}
	g := &model.GeoInfo{}
	if rec.Country.IsoCode != "" {
		g.Country = rec.Country.IsoCode
	} else {
		g.Country = rec.Country.Names["en"]
	}
	g.City = rec.City.Names["en"]
	if rec.Location.Latitude != 0 || rec.Location.Longitude != 0 {
		lat, lon := rec.Location.Latitude, rec.Location.Longitude
		g.Latitude = &lat
		g.Longitude = &lon
	}
	if g.Country == "" && g.City == "" && g.Latitude == nil {
		return nil
	}
	return g
}
