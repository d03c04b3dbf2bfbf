package logsleuth

type options struct {
	boltPath       string
	geoIPPath      string
	batchSize      int
	inferThreshold float64
}

// Option configures a Sleuth instance.
type Option func(*options)

// WithBoltStore persists uploads, events, and anomalies in a bbolt database
// at path instead of keeping them in memory.
func WithBoltStore(path string) Option {
	return func(o *options) {
		o.boltPath = path
	}
}

// WithGeoIPDatabase enables geolocation enrichment from the MaxMind
// database at path. Without it, events carry no country or city.
func WithGeoIPDatabase(path string) Option {
	return func(o *options) {
		o.geoIPPath = path
	}
}

// WithBatchSize sets how many events are buffered before each store write.
// Default: 500.
func WithBatchSize(n int) Option {
	return func(o *options) {
		o.batchSize = n
	}
}

// WithInferThreshold sets the minimum confidence for schema inference from
// CSV headers. Below it the parser falls back to static column aliases.
// Default: 0.45.
func WithInferThreshold(t float64) Option {
	return func(o *options) {
		o.inferThreshold = t
	}
}

func defaultOptions() options {
	return options{
		batchSize:      500,
		inferThreshold: 0.45,
	}
}
