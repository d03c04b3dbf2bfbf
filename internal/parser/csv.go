package parser

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/jinishshah00/logsleuth/internal/format"
	"github.com/jinishshah00/logsleuth/internal/model"
	"github.com/jinishshah00/logsleuth/internal/normalize"
	"github.com/jinishshah00/logsleuth/internal/schema"
	"github.com/jinishshah00/logsleuth/internal/store"
)

const (
	// DefaultSampleSize is how many rows feed schema inference before the
	// extraction strategy is frozen for the rest of the stream.
	DefaultSampleSize = 30

	// DefaultInferThreshold is the inference confidence above which the
	// inferred mapping replaces the static alias table.
	DefaultInferThreshold = 0.45
)

// candidateTimeKeys are tried in order for the timestamp column before
// falling back to inference of the time role.
var candidateTimeKeys = []string{"time", "datetime", "timestamp"}

// CSV parses tabular proxy exports (Zscaler-style and similar). Field
// extraction starts from a static alias table; after sampling the first rows
// it may switch, once, to an inferred header-per-role mapping.
type CSV struct {
	events         store.EventStore
	geo            GeoLookup
	batchSize      int
	sampleSize     int
	inferThreshold float64
}

// CSVOption configures a CSV parser.
type CSVOption func(*CSV)

// WithCSVBatchSize overrides the flush batch size.
func WithCSVBatchSize(n int) CSVOption {
	return func(p *CSV) { p.batchSize = n }
}

// WithInferThreshold overrides the confidence needed to adopt an inferred
// mapping over the static alias table.
func WithInferThreshold(t float64) CSVOption {
	return func(p *CSV) { p.inferThreshold = t }
}

// WithSampleSize overrides how many rows are buffered for inference.
func WithSampleSize(n int) CSVOption {
	return func(p *CSV) { p.sampleSize = n }
}

// NewCSV creates a tabular CSV parser.
func NewCSV(events store.EventStore, geo GeoLookup, opts ...CSVOption) *CSV {
	p := &CSV{
		events:         events,
		geo:            geo,
		batchSize:      DefaultBatchSize,
		sampleSize:     DefaultSampleSize,
		inferThreshold: DefaultInferThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse streams records from r for uploadID. Returns ErrNotCSV when the
// stream's header row does not look tabular, so the caller can retry with a
// different parser.
func (p *CSV) Parse(ctx context.Context, r io.Reader, uploadID string) (Result, error) {
	// Proxy exports arrive with UTF-8 BOMs and occasionally as UTF-16;
	// BOMOverride normalizes both before the CSV layer sees bytes.
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var res Result

	headers, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return res, nil
	}
	if err != nil {
		return res, ErrNotCSV
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	if !looksTabular(headers) {
		return res, ErrNotCSV
	}

	// Phase 1: buffer a bounded sample.
	sample := make([]schema.Row, 0, p.sampleSize)
	sampleDone := false
	for len(sample) < p.sampleSize {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			sampleDone = true
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			res.Total++
			continue
		}
		if err != nil {
			return res, err
		}
		sample = append(sample, rowFromRecord(headers, rec))
	}

	// Phase 2: decide the extraction strategy once; it is carried as a value
	// into the per-row transform and never revisited.
	ex := p.chooseExtractor(headers, sample)
	timeHeader := p.chooseTimeHeader(headers, sample)

	// Phase 3: stream. Buffered sample rows first, then the rest.
	w := newBatchWriter(ctx, p.events, p.batchSize)
	emit := func(row schema.Row) error {
		res.Total++
		ev := p.rowToEvent(row, ex, timeHeader, uploadID)
		if ev == nil {
			return nil
		}
		if err := w.add(ev); err != nil {
			return err
		}
		res.Parsed++
		return nil
	}

	for _, row := range sample {
		if err := emit(row); err != nil {
			return res, err
		}
	}
	for !sampleDone {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			res.Total++
			continue
		}
		if err != nil {
			return res, err
		}
		if err := emit(rowFromRecord(headers, rec)); err != nil {
			return res, err
		}
	}

	if err := w.flush(); err != nil {
		return res, err
	}
	return res, nil
}

// looksTabular rejects streams whose "header" is a single field or an
// Apache-combined line that happened to split on embedded commas.
func looksTabular(headers []string) bool {
	if len(headers) < 2 {
		return false
	}
	for _, h := range headers {
		if format.FromSample(h) == format.KindApache {
			return false
		}
	}
	return true
}

func rowFromRecord(headers, rec []string) schema.Row {
	row := make(schema.Row, len(headers))
	for i, h := range headers {
		if i < len(rec) {
			row[h] = strings.TrimSpace(rec[i])
		} else {
			row[h] = ""
		}
	}
	return row
}

func (p *CSV) chooseExtractor(headers []string, sample []schema.Row) extractor {
	inferred := schema.Infer(headers, sample, nil)
	if inferred.Confidence > p.inferThreshold {
		return mappedExtractor{mapping: inferred}
	}
	return newStaticExtractor(headers)
}

// chooseTimeHeader picks the timestamp column: first the fixed candidate
// names, then an inference pass restricted to the time role.
func (p *CSV) chooseTimeHeader(headers []string, sample []schema.Row) string {
	for _, key := range candidateTimeKeys {
		for _, h := range headers {
			if strings.EqualFold(h, key) {
				return h
			}
		}
	}
	m := schema.Infer(headers, sample, []schema.Role{schema.RoleTime})
	return m.Header(schema.RoleTime)
}

func (p *CSV) rowToEvent(row schema.Row, ex extractor, timeHeader, uploadID string) *model.Event {
	var tsVal *time.Time
	if timeHeader != "" {
		tsVal = normalize.ToTime(row[timeHeader])
	}

	login := ex.get(row, schema.RoleLogin)
	cip := ex.get(row, schema.RoleClientIP)
	host := ex.get(row, schema.RoleHost)
	url := ex.get(row, schema.RoleURL)
	method := ex.get(row, schema.RoleMethod)
	status, _ := normalize.ToInt(ex.get(row, schema.RoleStatus))
	bytesOut := normalize.ToBigInt(ex.get(row, schema.RoleBytesOut))
	bytesIn := normalize.ToBigInt(ex.get(row, schema.RoleBytesIn))
	ua := ex.get(row, schema.RoleUserAgent)
	category := ex.get(row, schema.RoleCategory)
	action := ex.get(row, schema.RoleAction)
	country := ex.get(row, schema.RoleCountry)
	city := ex.get(row, schema.RoleCity)

	// Disambiguate commonly confused roles. A user-agent that landed in the
	// URL or host column moves to user-agent; a host carrying a path is
	// really a URL.
	if LooksLikeUserAgent(url) {
		if ua == "" {
			ua = url
		}
		url = ""
	}
	if LooksLikeUserAgent(host) {
		if ua == "" {
			ua = host
		}
		host = ""
	}
	if HostHasPath(host) {
		url = host
		host = ""
	}

	parts := normalize.SplitURL(url)
	if parts.Host == "" && url != "" && !strings.HasPrefix(url, "http") && !strings.HasPrefix(url, "/") {
		parts = normalize.SplitURL("http://" + url)
	}

	domain := host
	if domain == "" {
		domain = parts.Host
	}

	ev := &model.Event{
		UploadID:   uploadID,
		TS:         tsVal,
		SrcIP:      cip,
		User:       login,
		URL:        url,
		Domain:     domain,
		Method:     method,
		Status:     status,
		Category:   category,
		Action:     action,
		BytesIn:    bytesIn,
		BytesOut:   bytesOut,
		UserAgent:  ua,
		Country:    country,
		City:       city,
		URLHost:    parts.Host,
		URLPath:    parts.Path,
		URLTld:     parts.Tld,
		HourBucket: normalize.TruncateToHour(tsVal),
		DayBucket:  normalize.TruncateToDay(tsVal),
		Extras:     copyRow(row),
		RawLine:    rawJSON(row),
	}
	if ev.Country == "" && p.geo != nil {
		applyGeo(ev, p.geo.Lookup(cip))
	}
	return ev
}

func copyRow(row schema.Row) map[string]string {
	out := make(map[string]string, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func rawJSON(row schema.Row) string {
	buf, err := json.Marshal(row)
	if err != nil {
		return ""
	}
	return string(buf)
}
