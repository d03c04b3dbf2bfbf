// Package ingest orchestrates upload parsing: it selects the right format
// parser, manages the upload's lifecycle status, and records row counts or
// failure text. At most one parse runs per upload at a time.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jinishshah00/logsleuth/internal/format"
	"github.com/jinishshah00/logsleuth/internal/model"
	"github.com/jinishshah00/logsleuth/internal/parser"
	"github.com/jinishshah00/logsleuth/internal/store"
)

// ErrParseInFlight is returned when a parse is requested for an upload that
// is already being parsed. The parser mutates status and row counts across
// batch flushes, so interleaving two parses is never allowed.
var ErrParseInFlight = errors.New("ingest: parse already in flight for upload")

// Orchestrator wires parsers, the blob source, and the store together.
type Orchestrator struct {
	store  store.Store
	source Source
	geo    parser.GeoLookup

	batchSize      int
	inferThreshold float64

	mu       sync.Mutex
	inflight map[string]bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBatchSize overrides the parsers' flush batch size.
func WithBatchSize(n int) Option {
	return func(o *Orchestrator) { o.batchSize = n }
}

// WithInferThreshold overrides the CSV schema-inference confidence threshold.
func WithInferThreshold(t float64) Option {
	return func(o *Orchestrator) { o.inferThreshold = t }
}

// New creates an Orchestrator. geo may be nil to skip enrichment.
func New(st store.Store, src Source, geo parser.GeoLookup, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:          st,
		source:         src,
		geo:            geo,
		batchSize:      parser.DefaultBatchSize,
		inferThreshold: parser.DefaultInferThreshold,
		inflight:       make(map[string]bool),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ParseUpload parses the upload's stream into events, updating the upload's
// status as a side effect: PARSING while running, then PARSED with row
// counts, or FAILED with error text. A second call while a parse is running
// returns ErrParseInFlight.
func (o *Orchestrator) ParseUpload(ctx context.Context, uploadID string) (parser.Result, error) {
	var res parser.Result

	u, err := o.store.GetUpload(ctx, uploadID)
	if err != nil {
		return res, fmt.Errorf("ingest: %w", err)
	}
	if u.Locator == "" {
		return res, fmt.Errorf("ingest: upload %s has no storage locator", uploadID)
	}

	if !o.acquire(uploadID) {
		return res, ErrParseInFlight
	}
	defer o.release(uploadID)

	if err := o.store.UpdateStatus(ctx, uploadID, model.StatusParsing, &store.RowCounts{}, ""); err != nil {
		return res, fmt.Errorf("ingest: %w", err)
	}
	// Retried parses start from scratch: drop any events a prior attempt left.
	if err := o.store.DeleteMany(ctx, store.EventFilter{UploadID: uploadID}); err != nil {
		return res, fmt.Errorf("ingest: clear prior events: %w", err)
	}

	res, err = o.runParse(ctx, u)
	if err != nil {
		if serr := o.store.UpdateStatus(ctx, uploadID, model.StatusFailed, nil, err.Error()); serr != nil {
			slog.Warn("failed to record parse failure", "upload", uploadID, "error", serr)
		}
		return res, fmt.Errorf("ingest: parse upload %s: %w", uploadID, err)
	}

	counts := &store.RowCounts{Total: res.Total, Parsed: res.Parsed}
	if err := o.store.UpdateStatus(ctx, uploadID, model.StatusParsed, counts, ""); err != nil {
		return res, fmt.Errorf("ingest: %w", err)
	}
	slog.Info("upload parsed", "upload", uploadID, "total", res.Total, "parsed", res.Parsed)
	return res, nil
}

// runParse picks a parser by filename extension and runs it. Unknown
// extensions try CSV first, then re-open the stream and try Apache.
func (o *Orchestrator) runParse(ctx context.Context, u *model.Upload) (parser.Result, error) {
	name := u.Filename
	if name == "" {
		name = u.Locator
	}

	switch format.FromFilename(name) {
	case format.KindCSV:
		return o.parseWith(ctx, u, o.newCSV())
	case format.KindApache:
		return o.parseWith(ctx, u, o.newApache())
	default:
		res, err := o.parseWith(ctx, u, o.newCSV())
		if errors.Is(err, parser.ErrNotCSV) {
			slog.Debug("not CSV, retrying as apache combined", "upload", u.ID)
			return o.parseWith(ctx, u, o.newApache())
		}
		return res, err
	}
}

func (o *Orchestrator) newCSV() parser.Parser {
	return parser.NewCSV(o.store, o.geo,
		parser.WithCSVBatchSize(o.batchSize),
		parser.WithInferThreshold(o.inferThreshold))
}

func (o *Orchestrator) newApache() parser.Parser {
	return parser.NewApache(o.store, o.geo, parser.WithApacheBatchSize(o.batchSize))
}

func (o *Orchestrator) parseWith(ctx context.Context, u *model.Upload, p parser.Parser) (parser.Result, error) {
	rc, err := o.source.Open(ctx, u.Locator)
	if err != nil {
		return parser.Result{}, err
	}
	defer rc.Close()
	return p.Parse(ctx, rc, u.ID)
}

func (o *Orchestrator) acquire(uploadID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inflight[uploadID] {
		return false
	}
	o.inflight[uploadID] = true
	return true
}

func (o *Orchestrator) release(uploadID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, uploadID)
}
