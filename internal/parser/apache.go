package parser

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"github.com/jinishshah00/logsleuth/internal/model"
	"github.com/jinishshah00/logsleuth/internal/normalize"
	"github.com/jinishshah00/logsleuth/internal/store"
)

// Combined log format, referrer and user-agent optional:
// 127.0.0.1 - frank [10/Oct/2000:13:55:36 -0700] "GET /apache_pb.gif HTTP/1.0" 200 2326 "http://example.com/start.html" "Mozilla/4.08"
var combinedRe = mustNamed(`^(?P<ip>\S+) \S+ \S+ \[(?P<date>[^\]]+)\] "(?P<method>\S+)\s(?P<path>[^"]*?)\s(?P<proto>[^"]+)" (?P<status>\d{3}) (?P<size>\S+)(?: "(?P<ref>[^"]*)" "(?P<ua>[^"]*)")?`)

// Bracketed date: 10/Oct/2000:13:55:36 -0700
var apacheDateRe = mustNamed(`^(?P<dd>\d{2})/(?P<mon>\w{3})/(?P<yyyy>\d{4}):(?P<hh>\d{2}):(?P<mm>\d{2}):(?P<ss>\d{2}) (?P<sign>[+-])(?P<tzh>\d{2})(?P<tzm>\d{2})$`)

var monthNums = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

// parseApacheTime interprets the numeric fields as wall-clock components in
// the stated UTC offset and converts to absolute UTC. The host's local
// timezone never participates.
func parseApacheTime(s string) *time.Time {
	g := apacheDateRe.groups(s)
	if g == nil {
		return nil
	}
	mon, ok := monthNums[g["mon"]]
	if !ok {
		return nil
	}
	offset := atoi(g["tzh"])*3600 + atoi(g["tzm"])*60
	if g["sign"] == "-" {
		offset = -offset
	}
	t := time.Date(atoi(g["yyyy"]), mon, atoi(g["dd"]),
		atoi(g["hh"]), atoi(g["mm"]), atoi(g["ss"]),
		0, time.FixedZone("", offset)).UTC()
	return &t
}

// Apache parses combined-format access logs line by line. Lines failing the
// pattern count toward Total and are skipped; they never fail the parse.
type Apache struct {
	events    store.EventStore
	geo       GeoLookup
	batchSize int
}

// ApacheOption configures an Apache parser.
type ApacheOption func(*Apache)

// WithApacheBatchSize overrides the flush batch size.
func WithApacheBatchSize(n int) ApacheOption {
	return func(p *Apache) { p.batchSize = n }
}

// NewApache creates an Apache combined-log parser.
func NewApache(events store.EventStore, geo GeoLookup, opts ...ApacheOption) *Apache {
	p := &Apache{events: events, geo: geo, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse streams lines from r, normalizing each matching line into an event
// for uploadID. Returns counts; a store flush failure aborts with an error.
func (p *Apache) Parse(ctx context.Context, r io.Reader, uploadID string) (Result, error) {
	w := newBatchWriter(ctx, p.events, p.batchSize)
	var res Result

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		res.Total++

		g := combinedRe.groups(line)
		if g == nil {
			continue
		}
		ev := p.lineToEvent(g, line, uploadID)
		if err := w.add(ev); err != nil {
			return res, err
		}
		res.Parsed++
	}
	if err := sc.Err(); err != nil {
		return res, err
	}
	if err := w.flush(); err != nil {
		return res, err
	}
	return res, nil
}

func (p *Apache) lineToEvent(g map[string]string, line, uploadID string) *model.Event {
	ts := parseApacheTime(g["date"])
	path := g["path"]

	// An absolute URL in the request line decomposes into parts; a relative
	// path stays a path only.
	var parts normalize.URLParts
	var fullURL string
	if strings.HasPrefix(path, "http") {
		fullURL = path
		parts = normalize.SplitURL(path)
	}
	urlPath := parts.Path
	if urlPath == "" && strings.HasPrefix(path, "/") {
		urlPath = path
	}

	status, _ := normalize.ToInt(g["status"])

	ev := &model.Event{
		UploadID:   uploadID,
		TS:         ts,
		SrcIP:      g["ip"],
		URL:        fullURL,
		Domain:     parts.Host,
		Method:     g["method"],
		Status:     status,
		BytesOut:   normalize.ToBigInt(g["size"]),
		UserAgent:  g["ua"],
		Referrer:   g["ref"],
		URLHost:    parts.Host,
		URLPath:    urlPath,
		URLTld:     parts.Tld,
		HourBucket: normalize.TruncateToHour(ts),
		DayBucket:  normalize.TruncateToDay(ts),
		Extras:     map[string]string{"proto": g["proto"]},
		RawLine:    line,
	}
	if ts != nil {
		ev.Extras["date"] = ts.Format("2006-01-02")
	}
	if p.geo != nil {
		applyGeo(ev, p.geo.Lookup(ev.SrcIP))
	}
	return ev
}
