package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jinishshah00/logsleuth/internal/model"
)

const combinedLine = `203.0.113.9 - frank [10/Oct/2000:13:55:36 -0700] "GET /apache_pb.gif HTTP/1.0" 200 2326 "http://example.com/start.html" "Mozilla/4.08 (Macintosh; I; PPC)"`

func TestApacheParseCounts(t *testing.T) {
	var lines []string
	for i := 0; i < 8; i++ {
		lines = append(lines, fmt.Sprintf(`10.0.0.%d - - [10/Oct/2000:13:55:%02d -0700] "GET /p%d HTTP/1.1" 200 %d`, i+1, i, i, 100*(i+1)))
	}
	lines = append(lines, "this is not an access log line")
	lines = append(lines, "") // blank, not counted
	lines = append(lines, "neither 	 is this")

	st := &recordingStore{}
	p := NewApache(st, nil)
	res, err := p.Parse(context.Background(), strings.NewReader(strings.Join(lines, "\n")), "up_1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Total != 10 || res.Parsed != 8 {
		t.Fatalf("got total=%d parsed=%d, want 10/8", res.Total, res.Parsed)
	}
	if len(st.events) != 8 {
		t.Fatalf("stored %d events, want 8", len(st.events))
	}
}

func TestApacheLineFields(t *testing.T) {
	st := &recordingStore{}
	p := NewApache(st, nil)
	if _, err := p.Parse(context.Background(), strings.NewReader(combinedLine), "up_1"); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(st.events) != 1 {
		t.Fatalf("stored %d events, want 1", len(st.events))
	}
	ev := st.events[0]

	if ev.SrcIP != "203.0.113.9" {
		t.Errorf("SrcIP = %q", ev.SrcIP)
	}
	if ev.Method != "GET" {
		t.Errorf("Method = %q", ev.Method)
	}
	if ev.Status != 200 {
		t.Errorf("Status = %d", ev.Status)
	}
	if ev.BytesOut == nil || ev.BytesOut.Int64() != 2326 {
		t.Errorf("BytesOut = %v", ev.BytesOut)
	}
	if ev.UserAgent != "Mozilla/4.08 (Macintosh; I; PPC)" {
		t.Errorf("UserAgent = %q", ev.UserAgent)
	}
	if ev.Referrer != "http://example.com/start.html" {
		t.Errorf("Referrer = %q", ev.Referrer)
	}
	// Relative request path: path only, no URL or host.
	if ev.URL != "" || ev.Domain != "" || ev.URLPath != "/apache_pb.gif" {
		t.Errorf("url=%q domain=%q path=%q", ev.URL, ev.Domain, ev.URLPath)
	}
	if ev.Extras["proto"] != "HTTP/1.0" {
		t.Errorf("proto = %q", ev.Extras["proto"])
	}
	if ev.RawLine != combinedLine {
		t.Errorf("RawLine = %q", ev.RawLine)
	}

	// -0700 wall clock converts to absolute UTC.
	want := time.Date(2000, time.October, 10, 20, 55, 36, 0, time.UTC)
	if ev.TS == nil || !ev.TS.Equal(want) {
		t.Errorf("TS = %v, want %v", ev.TS, want)
	}
	wantHour := time.Date(2000, time.October, 10, 20, 0, 0, 0, time.UTC)
	if ev.HourBucket == nil || !ev.HourBucket.Equal(wantHour) {
		t.Errorf("HourBucket = %v, want %v", ev.HourBucket, wantHour)
	}
	if ev.Extras["date"] != "2000-10-10" {
		t.Errorf("date extra = %q", ev.Extras["date"])
	}
}

func TestApacheAbsoluteURL(t *testing.T) {
	line := `198.51.100.7 - - [02/Jan/2024:00:10:00 +0000] "GET http://files.example.net/a/b.zip HTTP/1.1" 200 10`
	st := &recordingStore{}
	p := NewApache(st, nil)
	if _, err := p.Parse(context.Background(), strings.NewReader(line), "up_1"); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ev := st.events[0]
	if ev.URL != "http://files.example.net/a/b.zip" {
		t.Errorf("URL = %q", ev.URL)
	}
	if ev.Domain != "files.example.net" || ev.URLHost != "files.example.net" {
		t.Errorf("domain=%q urlhost=%q", ev.Domain, ev.URLHost)
	}
	if ev.URLPath != "/a/b.zip" || ev.URLTld != "net" {
		t.Errorf("path=%q tld=%q", ev.URLPath, ev.URLTld)
	}
}

func TestApacheNoReferrerUserAgent(t *testing.T) {
	line := `198.51.100.7 - - [02/Jan/2024:00:10:00 +0000] "GET /x HTTP/1.1" 404 -`
	st := &recordingStore{}
	p := NewApache(st, nil)
	res, err := p.Parse(context.Background(), strings.NewReader(line), "up_1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Parsed != 1 {
		t.Fatalf("parsed = %d, want 1", res.Parsed)
	}
	ev := st.events[0]
	if ev.UserAgent != "" || ev.Referrer != "" {
		t.Errorf("ua=%q ref=%q, want empty", ev.UserAgent, ev.Referrer)
	}
	if ev.BytesOut != nil {
		t.Errorf("BytesOut = %v, want nil for '-'", ev.BytesOut)
	}
	if ev.Status != 404 {
		t.Errorf("Status = %d", ev.Status)
	}
}

func TestApacheGeoEnrichment(t *testing.T) {
	lat, lon := 51.5074, -0.1278
	geo := &stubGeo{byIP: map[string]*model.GeoInfo{
		"203.0.113.9": {Country: "GB", City: "London", Latitude: &lat, Longitude: &lon},
	}}
	st := &recordingStore{}
	p := NewApache(st, geo)
	if _, err := p.Parse(context.Background(), strings.NewReader(combinedLine), "up_1"); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ev := st.events[0]
	if ev.Country != "GB" || ev.City != "London" {
		t.Errorf("country=%q city=%q", ev.Country, ev.City)
	}
	if ev.Latitude == nil || *ev.Latitude != lat {
		t.Errorf("Latitude = %v", ev.Latitude)
	}
}

func TestApacheBatchFlush(t *testing.T) {
	var lines []string
	for i := 0; i < 8; i++ {
		lines = append(lines, fmt.Sprintf(`10.0.0.1 - - [10/Oct/2000:13:55:%02d -0700] "GET /p HTTP/1.1" 200 1`, i))
	}
	st := &recordingStore{}
	p := NewApache(st, nil, WithApacheBatchSize(3))
	res, err := p.Parse(context.Background(), strings.NewReader(strings.Join(lines, "\n")), "up_1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Parsed != 8 {
		t.Fatalf("parsed = %d", res.Parsed)
	}
	want := []int{3, 3, 2}
	if len(st.batchSizes) != len(want) {
		t.Fatalf("batches = %v, want %v", st.batchSizes, want)
	}
	for i, n := range want {
		if st.batchSizes[i] != n {
			t.Fatalf("batches = %v, want %v", st.batchSizes, want)
		}
	}
}

func TestApacheFlushFailure(t *testing.T) {
	var lines []string
	for i := 0; i < 5; i++ {
		lines = append(lines, `10.0.0.1 - - [10/Oct/2000:13:55:00 -0700] "GET /p HTTP/1.1" 200 1`)
	}
	st := &recordingStore{failAfter: 1}
	p := NewApache(st, nil, WithApacheBatchSize(2))
	_, err := p.Parse(context.Background(), strings.NewReader(strings.Join(lines, "\n")), "up_1")
	if !errors.Is(err, errFlushBoom) {
		t.Fatalf("err = %v, want flush failure", err)
	}
}
