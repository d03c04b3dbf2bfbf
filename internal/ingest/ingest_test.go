package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jinishshah00/logsleuth/internal/model"
	"github.com/jinishshah00/logsleuth/internal/store"
	"github.com/jinishshah00/logsleuth/internal/store/memory"
)

const csvContent = `user,src_ip,status
alice@corp.com,10.0.0.1,200
bob@corp.com,10.0.0.2,404
`

const apacheContent = `203.0.113.9 - - [10/Oct/2000:13:55:36 -0700] "GET /a HTTP/1.0" 200 100
not an access log line
203.0.113.9 - - [10/Oct/2000:13:56:36 -0700] "GET /b HTTP/1.0" 200 100
`

func writeUpload(t *testing.T, st *memory.Store, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	id := "up_" + strings.TrimSuffix(name, filepath.Ext(name))
	err := st.CreateUpload(context.Background(), &model.Upload{
		ID:        id,
		Filename:  name,
		Locator:   path,
		Status:    model.StatusReceived,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateUpload: %v", err)
	}
	return id
}

func TestParseUploadCSV(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	o := New(st, LocalSource{}, nil)

	id := writeUpload(t, st, "export.csv", csvContent)
	res, err := o.ParseUpload(ctx, id)
	if err != nil {
		t.Fatalf("ParseUpload: %v", err)
	}
	if res.Total != 2 || res.Parsed != 2 {
		t.Fatalf("result = %+v", res)
	}

	u, _ := st.GetUpload(ctx, id)
	if u.Status != model.StatusParsed || u.TotalRows != 2 || u.ParsedRows != 2 {
		t.Fatalf("upload = %+v", u)
	}
	n, _ := st.Count(ctx, store.EventFilter{UploadID: id})
	if n != 2 {
		t.Fatalf("stored %d events", n)
	}
}

func TestParseUploadApacheByExtension(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	o := New(st, LocalSource{}, nil)

	id := writeUpload(t, st, "access.log", apacheContent)
	res, err := o.ParseUpload(ctx, id)
	if err != nil {
		t.Fatalf("ParseUpload: %v", err)
	}
	if res.Total != 3 || res.Parsed != 2 {
		t.Fatalf("result = %+v", res)
	}
	u, _ := st.GetUpload(ctx, id)
	if u.Status != model.StatusParsed || u.TotalRows != 3 || u.ParsedRows != 2 {
		t.Fatalf("upload = %+v", u)
	}
}

func TestParseUploadUnknownExtensionFallsBack(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	o := New(st, LocalSource{}, nil)

	// Apache content behind an undecisive extension: CSV is tried first,
	// rejects the stream, and the orchestrator re-opens it for Apache.
	id := writeUpload(t, st, "access.bin", apacheContent)
	res, err := o.ParseUpload(ctx, id)
	if err != nil {
		t.Fatalf("ParseUpload: %v", err)
	}
	if res.Parsed != 2 {
		t.Fatalf("result = %+v", res)
	}
	u, _ := st.GetUpload(ctx, id)
	if u.Status != model.StatusParsed {
		t.Fatalf("status = %s", u.Status)
	}
}

func TestParseUploadMissingFileFails(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	o := New(st, LocalSource{}, nil)

	err := st.CreateUpload(ctx, &model.Upload{
		ID:       "up_gone",
		Filename: "gone.csv",
		Locator:  filepath.Join(t.TempDir(), "gone.csv"),
		Status:   model.StatusReceived,
	})
	if err != nil {
		t.Fatalf("CreateUpload: %v", err)
	}

	if _, err := o.ParseUpload(ctx, "up_gone"); err == nil {
		t.Fatal("ParseUpload should fail for a missing file")
	}
	u, _ := st.GetUpload(ctx, "up_gone")
	if u.Status != model.StatusFailed {
		t.Fatalf("status = %s, want FAILED", u.Status)
	}
	if u.ErrorText == "" {
		t.Fatal("failure reason not recorded")
	}
}

func TestParseUploadUnknownUpload(t *testing.T) {
	o := New(memory.New(), LocalSource{}, nil)
	if _, err := o.ParseUpload(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestParseUploadNoLocator(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	if err := st.CreateUpload(ctx, &model.Upload{ID: "up_1", Filename: "x.csv"}); err != nil {
		t.Fatalf("CreateUpload: %v", err)
	}
	o := New(st, LocalSource{}, nil)
	if _, err := o.ParseUpload(ctx, "up_1"); err == nil {
		t.Fatal("ParseUpload should fail without a locator")
	}
}

func TestParseUploadRetryReplacesEvents(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	o := New(st, LocalSource{}, nil)

	id := writeUpload(t, st, "export.csv", csvContent)
	if _, err := o.ParseUpload(ctx, id); err != nil {
		t.Fatalf("first parse: %v", err)
	}
	if _, err := o.ParseUpload(ctx, id); err != nil {
		t.Fatalf("second parse: %v", err)
	}
	n, _ := st.Count(ctx, store.EventFilter{UploadID: id})
	if n != 2 {
		t.Fatalf("events after retry = %d, want 2 (no duplicates)", n)
	}
}

// gateSource blocks Open until released, exposing when a parse is inside it.
type gateSource struct {
	enterOnce sync.Once
	entered   chan struct{}
	release   chan struct{}
}

func (g *gateSource) Open(ctx context.Context, _ string) (io.ReadCloser, error) {
	g.enterOnce.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return io.NopCloser(strings.NewReader(csvContent)), nil
}

func TestParseUploadInFlight(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	gate := &gateSource{entered: make(chan struct{}), release: make(chan struct{})}
	o := New(st, gate, nil)

	err := st.CreateUpload(ctx, &model.Upload{
		ID:       "up_1",
		Filename: "export.csv",
		Locator:  "gate://export.csv",
		Status:   model.StatusReceived,
	})
	if err != nil {
		t.Fatalf("CreateUpload: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := o.ParseUpload(ctx, "up_1")
		done <- err
	}()

	<-gate.entered
	if _, err := o.ParseUpload(ctx, "up_1"); !errors.Is(err, ErrParseInFlight) {
		t.Fatalf("concurrent parse err = %v, want ErrParseInFlight", err)
	}

	close(gate.release)
	if err := <-done; err != nil {
		t.Fatalf("first parse: %v", err)
	}

	// The lock releases with the parse; a fresh parse may run again.
	if _, err := o.ParseUpload(ctx, "up_1"); err != nil {
		t.Fatalf("parse after release: %v", err)
	}
}
