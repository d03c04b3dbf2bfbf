package ingest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/jinishshah00/logsleuth/internal/model"
	"github.com/jinishshah00/logsleuth/internal/store"
	"github.com/jinishshah00/logsleuth/internal/store/memory"
)

func TestHTTPSourceOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		io.WriteString(w, csvContent)
	}))
	defer srv.Close()

	src := NewHTTPSource(WithBearerToken("tok"))
	rc, err := src.Open(context.Background(), srv.URL+"/exports/1.csv")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != csvContent {
		t.Fatalf("body = %q", data)
	}
}

func TestHTTPSourceRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	rc, err := NewHTTPSource().Open(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rc.Close()
	if calls.Load() != 2 {
		t.Fatalf("server saw %d calls, want 2", calls.Load())
	}
}

func TestHTTPSourceClientErrorIsFatal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "not here", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewHTTPSource().Open(context.Background(), srv.URL)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.StatusCode != 404 {
		t.Fatalf("err = %v, want FetchError 404", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("server saw %d calls, want exactly 1", calls.Load())
	}
}

func TestHTTPSourceCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHTTPSource().Open(ctx, srv.URL); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestParseUploadFromHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, csvContent)
	}))
	defer srv.Close()

	ctx := context.Background()
	st := memory.New()
	err := st.CreateUpload(ctx, &model.Upload{
		ID:       "up_1",
		Filename: "export.csv",
		Locator:  srv.URL + "/export.csv",
		Status:   model.StatusReceived,
	})
	if err != nil {
		t.Fatalf("CreateUpload: %v", err)
	}

	o := New(st, NewHTTPSource(), nil)
	res, err := o.ParseUpload(ctx, "up_1")
	if err != nil {
		t.Fatalf("ParseUpload: %v", err)
	}
	if res.Parsed != 2 {
		t.Fatalf("result = %+v", res)
	}
	n, _ := st.Count(ctx, store.EventFilter{UploadID: "up_1"})
	if n != 2 {
		t.Fatalf("stored %d events", n)
	}
}
