package ingest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jinishshah00/logsleuth/internal/model"
)

// settleDelay gives the writer time to finish before a dropped file is read.
const settleDelay = 500 * time.Millisecond

// Watcher ingests files dropped into a directory: each new log file is
// registered as an upload and parsed.
type Watcher struct {
	orch     *Orchestrator
	dir      string
	onParsed func(ctx context.Context, uploadID string)
}

// NewWatcher creates a Watcher over dir. onParsed, when non-nil, runs after
// each successful parse (e.g. to trigger anomaly detection).
func NewWatcher(orch *Orchestrator, dir string, onParsed func(ctx context.Context, uploadID string)) *Watcher {
	return &Watcher{orch: orch, dir: dir, onParsed: onParsed}
}

// Run watches the directory until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	slog.Info("watching drop directory", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) || !ingestible(ev.Name) {
				continue
			}
			time.Sleep(settleDelay)
			w.handle(ctx, ev.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	u := &model.Upload{
		ID:        NewUploadID(),
		Filename:  filepath.Base(path),
		Locator:   path,
		Status:    model.StatusReceived,
		CreatedAt: time.Now().UTC(),
	}
	if err := w.orch.store.CreateUpload(ctx, u); err != nil {
		slog.Warn("register dropped file", "path", path, "error", err)
		return
	}
	if _, err := w.orch.ParseUpload(ctx, u.ID); err != nil {
		slog.Warn("parse dropped file", "upload", u.ID, "path", path, "error", err)
		return
	}
	if w.onParsed != nil {
		w.onParsed(ctx, u.ID)
	}
}

func ingestible(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".log", ".txt":
		return true
	default:
		return false
	}
}

// NewUploadID generates a random upload identifier.
func NewUploadID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("up_%d", time.Now().UnixNano())
	}
	return "up_" + hex.EncodeToString(b[:])
}
