package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jinishshah00/logsleuth/internal/analytics"
	"github.com/jinishshah00/logsleuth/internal/config"
	"github.com/jinishshah00/logsleuth/internal/detect"
	"github.com/jinishshah00/logsleuth/internal/geoip"
	"github.com/jinishshah00/logsleuth/internal/ingest"
	"github.com/jinishshah00/logsleuth/internal/logging"
	"github.com/jinishshah00/logsleuth/internal/model"
	"github.com/jinishshah00/logsleuth/internal/report"
	"github.com/jinishshah00/logsleuth/internal/store"
	boltstore "github.com/jinishshah00/logsleuth/internal/store/bolt"
	"github.com/jinishshah00/logsleuth/internal/store/memory"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML config file (optional)")
	watch := flag.Bool("watch", false, "watch the configured drop directory instead of parsing arguments")
	flag.Parse()

	cfg := config.Load()
	if *cfgPath != "" {
		loaded, err := config.LoadFile(*cfgPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = loaded
	}

	logging.Init(cfg.Logging.JSON, logging.ParseLevel(cfg.Logging.Level))

	st, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer closeStore()

	resolver, err := geoip.Open(cfg.GeoIP.DBPath, geoip.NewCache())
	if err != nil {
		// Enrichment is best effort: degrade to no geolocation.
		slog.Warn("geoip database unavailable, continuing without enrichment", "error", err)
		resolver, _ = geoip.Open("", nil)
	}
	defer resolver.Close()

	sink, err := buildSink(cfg, !*watch)
	if err != nil {
		log.Fatalf("report: %v", err)
	}
	defer sink.Close()

	orch := ingest.New(st, ingest.LocalSource{}, resolver,
		ingest.WithBatchSize(cfg.Ingest.BatchSize),
		ingest.WithInferThreshold(cfg.Ingest.InferThreshold))
	engine := detect.New(st, st)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nreceived %v, shutting down...\n", sig)
		cancel()
	}()

	if *watch {
		if cfg.Ingest.WatchDir == "" {
			log.Fatal("watch mode requires ingest.watch_dir (or LOGSLEUTH_WATCH_DIR)")
		}
		onParsed := func(ctx context.Context, uploadID string) {
			if _, err := engine.Run(ctx, uploadID); err != nil {
				slog.Warn("anomaly detection failed", "upload", uploadID, "error", err)
				return
			}
			if err := deliverReport(ctx, st, sink, uploadID); err != nil {
				slog.Warn("report delivery failed", "upload", uploadID, "error", err)
			}
		}
		w := ingest.NewWatcher(orch, cfg.Ingest.WatchDir, onParsed)
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			log.Fatalf("watch: %v", err)
		}
		return
	}

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: logsleuth [-config file] [-watch] <logfile>...")
		os.Exit(2)
	}
	for _, path := range flag.Args() {
		if err := ingestFile(ctx, st, orch, engine, sink, path); err != nil {
			log.Fatalf("%s: %v", path, err)
		}
	}
}

func openStore(cfg config.Config) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case "bolt":
		s, err := boltstore.Open(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return memory.New(), func() {}, nil
	}
}

// buildSink assembles the configured report destinations. One-shot runs
// always print to stdout; watch mode only delivers to configured sinks.
func buildSink(cfg config.Config, stdout bool) (report.Sink, error) {
	var sinks []report.Sink
	if stdout {
		sinks = append(sinks, report.NewStdout(true))
	}
	if cfg.Report.File != "" {
		fs, err := report.NewFile(cfg.Report.File)
		if err != nil {
			return nil, fmt.Errorf("open report file: %w", err)
		}
		sinks = append(sinks, fs)
	}
	if cfg.Report.WebhookURL != "" {
		sinks = append(sinks, report.NewWebhook(cfg.Report.WebhookURL))
	}
	if len(sinks) == 0 {
		sinks = append(sinks, report.NewStdout(false))
	}
	return report.NewMulti(sinks...), nil
}

func ingestFile(ctx context.Context, st store.Store, orch *ingest.Orchestrator, engine *detect.Engine, sink report.Sink, path string) error {
	u := &model.Upload{
		ID:        ingest.NewUploadID(),
		Filename:  filepath.Base(path),
		Locator:   path,
		Status:    model.StatusReceived,
		CreatedAt: time.Now().UTC(),
	}
	if err := st.CreateUpload(ctx, u); err != nil {
		return err
	}
	if _, err := orch.ParseUpload(ctx, u.ID); err != nil {
		return err
	}
	if _, err := engine.Run(ctx, u.ID); err != nil {
		return err
	}
	return deliverReport(ctx, st, sink, u.ID)
}

func deliverReport(ctx context.Context, st store.Store, sink report.Sink, uploadID string) error {
	u, err := st.GetUpload(ctx, uploadID)
	if err != nil {
		return err
	}
	anomalies, err := st.FindAnomalies(ctx, uploadID)
	if err != nil {
		return err
	}
	byDetector := make(map[model.Detector]int)
	for _, a := range anomalies {
		byDetector[a.Detector]++
	}
	summary, err := analytics.New(st).Summary(ctx, uploadID, 5)
	if err != nil {
		return err
	}
	return sink.Deliver(ctx, report.New(u, anomalies, byDetector, summary))
}
