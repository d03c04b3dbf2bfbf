package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"LOGSLEUTH_STORE", "LOGSLEUTH_STORE_PATH", "GEOIP_DB_PATH",
		"LOGSLEUTH_BATCH_SIZE", "LOGSLEUTH_INFER_THRESHOLD",
		"LOGSLEUTH_WATCH_DIR", "LOGSLEUTH_REPORT_FILE", "LOGSLEUTH_WEBHOOK_URL",
		"LOGSLEUTH_LOG_LEVEL", "LOGSLEUTH_LOG_JSON",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Store.Backend != "memory" {
		t.Errorf("Backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.Ingest.BatchSize != 500 {
		t.Errorf("BatchSize = %d, want 500", cfg.Ingest.BatchSize)
	}
	if cfg.Ingest.InferThreshold != 0.45 {
		t.Errorf("InferThreshold = %v, want 0.45", cfg.Ingest.InferThreshold)
	}
	if cfg.Report.File != "" || cfg.Report.WebhookURL != "" {
		t.Errorf("Report = %+v, want empty", cfg.Report)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.JSON {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LOGSLEUTH_STORE", "bolt")
	t.Setenv("LOGSLEUTH_STORE_PATH", "/tmp/x.db")
	t.Setenv("GEOIP_DB_PATH", "/tmp/geo.mmdb")
	t.Setenv("LOGSLEUTH_BATCH_SIZE", "100")
	t.Setenv("LOGSLEUTH_INFER_THRESHOLD", "0.6")
	t.Setenv("LOGSLEUTH_REPORT_FILE", "/var/log/reports.ndjson")
	t.Setenv("LOGSLEUTH_WEBHOOK_URL", "https://hooks.example.com/logsleuth")
	t.Setenv("LOGSLEUTH_LOG_JSON", "true")

	cfg := Load()
	if cfg.Store.Backend != "bolt" || cfg.Store.Path != "/tmp/x.db" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.GeoIP.DBPath != "/tmp/geo.mmdb" {
		t.Errorf("DBPath = %q", cfg.GeoIP.DBPath)
	}
	if cfg.Ingest.BatchSize != 100 || cfg.Ingest.InferThreshold != 0.6 {
		t.Errorf("Ingest = %+v", cfg.Ingest)
	}
	if cfg.Report.File != "/var/log/reports.ndjson" || cfg.Report.WebhookURL != "https://hooks.example.com/logsleuth" {
		t.Errorf("Report = %+v", cfg.Report)
	}
	if !cfg.Logging.JSON {
		t.Error("JSON logging not enabled")
	}
}

func TestLoadInvalidEnvFallsBack(t *testing.T) {
	t.Setenv("LOGSLEUTH_BATCH_SIZE", "lots")
	t.Setenv("LOGSLEUTH_INFER_THRESHOLD", "maybe")

	cfg := Load()
	if cfg.Ingest.BatchSize != 500 || cfg.Ingest.InferThreshold != 0.45 {
		t.Errorf("Ingest = %+v, want defaults", cfg.Ingest)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logsleuth.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	t.Setenv("LOGSLEUTH_STORE", "")
	path := writeConfig(t, `
store:
  backend: bolt
  path: /var/lib/logsleuth/data.db
ingest:
  batch_size: 250
logging:
  level: debug
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Store.Backend != "bolt" || cfg.Store.Path != "/var/lib/logsleuth/data.db" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Ingest.BatchSize != 250 {
		t.Errorf("BatchSize = %d", cfg.Ingest.BatchSize)
	}
	// Fields absent from the file keep their env/default values.
	if cfg.Ingest.InferThreshold != 0.45 {
		t.Errorf("InferThreshold = %v", cfg.Ingest.InferThreshold)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadFile should fail for a missing file")
	}
}

func TestLoadFileValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			"unknown backend",
			"store:\n  backend: cassandra\n",
			"store.backend",
		},
		{
			"bolt without path",
			"store:\n  backend: bolt\n  path: \"\"\n",
			"store.path",
		},
		{
			"zero batch size",
			"ingest:\n  batch_size: -1\n",
			"batch_size",
		},
		{
			"threshold out of range",
			"ingest:\n  infer_threshold: 1.5\n",
			"infer_threshold",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOGSLEUTH_STORE", "")
			t.Setenv("LOGSLEUTH_STORE_PATH", "")
			_, err := LoadFile(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
