package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Source yields a sequential byte stream for a storage locator. The
// orchestrator may open the same locator more than once when format
// auto-detection has to retry with a different parser.
type Source interface {
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
}

// LocalSource reads uploads from the local filesystem; the locator is a
// file path.
type LocalSource struct{}

// Open opens the file at locator.
func (LocalSource) Open(_ context.Context, locator string) (io.ReadCloser, error) {
	f, err := os.Open(locator)
	if err != nil {
		return nil, fmt.Errorf("open source %s: %w", locator, err)
	}
	return f, nil
}
