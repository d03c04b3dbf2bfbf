package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// StdoutSink writes JSON-encoded reports to a writer, one per Deliver.
type StdoutSink struct {
	enc *json.Encoder
}

// NewStdout creates a sink writing to stdout, pretty-printed when asked.
func NewStdout(pretty bool) *StdoutSink {
	return NewWriterSink(os.Stdout, pretty)
}

// NewWriterSink creates a sink writing to w.
func NewWriterSink(w io.Writer, pretty bool) *StdoutSink {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &StdoutSink{enc: enc}
}

func (s *StdoutSink) Deliver(_ context.Context, r *Report) error {
	if err := s.enc.Encode(r); err != nil {
		return fmt.Errorf("stdout report: %w", err)
	}
	return nil
}

func (s *StdoutSink) Close() error { return nil }
