package logsleuth_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jinishshah00/logsleuth/pkg/logsleuth"
)

func Example() {
	dir, err := os.MkdirTemp("", "logsleuth")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "proxy.csv")
	csv := "user,src_ip,status\nalice@corp.com,10.0.0.1,200\nbob@corp.com,10.0.0.2,404\n"
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		log.Fatal(err)
	}

	s, err := logsleuth.New()
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	res, err := s.IngestFile(context.Background(), path)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("parsed %d of %d rows\n", res.Parsed, res.Total)
	fmt.Printf("anomalies: %d\n", len(res.Anomalies))
	// Output:
	// parsed 2 of 2 rows
	// anomalies: 0
}
