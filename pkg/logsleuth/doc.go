// Package logsleuth provides an embeddable log ingestion pipeline that
// normalizes security log files and flags statistical anomalies.
//
// Quick start:
//
//	s, err := logsleuth.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	res, _ := s.IngestFile(ctx, "access.log")
//	for _, a := range res.Anomalies {
//	    fmt.Println(a.Detector, a.Reason)
//	}
//
// The Sleuth instance is safe for concurrent use. Create once, reuse across
// files. By default everything lives in memory; use WithBoltStore to persist
// across runs.
package logsleuth
