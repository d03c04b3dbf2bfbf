package model

import "time"

// UploadStatus tracks an upload through its parse lifecycle.
type UploadStatus string

const (
	StatusReceived UploadStatus = "RECEIVED"
	StatusParsing  UploadStatus = "PARSING"
	StatusParsed   UploadStatus = "PARSED"
	StatusFailed   UploadStatus = "FAILED"
)

// Upload is one ingested log file and its lifecycle state.
// Transitions are one-directional except retried parses, which re-enter
// PARSING from PARSED or FAILED.
type Upload struct {
	ID         string
	Filename   string
	Locator    string // storage locator passed to the blob source
	Status     UploadStatus
	TotalRows  int
	ParsedRows int
	ErrorText  string
	Owner      string
	CreatedAt  time.Time
}
