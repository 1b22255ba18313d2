// Package recorder journals render outcomes for later inspection. Only the
// produced artifact and outcome metadata are stored, never request payloads.
package recorder

import "time"

// RenderRecord is one completed (or failed) render job.
type RenderRecord struct {
	RequestID string
	Ticker    string
	Timeframe string
	Candles   int
	Path      string
	Duration  time.Duration
	Status    string // "OK" or "ERROR"
	Error     string
}

// Recorder persists render records.
type Recorder interface {
	RecordRender(rec *RenderRecord) error
	Close() error
}
