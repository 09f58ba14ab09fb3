package logging

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ScanRecord is written as a single JSON object per served scan. Matched
// text is never recorded.
type ScanRecord struct {
	Timestamp   time.Time      `json:"ts"`
	RequestID   string         `json:"request_id"`
	ClientIP    string         `json:"client_ip"`
	Source      string         `json:"source"`
	Categories  []string       `json:"categories"`
	Counts      map[string]int `json:"counts"`
	Diagnostics []string       `json:"diagnostics"`
	TextBytes   int            `json:"text_bytes"`
	CacheHit    bool           `json:"cache_hit"`
	Outcome     string         `json:"outcome"`
	StatusCode  int            `json:"status_code"`
	DurationUS  int64          `json:"duration_us"`
}

const (
	OutcomeOK          = "ok"
	OutcomeRejected    = "rejected"
	OutcomeRateLimited = "rate_limited"
)

const maxCategories = 32

type ScanLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func NewScanLogger(w io.Writer) *ScanLogger {
	return &ScanLogger{w: w}
}

func OpenScanLog(path string) (*ScanLogger, func() error, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return NewScanLogger(file), file.Close, nil
}

func (l *ScanLogger) Write(record ScanRecord) error {
	if len(record.Categories) > maxCategories {
		record.Categories = record.Categories[:maxCategories]
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.w.Write(append(data, '\n'))
	return err
}
