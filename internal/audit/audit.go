// Package audit writes one JSON object per validation decision to an
// append-only log. The records are the durable counterpart of the
// in-memory event ring and feed the offline report command.
package audit

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const maxPreview = 100

// Outcome classifies how a validation ended.
const (
	OutcomeAccepted    = "accepted"
	OutcomeRateLimited = "rate_limited"
	OutcomeStructural  = "structural"
	OutcomeBlocked     = "blocked"
	OutcomeMonitored   = "monitored"
	OutcomeRemote      = "remote_rejected"
)

// Record is written as a single JSON object per validated message.
type Record struct {
	Timestamp   time.Time `json:"ts"`
	RequestID   string    `json:"request_id,omitempty"`
	Identity    string    `json:"identity,omitempty"`
	Outcome     string    `json:"outcome"`
	Category    string    `json:"category,omitempty"`
	Kind        string    `json:"kind,omitempty"`
	ThreatLevel string    `json:"threat_level,omitempty"`
	Mode        string    `json:"mode,omitempty"`
	DurationUS  int64     `json:"duration_us"`
	Preview     string    `json:"preview,omitempty"`
}

// Rotation bounds the audit file. Zero values defer to the rotation
// library's defaults.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger serializes records to a writer, one JSON line each. Safe for
// concurrent use.
type Logger struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLogger wraps an already-open writer.
func NewLogger(w io.Writer) *Logger {
	return &Logger{w: w}
}

// Open creates a logger backed by a size-rotated file at path.
func Open(path string, rotation Rotation) (*Logger, func() error, error) {
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotation.MaxSizeMB,
		MaxBackups: rotation.MaxBackups,
		MaxAge:     rotation.MaxAgeDays,
	}
	// lumberjack opens lazily, so creation cannot fail here; write
	// errors surface on Log.
	return NewLogger(file), file.Close, nil
}

// Log writes one record. Previews are clamped so raw payloads never
// land in the audit file at full length.
func (l *Logger) Log(rec Record) error {
	if runes := []rune(rec.Preview); len(runes) > maxPreview {
		rec.Preview = string(runes[:maxPreview])
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.w.Write(append(data, '\n'))
	return err
}
