//
//
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ground-control/gcs/internal/auth"
)

// Entry is a single audit record.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	User      string    `json:"user"`
	VehicleID string    `json:"vehicleId"`
	Action    string    `json:"action"`
	Outcome   string    `json:"outcome"`
	LatencyMS int64     `json:"latencyMs"`
}

// Logger appends audit entries to a size-rotated JSONL file.
type Logger struct {
	mu       sync.Mutex
	out      *lumberjack.Logger
	filePath string
}

// NewLogger creates an audit logger writing under logDir.
func NewLogger(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	filePath := filepath.Join(logDir, "audit.jsonl")
	return &Logger{
		out: &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		},
		filePath: filePath,
	}, nil
}

// LogAction records one command attempt. The issuing user is taken from
// the request's auth claims when present.
func (l *Logger) LogAction(ctx context.Context, action, vehicleID, result string, latency time.Duration) {
	l.write(Entry{
		Timestamp: time.Now().UTC(),
		User:      userFromContext(ctx),
		VehicleID: vehicleID,
		Action:    action,
		Outcome:   result,
		LatencyMS: latency.Milliseconds(),
	})
}

func (l *Logger) write(entry Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal audit entry: %v\n", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.out.Write(append(data, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write audit entry: %v\n", err)
	}
}

// FilePath returns the active audit log file.
func (l *Logger) FilePath() string {
	return l.filePath
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.Close()
}

func userFromContext(ctx context.Context) string {
	if claims, ok := ctx.Value(auth.ClaimsKey).(*auth.Claims); ok && claims.Subject != "" {
		return claims.Subject
	}
	return "unknown"
}
