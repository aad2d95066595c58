package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/ground-control/gcs/internal/auth"
)

func TestLogActionWritesJSONL(t *testing.T) {
	logger, err := NewLogger(t.TempDir())
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer logger.Close()

	ctx := context.WithValue(context.Background(), auth.ClaimsKey,
		&auth.Claims{Subject: "operator-1"})
	logger.LogAction(ctx, "arm", "1", "SUCCESS", 12*time.Millisecond)
	logger.LogAction(context.Background(), "emergency_rtl", "ALL", "SUCCESS", time.Millisecond)

	f, err := os.Open(logger.FilePath())
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("bad entry %q: %v", scanner.Text(), err)
		}
		entries = append(entries, e)
	}

	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].User != "operator-1" || entries[0].Action != "arm" || entries[0].VehicleID != "1" {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].User != "unknown" || entries[1].VehicleID != "ALL" {
		t.Errorf("second entry = %+v", entries[1])
	}
}
