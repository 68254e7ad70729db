package eventlog

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"causalGraphApp/internal/domain/model"
)

func openTestLog(t *testing.T) *SQLiteLog {
	t.Helper()
	log, err := Open(filepath.Join(t.TempDir(), "events.sqlite"))
	if err != nil {
		t.Fatalf("Failed to open test log: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

// TestAppendAndScanRoundtrip checks ordering, actions and payloads survive
// the write/read cycle.
func TestAppendAndScanRoundtrip(t *testing.T) {
	log := openTestLog(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	now := base
	log.SetClock(func() time.Time { return now })

	if err := log.Append(ctx, model.ActionAddNode, map[string]any{"id": "n1", "kind": "news"}); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	now = now.Add(time.Minute)
	if err := log.Append(ctx, model.ActionAddOrUpdateEdge, map[string]any{"src": "n1", "dst": "n2", "weight": 0.7}); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}

	var recs []*model.LogRecord
	err := log.Scan(ctx, func(rec *model.LogRecord) error {
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(recs) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(recs))
	}
	if recs[0].ID >= recs[1].ID {
		t.Errorf("Expected strictly increasing ids, got %d then %d", recs[0].ID, recs[1].ID)
	}
	if recs[0].Action != model.ActionAddNode || recs[1].Action != model.ActionAddOrUpdateEdge {
		t.Errorf("Unexpected actions: %s, %s", recs[0].Action, recs[1].Action)
	}
	if !recs[0].TS.Equal(base) {
		t.Errorf("Expected ts %v, got %v", base, recs[0].TS)
	}

	var payload map[string]any
	if err := json.Unmarshal(recs[1].Payload, &payload); err != nil {
		t.Fatalf("Failed to unmarshal payload: %v", err)
	}
	if payload["src"] != "n1" || payload["weight"] != 0.7 {
		t.Errorf("Unexpected payload: %v", payload)
	}
}

// TestLogSurvivesReopen ensures records persist across close/reopen.
func TestLogSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.sqlite")
	ctx := context.Background()

	log, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open log: %v", err)
	}
	if err := log.Append(ctx, model.ActionAddNode, map[string]any{"id": "n1"}); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	reopened, err := OpenExisting(path)
	if err != nil {
		t.Fatalf("Failed to reopen: %v", err)
	}
	defer reopened.Close()

	count := 0
	if err := reopened.Scan(ctx, func(*model.LogRecord) error { count++; return nil }); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 record after reopen, got %d", count)
	}
}

// TestOpenExistingMissing fails loudly when the database does not exist.
func TestOpenExistingMissing(t *testing.T) {
	if _, err := OpenExisting(filepath.Join(t.TempDir(), "missing.sqlite")); err == nil {
		t.Fatal("Expected error for missing database")
	}
}

// TestParseRecordTS tolerates the accepted layouts and falls back to zero.
func TestParseRecordTS(t *testing.T) {
	if got := parseRecordTS("2026-03-02T15:00:00.5Z"); got.IsZero() {
		t.Error("Expected RFC3339Nano timestamp to parse")
	}
	if got := parseRecordTS("2026-03-02 15:00:00"); got.IsZero() {
		t.Error("Expected legacy space-separated timestamp to parse")
	}
	if got := parseRecordTS("not a time"); !got.IsZero() {
		t.Errorf("Expected zero time for garbage, got %v", got)
	}
}

// TestScanStopsOnCallbackError propagates the callback error.
func TestScanStopsOnCallbackError(t *testing.T) {
	log := openTestLog(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := log.Append(ctx, model.ActionAddNode, map[string]any{"id": "n"}); err != nil {
			t.Fatalf("Failed to append: %v", err)
		}
	}

	seen := 0
	err := log.Scan(ctx, func(*model.LogRecord) error {
		seen++
		if seen == 2 {
			return context.Canceled
		}
		return nil
	})
	if err != context.Canceled {
		t.Errorf("Expected callback error propagated, got %v", err)
	}
	if seen != 2 {
		t.Errorf("Expected scan to stop after 2 records, got %d", seen)
	}
}
