package alerts

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"causalGraphApp/internal/domain/model"
)

func testEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alerts.jsonl")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := NewEngine(path, false, log, nil)
	e.SetClock(func() time.Time { return time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC) })
	return e, path
}

func defaultThresholds() Thresholds {
	return Thresholds{KSigma: 1.0, MinP: 0.65}
}

// TestMaybeAlertEmits writes one JSONL line with rounded values when both
// thresholds clear.
func TestMaybeAlertEmits(t *testing.T) {
	e, path := testEngine(t)

	alert, err := e.MaybeAlert("AAPL", 90, 0.95257412, 1.73123456, 1, "Graph net support bullish with score=1.73σ.", defaultThresholds())
	if err != nil {
		t.Fatalf("MaybeAlert failed: %v", err)
	}
	if alert == nil {
		t.Fatal("Expected an alert above thresholds")
	}
	if alert.Probability != 0.9526 {
		t.Errorf("Expected probability rounded to 4 places (0.9526), got %v", alert.Probability)
	}
	if alert.ExpectedSigma != 1.731 {
		t.Errorf("Expected sigma rounded to 3 places (1.731), got %v", alert.ExpectedSigma)
	}
	if alert.Direction != model.DirectionUp {
		t.Errorf("Expected direction UP, got %s", alert.Direction)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open sink: %v", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatal("Expected one line in the sink")
	}
	var fromDisk model.Alert
	if err := json.Unmarshal(scanner.Bytes(), &fromDisk); err != nil {
		t.Fatalf("Failed to parse sink line: %v", err)
	}
	if fromDisk.Ticker != "AAPL" || fromDisk.HorizonMin != 90 {
		t.Errorf("Unexpected persisted alert: %+v", fromDisk)
	}
	if scanner.Scan() {
		t.Error("Expected exactly one line")
	}
}

// TestMaybeAlertThresholds stays silent unless probability and sigma both
// clear their thresholds.
func TestMaybeAlertThresholds(t *testing.T) {
	e, path := testEngine(t)

	cases := []struct {
		name  string
		p     float64
		sigma float64
	}{
		{"low probability", 0.60, 2.0},
		{"low sigma", 0.90, 0.5},
		{"both low", 0.40, 0.2},
	}
	for _, tc := range cases {
		alert, err := e.MaybeAlert("AAPL", 90, tc.p, tc.sigma, 1, "r", defaultThresholds())
		if err != nil {
			t.Fatalf("%s: MaybeAlert failed: %v", tc.name, err)
		}
		if alert != nil {
			t.Errorf("%s: Expected no alert, got %+v", tc.name, alert)
		}
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected no sink file when nothing was emitted")
	}
}

// TestDirectionFromPolarity maps polarity sign to UP/DOWN.
func TestDirectionFromPolarity(t *testing.T) {
	e, _ := testEngine(t)

	up, _ := e.MaybeAlert("AAPL", 90, 0.9, 1.5, 1, "r", defaultThresholds())
	if up.Direction != model.DirectionUp {
		t.Errorf("Expected UP for positive polarity, got %s", up.Direction)
	}
	down, _ := e.MaybeAlert("AAPL", 90, 0.9, 1.5, -1, "r", defaultThresholds())
	if down.Direction != model.DirectionDown {
		t.Errorf("Expected DOWN for negative polarity, got %s", down.Direction)
	}
}

// TestRecentRing keeps only the newest alerts, oldest first.
func TestRecentRing(t *testing.T) {
	e, _ := testEngine(t)

	for i := 0; i < recentCap+10; i++ {
		if _, err := e.MaybeAlert("AAPL", 90, 0.9, 1.5, 1, "r", defaultThresholds()); err != nil {
			t.Fatalf("MaybeAlert %d failed: %v", i, err)
		}
	}
	recent := e.Recent()
	if len(recent) != recentCap {
		t.Errorf("Expected recent ring capped at %d, got %d", recentCap, len(recent))
	}
}

// TestBroadcasterNotified pushes emitted alerts to the broadcaster.
func TestBroadcasterNotified(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.jsonl")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := &mockBroadcaster{}
	e := NewEngine(path, false, log, b)

	if _, err := e.MaybeAlert("NVDA", 90, 0.9, 1.5, 1, "r", defaultThresholds()); err != nil {
		t.Fatalf("MaybeAlert failed: %v", err)
	}
	if len(b.sent) != 1 || b.sent[0].Ticker != "NVDA" {
		t.Errorf("Expected broadcast of NVDA alert, got %+v", b.sent)
	}

	// Below thresholds nothing is broadcast.
	e.MaybeAlert("NVDA", 90, 0.1, 0.1, 1, "r", defaultThresholds())
	if len(b.sent) != 1 {
		t.Errorf("Expected no additional broadcast, got %d", len(b.sent))
	}
}

type mockBroadcaster struct {
	sent []*model.Alert
}

func (m *mockBroadcaster) BroadcastAlert(alert *model.Alert) { m.sent = append(m.sent, alert) }
func (m *mockBroadcaster) Handler() func(http.ResponseWriter, *http.Request) {
	return func(http.ResponseWriter, *http.Request) {}
}

// TestRoundTo covers the rounding helper.
func TestRoundTo(t *testing.T) {
	if got := roundTo(0.95257412, 4); got != 0.9526 {
		t.Errorf("Expected 0.9526, got %v", got)
	}
	if got := roundTo(1.2345, 3); got != 1.235 {
		t.Errorf("Expected 1.235 (half rounds away from zero), got %v", got)
	}
	if got := roundTo(1.7315, 3); got != 1.732 {
		t.Errorf("Expected 1.732, got %v", got)
	}
}
