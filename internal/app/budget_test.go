package app

import (
	"testing"
	"time"

	"causalGraphApp/config"
)

// TestBudgetCapDerivation checks cap = floor(daily / per-eval), minimum 1.
func TestBudgetCapDerivation(t *testing.T) {
	cases := []struct {
		daily   float64
		perEval float64
		want    int
	}{
		{1.0, 0.0005, 2000},
		{1.0, 0.3, 3},
		{0.0001, 0.3, 1}, // floors to 0, clamped to 1
		{1.0, 0.0, 999999999}, // est clamped to 1e-9, which rounds just above it
	}
	for _, tc := range cases {
		l := NewBudgetLimiter(config.BudgetConfig{DailyUSDCap: tc.daily, EstUSDPerEval: tc.perEval})
		if l.DayCap() != tc.want {
			t.Errorf("daily=%v perEval=%v: Expected cap %d, got %d", tc.daily, tc.perEval, tc.want, l.DayCap())
		}
	}
}

// TestBudgetExhaustion consumes the cap and verifies availability flips.
func TestBudgetExhaustion(t *testing.T) {
	l := NewBudgetLimiter(config.BudgetConfig{DailyUSDCap: 1.0, EstUSDPerEval: 0.5})
	if l.DayCap() != 2 {
		t.Fatalf("Expected cap 2, got %d", l.DayCap())
	}

	for i := 0; i < 2; i++ {
		if !l.Available() {
			t.Fatalf("Expected budget available at eval %d", i)
		}
		l.Consume()
	}
	if l.Available() {
		t.Error("Expected budget exhausted after cap consumed")
	}
	if l.UsedToday() != 2 {
		t.Errorf("Expected 2 used, got %d", l.UsedToday())
	}
}

// TestBudgetDayRollover resets the counter when the UTC day changes,
// evaluated lazily on the availability check.
func TestBudgetDayRollover(t *testing.T) {
	l := NewBudgetLimiter(config.BudgetConfig{DailyUSDCap: 0.001, EstUSDPerEval: 0.001})
	now := time.Date(2026, 3, 2, 23, 50, 0, 0, time.UTC)
	l.SetClock(func() time.Time { return now })

	if !l.Available() {
		t.Fatal("Expected budget available on day one")
	}
	l.Consume()
	if l.Available() {
		t.Fatal("Expected cap of 1 exhausted")
	}

	// Ten minutes later it is a new UTC day.
	now = now.Add(10 * time.Minute)
	if !l.Available() {
		t.Error("Expected budget reset after UTC day rollover")
	}
	if l.UsedToday() != 0 {
		t.Errorf("Expected used counter reset, got %d", l.UsedToday())
	}
}
