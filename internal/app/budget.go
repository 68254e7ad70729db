package app

import (
	"time"

	"causalGraphApp/config"
)

// BudgetLimiter caps the number of consensus evaluations attempted per UTC
// calendar day. The cap bounds attempts, not accepted edges: a rejected
// judge decision still consumed budget. Day rollover is evaluated lazily on
// each availability check, so correctness does not depend on polling cadence.
type BudgetLimiter struct {
	day  time.Time // midnight UTC of the tracked day
	used int
	cap  int
	now  func() time.Time
}

// NewBudgetLimiter derives the daily cap from the dollar budget:
// floor(daily cap / estimated cost per evaluation), minimum 1.
func NewBudgetLimiter(cfg config.BudgetConfig) *BudgetLimiter {
	est := cfg.EstUSDPerEval
	if est < 1e-9 {
		est = 1e-9
	}
	dayCap := int(cfg.DailyUSDCap / est)
	if dayCap < 1 {
		dayCap = 1
	}
	l := &BudgetLimiter{cap: dayCap, now: time.Now}
	l.day = midnightUTC(l.now())
	return l
}

// SetClock overrides the limiter clock for tests.
func (l *BudgetLimiter) SetClock(now func() time.Time) {
	l.now = now
}

// Available reports whether another evaluation may run today, resetting the
// counter when the observed calendar day has changed.
func (l *BudgetLimiter) Available() bool {
	today := midnightUTC(l.now())
	if !today.Equal(l.day) {
		l.day = today
		l.used = 0
	}
	return l.used < l.cap
}

// Consume records one attempted evaluation.
func (l *BudgetLimiter) Consume() {
	l.used++
}

// UsedToday returns evaluations consumed since the last rollover.
func (l *BudgetLimiter) UsedToday() int { return l.used }

// DayCap returns the daily evaluation cap.
func (l *BudgetLimiter) DayCap() int { return l.cap }

func midnightUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
