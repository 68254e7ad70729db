package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"causalGraphApp/internal/domain/model"
)

// EventGenerator produces synthetic market events for demos and tests.
type EventGenerator struct {
	tickers []string
	rand    *rand.Rand
}

// NewEventGenerator creates a generator over the given ticker universe.
func NewEventGenerator(tickers []string) *EventGenerator {
	if len(tickers) == 0 {
		tickers = []string{"AAPL", "NVDA", "MSFT", "GOOG", "AMZN"}
	}
	return &EventGenerator{
		tickers: tickers,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GenerateRandomEvents creates count random events across the universe.
func (g *EventGenerator) GenerateRandomEvents(count int) []*model.Event {
	kinds := []model.EventKind{model.KindPriceEvent, model.KindNews, model.KindSocial, model.KindMacro}
	events := make([]*model.Event, count)
	for i := 0; i < count; i++ {
		ticker := g.tickers[g.rand.Intn(len(g.tickers))]
		kind := kinds[g.rand.Intn(len(kinds))]
		events[i] = &model.Event{
			ID:     uuid.New().String(),
			Kind:   kind,
			Ticker: ticker,
			TS:     time.Now().UTC(),
			Attrs: map[string]any{
				"headline": fmt.Sprintf("Synthetic %s event for %s", kind, ticker),
				"source":   "generator",
			},
			Summary: fmt.Sprintf("Synthetic %s event for %s (move %.2f%%)", kind, ticker, g.rand.Float64()*4-2),
		}
	}
	return events
}
