package producers

import (
	"context"

	"causalGraphApp/internal/domain/model"
	"causalGraphApp/pkg/utils"
)

// SyntheticProducer adapts the random event generator to the Producer
// contract. Demo and local use only.
type SyntheticProducer struct {
	generator *utils.EventGenerator
	batchSize int
}

func NewSyntheticProducer(tickers []string, batchSize int) *SyntheticProducer {
	if batchSize <= 0 {
		batchSize = 5
	}
	return &SyntheticProducer{
		generator: utils.NewEventGenerator(tickers),
		batchSize: batchSize,
	}
}

func (p *SyntheticProducer) Name() string {
	return "synthetic"
}

func (p *SyntheticProducer) Fetch(_ context.Context) ([]*model.Event, error) {
	return p.generator.GenerateRandomEvents(p.batchSize), nil
}
