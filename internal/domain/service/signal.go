package service

import (
	"math"

	"causalGraphApp/internal/domain/model"
)

// Logistic is the standard sigmoid 1/(1+e^-x).
func Logistic(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// TickerOutlook is the aggregated per-ticker signal derived from a snapshot.
type TickerOutlook struct {
	Probability   float64
	ExpectedSigma float64
	Polarity      int
}

// AggregateEdgeSignals sums edge weights whose destination node belongs to
// the ticker: bullish edges (polarity > 0) add, bearish (polarity < 0)
// subtract. Returns the magnitude of the net signal and its sign.
func AggregateEdgeSignals(snap *model.Snapshot, ticker string) (float64, int) {
	nodes := make(map[string]*model.Node, len(snap.Nodes))
	for _, n := range snap.Nodes {
		nodes[n.ID] = n
	}
	var up, down float64
	for _, e := range snap.Edges {
		dst, ok := nodes[e.Dst]
		if !ok || dst.Ticker != ticker {
			continue
		}
		switch {
		case e.Polarity > 0:
			up += e.Weight
		case e.Polarity < 0:
			down += e.Weight
		}
	}
	net := up - down
	if net >= 0 {
		return net, 1
	}
	return -net, -1
}

// ProbabilityOfMove maps a signal magnitude to a move probability.
func ProbabilityOfMove(score float64) float64 {
	return Logistic(2.5 * score)
}

// Outlook computes the full probability/sigma/polarity triple for a ticker.
func Outlook(snap *model.Snapshot, ticker string) TickerOutlook {
	score, polarity := AggregateEdgeSignals(snap, ticker)
	return TickerOutlook{
		Probability:   ProbabilityOfMove(score),
		ExpectedSigma: score,
		Polarity:      polarity,
	}
}
