package service

import (
	"regexp"
	"time"

	"causalGraphApp/config"
	"causalGraphApp/internal/domain/model"
)

var (
	cashtagRE = regexp.MustCompile(`\$([A-Z]{1,5})`)
	symbolRE  = regexp.MustCompile(`\b[A-Z]{1,5}\b`)
)

// ExtractSymbols pulls ticker-like tokens out of free text: $-prefixed
// cashtags plus case-sensitive runs of 1-5 uppercase letters.
func ExtractSymbols(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, m := range cashtagRE.FindAllStringSubmatch(text, -1) {
		out[m[1]] = struct{}{}
	}
	for _, m := range symbolRE.FindAllString(text, -1) {
		out[m] = struct{}{}
	}
	return out
}

// CandidatePair is a proposed (cause, effect) edge to evaluate.
type CandidatePair struct {
	Cause  *model.Event
	Effect *model.Event
}

// CandidateGenerator proposes plausible (cause, effect) pairs for a newly
// inserted event. The effect is always the new event; causes range over the
// known events in the order supplied by the caller.
type CandidateGenerator struct {
	cfg     config.GatingConfig
	peers   map[string][]string
	sectors map[string]string
}

// NewCandidateGenerator builds a generator over the configured universe
// metadata (sector and supply-chain peer maps).
func NewCandidateGenerator(cfg config.GatingConfig, peers map[string][]string, sectors map[string]string) *CandidateGenerator {
	return &CandidateGenerator{cfg: cfg, peers: peers, sectors: sectors}
}

// PlausiblePairs returns candidate pairs in input order, capped at the
// configured maximum. Generation stops as soon as the cap is reached.
// Callers must not assume the known list is chronologically ordered.
func (c *CandidateGenerator) PlausiblePairs(newEvent *model.Event, known []*model.Event) []CandidatePair {
	maxLag := time.Duration(c.cfg.MaxTimeLagMinutes) * time.Minute
	if newEvent.Kind == model.KindPriceEvent {
		maxLag = time.Duration(c.cfg.MaxBarLagMinutes) * time.Minute
	}

	var pairs []CandidatePair
	for _, ev := range known {
		if ev.ID == newEvent.ID {
			continue
		}
		if !ev.TS.Before(newEvent.TS) {
			continue
		}
		if newEvent.TS.Sub(ev.TS) > maxLag {
			continue
		}
		if c.isPlausible(ev, newEvent) {
			pairs = append(pairs, CandidatePair{Cause: ev, Effect: newEvent})
		}
		if len(pairs) >= c.cfg.MaxCandidateEdgesPerNode {
			break
		}
	}
	return pairs
}

// isPlausible applies the linking predicates in priority order; the first
// match wins.
func (c *CandidateGenerator) isPlausible(cause, effect *model.Event) bool {
	if cause.Ticker != "" && effect.Ticker != "" && cause.Ticker == effect.Ticker {
		return true
	}
	if cause.Kind == model.KindMacro && c.cfg.AllowMacroToSectorOrTicker && effect.Ticker != "" {
		return true
	}
	if c.cfg.AllowCrossTickerWithinSector && cause.Ticker != "" && effect.Ticker != "" {
		if s, ok := c.sectors[cause.Ticker]; ok && s != "" && s == c.sectors[effect.Ticker] {
			return true
		}
	}
	if c.cfg.AllowSupplyChainLinks && cause.Ticker != "" && effect.Ticker != "" {
		for _, peer := range c.peers[cause.Ticker] {
			if peer == effect.Ticker {
				return true
			}
		}
	}
	causeText := cause.Headline() + " " + cause.Summary
	effectText := effect.Headline() + " " + effect.Summary
	if cause.Ticker != "" {
		if _, ok := ExtractSymbols(effectText)[cause.Ticker]; ok {
			return true
		}
	}
	if effect.Ticker != "" {
		if _, ok := ExtractSymbols(causeText)[effect.Ticker]; ok {
			return true
		}
	}
	return false
}
