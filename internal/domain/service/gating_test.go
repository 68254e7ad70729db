package service

import (
	"fmt"
	"testing"
	"time"

	"causalGraphApp/config"
	"causalGraphApp/internal/domain/model"
)

func gatingConfig() config.GatingConfig {
	return config.GatingConfig{
		MaxCandidateEdgesPerNode:     10,
		MaxTimeLagMinutes:            24 * 60,
		MaxBarLagMinutes:             90,
		AllowCrossTickerWithinSector: true,
		AllowSupplyChainLinks:        true,
		AllowMacroToSectorOrTicker:   true,
	}
}

// TestSameTickerWithinLag covers the basic news -> price-move linking case:
// a news event precedes a price event on the same ticker within the bar lag.
func TestSameTickerWithinLag(t *testing.T) {
	gen := NewCandidateGenerator(gatingConfig(), nil, nil)
	base := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	news := testEvent("news-1", model.KindNews, "AAPL", base)
	price := testEvent("price-1", model.KindPriceEvent, "AAPL", base.Add(30*time.Minute))

	pairs := gen.PlausiblePairs(price, []*model.Event{news})
	if len(pairs) != 1 {
		t.Fatalf("Expected 1 candidate pair, got %d", len(pairs))
	}
	if pairs[0].Cause.ID != "news-1" || pairs[0].Effect.ID != "price-1" {
		t.Errorf("Expected news-1 -> price-1, got %s -> %s", pairs[0].Cause.ID, pairs[0].Effect.ID)
	}
}

// TestTemporalOrderRequired ensures causes strictly precede effects; equal
// timestamps never link.
func TestTemporalOrderRequired(t *testing.T) {
	gen := NewCandidateGenerator(gatingConfig(), nil, nil)
	base := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	later := testEvent("later", model.KindNews, "AAPL", base.Add(time.Hour))
	same := testEvent("same", model.KindNews, "AAPL", base)
	effect := testEvent("effect", model.KindNews, "AAPL", base)

	if pairs := gen.PlausiblePairs(effect, []*model.Event{later}); len(pairs) != 0 {
		t.Errorf("Expected no pairs for a later cause, got %d", len(pairs))
	}
	if pairs := gen.PlausiblePairs(effect, []*model.Event{same}); len(pairs) != 0 {
		t.Errorf("Expected no pairs for an equal-timestamp cause, got %d", len(pairs))
	}
}

// TestLagWindowByEffectKind verifies price-event effects use the tight bar
// lag while other effects use the wide time lag.
func TestLagWindowByEffectKind(t *testing.T) {
	gen := NewCandidateGenerator(gatingConfig(), nil, nil)
	base := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	oldNews := testEvent("old-news", model.KindNews, "AAPL", base)

	// 2 hours exceeds the 90-minute bar lag for a price effect.
	priceEffect := testEvent("pe", model.KindPriceEvent, "AAPL", base.Add(2*time.Hour))
	if pairs := gen.PlausiblePairs(priceEffect, []*model.Event{oldNews}); len(pairs) != 0 {
		t.Errorf("Expected bar lag to exclude a 2h-old cause, got %d pairs", len(pairs))
	}

	// The same 2-hour gap is fine for a news effect under the 24h time lag.
	newsEffect := testEvent("ne", model.KindNews, "AAPL", base.Add(2*time.Hour))
	if pairs := gen.PlausiblePairs(newsEffect, []*model.Event{oldNews}); len(pairs) != 1 {
		t.Errorf("Expected time lag to admit a 2h-old cause, got %d pairs", len(pairs))
	}

	// 25 hours exceeds even the time lag.
	lateEffect := testEvent("le", model.KindNews, "AAPL", base.Add(25*time.Hour))
	if pairs := gen.PlausiblePairs(lateEffect, []*model.Event{oldNews}); len(pairs) != 0 {
		t.Errorf("Expected time lag to exclude a 25h-old cause, got %d pairs", len(pairs))
	}
}

// TestCandidateCap ensures generation stops at the configured cap.
func TestCandidateCap(t *testing.T) {
	cfg := gatingConfig()
	cfg.MaxCandidateEdgesPerNode = 3
	gen := NewCandidateGenerator(cfg, nil, nil)
	base := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	var known []*model.Event
	for i := 0; i < 8; i++ {
		known = append(known, testEvent(fmt.Sprintf("n%d", i), model.KindNews, "AAPL", base.Add(time.Duration(i)*time.Minute)))
	}
	effect := testEvent("effect", model.KindNews, "AAPL", base.Add(time.Hour))

	pairs := gen.PlausiblePairs(effect, known)
	if len(pairs) != 3 {
		t.Errorf("Expected cap of 3 candidate pairs, got %d", len(pairs))
	}
	// Input order is preserved up to the cap.
	for i, p := range pairs {
		if want := fmt.Sprintf("n%d", i); p.Cause.ID != want {
			t.Errorf("Expected pair %d cause %s, got %s", i, want, p.Cause.ID)
		}
	}
}

// TestMacroLinksToAnyTicker covers the macro -> ticker predicate.
func TestMacroLinksToAnyTicker(t *testing.T) {
	gen := NewCandidateGenerator(gatingConfig(), nil, nil)
	base := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	macro := testEvent("cpi", model.KindMacro, "", base)
	effect := testEvent("px", model.KindNews, "NVDA", base.Add(time.Hour))

	if pairs := gen.PlausiblePairs(effect, []*model.Event{macro}); len(pairs) != 1 {
		t.Errorf("Expected macro event to link to ticker effect, got %d pairs", len(pairs))
	}

	cfg := gatingConfig()
	cfg.AllowMacroToSectorOrTicker = false
	genOff := NewCandidateGenerator(cfg, nil, nil)
	if pairs := genOff.PlausiblePairs(effect, []*model.Event{macro}); len(pairs) != 0 {
		t.Errorf("Expected macro linking disabled, got %d pairs", len(pairs))
	}
}

// TestSectorAndPeerPredicates covers cross-ticker links through shared
// sector and supply-chain peer lists.
func TestSectorAndPeerPredicates(t *testing.T) {
	sectors := map[string]string{"AAPL": "tech", "MSFT": "tech", "XOM": "energy"}
	peers := map[string][]string{"TSM": {"AAPL", "NVDA"}}
	gen := NewCandidateGenerator(gatingConfig(), peers, sectors)
	base := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	msft := testEvent("msft-news", model.KindNews, "MSFT", base)
	aaplEffect := testEvent("aapl-news", model.KindNews, "AAPL", base.Add(time.Hour))
	if pairs := gen.PlausiblePairs(aaplEffect, []*model.Event{msft}); len(pairs) != 1 {
		t.Errorf("Expected same-sector link MSFT -> AAPL, got %d pairs", len(pairs))
	}

	xom := testEvent("xom-news", model.KindNews, "XOM", base)
	if pairs := gen.PlausiblePairs(aaplEffect, []*model.Event{xom}); len(pairs) != 0 {
		t.Errorf("Expected no cross-sector link XOM -> AAPL, got %d pairs", len(pairs))
	}

	tsm := testEvent("tsm-news", model.KindNews, "TSM", base)
	if pairs := gen.PlausiblePairs(aaplEffect, []*model.Event{tsm}); len(pairs) != 1 {
		t.Errorf("Expected supply-chain link TSM -> AAPL, got %d pairs", len(pairs))
	}
}

// TestEmptySectorNeverMatches guards against two tickers with no sector
// metadata matching each other on the empty string.
func TestEmptySectorNeverMatches(t *testing.T) {
	sectors := map[string]string{"AAA": "", "BBB": ""}
	gen := NewCandidateGenerator(gatingConfig(), nil, sectors)
	base := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	cause := testEvent("c", model.KindNews, "AAA", base)
	effect := testEvent("e", model.KindNews, "BBB", base.Add(time.Hour))
	if pairs := gen.PlausiblePairs(effect, []*model.Event{cause}); len(pairs) != 0 {
		t.Errorf("Expected empty sectors not to match, got %d pairs", len(pairs))
	}
}

// TestSymbolMentionPredicate links events whose text mentions the other
// side's ticker, including $-prefixed cashtags.
func TestSymbolMentionPredicate(t *testing.T) {
	gen := NewCandidateGenerator(gatingConfig(), nil, nil)
	base := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	cause := testEvent("tweet", model.KindSocial, "", base)
	cause.Summary = "Watch $NVDA into the close"
	effect := testEvent("move", model.KindNews, "NVDA", base.Add(time.Hour))

	if pairs := gen.PlausiblePairs(effect, []*model.Event{cause}); len(pairs) != 1 {
		t.Errorf("Expected cashtag mention to link, got %d pairs", len(pairs))
	}
}

// TestExtractSymbols checks both extraction patterns.
func TestExtractSymbols(t *testing.T) {
	syms := ExtractSymbols("Big move in $NVDA while AAPL lags; nothing from lowercase nvda")
	if _, ok := syms["NVDA"]; !ok {
		t.Error("Expected NVDA from cashtag")
	}
	if _, ok := syms["AAPL"]; !ok {
		t.Error("Expected AAPL from uppercase run")
	}
	if _, ok := syms["nvda"]; ok {
		t.Error("Did not expect lowercase token")
	}
}
