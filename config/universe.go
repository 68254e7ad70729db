package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TickerMeta holds per-ticker reference data used by candidate gating and
// the RSS producer.
type TickerMeta struct {
	Name        string   `yaml:"name"`
	Sector      string   `yaml:"sector"`
	Peers       []string `yaml:"peers"`
	RSSKeywords []string `yaml:"rss_keywords"`
}

// Universe is the fixed set of tickers the graph is built over, plus feed
// sources and per-ticker metadata.
type Universe struct {
	Tickers        []string `yaml:"tickers"`
	ReferenceIndex string   `yaml:"reference_index"`
	Feeds          []string `yaml:"feeds"`

	Meta map[string]TickerMeta `yaml:"meta"`
}

// DefaultUniverse mirrors the shipped large-cap universe.
func DefaultUniverse() *Universe {
	return &Universe{
		Tickers: []string{
			"AAPL", "NVDA", "MSFT", "GOOG", "AMZN", "META", "BRK-B",
			"LLY", "AVGO", "TSLA", "JPM", "WMT", "UNH", "XOM", "V",
		},
		ReferenceIndex: "SPY",
		Meta:           map[string]TickerMeta{},
	}
}

// Sectors returns the ticker -> sector map used by the candidate generator.
func (u *Universe) Sectors() map[string]string {
	out := make(map[string]string, len(u.Tickers))
	for _, t := range u.Tickers {
		out[t] = u.Meta[t].Sector
	}
	return out
}

// Peers returns the ticker -> peer-tickers map used by the candidate generator.
func (u *Universe) Peers() map[string][]string {
	out := make(map[string][]string, len(u.Tickers))
	for _, t := range u.Tickers {
		out[t] = u.Meta[t].Peers
	}
	return out
}

// Keywords returns the ticker -> RSS keyword list used by the news producer.
// Each ticker always matches its own symbol and configured name.
func (u *Universe) Keywords() map[string][]string {
	out := make(map[string][]string, len(u.Tickers))
	for _, t := range u.Tickers {
		meta := u.Meta[t]
		kws := append([]string{}, meta.RSSKeywords...)
		if len(kws) == 0 && meta.Name != "" {
			kws = append(kws, meta.Name)
		}
		seen := make(map[string]struct{}, len(kws)+1)
		final := make([]string, 0, len(kws)+1)
		for _, k := range append(kws, t) {
			if k == "" {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			final = append(final, k)
		}
		out[t] = final
	}
	return out
}

// LoadUniverse reads the universe YAML file. A missing file yields the
// default universe; a malformed file is an error.
func LoadUniverse(path string) (*Universe, error) {
	if path == "" {
		return DefaultUniverse(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultUniverse(), nil
		}
		return nil, fmt.Errorf("read universe file: %w", err)
	}

	u := DefaultUniverse()
	if err := yaml.Unmarshal(data, u); err != nil {
		return nil, fmt.Errorf("parse universe file: %w", err)
	}
	if len(u.Tickers) == 0 {
		u.Tickers = DefaultUniverse().Tickers
	}
	if u.Meta == nil {
		u.Meta = map[string]TickerMeta{}
	}
	return u, nil
}
