// Package producers contains the event producers polled each cycle. Every
// producer honors the same contract: Fetch returns an ordered batch of
// events or an error, and a failing producer never crashes the cycle.
package producers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"causalGraphApp/internal/domain/model"
)

// RSSProducer turns RSS feed entries into news events. An entry yields one
// event per matched ticker; event ids are derived from content so repeated
// fetches of the same entry upsert rather than duplicate.
type RSSProducer struct {
	url            string
	tickerKeywords map[string][]string
	parser         *gofeed.Parser
}

func NewRSSProducer(url string, tickerKeywords map[string][]string) *RSSProducer {
	return &RSSProducer{
		url:            url,
		tickerKeywords: tickerKeywords,
		parser:         gofeed.NewParser(),
	}
}

func (p *RSSProducer) Name() string {
	return "rss:" + p.url
}

// Fetch parses the feed and emits one news event per (entry, matched
// ticker). Keyword matching is a case-insensitive substring test over the
// entry title.
func (p *RSSProducer) Fetch(ctx context.Context) ([]*model.Event, error) {
	feed, err := p.parser.ParseURLWithContext(p.url, ctx)
	if err != nil {
		return nil, err
	}

	var out []*model.Event
	for _, item := range feed.Items {
		title := item.Title
		link := item.Link
		ts := time.Now().UTC()
		if item.PublishedParsed != nil {
			ts = item.PublishedParsed.UTC()
		}

		lowerTitle := strings.ToLower(title)
		for ticker, keywords := range p.tickerKeywords {
			if !matchesAny(lowerTitle, keywords) {
				continue
			}
			out = append(out, &model.Event{
				ID:     contentID(title + link + ticker),
				Kind:   model.KindNews,
				Ticker: ticker,
				TS:     ts,
				Attrs: map[string]any{
					"headline": title,
					"source":   p.url,
					"url":      link,
				},
				Summary: title,
			})
		}
	}
	return out, nil
}

func matchesAny(lowerTitle string, keywords []string) bool {
	for _, k := range keywords {
		if k == "" {
			continue
		}
		if strings.Contains(lowerTitle, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// contentID hashes entry content into a stable 16-hex-char event id.
func contentID(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}
