// Package storage provides the durable ClickHouse archive of raw market
// events for historical analysis and audit. The archive is optional at
// runtime; the pipeline continues without it when ClickHouse is unavailable.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"causalGraphApp/internal/domain/model"
	"causalGraphApp/internal/domain/repository"
)

// ClickHouseArchive implements the EventArchive interface using ClickHouse.
type ClickHouseArchive struct {
	conn driver.Conn
}

type ClickHouseConfig struct {
	Addr     string
	Username string
	Password string
	Timeout  int
}

func NewClickHouseArchive(cfg ClickHouseConfig) (*ClickHouseArchive, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: time.Duration(cfg.Timeout) * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	if err := createTablesIfNotExist(conn); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &ClickHouseArchive{conn: conn}, nil
}

// Ensure ClickHouseArchive implements the EventArchive interface
var _ repository.EventArchive = (*ClickHouseArchive)(nil)

func createTablesIfNotExist(conn driver.Conn) error {
	return conn.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS market_events (
			id String,
			kind String,
			ticker String,
			ts DateTime,
			summary String,
			attrs String,
			inserted_at DateTime DEFAULT now()
		) ENGINE = MergeTree()
		ORDER BY (ticker, ts)
	`)
}

// SaveEvent archives one raw event. Attrs are stored as a JSON string.
func (r *ClickHouseArchive) SaveEvent(ctx context.Context, ev *model.Event) error {
	attrs, err := json.Marshal(ev.Attrs)
	if err != nil {
		return fmt.Errorf("marshal event attrs: %w", err)
	}

	query := `
		INSERT INTO market_events (
			id, kind, ticker, ts, summary, attrs
		) VALUES (
			?, ?, ?, ?, ?, ?
		)
	`
	return r.conn.AsyncInsert(ctx, query, false,
		ev.ID,
		string(ev.Kind),
		ev.Ticker,
		ev.TS,
		ev.Summary,
		string(attrs),
	)
}

// GetEventsSince retrieves archived events at or after the given time.
func (r *ClickHouseArchive) GetEventsSince(ctx context.Context, since time.Time) ([]*model.Event, error) {
	query := `
		SELECT id, kind, ticker, ts, summary, attrs
		FROM market_events
		WHERE ts >= ?
		ORDER BY ts
	`
	rows, err := r.conn.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*model.Event
	for rows.Next() {
		var (
			ev    model.Event
			kind  string
			attrs string
		)
		if err := rows.Scan(
			&ev.ID,
			&kind,
			&ev.Ticker,
			&ev.TS,
			&ev.Summary,
			&attrs,
		); err != nil {
			return nil, err
		}
		ev.Kind = model.EventKind(kind)
		if attrs != "" {
			if err := json.Unmarshal([]byte(attrs), &ev.Attrs); err != nil {
				ev.Attrs = map[string]any{}
			}
		}
		results = append(results, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
