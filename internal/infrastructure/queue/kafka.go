// Package queue provides the optional Kafka event bus: a producer that
// publishes market events and a consumer that feeds them into the pipeline.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"causalGraphApp/internal/app/dto"
	"causalGraphApp/internal/domain/model"
)

// KafkaConfig holds Kafka connection configuration
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	BatchSize     int
	BatchTimeout  int
}

// EventPublisher defines the interface for publishing market events
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *model.Event) error
	PublishEventBatch(ctx context.Context, evs []*dto.EventDTO) error
	Close() error
}

// EventSubscriber defines the interface for consuming market events
type EventSubscriber interface {
	Subscribe(ctx context.Context) (<-chan *model.Event, error)
	Close() error
}

// KafkaProducer implements EventPublisher using Kafka
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer creates a new Kafka producer. Events are keyed by ticker
// so events for the same ticker stay ordered within a partition.
func NewKafkaProducer(config KafkaConfig) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return &KafkaProducer{writer: writer}
}

// PublishEvent sends one event to Kafka
func (p *KafkaProducer) PublishEvent(ctx context.Context, ev *model.Event) error {
	data, err := json.Marshal(dto.FromModel(ev))
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Ticker),
		Value: data,
		Time:  time.Now(),
	})
}

// PublishEventBatch sends a batch of events to Kafka
func (p *KafkaProducer) PublishEventBatch(ctx context.Context, evs []*dto.EventDTO) error {
	msgSlice := make([]kafka.Message, len(evs))
	for i, ev := range evs {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		msgSlice[i] = kafka.Message{
			Key:   []byte(ev.Ticker),
			Value: data,
			Time:  time.Now(),
		}
	}
	return p.writer.WriteMessages(ctx, msgSlice...)
}

// Close closes the producer
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// KafkaConsumer implements EventSubscriber using Kafka
type KafkaConsumer struct {
	reader        *kafka.Reader
	topic         string
	pendingMsgs   map[string]kafka.Message // event id -> message awaiting commit
	pendingMsgsMu sync.RWMutex
	batchSize     int
	batchTimeout  time.Duration
}

// NewKafkaConsumer creates a new Kafka consumer with manual batched commits.
func NewKafkaConsumer(config KafkaConfig) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        config.Brokers,
		Topic:          config.Topic,
		GroupID:        config.ConsumerGroup,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: 0,    // manual commits
		StartOffset:    kafka.FirstOffset,
	})
	return &KafkaConsumer{
		reader:       reader,
		topic:        config.Topic,
		pendingMsgs:  make(map[string]kafka.Message),
		batchSize:    config.BatchSize,
		batchTimeout: time.Duration(config.BatchTimeout) * time.Millisecond,
	}
}

// Subscribe returns a channel of events from Kafka.
func (c *KafkaConsumer) Subscribe(ctx context.Context) (<-chan *model.Event, error) {
	eventCh := make(chan *model.Event, 1000)

	go c.startBatchCommitter(ctx)

	go func() {
		defer close(eventCh)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				msg, err := c.reader.FetchMessage(ctx)
				if err != nil {
					if ctx.Err() == nil {
						log.Printf("Error fetching message: %v", err)
					}
					return
				}

				var evDTO dto.EventDTO
				if err := json.Unmarshal(msg.Value, &evDTO); err != nil {
					log.Printf("Error unmarshalling event: %v", err)
					// Commit bad messages to avoid getting stuck
					_ = c.reader.CommitMessages(ctx, msg)
					continue
				}
				if evDTO.ID == "" {
					evDTO.ID = fmt.Sprintf("%s-%d-%d", evDTO.Ticker, msg.Partition, msg.Offset)
				}

				c.pendingMsgsMu.Lock()
				c.pendingMsgs[evDTO.ID] = msg
				c.pendingMsgsMu.Unlock()

				select {
				case <-ctx.Done():
					return
				case eventCh <- evDTO.ToModel():
				}
			}
		}
	}()

	return eventCh, nil
}

// startBatchCommitter periodically commits pending messages in batches.
func (c *KafkaConsumer) startBatchCommitter(ctx context.Context) {
	ticker := time.NewTicker(c.batchTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.commitAllPending(context.Background())
			return
		case <-ticker.C:
			c.commitAllPending(ctx)
		}
	}
}

func (c *KafkaConsumer) commitAllPending(ctx context.Context) {
	c.pendingMsgsMu.Lock()
	defer c.pendingMsgsMu.Unlock()

	if len(c.pendingMsgs) == 0 {
		return
	}
	msgs := make([]kafka.Message, 0, len(c.pendingMsgs))
	for _, msg := range c.pendingMsgs {
		msgs = append(msgs, msg)
	}
	if err := c.reader.CommitMessages(ctx, msgs...); err != nil {
		log.Printf("Error committing batch of %d messages: %v", len(msgs), err)
		return
	}
	c.pendingMsgs = make(map[string]kafka.Message)
}

// Close closes the consumer after a final commit of pending messages.
func (c *KafkaConsumer) Close() error {
	c.commitAllPending(context.Background())
	return c.reader.Close()
}
