package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/config"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/logging"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/models"
)

// EventType represents the type of taproom event.
type EventType string

const (
	EventTypeOrderCreated    EventType = "order.created"
	EventTypeOrderRoundAdded EventType = "order.round_added"
	EventTypeOrderPaid       EventType = "order.paid"
	EventTypeStockCreated    EventType = "stock.created"
	EventTypeStockUpdated    EventType = "stock.updated"
	EventTypeStockDeleted    EventType = "stock.deleted"
)

// IsStock reports whether t describes a stock mutation.
func (t EventType) IsStock() bool {
	switch t {
	case EventTypeStockCreated, EventTypeStockUpdated, EventTypeStockDeleted:
		return true
	}
	return false
}

// Event is the envelope written to the events topic. Subject is the order or
// beer id the event is about and doubles as the partition key.
type Event struct {
	ID            string            `json:"id"`
	Type          EventType         `json:"type"`
	Subject       string            `json:"subject"`
	Data          json.RawMessage   `json:"data,omitempty"`
	Metadata      map[string]string `json:"metadata"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	CorrelationID string            `json:"correlation_id,omitempty"`
}

// Publisher announces the UI's mutations to other replicas and consumers.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	PublishRoundAdded(ctx context.Context, orderID string, round *models.RoundRequest) error
	PublishOrderPaid(ctx context.Context, orderID string) error
	PublishStockCreated(ctx context.Context, beer *models.Beer) error
	PublishStockUpdated(ctx context.Context, beer *models.Beer) error
	PublishStockDeleted(ctx context.Context, beerID string) error
}

// Ensure KafkaPublisher implements Publisher
var _ Publisher = (*KafkaPublisher)(nil)

// KafkaPublisher publishes taproom events to Kafka.
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
	source string
	logger *logging.LoggerV2
}

// NewKafkaPublisher creates a new Kafka-based event publisher. source
// identifies this replica so its own events can be skipped by the consumer.
func NewKafkaPublisher(cfg config.KafkaConfig, source string, logger *logging.LoggerV2) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.EventsTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaPublisher{
		writer: writer,
		topic:  cfg.EventsTopic,
		source: source,
		logger: logger,
	}
}

func (p *KafkaPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	return p.publishData(ctx, EventTypeOrderCreated, order.ID, order)
}

func (p *KafkaPublisher) PublishRoundAdded(ctx context.Context, orderID string, round *models.RoundRequest) error {
	return p.publishData(ctx, EventTypeOrderRoundAdded, orderID, round)
}

func (p *KafkaPublisher) PublishOrderPaid(ctx context.Context, orderID string) error {
	return p.publishData(ctx, EventTypeOrderPaid, orderID, nil)
}

func (p *KafkaPublisher) PublishStockCreated(ctx context.Context, beer *models.Beer) error {
	return p.publishData(ctx, EventTypeStockCreated, beer.ID, beer)
}

func (p *KafkaPublisher) PublishStockUpdated(ctx context.Context, beer *models.Beer) error {
	return p.publishData(ctx, EventTypeStockUpdated, beer.ID, beer)
}

func (p *KafkaPublisher) PublishStockDeleted(ctx context.Context, beerID string) error {
	return p.publishData(ctx, EventTypeStockDeleted, beerID, nil)
}

func (p *KafkaPublisher) publishData(ctx context.Context, eventType EventType, subject string, payload interface{}) error {
	p.logger.Debug("Publishing event", logging.Fields{
		"event_type": eventType,
		"subject":    subject,
	})

	event, err := newEvent(ctx, eventType, subject, p.source, payload)
	if err != nil {
		return err
	}
	return p.publish(ctx, event)
}

func newEvent(ctx context.Context, eventType EventType, subject, source string, payload interface{}) (*Event, error) {
	event := &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		Metadata:  make(map[string]string),
		Source:    source,
		Timestamp: time.Now().UTC(),
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		event.Data = data
	}

	if requestID := middleware.RequestIDFrom(ctx); requestID != "" {
		event.CorrelationID = requestID
	}

	return event, nil
}

func (p *KafkaPublisher) publish(ctx context.Context, event *Event) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.Subject),
		Value: eventData,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event", logging.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
			"subject":    event.Subject,
			"error":      err.Error(),
		})
		return err
	}

	p.logger.Info("Event published", logging.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"subject":    event.Subject,
	})

	return nil
}

// Close closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	p.logger.Info("Closing Kafka publisher")
	return p.writer.Close()
}

// NoopPublisher drops every event. It is used when events are disabled.
type NoopPublisher struct{}

var _ Publisher = NoopPublisher{}

func (NoopPublisher) PublishOrderCreated(context.Context, *models.Order) error { return nil }

func (NoopPublisher) PublishRoundAdded(context.Context, string, *models.RoundRequest) error {
	return nil
}

func (NoopPublisher) PublishOrderPaid(context.Context, string) error { return nil }

func (NoopPublisher) PublishStockCreated(context.Context, *models.Beer) error { return nil }

func (NoopPublisher) PublishStockUpdated(context.Context, *models.Beer) error { return nil }

func (NoopPublisher) PublishStockDeleted(context.Context, string) error { return nil }

// MockEventPublisher is a mock implementation for testing.
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []*Event
}

var _ Publisher = (*MockEventPublisher)(nil)

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{
		Events: make([]*Event, 0),
	}
}

func (m *MockEventPublisher) record(ctx context.Context, t EventType, subject string, payload interface{}) error {
	event, err := newEvent(ctx, t, subject, "mock", payload)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.Events = append(m.Events, event)
	m.mu.Unlock()
	return nil
}

// Types returns the recorded event types in publish order.
func (m *MockEventPublisher) Types() []EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EventType, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.Type
	}
	return out
}

func (m *MockEventPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	return m.record(ctx, EventTypeOrderCreated, order.ID, order)
}

func (m *MockEventPublisher) PublishRoundAdded(ctx context.Context, orderID string, round *models.RoundRequest) error {
	return m.record(ctx, EventTypeOrderRoundAdded, orderID, round)
}

func (m *MockEventPublisher) PublishOrderPaid(ctx context.Context, orderID string) error {
	return m.record(ctx, EventTypeOrderPaid, orderID, nil)
}

func (m *MockEventPublisher) PublishStockCreated(ctx context.Context, beer *models.Beer) error {
	return m.record(ctx, EventTypeStockCreated, beer.ID, beer)
}

func (m *MockEventPublisher) PublishStockUpdated(ctx context.Context, beer *models.Beer) error {
	return m.record(ctx, EventTypeStockUpdated, beer.ID, beer)
}

func (m *MockEventPublisher) PublishStockDeleted(ctx context.Context, beerID string) error {
	return m.record(ctx, EventTypeStockDeleted, beerID, nil)
}
