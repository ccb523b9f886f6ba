package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/config"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/logging"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/repository"
)

// KafkaConsumer reads the events topic and drops the cached stock list when
// another replica changes stock.
type KafkaConsumer struct {
	reader *kafka.Reader
	cache  repository.StockCache
	source string
	logger *logging.LoggerV2
	stopCh chan struct{}
}

// NewKafkaConsumer creates a new Kafka-based event consumer. Events whose
// source equals source were published by this replica and are ignored.
func NewKafkaConsumer(cfg config.KafkaConfig, cache repository.StockCache, source string, logger *logging.LoggerV2) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.EventsTopic,
		GroupID:  cfg.ConsumerGroup + "-" + source,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})

	return newConsumer(reader, cache, source, logger)
}

func newConsumer(reader *kafka.Reader, cache repository.StockCache, source string, logger *logging.LoggerV2) *KafkaConsumer {
	return &KafkaConsumer{
		reader: reader,
		cache:  cache,
		source: source,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start begins consuming events. It blocks until ctx is done or Stop is called.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting Kafka consumer")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			c.logger.Info("Kafka consumer stopped")
			return nil
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.Error("Failed to read message", logging.Fields{"error": err.Error()})
				continue
			}

			c.handleMessage(ctx, msg)
		}
	}
}

// Stop stops the consumer.
func (c *KafkaConsumer) Stop() {
	close(c.stopCh)
	if c.reader != nil {
		c.reader.Close()
	}
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, msg kafka.Message) {
	c.logger.Debug("Received message", logging.Fields{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	var event Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("Failed to unmarshal event", logging.Fields{"error": err.Error()})
		return
	}

	if event.Source == c.source {
		return
	}

	switch {
	case event.Type.IsStock():
		c.handleStockChanged(ctx, &event)
	default:
		c.logger.Debug("Ignoring event", logging.Fields{"type": event.Type})
	}
}

func (c *KafkaConsumer) handleStockChanged(ctx context.Context, event *Event) {
	c.logger.Info("Stock changed elsewhere, invalidating cache", logging.Fields{
		"event_type": event.Type,
		"beer_id":    event.Subject,
	})

	if c.cache == nil {
		return
	}
	if err := c.cache.InvalidateStock(ctx); err != nil {
		c.logger.Error("Failed to invalidate stock cache", logging.Fields{
			"beer_id": event.Subject,
			"error":   err.Error(),
		})
	}
}
