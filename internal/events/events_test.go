package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/logging"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/models"
)

type countingCache struct {
	invalidations int
}

func (c *countingCache) GetStock(ctx context.Context) ([]models.Beer, bool, error) {
	return nil, false, nil
}

func (c *countingCache) SetStock(ctx context.Context, beers []models.Beer) error { return nil }

func (c *countingCache) InvalidateStock(ctx context.Context) error {
	c.invalidations++
	return nil
}

func message(t *testing.T, e Event) kafka.Message {
	t.Helper()
	data, err := json.Marshal(e)
	require.NoError(t, err)
	return kafka.Message{Topic: "taproom.events", Value: data}
}

func TestConsumer_InvalidatesOnForeignStockEvents(t *testing.T) {
	cache := &countingCache{}
	c := newConsumer(nil, cache, "replica-a", logging.NewLoggerV2("test"))
	ctx := context.Background()

	c.handleMessage(ctx, message(t, Event{Type: EventTypeStockUpdated, Subject: "b1", Source: "replica-b"}))
	c.handleMessage(ctx, message(t, Event{Type: EventTypeStockDeleted, Subject: "b1", Source: "replica-b"}))

	assert.Equal(t, 2, cache.invalidations)
}

func TestConsumer_IgnoresOwnAndOrderEvents(t *testing.T) {
	cache := &countingCache{}
	c := newConsumer(nil, cache, "replica-a", logging.NewLoggerV2("test"))
	ctx := context.Background()

	c.handleMessage(ctx, message(t, Event{Type: EventTypeStockCreated, Subject: "b1", Source: "replica-a"}))
	c.handleMessage(ctx, message(t, Event{Type: EventTypeOrderPaid, Subject: "o1", Source: "replica-b"}))
	c.handleMessage(ctx, kafka.Message{Value: []byte("not json")})

	assert.Equal(t, 0, cache.invalidations)
}

func TestMockPublisher_RecordsEnvelope(t *testing.T) {
	p := NewMockEventPublisher()
	ctx := middleware.WithRequestID(context.Background(), "req-7")

	require.NoError(t, p.PublishStockCreated(ctx, &models.Beer{ID: "b1", Name: "Corona", Price: 4.5, Quantity: 3}))
	require.NoError(t, p.PublishOrderPaid(ctx, "o1"))

	assert.Equal(t, []EventType{EventTypeStockCreated, EventTypeOrderPaid}, p.Types())

	created := p.Events[0]
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "b1", created.Subject)
	assert.Equal(t, "req-7", created.CorrelationID)
	assert.JSONEq(t, `{"id":"b1","name":"Corona","price":4.5,"quantity":3}`, string(created.Data))

	assert.Empty(t, p.Events[1].Data)
}

func TestEventType_IsStock(t *testing.T) {
	assert.True(t, EventTypeStockDeleted.IsStock())
	assert.False(t, EventTypeOrderCreated.IsStock())
}
