package service

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/clients"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/errors"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/events"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/models"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/repository"
)

// memoryStockCache is a StockCache for tests.
type memoryStockCache struct {
	mu            sync.Mutex
	beers         []models.Beer
	cached        bool
	invalidations int
}

func (c *memoryStockCache) GetStock(ctx context.Context) ([]models.Beer, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beers, c.cached, nil
}

func (c *memoryStockCache) SetStock(ctx context.Context, beers []models.Beer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.beers, c.cached = beers, true
	return nil
}

func (c *memoryStockCache) InvalidateStock(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.beers, c.cached = nil, false
	c.invalidations++
	return nil
}

var _ repository.StockCache = (*memoryStockCache)(nil)

func TestOrderService_CreateAndAddRound(t *testing.T) {
	api := clients.NewMockTaproomClient()
	beerID := api.AddBeer("Corona", 4.5, 10)
	cache := &memoryStockCache{}
	pub := events.NewMockEventPublisher()
	svc := NewOrderService(api, cache, pub)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx)
	require.NoError(t, err)

	err = svc.AddRound(ctx, order.ID, &models.RoundRequest{Items: []models.RoundItem{
		{BeerID: beerID, Quantity: 2, DiscountRate: 0.1},
	}})
	require.NoError(t, err)

	got, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Rounds, 1)
	assert.Equal(t, "8.10", FormatMoney(RoundTotal(got.Rounds[0])))

	assert.Equal(t, 1, cache.invalidations)
	assert.Equal(t, []events.EventType{events.EventTypeOrderCreated, events.EventTypeOrderRoundAdded}, pub.Types())
}

func TestOrderService_AddRound_ValidatesBeforeCallingAPI(t *testing.T) {
	api := clients.NewMockTaproomClient()
	svc := NewOrderService(api, nil, nil)
	order, _ := svc.CreateOrder(context.Background())

	err := svc.AddRound(context.Background(), order.ID, &models.RoundRequest{Items: []models.RoundItem{
		{BeerID: "b1", Quantity: 0},
	}})

	vErr, ok := errors.AsValidationError(err)
	require.True(t, ok, "expected validation error, got %v", err)
	assert.Contains(t, vErr.Details, "items[0].quantity")
}

func TestOrderService_AddRound_PassesAPIDetail(t *testing.T) {
	api := clients.NewMockTaproomClient()
	beerID := api.AddBeer("Corona", 4.5, 1)
	svc := NewOrderService(api, nil, nil)
	order, _ := svc.CreateOrder(context.Background())

	err := svc.AddRound(context.Background(), order.ID, &models.RoundRequest{Items: []models.RoundItem{
		{BeerID: beerID, Quantity: 5},
	}})

	apiErr, ok := errors.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Not enough Corona in stock", apiErr.Detail)
}

func newPaymentService(api *clients.MockTaproomClient) (*PaymentService, *events.MockEventPublisher) {
	pub := events.NewMockEventPublisher()
	return NewPaymentService(api, repository.NewMemoryPayGuard(time.Minute), pub, metrics.New()), pub
}

func TestPaymentService_PaysOnce(t *testing.T) {
	api := clients.NewMockTaproomClient()
	api.PutOrder(models.Order{ID: "o1"})
	svc, pub := newPaymentService(api)
	ctx := context.Background()

	require.NoError(t, svc.PayOrder(ctx, "o1"))
	err := svc.PayOrder(ctx, "o1")

	assert.True(t, errors.Is(err, errors.ErrAlreadyPaid))
	assert.Equal(t, 1, api.PayCalls)
	assert.Equal(t, []events.EventType{events.EventTypeOrderPaid}, pub.Types())
}

// flakyPayClient loses the response of the first n pay calls before they
// reach the API and records every idempotency key it is given.
type flakyPayClient struct {
	*clients.MockTaproomClient
	drop int
	keys []string
}

func (c *flakyPayClient) PayOrder(ctx context.Context, orderID, idempotencyKey string) error {
	c.keys = append(c.keys, idempotencyKey)
	if c.drop > 0 {
		c.drop--
		return context.DeadlineExceeded
	}
	return c.MockTaproomClient.PayOrder(ctx, orderID, idempotencyKey)
}

func TestPaymentService_RetryReusesIdempotencyKey(t *testing.T) {
	api := clients.NewMockTaproomClient()
	api.PutOrder(models.Order{ID: "o1"})
	flaky := &flakyPayClient{MockTaproomClient: api, drop: 1}
	svc := NewPaymentService(flaky, repository.NewMemoryPayGuard(time.Minute), nil, metrics.New())
	ctx := context.Background()

	require.Error(t, svc.PayOrder(ctx, "o1"))
	require.NoError(t, svc.PayOrder(ctx, "o1"))

	require.Len(t, flaky.keys, 2)
	assert.Equal(t, flaky.keys[0], flaky.keys[1])
	assert.Equal(t, PayIdempotencyKey("o1"), flaky.keys[0])
}

func TestPayIdempotencyKey(t *testing.T) {
	assert.Equal(t, PayIdempotencyKey("o1"), PayIdempotencyKey("o1"))
	assert.NotEqual(t, PayIdempotencyKey("o1"), PayIdempotencyKey("o2"))
	assert.Len(t, PayIdempotencyKey("o1"), 36)
}

func TestPaymentService_ConcurrentSubmissionsRejected(t *testing.T) {
	api := clients.NewMockTaproomClient()
	api.PutOrder(models.Order{ID: "o1"})
	svc, _ := newPaymentService(api)

	entered := make(chan struct{})
	release := make(chan struct{})
	api.BeforePay = func(string) {
		close(entered)
		<-release
	}

	firstErr := make(chan error, 1)
	go func() { firstErr <- svc.PayOrder(context.Background(), "o1") }()
	<-entered

	err := svc.PayOrder(context.Background(), "o1")
	assert.True(t, errors.Is(err, errors.ErrPaymentInFlight))

	close(release)
	require.NoError(t, <-firstErr)
	assert.Equal(t, 1, api.PayCalls)
}

func TestPaymentService_NotFound(t *testing.T) {
	svc, _ := newPaymentService(clients.NewMockTaproomClient())

	err := svc.PayOrder(context.Background(), "missing")

	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestStockService_ListUsesCache(t *testing.T) {
	api := clients.NewMockTaproomClient()
	api.AddBeer("Corona", 4.5, 10)
	cache := &memoryStockCache{}
	svc := NewStockService(api, cache, nil, metrics.New())
	ctx := context.Background()

	first, err := svc.ListStock(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	api.AddBeer("Austral", 5, 3)
	cached, err := svc.ListStock(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 1, "second read is served from cache")

	_, err = svc.CreateBeer(ctx, &models.NewBeer{Name: "Kunstmann", Price: 6, Quantity: 1})
	require.NoError(t, err)

	fresh, err := svc.ListStock(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, 3)
}

func TestStockService_CRUD(t *testing.T) {
	api := clients.NewMockTaproomClient()
	pub := events.NewMockEventPublisher()
	svc := NewStockService(api, nil, pub, nil)
	ctx := context.Background()

	created, err := svc.CreateBeer(ctx, &models.NewBeer{Name: "  Austral ", Price: 5, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, "Austral", created.Name)

	created.Quantity = 7
	updated, err := svc.UpdateBeer(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Quantity)

	require.NoError(t, svc.DeleteBeer(ctx, created.ID))
	_, err = svc.GetBeer(ctx, created.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	assert.Equal(t, []events.EventType{
		events.EventTypeStockCreated,
		events.EventTypeStockUpdated,
		events.EventTypeStockDeleted,
	}, pub.Types())
}

func TestStockService_RejectsInvalidBeer(t *testing.T) {
	api := clients.NewMockTaproomClient()
	svc := NewStockService(api, nil, nil, nil)

	_, err := svc.CreateBeer(context.Background(), &models.NewBeer{Name: "A very long beer name here", Price: 0, Quantity: -1})

	vErr, ok := errors.AsValidationError(err)
	require.True(t, ok)
	assert.Len(t, vErr.Details, 3)

	beers, _ := api.ListStock(context.Background())
	assert.Empty(t, beers)
}
