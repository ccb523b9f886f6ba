package clients

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/errors"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/models"
)

var _ TaproomClient = (*MockTaproomClient)(nil)

// MockTaproomClient is an in-memory TaproomClient for tests and local runs
// without the API. It mimics the API's validation closely enough to exercise
// the error paths.
type MockTaproomClient struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	beers  map[string]*models.Beer
	seq    int

	// PayCalls counts PayOrder invocations that reached the API.
	PayCalls int
	// BeforePay, when set, runs inside PayOrder before the order is marked
	// paid and without the lock held.
	BeforePay func(orderID string)
	// Err, when set, is returned by every call.
	Err error
}

// NewMockTaproomClient creates an empty mock API.
func NewMockTaproomClient() *MockTaproomClient {
	return &MockTaproomClient{
		orders: make(map[string]*models.Order),
		beers:  make(map[string]*models.Beer),
	}
}

func (m *MockTaproomClient) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func now() models.Timestamp {
	return models.ParseTimestamp(time.Now().UTC().Format("2006-01-02T15:04:05"))
}

// AddBeer seeds a beer and returns its id.
func (m *MockTaproomClient) AddBeer(name string, price float64, quantity int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID("beer")
	m.beers[id] = &models.Beer{ID: id, Name: name, Price: price, Quantity: quantity}
	return id
}

// PutOrder seeds an order as-is.
func (m *MockTaproomClient) PutOrder(order models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := order
	m.orders[o.ID] = &o
}

func (m *MockTaproomClient) ListOrders(ctx context.Context) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockTaproomClient) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	copied := *o
	return &copied, nil
}

func (m *MockTaproomClient) CreateOrder(ctx context.Context) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	o := &models.Order{ID: m.nextID("order"), Created: now(), Rounds: []models.Round{}}
	m.orders[o.ID] = o
	copied := *o
	return &copied, nil
}

func (m *MockTaproomClient) AddRound(ctx context.Context, orderID string, req *models.RoundRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	o, ok := m.orders[orderID]
	if !ok {
		return errors.ErrNotFound
	}
	if o.Paid {
		return &errors.APIError{Status: http.StatusBadRequest, Detail: "Order is already paid"}
	}

	round := models.Round{ID: m.nextID("round"), Created: now()}
	for _, in := range req.Items {
		beer, ok := m.beers[in.BeerID]
		if !ok {
			return &errors.APIError{Status: http.StatusBadRequest, Detail: fmt.Sprintf("Beer %s does not exist", in.BeerID)}
		}
		if beer.Quantity < in.Quantity {
			return &errors.APIError{Status: http.StatusBadRequest, Detail: fmt.Sprintf("Not enough %s in stock", beer.Name)}
		}
		snapshot := *beer
		round.Items = append(round.Items, models.Item{
			BeerID:       in.BeerID,
			Beer:         &snapshot,
			PricePerUnit: beer.Price,
			Quantity:     in.Quantity,
			DiscountFlat: in.DiscountFlat,
			DiscountRate: in.DiscountRate,
		})
	}
	for _, item := range round.Items {
		m.beers[item.BeerID].Quantity -= item.Quantity
	}
	o.Rounds = append(o.Rounds, round)
	return nil
}

func (m *MockTaproomClient) PayOrder(ctx context.Context, orderID, idempotencyKey string) error {
	m.mu.Lock()
	m.PayCalls++
	hook := m.BeforePay
	m.mu.Unlock()

	if hook != nil {
		hook(orderID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	o, ok := m.orders[orderID]
	if !ok {
		return errors.ErrNotFound
	}
	if o.Paid {
		return &errors.APIError{Status: http.StatusBadRequest, Detail: "Order is already paid"}
	}

	var subTotal, discounts float64
	for _, r := range o.Rounds {
		for _, it := range r.Items {
			gross := it.PricePerUnit * float64(it.Quantity)
			net := lineTotal(it)
			subTotal += gross
			discounts += gross - net
		}
	}
	o.SubTotal = subTotal
	o.Discounts = discounts
	o.Taxes = (subTotal - discounts) * 0.19
	o.Total = subTotal - discounts + o.Taxes
	o.Paid = true
	return nil
}

// lineTotal applies the API's line formula.
func lineTotal(it models.Item) float64 {
	return (it.PricePerUnit - it.DiscountFlat) * float64(it.Quantity) * (1 - it.DiscountRate)
}

func (m *MockTaproomClient) ListStock(ctx context.Context) ([]models.Beer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.Beer, 0, len(m.beers))
	for _, b := range m.beers {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockTaproomClient) GetBeer(ctx context.Context, id string) (*models.Beer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	b, ok := m.beers[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (m *MockTaproomClient) CreateBeer(ctx context.Context, beer *models.NewBeer) (*models.Beer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	created := beer.WithID(m.nextID("beer"))
	m.beers[created.ID] = &created
	out := created
	return &out, nil
}

func (m *MockTaproomClient) UpdateBeer(ctx context.Context, beer *models.Beer) (*models.Beer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if _, ok := m.beers[beer.ID]; !ok {
		return nil, errors.ErrNotFound
	}
	updated := *beer
	m.beers[beer.ID] = &updated
	out := updated
	return &out, nil
}

// DeleteBeer removes the beer. Existing round items keep their beer_id but
// lose their snapshot, as the API does.
func (m *MockTaproomClient) DeleteBeer(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.beers[id]; !ok {
		return errors.ErrNotFound
	}
	delete(m.beers, id)
	for _, o := range m.orders {
		for ri := range o.Rounds {
			for ii := range o.Rounds[ri].Items {
				if o.Rounds[ri].Items[ii].BeerID == id {
					o.Rounds[ri].Items[ii].Beer = nil
				}
			}
		}
	}
	return nil
}
