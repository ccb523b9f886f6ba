package service

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/clients"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/events"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/logging"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/models"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/repository"
)

// OrderService drives the order pages. The taproom API owns pricing and
// persistence; this service validates input, forwards it, and announces what
// happened.
type OrderService struct {
	client         clients.TaproomClient
	stockCache     repository.StockCache
	eventPublisher events.Publisher
	logger         *logging.LoggerV2
}

// NewOrderService creates a new order service. stockCache may be nil when
// caching is disabled.
func NewOrderService(
	client clients.TaproomClient,
	stockCache repository.StockCache,
	eventPublisher events.Publisher,
) *OrderService {
	if eventPublisher == nil {
		eventPublisher = events.NoopPublisher{}
	}
	return &OrderService{
		client:         client,
		stockCache:     stockCache,
		eventPublisher: eventPublisher,
		logger:         logging.NewLoggerV2("order-service"),
	}
}

// ListOrders returns every order known to the API.
func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := s.client.ListOrders(ctx)
	if err != nil {
		s.logger.Error("Failed to list orders", logging.Fields{"error": err.Error()})
		return nil, err
	}
	return orders, nil
}

// GetOrder retrieves an order by ID.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	s.logger.Debug("Getting order", logging.Fields{"order_id": id})

	order, err := s.client.GetOrder(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get order", logging.Fields{
			"order_id": id,
			"error":    err.Error(),
		})
		return nil, err
	}
	return order, nil
}

// CreateOrder opens a new, empty tab.
func (s *OrderService) CreateOrder(ctx context.Context) (*models.Order, error) {
	order, err := s.client.CreateOrder(ctx)
	if err != nil {
		s.logger.Error("Failed to create order", logging.Fields{"error": err.Error()})
		return nil, err
	}

	if err := s.eventPublisher.PublishOrderCreated(ctx, order); err != nil {
		// Log but don't fail
		s.logger.Error("Failed to publish order created event", logging.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}

	s.logger.Info("Order created", logging.Fields{"order_id": order.ID})
	return order, nil
}

// AddRound validates a round and submits it. The API rejects rounds on paid
// orders and rounds that exceed stock; those come back as *errors.APIError.
func (s *OrderService) AddRound(ctx context.Context, orderID string, req *models.RoundRequest) error {
	s.logger.Info("Adding round", logging.Fields{
		"order_id":   orderID,
		"item_count": len(req.Items),
	})

	if err := ValidateRoundRequest(req); err != nil {
		return err
	}

	if err := s.client.AddRound(ctx, orderID, req); err != nil {
		s.logger.Warn("Round rejected", logging.Fields{
			"order_id": orderID,
			"error":    err.Error(),
		})
		return err
	}

	// Rounds draw down stock quantities.
	if s.stockCache != nil {
		if err := s.stockCache.InvalidateStock(ctx); err != nil {
			s.logger.Error("Failed to invalidate stock cache", logging.Fields{"error": err.Error()})
		}
	}

	if err := s.eventPublisher.PublishRoundAdded(ctx, orderID, req); err != nil {
		s.logger.Error("Failed to publish round added event", logging.Fields{
			"order_id": orderID,
			"error":    err.Error(),
		})
	}

	return nil
}
