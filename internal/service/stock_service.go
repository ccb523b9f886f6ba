package service

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/clients"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/events"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/logging"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/models"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/repository"
)

// StockService manages the beer catalog.
type StockService struct {
	client         clients.TaproomClient
	cache          repository.StockCache
	eventPublisher events.Publisher
	metrics        *metrics.Metrics
	logger         *logging.LoggerV2
}

// NewStockService creates a new stock service. cache may be nil when caching
// is disabled.
func NewStockService(
	client clients.TaproomClient,
	cache repository.StockCache,
	eventPublisher events.Publisher,
	m *metrics.Metrics,
) *StockService {
	if eventPublisher == nil {
		eventPublisher = events.NoopPublisher{}
	}
	return &StockService{
		client:         client,
		cache:          cache,
		eventPublisher: eventPublisher,
		metrics:        m,
		logger:         logging.NewLoggerV2("stock-service"),
	}
}

// ListStock returns the catalog, from cache when possible.
func (s *StockService) ListStock(ctx context.Context) ([]models.Beer, error) {
	if s.cache != nil {
		beers, ok, err := s.cache.GetStock(ctx)
		if err != nil {
			// Log but fall through to the API
			s.logger.Warn("Stock cache unavailable", logging.Fields{"error": err.Error()})
		} else {
			s.metrics.CacheHit(ok)
			if ok {
				return beers, nil
			}
		}
	}

	beers, err := s.client.ListStock(ctx)
	if err != nil {
		s.logger.Error("Failed to list stock", logging.Fields{"error": err.Error()})
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetStock(ctx, beers); err != nil {
			s.logger.Error("Failed to cache stock", logging.Fields{"error": err.Error()})
		}
	}

	return beers, nil
}

// GetBeer retrieves a single beer.
func (s *StockService) GetBeer(ctx context.Context, id string) (*models.Beer, error) {
	beer, err := s.client.GetBeer(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get beer", logging.Fields{
			"beer_id": id,
			"error":   err.Error(),
		})
		return nil, err
	}
	return beer, nil
}

// CreateBeer validates and adds a beer to the catalog.
func (s *StockService) CreateBeer(ctx context.Context, beer *models.NewBeer) (*models.Beer, error) {
	if err := ValidateNewBeer(beer); err != nil {
		return nil, err
	}

	created, err := s.client.CreateBeer(ctx, beer)
	if err != nil {
		s.logger.Error("Failed to create beer", logging.Fields{
			"name":  beer.Name,
			"error": err.Error(),
		})
		return nil, err
	}

	s.invalidate(ctx)
	if err := s.eventPublisher.PublishStockCreated(ctx, created); err != nil {
		s.logger.Error("Failed to publish stock created event", logging.Fields{"error": err.Error()})
	}

	s.logger.Info("Beer created", logging.Fields{"beer_id": created.ID, "name": created.Name})
	return created, nil
}

// UpdateBeer validates and replaces a beer.
func (s *StockService) UpdateBeer(ctx context.Context, beer *models.Beer) (*models.Beer, error) {
	if err := ValidateBeer(beer); err != nil {
		return nil, err
	}

	updated, err := s.client.UpdateBeer(ctx, beer)
	if err != nil {
		s.logger.Error("Failed to update beer", logging.Fields{
			"beer_id": beer.ID,
			"error":   err.Error(),
		})
		return nil, err
	}

	s.invalidate(ctx)
	if err := s.eventPublisher.PublishStockUpdated(ctx, updated); err != nil {
		s.logger.Error("Failed to publish stock updated event", logging.Fields{"error": err.Error()})
	}

	s.logger.Info("Beer updated", logging.Fields{"beer_id": updated.ID})
	return updated, nil
}

// DeleteBeer removes a beer. Round items that referenced it keep their
// beer_id and render as deleted.
func (s *StockService) DeleteBeer(ctx context.Context, id string) error {
	if err := s.client.DeleteBeer(ctx, id); err != nil {
		s.logger.Error("Failed to delete beer", logging.Fields{
			"beer_id": id,
			"error":   err.Error(),
		})
		return err
	}

	s.invalidate(ctx)
	if err := s.eventPublisher.PublishStockDeleted(ctx, id); err != nil {
		s.logger.Error("Failed to publish stock deleted event", logging.Fields{"error": err.Error()})
	}

	s.logger.Info("Beer deleted", logging.Fields{"beer_id": id})
	return nil
}

func (s *StockService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateStock(ctx); err != nil {
		s.logger.Error("Failed to invalidate stock cache", logging.Fields{"error": err.Error()})
	}
}
