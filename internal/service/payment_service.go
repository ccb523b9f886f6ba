package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/clients"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/errors"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/events"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/logging"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/repository"
)

// Pay outcomes reported to metrics.
const (
	PayOutcomePaid        = "paid"
	PayOutcomeAlreadyPaid = "already_paid"
	PayOutcomeInFlight    = "in_flight"
	PayOutcomeFailed      = "failed"
)

// PaymentService settles tabs. It makes sure a given order is paid at most
// once from this UI, however many times the button is pressed.
type PaymentService struct {
	client         clients.TaproomClient
	guard          repository.PayGuard
	eventPublisher events.Publisher
	metrics        *metrics.Metrics
	logger         *logging.LoggerV2
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	client clients.TaproomClient,
	guard repository.PayGuard,
	eventPublisher events.Publisher,
	m *metrics.Metrics,
) *PaymentService {
	if eventPublisher == nil {
		eventPublisher = events.NoopPublisher{}
	}
	return &PaymentService{
		client:         client,
		guard:          guard,
		eventPublisher: eventPublisher,
		metrics:        m,
		logger:         logging.NewLoggerV2("payment-service"),
	}
}

// PayOrder pays orderID. It returns errors.ErrPaymentInFlight when another
// submission for the same order holds the guard and errors.ErrAlreadyPaid when
// the order is already settled; neither reaches the API's pay endpoint.
func (s *PaymentService) PayOrder(ctx context.Context, orderID string) error {
	log := s.logger.With(logging.Fields{"order_id": orderID})

	token, ok, err := s.guard.Acquire(ctx, orderID)
	if err != nil {
		s.metrics.PayOutcome(PayOutcomeFailed)
		return errors.Wrap(err, "acquire pay guard")
	}
	if !ok {
		log.Warn("Pay rejected, another submission is in flight")
		s.metrics.PayOutcome(PayOutcomeInFlight)
		return errors.ErrPaymentInFlight
	}
	defer func() {
		// The request context may already be cancelled here.
		if err := s.guard.Release(context.Background(), orderID, token); err != nil {
			log.Error("Failed to release pay guard", logging.Fields{"error": err.Error()})
		}
	}()

	order, err := s.client.GetOrder(ctx, orderID)
	if err != nil {
		s.metrics.PayOutcome(PayOutcomeFailed)
		return err
	}
	if !order.CanPay() {
		log.Info("Pay skipped, order already paid")
		s.metrics.PayOutcome(PayOutcomeAlreadyPaid)
		return errors.ErrAlreadyPaid
	}

	idempotencyKey := PayIdempotencyKey(orderID)
	if err := s.client.PayOrder(ctx, orderID, idempotencyKey); err != nil {
		log.Error("Pay failed", logging.Fields{
			"idempotency_key": idempotencyKey,
			"error":           err.Error(),
		})
		s.metrics.PayOutcome(PayOutcomeFailed)
		return err
	}

	if err := s.eventPublisher.PublishOrderPaid(ctx, orderID); err != nil {
		log.Error("Failed to publish order paid event", logging.Fields{"error": err.Error()})
	}

	log.Info("Order paid", logging.Fields{"idempotency_key": idempotencyKey})
	s.metrics.PayOutcome(PayOutcomePaid)
	return nil
}

// payNamespace scopes pay idempotency keys.
var payNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("taproom-admin/orders/pay"))

// PayIdempotencyKey is stable per order, so a retry after a lost response
// sends the same key as the attempt the API may already have applied.
func PayIdempotencyKey(orderID string) string {
	return uuid.NewSHA1(payNamespace, []byte(orderID)).String()
}
