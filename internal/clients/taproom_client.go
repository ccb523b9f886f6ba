package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/config"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/errors"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/logging"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/models"
)

const HeaderIdempotencyKey = "Idempotency-Key"

// TaproomClient is the external taproom API, the system of record for orders
// and stock.
type TaproomClient interface {
	ListOrders(ctx context.Context) ([]models.Order, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	CreateOrder(ctx context.Context) (*models.Order, error)
	AddRound(ctx context.Context, orderID string, req *models.RoundRequest) error
	PayOrder(ctx context.Context, orderID, idempotencyKey string) error

	ListStock(ctx context.Context) ([]models.Beer, error)
	GetBeer(ctx context.Context, id string) (*models.Beer, error)
	CreateBeer(ctx context.Context, beer *models.NewBeer) (*models.Beer, error)
	UpdateBeer(ctx context.Context, beer *models.Beer) (*models.Beer, error)
	DeleteBeer(ctx context.Context, id string) error
}

// Ensure HTTPTaproomClient implements TaproomClient
var _ TaproomClient = (*HTTPTaproomClient)(nil)

// HTTPTaproomClient implements TaproomClient over the API's REST endpoints.
// Mutating calls are never retried.
type HTTPTaproomClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	logger     *logging.LoggerV2
	metrics    *metrics.Metrics
}

// NewHTTPTaproomClient creates a client for the API at cfg.BaseURL.
func NewHTTPTaproomClient(cfg config.APIConfig, logger *logging.LoggerV2, m *metrics.Metrics) *HTTPTaproomClient {
	return &HTTPTaproomClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey:  cfg.APIKey,
		logger:  logger,
		metrics: m,
	}
}

// ListOrders calls GET /orders/.
func (c *HTTPTaproomClient) ListOrders(ctx context.Context) ([]models.Order, error) {
	var list models.OrderList
	if err := c.do(ctx, "list_orders", http.MethodGet, "/orders/", nil, nil, &list); err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return list.Orders, nil
}

// GetOrder calls GET /orders/{id}.
func (c *HTTPTaproomClient) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	c.logger.Debug("Fetching order", logging.Fields{"order_id": id})

	var order models.Order
	if err := c.do(ctx, "get_order", http.MethodGet, "/orders/"+url.PathEscape(id), nil, nil, &order); err != nil {
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	return &order, nil
}

// CreateOrder calls POST /orders/ and returns the new, empty order.
func (c *HTTPTaproomClient) CreateOrder(ctx context.Context) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, "create_order", http.MethodPost, "/orders/", nil, nil, &order); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	c.logger.Info("Order created", logging.Fields{"order_id": order.ID})
	return &order, nil
}

// AddRound calls POST /orders/{id}/rounds. The API validates the items and
// the referenced beers; its `detail` message comes back as an *errors.APIError.
func (c *HTTPTaproomClient) AddRound(ctx context.Context, orderID string, req *models.RoundRequest) error {
	c.logger.Debug("Adding round", logging.Fields{
		"order_id":   orderID,
		"item_count": len(req.Items),
	})

	path := "/orders/" + url.PathEscape(orderID) + "/rounds"
	if err := c.do(ctx, "add_round", http.MethodPost, path, nil, req, nil); err != nil {
		return errors.Wrapf(err, "add round to order %s", orderID)
	}

	c.logger.Info("Round added", logging.Fields{"order_id": orderID})
	return nil
}

// PayOrder calls POST /orders/{id}/pay. idempotencyKey is sent so that the
// API can collapse duplicate submissions.
func (c *HTTPTaproomClient) PayOrder(ctx context.Context, orderID, idempotencyKey string) error {
	c.logger.Debug("Paying order", logging.Fields{
		"order_id":        orderID,
		"idempotency_key": idempotencyKey,
	})

	headers := map[string]string{}
	if idempotencyKey != "" {
		headers[HeaderIdempotencyKey] = idempotencyKey
	}

	path := "/orders/" + url.PathEscape(orderID) + "/pay"
	body := &models.PayRequest{OrderID: orderID}
	if err := c.do(ctx, "pay_order", http.MethodPost, path, headers, body, nil); err != nil {
		return errors.Wrapf(err, "pay order %s", orderID)
	}

	c.logger.Info("Order paid", logging.Fields{"order_id": orderID})
	return nil
}

// ListStock calls GET /stock.
func (c *HTTPTaproomClient) ListStock(ctx context.Context) ([]models.Beer, error) {
	var stock models.Stock
	if err := c.do(ctx, "list_stock", http.MethodGet, "/stock", nil, nil, &stock); err != nil {
		return nil, errors.Wrap(err, "list stock")
	}
	return stock.Beers, nil
}

// GetBeer calls GET /stock/{id}.
func (c *HTTPTaproomClient) GetBeer(ctx context.Context, id string) (*models.Beer, error) {
	var beer models.Beer
	if err := c.do(ctx, "get_beer", http.MethodGet, "/stock/"+url.PathEscape(id), nil, nil, &beer); err != nil {
		return nil, errors.Wrapf(err, "get beer %s", id)
	}
	return &beer, nil
}

// CreateBeer calls POST /stock.
func (c *HTTPTaproomClient) CreateBeer(ctx context.Context, beer *models.NewBeer) (*models.Beer, error) {
	var created models.Beer
	if err := c.do(ctx, "create_beer", http.MethodPost, "/stock", nil, beer, &created); err != nil {
		return nil, errors.Wrap(err, "create beer")
	}

	c.logger.Info("Beer created", logging.Fields{"beer_id": created.ID, "name": created.Name})
	return &created, nil
}

// UpdateBeer calls PUT /stock/{id} with the full record.
func (c *HTTPTaproomClient) UpdateBeer(ctx context.Context, beer *models.Beer) (*models.Beer, error) {
	var updated models.Beer
	if err := c.do(ctx, "update_beer", http.MethodPut, "/stock/"+url.PathEscape(beer.ID), nil, beer, &updated); err != nil {
		return nil, errors.Wrapf(err, "update beer %s", beer.ID)
	}

	c.logger.Info("Beer updated", logging.Fields{"beer_id": beer.ID})
	return &updated, nil
}

// DeleteBeer calls DELETE /stock/{id}.
func (c *HTTPTaproomClient) DeleteBeer(ctx context.Context, id string) error {
	if err := c.do(ctx, "delete_beer", http.MethodDelete, "/stock/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return errors.Wrapf(err, "delete beer %s", id)
	}

	c.logger.Info("Beer deleted", logging.Fields{"beer_id": id})
	return nil
}

// do performs one request. in is JSON-encoded when non-nil; out is decoded
// from a 2xx body when non-nil. 404 maps to errors.ErrNotFound and any other
// non-2xx status to *errors.APIError.
func (c *HTTPTaproomClient) do(ctx context.Context, op, method, path string, headers map[string]string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	c.setHeaders(ctx, req)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(op, 0, started)
		c.logger.Error("Taproom API request failed", logging.Fields{
			"operation": op,
			"path":      path,
			"error":     err.Error(),
		})
		return err
	}
	defer resp.Body.Close()
	c.metrics.ObserveUpstream(op, resp.StatusCode, started)

	if resp.StatusCode == http.StatusNotFound {
		return errors.ErrNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &errors.APIError{Status: resp.StatusCode, Detail: readDetail(resp.Body)}
		c.logger.Warn("Taproom API returned error", logging.Fields{
			"operation":   op,
			"path":        path,
			"status_code": resp.StatusCode,
			"detail":      apiErr.Detail,
		})
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

// readDetail extracts the `detail` field of an error body. The API sends
// either a string or a list of field errors with `msg` entries.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(data) == 0 {
		return ""
	}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || len(envelope.Detail) == 0 {
		return strings.TrimSpace(string(data))
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return text
	}

	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, item := range list {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return string(envelope.Detail)
}

func (c *HTTPTaproomClient) setHeaders(ctx context.Context, req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	if requestID := middleware.RequestIDFrom(ctx); requestID != "" {
		req.Header.Set(middleware.HeaderRequestID, requestID)
	}
}
