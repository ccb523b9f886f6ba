// Package repository holds the module's local state: a cache of the stock
// catalog and the per-order pay guard. The taproom API remains the system of
// record for both orders and stock.
package repository

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/models"
)

// StockCache caches the stock list served to the round form.
type StockCache interface {
	// GetStock returns the cached list; ok is false on a miss.
	GetStock(ctx context.Context) (beers []models.Beer, ok bool, err error)
	SetStock(ctx context.Context, beers []models.Beer) error
	InvalidateStock(ctx context.Context) error
}

// PayGuard serialises pay submissions per order so a double click cannot
// issue two pay calls.
type PayGuard interface {
	// Acquire claims orderID. ok is false when another submission holds it.
	Acquire(ctx context.Context, orderID string) (token string, ok bool, err error)
	// Release frees orderID if token still owns it.
	Release(ctx context.Context, orderID, token string) error
}
