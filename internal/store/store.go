// Package store defines the inventory store boundary: persistence and live
// snapshot feeds for products, sales, and stock alerts.
package store

import (
	"context"
	"errors"

	"vendafacil/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
)

// InventoryStore is the single shared mutable resource of the core. Products
// are resolved by ID uniformly. DecrementStock is the store's native counter
// operation and must refuse to take stock negative rather than clamp.
//
// The Stream* methods return a snapshot feed plus a cancel func; closing the
// subscription is the only cancellation semantic. Feeds are unbounded and
// restartable: a new call yields a fresh subscription starting from the
// current state.
type InventoryStore interface {
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	AddProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DecrementStock(ctx context.Context, productID string, quantity int) error

	AddSale(ctx context.Context, sale domain.Sale) (string, error)
	ListSales(ctx context.Context, limit int) ([]domain.Sale, error)

	AddAlert(ctx context.Context, alert domain.StockAlert) (string, error)
	ListAlerts(ctx context.Context, limit int) ([]domain.StockAlert, error)
	MarkAlertRead(ctx context.Context, alertID string) error
	DeleteAlert(ctx context.Context, alertID string) error

	StreamProducts(ctx context.Context) (<-chan []domain.Product, func())
	StreamSales(ctx context.Context) (<-chan []domain.Sale, func())
	StreamAlerts(ctx context.Context) (<-chan []domain.StockAlert, func())

	GetOperator(ctx context.Context, username string) (*domain.OperatorAccount, error)
	CreateOperator(ctx context.Context, account domain.OperatorAccount) error
}
