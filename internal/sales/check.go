package sales

import (
	"context"
	"errors"

	"vendafacil/backend/internal/domain"
	"vendafacil/backend/internal/store"
)

// ValidateSale is the pure well-formedness predicate for a candidate sale.
// No side effects, no I/O. It must pass before any stock check or
// persistence attempt; later steps assume a valid sale.
func ValidateSale(sale domain.Sale) bool {
	return sale.IsValid()
}

// StockChecker verifies requested quantity against current stock. It always
// re-reads the product through the store; stock counts are never cached
// across calls.
type StockChecker struct {
	store store.InventoryStore
}

func NewStockChecker(inv store.InventoryStore) *StockChecker {
	return &StockChecker{store: inv}
}

// CheckAvailability resolves the product and verifies it can cover the
// requested quantity. A missing product yields ErrProductNotFound; an
// existing product with too little stock yields ErrInsufficientStock. The
// two are distinct failure kinds even though both abort a registration.
func (c *StockChecker) CheckAvailability(ctx context.Context, productID string, quantity int) (*domain.Product, error) {
	product, err := c.store.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, &PersistenceError{Cause: err}
	}
	if product.Stock < quantity {
		return nil, ErrInsufficientStock
	}
	return product, nil
}
