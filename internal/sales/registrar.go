// Package sales implements the sale-registration transaction: validate,
// check stock, finalize totals, persist the sale, and decrement inventory,
// in that order.
package sales

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vendafacil/backend/internal/domain"
	"vendafacil/backend/internal/notify"
	"vendafacil/backend/internal/store"
)

// Registrar orchestrates the registration transaction. The tax rate is fixed
// at construction (configuration, not business logic) and stamped on every
// finalized sale.
type Registrar struct {
	store    store.InventoryStore
	checker  *StockChecker
	notifier notify.Notifier
	taxRate  decimal.Decimal
	logger   *zap.Logger
}

func NewRegistrar(inv store.InventoryStore, notifier notify.Notifier, taxRate decimal.Decimal, logger *zap.Logger) *Registrar {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registrar{
		store:    inv,
		checker:  NewStockChecker(inv),
		notifier: notifier,
		taxRate:  taxRate,
		logger:   logger,
	}
}

// RegisterSale runs the transaction steps in strict order; no step executes
// if a prior one failed. The sale write happens-before the stock decrement,
// and a decrement failure does not roll the sale back: it is surfaced as a
// PartialRegistrationError carrying the persisted sale's id. Exactly one
// outcome is emitted on the notification channel per attempt.
//
// Concurrent registrations for the same product are not mutually excluded
// here: the availability check is not isolated from another transaction's
// decrement. The store's native decrement refuses to go negative, so the
// stock counter itself never corrupts, but a race can turn a passed check
// into a failed decrement (and therefore a partial registration).
func (r *Registrar) RegisterSale(ctx context.Context, candidate domain.Sale) (string, error) {
	if !ValidateSale(candidate) {
		r.notifier.RegistrationFailed(ctx, KindInvalidSaleData, "sale failed validation")
		return "", ErrInvalidSaleData
	}

	product, err := r.checker.CheckAvailability(ctx, candidate.ProductID, candidate.Quantity)
	if err != nil {
		r.logger.Info("sale rejected",
			zap.String("product_id", candidate.ProductID),
			zap.Int("quantity", candidate.Quantity),
			zap.String("kind", ErrorKind(err)),
		)
		r.notifier.RegistrationFailed(ctx, ErrorKind(err), err.Error())
		return "", err
	}

	finalized := candidate
	finalized.TotalPrice = finalized.UnitPrice.Mul(decimal.NewFromInt(int64(finalized.Quantity)))
	finalized.TaxRatePercent = r.taxRate
	if finalized.Timestamp.IsZero() {
		finalized.Timestamp = time.Now().UTC()
	}

	saleID, err := r.store.AddSale(ctx, finalized)
	if err != nil {
		persistErr := &PersistenceError{Cause: err}
		r.logger.Error("sale persistence failed",
			zap.String("product_id", finalized.ProductID),
			zap.Error(err),
		)
		r.notifier.RegistrationFailed(ctx, KindPersistenceFailure, persistErr.Error())
		return "", persistErr
	}

	if err := r.store.DecrementStock(ctx, product.ID, finalized.Quantity); err != nil {
		partial := &PartialRegistrationError{SaleID: saleID, Cause: err}
		r.logger.Error("stock decrement failed after sale persisted",
			zap.String("sale_id", saleID),
			zap.String("product_id", product.ID),
			zap.Int("quantity", finalized.Quantity),
			zap.Error(err),
		)
		r.notifier.RegistrationFailed(ctx, KindPartialRegistration, partial.Error())
		return saleID, partial
	}

	r.logger.Info("sale registered",
		zap.String("sale_id", saleID),
		zap.String("product_id", product.ID),
		zap.Int("quantity", finalized.Quantity),
		zap.String("total_price", finalized.TotalPrice.String()),
	)
	r.notifier.SaleRegistered(ctx, saleID)
	return saleID, nil
}

// TaxRatePercent exposes the configured combined statutory rate.
func (r *Registrar) TaxRatePercent() decimal.Decimal {
	return r.taxRate
}
