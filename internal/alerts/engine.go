// Package alerts derives stock alerts (out-of-stock, expired, expiring soon,
// low stock) from current product state and appends them through the
// inventory store.
package alerts

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vendafacil/backend/internal/domain"
	"vendafacil/backend/internal/store"
)

const (
	DefaultExpiryWindowDays  = 7
	DefaultLowStockThreshold = 5
)

// Classify maps a product to at most one alert kind. First match wins, most
// severe first: out of stock, expired, expiring soon, low stock. A product
// matching no rule produces no alert.
func Classify(p domain.Product, now time.Time, windowDays int, lowStockThreshold int) (domain.AlertKind, bool) {
	switch {
	case p.Stock == 0:
		return domain.AlertOutOfStock, true
	case p.IsExpired(now):
		return domain.AlertExpired, true
	case p.IsExpiringSoon(now, windowDays):
		return domain.AlertExpiringSoon, true
	case p.Stock <= lowStockThreshold:
		return domain.AlertLowStock, true
	default:
		return "", false
	}
}

// Engine recomputes alerts from product state. It does not deduplicate
// against previously emitted alerts: each recomputation appends fresh
// records, and mark-as-read / delete are separate explicit operations.
type Engine struct {
	store             store.InventoryStore
	logger            *zap.Logger
	windowDays        int
	lowStockThreshold int
	now               func() time.Time
}

func NewEngine(inv store.InventoryStore, windowDays int, lowStockThreshold int, logger *zap.Logger) *Engine {
	if windowDays < 1 {
		windowDays = DefaultExpiryWindowDays
	}
	if lowStockThreshold < 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:             inv,
		logger:            logger,
		windowDays:        windowDays,
		lowStockThreshold: lowStockThreshold,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// Recompute classifies every product and persists one alert per match.
// Returns the number of alerts written. A failed write aborts the pass;
// already-written alerts stay (append-only).
func (e *Engine) Recompute(ctx context.Context) (int, error) {
	products, err := e.store.ListProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list products: %w", err)
	}

	now := e.now()
	written := 0
	for _, product := range products {
		kind, ok := Classify(product, now, e.windowDays, e.lowStockThreshold)
		if !ok {
			continue
		}
		alert := domain.StockAlert{
			ProductID:   product.ID,
			ProductName: product.Name,
			Kind:        kind,
			Message:     e.message(product, kind),
			Timestamp:   now,
		}
		if _, err := e.store.AddAlert(ctx, alert); err != nil {
			return written, fmt.Errorf("persist %s alert for %s: %w", kind, product.ID, err)
		}
		written++
	}

	if written > 0 {
		e.logger.Debug("alert recomputation finished",
			zap.Int("products", len(products)),
			zap.Int("alerts", written),
		)
	}
	return written, nil
}

func (e *Engine) message(p domain.Product, kind domain.AlertKind) string {
	switch kind {
	case domain.AlertOutOfStock:
		return fmt.Sprintf("Produto %s está sem estoque", p.Name)
	case domain.AlertExpired:
		return fmt.Sprintf("Produto %s está vencido", p.Name)
	case domain.AlertExpiringSoon:
		return fmt.Sprintf("Produto %s vence em %d dias", p.Name, e.windowDays)
	case domain.AlertLowStock:
		return fmt.Sprintf("Produto %s com estoque baixo (%d unidades)", p.Name, p.Stock)
	default:
		return ""
	}
}

// Run recomputes on a fixed interval and whenever the product feed reports a
// change, until the context is cancelled. Recompute errors are logged, not
// fatal; the loop keeps going.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	products, cancel := e.store.StreamProducts(ctx)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case _, ok := <-products:
			if !ok {
				return
			}
		}
		if _, err := e.Recompute(ctx); err != nil {
			e.logger.Warn("alert recomputation failed", zap.Error(err))
		}
	}
}
