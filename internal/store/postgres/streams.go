package postgres

import (
	"context"
	"sync"
	"time"

	"vendafacil/backend/internal/domain"
)

// The database has no push channel for plain tables, so the snapshot streams
// poll on a fixed interval. Subscribers receive the current snapshot on
// subscribe, then a fresh one each tick until cancelled.

func (s *Store) StreamProducts(ctx context.Context) (<-chan []domain.Product, func()) {
	return pollFeed(ctx, s.pollInterval, func(ctx context.Context) ([]domain.Product, error) {
		return s.ListProducts(ctx)
	})
}

func (s *Store) StreamSales(ctx context.Context) (<-chan []domain.Sale, func()) {
	return pollFeed(ctx, s.pollInterval, func(ctx context.Context) ([]domain.Sale, error) {
		return s.ListSales(ctx, 200)
	})
}

func (s *Store) StreamAlerts(ctx context.Context) (<-chan []domain.StockAlert, func()) {
	return pollFeed(ctx, s.pollInterval, func(ctx context.Context) ([]domain.StockAlert, error) {
		return s.ListAlerts(ctx, 200)
	})
}

func pollFeed[T any](ctx context.Context, interval time.Duration, load func(context.Context) ([]T, error)) (<-chan []T, func()) {
	ch := make(chan []T, 1)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() { once.Do(func() { close(done) }) }

	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			snapshot, err := load(ctx)
			if err == nil {
				// Replace a pending snapshot rather than queue behind it;
				// subscribers only ever need the latest state.
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- snapshot:
				case <-done:
					return
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ticker.C:
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, cancel
}
