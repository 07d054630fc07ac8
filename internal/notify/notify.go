// Package notify delivers one-shot registration outcomes to callers. The
// channel is best effort and at-most-once: outcomes are transient messages,
// never persisted, and publish failures never affect the registration result.
package notify

import (
	"context"
	"sync"
	"time"

	"vendafacil/backend/internal/domain"
)

type Notifier interface {
	SaleRegistered(ctx context.Context, saleID string)
	RegistrationFailed(ctx context.Context, kind string, detail string)
}

type NoopNotifier struct{}

func (NoopNotifier) SaleRegistered(_ context.Context, _ string) {}

func (NoopNotifier) RegistrationFailed(_ context.Context, _ string, _ string) {}

// Broadcaster fans registration outcomes out to in-process subscribers,
// feeding the live outcome stream. Subscribers that fall behind lose older
// outcomes; there is no redelivery.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan domain.RegistrationOutcome
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan domain.RegistrationOutcome)}
}

func (b *Broadcaster) SaleRegistered(_ context.Context, saleID string) {
	b.send(domain.RegistrationOutcome{SaleID: saleID, At: time.Now().UTC()})
}

func (b *Broadcaster) RegistrationFailed(_ context.Context, kind string, detail string) {
	b.send(domain.RegistrationOutcome{ErrorKind: kind, Detail: detail, At: time.Now().UTC()})
}

func (b *Broadcaster) send(outcome domain.RegistrationOutcome) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- outcome:
		default:
		}
	}
}

// Subscribe returns a feed of outcomes and a cancel func. Closing the
// subscription is the only cancellation semantic.
func (b *Broadcaster) Subscribe(ctx context.Context) (<-chan domain.RegistrationOutcome, func()) {
	ch := make(chan domain.RegistrationOutcome, 16)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}

	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}

	return ch, cancel
}

// MultiNotifier fans a single outcome out to several notifiers.
type MultiNotifier []Notifier

func (m MultiNotifier) SaleRegistered(ctx context.Context, saleID string) {
	for _, n := range m {
		n.SaleRegistered(ctx, saleID)
	}
}

func (m MultiNotifier) RegistrationFailed(ctx context.Context, kind string, detail string) {
	for _, n := range m {
		n.RegistrationFailed(ctx, kind, detail)
	}
}
