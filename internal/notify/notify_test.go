package notify

import (
	"context"
	"testing"
	"time"

	"vendafacil/backend/internal/domain"
)

func TestBroadcasterDeliversToSubscribers(t *testing.T) {
	b := NewBroadcaster()
	ctx := context.Background()

	ch1, cancel1 := b.Subscribe(ctx)
	defer cancel1()
	ch2, cancel2 := b.Subscribe(ctx)
	defer cancel2()

	b.SaleRegistered(ctx, "sale-1")

	for i, ch := range []<-chan domain.RegistrationOutcome{ch1, ch2} {
		select {
		case outcome := <-ch:
			if outcome.SaleID != "sale-1" || !outcome.Succeeded() {
				t.Errorf("subscriber %d: unexpected outcome %+v", i, outcome)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d received nothing", i)
		}
	}
}

func TestBroadcasterFailureOutcome(t *testing.T) {
	b := NewBroadcaster()
	ctx := context.Background()

	ch, cancel := b.Subscribe(ctx)
	defer cancel()

	b.RegistrationFailed(ctx, "InsufficientStock", "stock 2 < quantity 5")

	select {
	case outcome := <-ch:
		if outcome.Succeeded() || outcome.ErrorKind != "InsufficientStock" {
			t.Errorf("unexpected outcome %+v", outcome)
		}
	case <-time.After(time.Second):
		t.Fatal("received nothing")
	}
}

func TestBroadcasterDoesNotBlockOnSlowSubscriber(t *testing.T) {
	b := NewBroadcaster()
	ctx := context.Background()

	_, cancel := b.Subscribe(ctx) // never read
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.SaleRegistered(ctx, "sale-x")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcaster blocked on a full subscriber")
	}
}

func TestBroadcasterCancelStopsDelivery(t *testing.T) {
	b := NewBroadcaster()
	ctx := context.Background()

	ch, cancel := b.Subscribe(ctx)
	cancel()
	cancel() // idempotent

	if _, open := <-ch; open {
		t.Fatal("channel must be closed after cancel")
	}

	// Sending after cancel must not panic.
	b.SaleRegistered(ctx, "sale-1")
}

func TestSubscribeRespectsContext(t *testing.T) {
	b := NewBroadcaster()
	ctx, cancelCtx := context.WithCancel(context.Background())

	ch, cancel := b.Subscribe(ctx)
	defer cancel()
	cancelCtx()

	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after context cancellation")
		}
	}
}

func TestMultiNotifierFansOut(t *testing.T) {
	b1 := NewBroadcaster()
	b2 := NewBroadcaster()
	ctx := context.Background()

	ch1, cancel1 := b1.Subscribe(ctx)
	defer cancel1()
	ch2, cancel2 := b2.Subscribe(ctx)
	defer cancel2()

	multi := MultiNotifier{b1, b2, NoopNotifier{}}
	multi.RegistrationFailed(ctx, "PersistenceFailure", "disk full")

	for i, ch := range []<-chan domain.RegistrationOutcome{ch1, ch2} {
		select {
		case outcome := <-ch:
			if outcome.ErrorKind != "PersistenceFailure" {
				t.Errorf("notifier %d: unexpected outcome %+v", i, outcome)
			}
		case <-time.After(time.Second):
			t.Fatalf("notifier %d received nothing", i)
		}
	}
}
