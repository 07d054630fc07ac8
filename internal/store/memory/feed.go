package memory

import (
	"context"
	"sync"
)

// feed is a snapshot broadcaster. Each subscriber holds a buffered channel
// of capacity 1; a newer snapshot replaces an unconsumed older one, so slow
// consumers always see the latest state and never block publishers.
type feed[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan T
}

func newFeed[T any]() *feed[T] {
	return &feed[T]{subs: make(map[int]chan T)}
}

func (f *feed[T]) subscribe(ctx context.Context, initial T) (<-chan T, func()) {
	ch := make(chan T, 1)
	ch <- initial

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
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

func (f *feed[T]) publish(snapshot T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subs {
		select {
		case ch <- snapshot:
		default:
			// Replace the pending snapshot with the newer one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}
