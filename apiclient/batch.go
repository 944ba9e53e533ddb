package apiclient

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// BulkFunc resolves many keys in one call. Keys missing from the returned
// map resolve to NotFound.
type BulkFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

type batchResult[V any] struct {
	value V
	err   error
}

// Batcher collects single-key lookups over a time window and resolves them
// with one bulk call. Every waiter gets exactly one result.
type Batcher[K comparable, V any] struct {
	api      string
	window   time.Duration
	maxBatch int
	bulk     BulkFunc[K, V]

	mu      sync.Mutex
	pending map[K][]chan batchResult[V]
	order   []K
	timer   *time.Timer
}

// NewBatcher flushes after window, or immediately once maxBatch distinct keys
// are pending (0 means unbounded).
func NewBatcher[K comparable, V any](api string, window time.Duration, maxBatch int, bulk BulkFunc[K, V]) *Batcher[K, V] {
	return &Batcher[K, V]{
		api:      api,
		window:   window,
		maxBatch: maxBatch,
		bulk:     bulk,
		pending:  make(map[K][]chan batchResult[V]),
	}
}

// Get queues key and waits for its batch to resolve.
func (b *Batcher[K, V]) Get(ctx context.Context, key K) (V, error) {
	ch := make(chan batchResult[V], 1)

	b.mu.Lock()
	if _, ok := b.pending[key]; !ok {
		b.order = append(b.order, key)
	}
	b.pending[key] = append(b.pending[key], ch)
	full := b.maxBatch > 0 && len(b.order) >= b.maxBatch
	if b.timer == nil && !full {
		b.timer = time.AfterFunc(b.window, b.Flush)
	}
	b.mu.Unlock()

	if full {
		b.Flush()
	}

	select {
	case res := <-ch:
		return res.value, res.err
	case <-ctx.Done():
		var zero V
		return zero, AsError(b.api, ctx.Err())
	}
}

// Flush sends everything pending now.
func (b *Batcher[K, V]) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if len(b.order) == 0 {
		b.mu.Unlock()
		return
	}
	keys := b.order
	waiters := b.pending
	b.order = nil
	b.pending = make(map[K][]chan batchResult[V])
	b.mu.Unlock()

	// The batch outlives any single waiter's context.
	results, err := b.call(context.Background(), keys)
	if err != nil {
		apiErr := AsError(b.api, err)
		for _, chans := range waiters {
			for _, ch := range chans {
				ch <- batchResult[V]{err: apiErr}
			}
		}
		return
	}

	for key, chans := range waiters {
		value, ok := results[key]
		var res batchResult[V]
		if ok {
			res.value = value
		} else {
			res.err = NotFound(b.api, fmt.Sprintf("%v not found", key))
		}
		for _, ch := range chans {
			ch <- res
		}
	}
}

func (b *Batcher[K, V]) call(ctx context.Context, keys []K) (results map[K]V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Kind: KindUnknown, Message: fmt.Sprintf("bulk lookup panicked: %v", r), API: b.api}
		}
	}()
	return b.bulk(ctx, keys)
}
