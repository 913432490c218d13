package collect

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hpungsan/mailsift/internal/address"
)

// Result reports the effect of one Collect call.
type Result struct {
	Added int `json:"added"`
	Total int `json:"total"`
}

// Sink merges page batches into a Store and announces the new total.
type Sink struct {
	store Store
	hub   *Hub
	log   zerolog.Logger
}

// NewSink wires a store to a hub. hub may be nil when nobody listens.
func NewSink(store Store, hub *Hub, log zerolog.Logger) *Sink {
	return &Sink{store: store, hub: hub, log: log}
}

// Store returns the underlying store.
func (s *Sink) Store() Store { return s.store }

// Hub returns the broadcast hub, possibly nil.
func (s *Sink) Hub() *Hub { return s.hub }

// Collect adds batch to the set. The batch is deduplicated again here, so
// callers may pass raw scan output. An empty batch still reports the total.
func (s *Sink) Collect(ctx context.Context, batch []address.Address) (Result, error) {
	batch = address.Dedupe(batch)

	added, err := s.store.AddMany(ctx, batch)
	if err != nil {
		return Result{}, err
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return Result{}, err
	}

	s.log.Debug().Int("batch", len(batch)).Int("added", added).Int("total", total).Msg("collected")
	if added > 0 {
		s.hub.Publish(total)
	}
	return Result{Added: added, Total: total}, nil
}

// Clear empties the set and broadcasts a zero total.
func (s *Sink) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.log.Info().Msg("collected set cleared")
	s.hub.Publish(0)
	return nil
}

// Total returns the current size of the set.
func (s *Sink) Total(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// Hub fans the latest total out to subscribers. Slow subscribers only ever see
// the most recent value: a pending unread total is replaced, never queued.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]chan int
}

// NewHub returns a hub with no subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan int)}
}

// Subscribe registers a listener. The returned cancel func unregisters it and
// closes the channel; calling it twice is safe.
func (h *Hub) Subscribe() (<-chan int, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan int, 1)
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// Publish sends total to every subscriber without blocking. A nil hub is a no-op.
func (h *Hub) Publish(total int) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case <-ch:
		default:
		}
		ch <- total
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
