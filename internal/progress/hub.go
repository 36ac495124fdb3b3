package progress

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

const (
	defaultBufferSize = 1024
	maxBatch          = 256
)

// Config controls buffering for the Hub.
type Config struct {
	// BufferSize is the channel capacity (default 1024).
	BufferSize int
	Logger     *zap.Logger
}

// Hub fans events out to sinks on a background goroutine. It is safe for
// concurrent use and never blocks callers.
type Hub struct {
	sinks   []Sink
	events  chan Event
	doneCh  chan struct{}
	logger  *zap.Logger
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

// NewHub starts a Hub delivering to sinks.
func NewHub(cfg Config, sinks ...Sink) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		sinks:  append([]Sink(nil), sinks...),
		events: make(chan Event, cfg.BufferSize),
		doneCh: make(chan struct{}),
		logger: logger,
	}
	go h.run()
	return h
}

// Emit enqueues evt. Invalid events are discarded; a full buffer drops the event.
func (h *Hub) Emit(evt Event) {
	if h == nil {
		return
	}
	if err := evt.Validate(); err != nil {
		h.logger.Debug("discarding invalid progress event", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	select {
	case h.events <- evt:
	default:
		h.dropped.Add(1)
	}
}

// Dropped returns how many events were lost to backpressure.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close stops intake, delivers what is buffered, and closes every sink.
func (h *Hub) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.events)
		h.mu.Unlock()
	})
	select {
	case <-h.doneCh:
	case <-ctx.Done():
		return fmt.Errorf("progress hub close wait: %w", ctx.Err())
	}
	if n := h.dropped.Load(); n > 0 {
		h.logger.Warn("progress events dropped due to backpressure", zap.Int64("dropped", n))
	}
	for _, sink := range h.sinks {
		if err := sink.Close(ctx); err != nil {
			h.logger.Warn("progress sink close failed", zap.Error(err))
		}
	}
	return nil
}

func (h *Hub) run() {
	defer close(h.doneCh)
	batch := make([]Event, 0, maxBatch)
	for evt := range h.events {
		batch = append(batch[:0], evt)
	drain:
		for len(batch) < maxBatch {
			select {
			case next, ok := <-h.events:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}
		h.flush(batch)
	}
}

func (h *Hub) flush(batch []Event) {
	for _, sink := range h.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Consume(context.Background(), batch); err != nil {
			h.logger.Warn("progress sink consume failed", zap.Error(err))
		}
	}
}
