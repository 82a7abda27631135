package bus

import (
	"context"
	"sync"
	"time"
)

const defaultBufferSize = 100

// MessageBus carries session notifications to typed handlers in arrival order
// and fans diagnostic events out to subscribers.
type MessageBus struct {
	notifications chan Notification
	handlers      map[Kind]Handler

	eventSubscribers      map[uint64]chan Event
	nextEventSubscriberID uint64

	done      chan struct{}
	closeOnce sync.Once

	mu sync.RWMutex
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		notifications:    make(chan Notification, defaultBufferSize),
		handlers:         make(map[Kind]Handler),
		eventSubscribers: make(map[uint64]chan Event),
		done:             make(chan struct{}),
	}
}

// Publish enqueues a notification. It blocks while the buffer is full and
// returns false once ctx is done or the bus is closed.
func (mb *MessageBus) Publish(ctx context.Context, n Notification) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return false
	case <-mb.done:
		return false
	default:
	}

	select {
	case <-ctx.Done():
		return false
	case <-mb.done:
		return false
	case mb.notifications <- n:
		return true
	}
}

func (mb *MessageBus) Consume(ctx context.Context) (Notification, bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return Notification{}, false
	case <-mb.done:
		return Notification{}, false
	case n := <-mb.notifications:
		return n, true
	}
}

// RegisterHandler installs the handler for one notification kind, replacing
// any previous handler.
func (mb *MessageBus) RegisterHandler(kind Kind, handler Handler) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.handlers[kind] = handler
}

func (mb *MessageBus) GetHandler(kind Kind) (Handler, bool) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	handler, ok := mb.handlers[kind]
	return handler, ok
}

// Dispatch consumes notifications and invokes the registered handler for each,
// one at a time. Notifications without a handler are dropped. It returns
// ctx.Err() on cancellation and nil once the bus is closed.
func (mb *MessageBus) Dispatch(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		n, ok := mb.Consume(ctx)
		if !ok {
			return ctx.Err()
		}

		if handler, ok := mb.GetHandler(n.Kind); ok && handler != nil {
			handler(n)
		}
	}
}

func (mb *MessageBus) Close() {
	mb.closeOnce.Do(func() {
		close(mb.done)

		mb.mu.Lock()
		for id, ch := range mb.eventSubscribers {
			close(ch)
			delete(mb.eventSubscribers, id)
		}
		mb.mu.Unlock()
	})
}
