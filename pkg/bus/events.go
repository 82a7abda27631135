package bus

import (
	"context"
	"sync"
	"time"
)

type EventType string

const (
	EventItemSkipped          EventType = "item_skipped"
	EventTranslationCompleted EventType = "translation_completed"
	EventTranslationFailed    EventType = "translation_failed"
	EventReplyPosted          EventType = "reply_posted"
	EventReplyFailed          EventType = "reply_failed"
	EventLogonCompleted       EventType = "logon_completed"
	EventLogonFailed          EventType = "logon_failed"
	EventReconnectScheduled   EventType = "reconnect_scheduled"
	EventStateChanged         EventType = "state_changed"
	EventTokenRejected        EventType = "token_rejected"
)

// Event is a diagnostic record of something the bot did. Events are best
// effort: slow subscribers miss events rather than stall the bot.
type Event struct {
	Type    EventType         `json:"type"`
	At      time.Time         `json:"at"`
	ConvID  string            `json:"conv_id,omitempty"`
	ItemID  string            `json:"item_id,omitempty"`
	Lang    string            `json:"lang,omitempty"`
	State   ConnectionState   `json:"state,omitempty"`
	Payload map[string]string `json:"payload,omitempty"`
	Error   string            `json:"error,omitempty"`
}

func (mb *MessageBus) PublishEvent(ctx context.Context, event Event) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return false
	case <-mb.done:
		return false
	default:
	}

	mb.mu.RLock()
	subs := make([]chan Event, 0, len(mb.eventSubscribers))
	for _, ch := range mb.eventSubscribers {
		subs = append(subs, ch)
	}
	mb.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			// Drop instead of blocking the publisher on slow subscribers.
		}
	}

	return true
}

func (mb *MessageBus) SubscribeEvents(ctx context.Context, buffer int) (<-chan Event, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	if buffer <= 0 {
		buffer = defaultBufferSize
	}

	ch := make(chan Event, buffer)

	mb.mu.Lock()
	select {
	case <-mb.done:
		mb.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}

	id := mb.nextEventSubscriberID
	mb.nextEventSubscriberID++
	mb.eventSubscribers[id] = ch
	mb.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			mb.mu.Lock()
			if eventCh, ok := mb.eventSubscribers[id]; ok {
				delete(mb.eventSubscribers, id)
				close(eventCh)
			}
			mb.mu.Unlock()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-mb.done:
			unsubscribe()
		}
	}()

	return ch, unsubscribe
}
