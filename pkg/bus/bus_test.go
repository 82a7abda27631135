package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPublishConsumeRoundTrip(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	in := Notification{Kind: KindItemAdded, Item: &Item{ID: "1", ConvID: "c", Content: "hello"}}
	if ok := mb.Publish(context.Background(), in); !ok {
		t.Fatal("expected publish to succeed")
	}

	out, ok := mb.Consume(context.Background())
	if !ok {
		t.Fatal("expected consume to succeed")
	}
	if out.Item == nil || out.Item.Content != "hello" {
		t.Fatalf("item = %+v, want content hello", out.Item)
	}
	if out.At.IsZero() {
		t.Fatal("expected publish to stamp the notification time")
	}
}

func TestCloseStopsBusOperations(t *testing.T) {
	mb := NewMessageBus()
	mb.Close()

	if ok := mb.Publish(context.Background(), Notification{Kind: KindItemAdded}); ok {
		t.Fatal("expected publish to fail after close")
	}
	if _, ok := mb.Consume(context.Background()); ok {
		t.Fatal("expected consume to stop after close")
	}
	if ok := mb.PublishEvent(context.Background(), Event{Type: EventReplyPosted}); ok {
		t.Fatal("expected event publish to fail after close")
	}
}

func TestContextCancellation(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if ok := mb.Publish(ctx, Notification{Kind: KindItemAdded}); ok {
		t.Fatal("expected publish to fail on canceled context")
	}
	if _, ok := mb.Consume(ctx); ok {
		t.Fatal("expected consume to fail on canceled context")
	}
}

func TestRegisterAndGetHandler(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	mb.RegisterHandler(KindItemAdded, func(Notification) {})

	got, ok := mb.GetHandler(KindItemAdded)
	if !ok || got == nil {
		t.Fatal("expected handler")
	}
	if _, ok := mb.GetHandler(KindTokenRenewError); ok {
		t.Fatal("expected no handler for unregistered kind")
	}
}

func TestConsumeUnblocksOnClose(t *testing.T) {
	mb := NewMessageBus()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = mb.Consume(context.Background())
	}()

	mb.Close()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("consume did not unblock after close")
	}
}

func TestDispatchPreservesArrivalOrder(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	var (
		mu  sync.Mutex
		got []string
	)
	record := func(n Notification) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case n.Item != nil:
			got = append(got, string(n.Kind)+":"+n.Item.ID)
		default:
			got = append(got, string(n.Kind)+":"+string(n.State))
		}
	}
	mb.RegisterHandler(KindItemAdded, record)
	mb.RegisterHandler(KindItemUpdated, record)
	mb.RegisterHandler(KindConnectionStateChanged, record)

	ctx := context.Background()
	mb.Publish(ctx, Notification{Kind: KindConnectionStateChanged, State: StateConnected})
	mb.Publish(ctx, Notification{Kind: KindItemAdded, Item: &Item{ID: "1"}})
	mb.Publish(ctx, Notification{Kind: KindTokenRenewError})
	mb.Publish(ctx, Notification{Kind: KindItemUpdated, Item: &Item{ID: "1"}})
	mb.Publish(ctx, Notification{Kind: KindItemAdded, Item: &Item{ID: "2"}})

	dispatchCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- mb.Dispatch(dispatchCtx) }()

	want := []string{"connection_state_changed:Connected", "item_added:1", "item_updated:1", "item_added:2"}
	deadline := time.After(time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == len(want) {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("dispatched %d notifications, want %d", n, len(want))
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("Dispatch error = %v, want context.Canceled", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dispatch order = %v, want %v", got, want)
		}
	}
}

func TestDispatchReturnsNilOnClose(t *testing.T) {
	mb := NewMessageBus()

	errCh := make(chan error, 1)
	go func() { errCh <- mb.Dispatch(context.Background()) }()
	mb.Close()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Dispatch error = %v, want nil", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("dispatch did not return after close")
	}
}

func TestItemThreadID(t *testing.T) {
	if got := (Item{ID: "10"}).ThreadID(); got != "10" {
		t.Fatalf("ThreadID = %q, want own id", got)
	}
	if got := (Item{ID: "10", ParentID: "7"}).ThreadID(); got != "7" {
		t.Fatalf("ThreadID = %q, want parent id", got)
	}
}

func TestEventFanout(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	ctx := context.Background()
	eventsA, unsubA := mb.SubscribeEvents(ctx, 1)
	defer unsubA()
	eventsB, unsubB := mb.SubscribeEvents(ctx, 1)
	defer unsubB()

	if ok := mb.PublishEvent(ctx, Event{Type: EventTranslationCompleted, Lang: "it"}); !ok {
		t.Fatal("expected event publish to succeed")
	}

	for name, events := range map[string]<-chan Event{"A": eventsA, "B": eventsB} {
		select {
		case got := <-events:
			if got.Type != EventTranslationCompleted {
				t.Fatalf("subscriber %s event type = %q, want %q", name, got.Type, EventTranslationCompleted)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("subscriber %s did not receive event", name)
		}
	}
}

func TestSlowSubscriberDoesNotBlockPublishEvent(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	ctx := context.Background()
	events, unsubscribe := mb.SubscribeEvents(ctx, 1)
	defer unsubscribe()

	if ok := mb.PublishEvent(ctx, Event{Type: EventReplyPosted}); !ok {
		t.Fatal("expected first event publish to succeed")
	}

	start := time.Now()
	if ok := mb.PublishEvent(ctx, Event{Type: EventReplyFailed}); !ok {
		t.Fatal("expected second event publish to succeed")
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("publish event blocked on slow subscriber")
	}

	select {
	case <-events:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected at least one event")
	}
}

func TestUnsubscribeStopsEvents(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	ctx := context.Background()
	events, unsubscribe := mb.SubscribeEvents(ctx, 1)
	unsubscribe()

	if ok := mb.PublishEvent(ctx, Event{Type: EventReplyPosted}); !ok {
		t.Fatal("expected event publish to succeed")
	}

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected closed event channel")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected event channel close after unsubscribe")
	}
}

func TestSubscribeEventsUnblocksOnClose(t *testing.T) {
	mb := NewMessageBus()

	events, _ := mb.SubscribeEvents(context.Background(), 1)
	mb.Close()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected event channel to be closed")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("event subscription did not unblock after close")
	}
}
