package events

import (
	"testing"

	"go.uber.org/goleak"

	"switchscan/internal/thread"
)

func TestPublishFansOut(t *testing.T) {
	defer goleak.VerifyNone(t)
	bus := NewBus(nil)
	a := bus.Subscribe(4)
	b := bus.Subscribe(4)

	bus.Publish(MessageAdded{Ref: thread.Direct(1), Message: thread.Message{ID: 9}})

	for _, sub := range []*Subscription{a, b} {
		ev := <-sub.C()
		added, ok := ev.(MessageAdded)
		if !ok || added.Message.ID != 9 {
			t.Fatalf("unexpected event: %#v", ev)
		}
	}
	bus.Close()
	if _, ok := <-a.C(); ok {
		t.Fatal("expected channel closed after bus close")
	}
}

func TestPublishNeverBlocksAndCountsDrops(t *testing.T) {
	bus := NewBus(nil)
	sub := bus.Subscribe(1)
	bus.Publish(ThreadsChanged{})
	bus.Publish(WarmComplete{})
	bus.Publish(WarmComplete{})

	if got := sub.Dropped(); got != 2 {
		t.Fatalf("subscriber drops: got %d want 2", got)
	}
	if got := bus.Dropped(); got != 2 {
		t.Fatalf("bus drops: got %d want 2", got)
	}
	if ev := <-sub.C(); Name(ev) != "threads_changed" {
		t.Fatalf("expected the first event to survive, got %q", Name(ev))
	}
}

func TestSubscriptionCloseDetaches(t *testing.T) {
	bus := NewBus(nil)
	sub := bus.Subscribe(1)
	sub.Close()
	sub.Close()
	bus.Publish(ThreadsChanged{})
	if bus.Dropped() != 0 {
		t.Fatal("closed subscriber should not count drops")
	}
	bus.Close()
	late := bus.Subscribe(1)
	if _, ok := <-late.C(); ok {
		t.Fatal("expected subscription on closed bus to be closed")
	}
}
