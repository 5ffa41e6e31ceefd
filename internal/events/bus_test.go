package events

import (
	"sync"
	"testing"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := NewBus()

	var got []any
	b.Subscribe("saved", func(p any) { got = append(got, p) })
	b.Subscribe("saved", func(p any) { got = append(got, p) })
	b.Subscribe("other", func(p any) { t.Fatal("wrong event delivered") })

	b.Publish("saved", "tpl-1")
	if len(got) != 2 || got[0] != "tpl-1" || got[1] != "tpl-1" {
		t.Fatalf("expected both handlers to see tpl-1, got %v", got)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus()

	calls := 0
	sub := b.Subscribe("saved", func(any) { calls++ })
	b.Publish("saved", nil)
	b.Unsubscribe(sub)
	b.Publish("saved", nil)

	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}

	// Unknown handles are ignored.
	b.Unsubscribe(sub)
	b.Unsubscribe(Subscription{})
}

func TestPublishWithoutSubscribers(t *testing.T) {
	b := NewBus()
	b.Publish("nobody-listens", 42)
}

func TestConcurrentPublish(t *testing.T) {
	b := NewBus()

	var mu sync.Mutex
	count := 0
	b.Subscribe("tick", func(any) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Publish("tick", j)
			}
		}()
	}
	wg.Wait()

	if count != 800 {
		t.Fatalf("expected 800 deliveries, got %d", count)
	}
}
