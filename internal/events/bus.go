// Package events provides a small publish/subscribe bus. The bus is built
// in main and handed to the components that signal across boundaries
// (save results, login prompts) instead of living as a package-level
// singleton.
package events

import "sync"

// Handler receives the event payload, which may be nil.
type Handler func(payload any)

// Subscription identifies one registered handler so it can be removed.
type Subscription struct {
	event string
	id    int
}

// Bus routes named events to subscribed handlers. Safe for concurrent use;
// handlers run synchronously on the publishing goroutine.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string]map[int]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string]map[int]Handler)}
}

// Subscribe registers fn for event and returns a handle for Unsubscribe.
func (b *Bus) Subscribe(event string, fn Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	if b.handlers[event] == nil {
		b.handlers[event] = make(map[int]Handler)
	}
	b.handlers[event][b.nextID] = fn
	return Subscription{event: event, id: b.nextID}
}

// Unsubscribe removes a previously registered handler. Unknown handles are
// ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if hs := b.handlers[sub.event]; hs != nil {
		delete(hs, sub.id)
	}
}

// Publish delivers payload to every handler subscribed to event.
func (b *Bus) Publish(event string, payload any) {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.handlers[event]))
	for _, h := range b.handlers[event] {
		hs = append(hs, h)
	}
	b.mu.RUnlock()
	for _, h := range hs {
		h(payload)
	}
}
