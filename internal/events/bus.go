// Package events delivers payloads to subscribers keyed by topic. It is
// the out-of-band channel long-running analyses report their results on.
package events

import (
	"log/slog"
	"strings"
	"sync"
)

// Topics published by the watch loop.
const (
	TopicStatusChanged = "status_changed"
	TopicChanged       = "changed"
)

// Handler receives every payload published on a subscribed topic.
type Handler func(topic string, payload any)

type subscription struct {
	topic   string
	prefix  bool
	handler Handler
}

// Bus is safe for concurrent use. Handlers run synchronously on the
// publishing goroutine and may subscribe or unsubscribe from within.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]subscription
	nextID uint64
}

func NewBus() *Bus {
	return &Bus{subs: map[uint64]subscription{}}
}

// Subscribe registers h for topic. A topic ending in "/*" matches every
// topic below that prefix. The returned func removes the subscription and
// is safe to call more than once.
func (b *Bus) Subscribe(topic string, h Handler) (unsubscribe func()) {
	sub := subscription{topic: topic, handler: h}
	if prefix, ok := strings.CutSuffix(topic, "*"); ok {
		sub.topic, sub.prefix = prefix, true
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers payload to the current subscribers of topic and returns
// how many there were. Nothing is queued for later subscribers.
func (b *Bus) Publish(topic string, payload any) int {
	b.mu.RLock()
	var handlers []Handler
	for _, sub := range b.subs {
		if sub.matches(topic) {
			handlers = append(handlers, sub.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(topic, payload)
	}
	slog.Debug("event published", slog.String("topic", topic), slog.Int("subscribers", len(handlers)))
	return len(handlers)
}

func (s subscription) matches(topic string) bool {
	if s.prefix {
		return strings.HasPrefix(topic, s.topic)
	}
	return s.topic == topic
}
