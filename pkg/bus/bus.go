// Package bus implements the process-local topic pub/sub hub (spec §4.1).
// Delivery is at-most-once and in publish-order per subscriber; a handler
// that panics never affects the publisher or other subscribers.
package bus

import (
	"log/slog"
	"strings"
	"sync"
)

// Handler receives a published payload. Handlers run on their own
// goroutine per subscription, never on the publisher's goroutine.
type Handler func(topic string, payload any)

type subscription struct {
	id      uint64
	pattern string
	handler Handler
	queue   chan message
}

type message struct {
	topic   string
	payload any
}

// Bus is a single process-wide hub. There is exactly one instance per
// process (spec §4.1), constructed explicitly and passed by dependency
// injection rather than imported as a global (spec §9).
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64
	log    *slog.Logger
}

// New constructs a Bus. Pass a nil logger to use slog.Default().
func New(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{
		subs: make(map[uint64]*subscription),
		log:  log.With("component", "bus"),
	}
}

// Subscribe registers handler for topics matching pattern. A pattern is a
// dotted string; a trailing "*" segment matches any non-empty remainder
// after the prefix, one or more segments, e.g. "crawler.*" matches
// "crawler.complete" and "crawler.failed" (and also "crawler.a.b").
// Returns an unsubscribe token.
func (b *Bus) Subscribe(pattern string, handler Handler) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	sub := &subscription{
		id:      id,
		pattern: pattern,
		handler: handler,
		queue:   make(chan message, 64),
	}
	b.subs[id] = sub
	go sub.run(b.log)
	return id
}

// Unsubscribe removes a subscription registered by Subscribe. Idempotent.
func (b *Bus) Unsubscribe(id uint64) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()
	if ok {
		close(sub.queue)
	}
}

// Publish delivers payload to every subscriber whose pattern matches topic.
// Publish never blocks on a slow handler: delivery to each subscriber's
// queue is asynchronous, and a full queue drops the oldest message for
// that subscriber rather than stalling the publisher.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if !matches(sub.pattern, topic) {
			continue
		}
		select {
		case sub.queue <- message{topic: topic, payload: payload}:
		default:
			select {
			case <-sub.queue:
			default:
			}
			select {
			case sub.queue <- message{topic: topic, payload: payload}:
			default:
			}
		}
	}
}

func (s *subscription) run(log *slog.Logger) {
	for msg := range s.queue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error("bus handler panicked", "topic", msg.topic, "pattern", s.pattern, "panic", r)
				}
			}()
			s.handler(msg.topic, msg.payload)
		}()
	}
}

// matches implements the trailing-wildcard pattern rule described on Subscribe.
func matches(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	if strings.HasSuffix(pattern, ".*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(topic, prefix) && len(topic) > len(prefix)
	}
	if pattern == "*" {
		return true
	}
	return false
}
