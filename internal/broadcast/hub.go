package broadcast

import (
	"context"
	"log/slog"
	"sync"
)

const defaultSubscriberBuffer = 16

// Hub fans notifications out to in-process subscribers keyed by channel.
// A subscriber whose buffer is full misses the notification; the
// publisher never blocks on a slow reader.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	closed bool
	logger *slog.Logger
}

func NewHub(logger *slog.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

type Subscription struct {
	C       <-chan Notification
	ch      chan Notification
	channel string
	hub     *Hub
	once    sync.Once
}

func (h *Hub) Subscribe(channel string) *Subscription {
	ch := make(chan Notification, h.buffer)
	s := &Subscription{C: ch, ch: ch, channel: channel, hub: h}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		s.once.Do(func() { close(ch) })
		return s
	}
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[*Subscription]struct{})
	}
	h.subs[channel][s] = struct{}{}
	h.mu.Unlock()

	return s
}

// Close unregisters the subscription and closes C. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		delete(h.subs[s.channel], s)
		if len(h.subs[s.channel]) == 0 {
			delete(h.subs, s.channel)
		}
		close(s.ch)
		h.mu.Unlock()
	})
}

func (s *Subscription) Channel() string { return s.channel }

func (h *Hub) Broadcast(_ context.Context, n Notification) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs[n.Channel] {
		select {
		case s.ch <- n:
		default:
			h.logger.Warn("subscriber buffer full, dropping notification",
				"channel", n.Channel,
				"notification", n.Name,
			)
		}
	}
	return nil
}

// Subscribers returns the number of open subscriptions on a channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channel])
}

// Close ends every open subscription and refuses new ones, so stream
// handlers return during server shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var open []*Subscription
	for _, set := range h.subs {
		for s := range set {
			open = append(open, s)
		}
	}
	h.mu.Unlock()

	for _, s := range open {
		s.Close()
	}
}

var _ Broadcaster = (*Hub)(nil)
