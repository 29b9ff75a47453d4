package bus

import "sync"

// Memory is a synchronous in-process bus. Handlers run on the
// publisher's goroutine in subscription order; a slow handler delays
// the publisher, matching the mirror's single-task scheduling model.
type Memory struct {
	mu       sync.RWMutex
	channels map[string][]*memorySub
}

type memorySub struct {
	fn func(Message)
}

// NewMemory creates an empty in-process bus.
func NewMemory() *Memory {
	return &Memory{
		channels: make(map[string][]*memorySub),
	}
}

// Publish delivers msg to every handler subscribed to channel.
// It never fails.
func (m *Memory) Publish(channel string, msg Message) error {
	m.mu.RLock()
	subs := make([]*memorySub, len(m.channels[channel]))
	copy(subs, m.channels[channel])
	m.mu.RUnlock()

	for _, sub := range subs {
		sub.fn(msg)
	}
	return nil
}

// Subscribe registers fn for messages on channel and returns a
// function that removes the subscription.
func (m *Memory) Subscribe(channel string, fn func(Message)) (unsubscribe func()) {
	sub := &memorySub{fn: fn}

	m.mu.Lock()
	m.channels[channel] = append(m.channels[channel], sub)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		subs := m.channels[channel]
		for i, s := range subs {
			if s == sub {
				m.channels[channel] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
}
