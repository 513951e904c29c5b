// Package network tracks whether the remote backend is reachable.
package network

import (
	"context"
	"sync"

	"github.com/pkordes/travel-journal/internal/domain"
)

// Monitor holds the current online state and fans transitions out to
// subscribers. Every transition is delivered; there is no debouncing.
type Monitor struct {
	mu          sync.RWMutex
	online      bool
	subscribers map[int64]chan bool
	nextID      int64
	bufferSize  int
}

// NewMonitor returns a Monitor whose initial state is online.
func NewMonitor(online bool) *Monitor {
	return &Monitor{
		online:      online,
		subscribers: make(map[int64]chan bool),
		bufferSize:  16,
	}
}

// Online reports the current state.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Mode reports the current state as a domain.Mode.
func (m *Monitor) Mode() domain.Mode {
	return domain.ModeFor(m.Online())
}

// Set records a platform-reported state. Subscribers are notified only when
// the state actually changes. It reports whether a transition happened.
func (m *Monitor) Set(online bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online == online {
		return false
	}
	m.online = online
	for _, ch := range m.subscribers {
		select {
		case ch <- online:
		default:
			// Slow subscriber: drop for this subscriber only.
		}
	}
	return true
}

// Subscribe returns a channel that receives every subsequent transition and a
// cancel func that unregisters it and closes the channel. Cancelling ctx has
// the same effect.
func (m *Monitor) Subscribe(ctx context.Context) (<-chan bool, func()) {
	ch := make(chan bool, m.bufferSize)

	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.subscribers[id] = ch
	m.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subscribers, id)
			close(ch)
			m.mu.Unlock()
		})
	}
	stop := context.AfterFunc(ctx, unsubscribe)
	return ch, func() {
		stop()
		unsubscribe()
	}
}
