package store

import (
	"sync"
)

// subscriberBuffer is the channel buffer given to each subscriber.
const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// MemoryStore holds a single snapshot and publishes every replacement to its
// subscribers. Subscribers receive updates via buffered channels (buffer
// size 100). Updates are sent non-blocking; if a subscriber's buffer is
// full, the update is dropped for that subscriber to prevent blocking the
// poller.
type MemoryStore struct {
	mu          sync.RWMutex
	current     Snapshot
	subscribers map[chan Snapshot]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store] holding initial.
func NewMemoryStore(initial Snapshot) *MemoryStore {
	return &MemoryStore{
		current:     initial,
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Update replaces the current [Snapshot] and notifies all subscribers.
func (m *MemoryStore) Update(snapshot Snapshot) {
	m.mu.Lock()
	m.current = snapshot
	m.mu.Unlock()

	m.notifySubscribers(snapshot)
}

// Get returns the current snapshot. The window it carries is immutable, so
// the snapshot is safe to read while later updates land.
func (m *MemoryStore) Get() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Subscribe creates a new subscription and returns a channel for receiving updates.
//
// The returned channel has a buffer of 100 messages. If the buffer fills
// (slow consumer), new updates are dropped for this subscriber.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// After calling Unsubscribe, the channel will be closed and no further
// updates will be sent. Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Snapshot) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	// find and delete the channel (need to convert to the right type)
	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (m *MemoryStore) SubscriberCount() int {
	m.subMu.RLock()
	defer m.subMu.RUnlock()
	return len(m.subscribers)
}

// notifySubscribers sends the snapshot to all active subscribers.
//
// This is non-blocking: if a subscriber's channel buffer is full, the message
// is dropped for that subscriber rather than blocking the update path.
func (m *MemoryStore) notifySubscribers(snapshot Snapshot) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- snapshot:
		default:
			// subscriber is slow, drop the message
		}
	}
}
