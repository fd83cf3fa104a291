package session

import (
	"github.com/dmitrijs2005/famwealth/internal/client/models"
)

// EventKind names a session state change.
type EventKind int

const (
	EventRestored EventKind = iota + 1
	EventLoggedIn
	EventRefreshed
	EventLoggedOut
	// EventExpired means renewal was impossible and the session was torn
	// down. UI layers navigate back to the entry point on it.
	EventExpired
)

func (k EventKind) String() string {
	switch k {
	case EventRestored:
		return "restored"
	case EventLoggedIn:
		return "logged_in"
	case EventRefreshed:
		return "refreshed"
	case EventLoggedOut:
		return "logged_out"
	case EventExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after a change has fully settled.
type Event struct {
	Kind EventKind
	// Session is a copy of the state right after the change, nil when
	// unauthenticated.
	Session *models.Session
	// Err is the cause of EventExpired.
	Err error
}

type subscriber struct {
	id uint64
	fn func(Event)
}

// Subscribe registers fn for every subsequent event and returns a function
// that removes it. Deliveries are serialized and follow the order in which
// the changes were made. fn runs on a goroutine that caused a change and
// must not call back into the Manager synchronously.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.subMu.Lock()
	m.nextSub++
	id := m.nextSub
	m.subs = append(m.subs, subscriber{id: id, fn: fn})
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// enqueueLocked records the event for the change just made. mu must be
// held, so the queue order is the order of the changes.
func (m *Manager) enqueueLocked(kind EventKind, cause error) {
	m.pending = append(m.pending, Event{Kind: kind, Session: m.session.Clone(), Err: cause})
}

// flush delivers every queued event. A caller may deliver events queued by
// another goroutine; that one then finds the queue empty.
func (m *Manager) flush() {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	events := m.pending
	m.pending = nil
	m.mu.Unlock()
	if len(events) == 0 {
		return
	}

	m.subMu.Lock()
	subs := make([]subscriber, len(m.subs))
	copy(subs, m.subs)
	m.subMu.Unlock()

	for _, ev := range events {
		for _, s := range subs {
			s.fn(ev)
		}
	}
}
