package session

import "context"

// Phase is the state of the renewal protocol.
type Phase int

const (
	PhaseAuthorized Phase = iota
	PhaseAwaitingRefresh
	PhaseRejected
)

func (p Phase) String() string {
	switch p {
	case PhaseAuthorized:
		return "authorized"
	case PhaseAwaitingRefresh:
		return "awaiting_refresh"
	case PhaseRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// setPhaseLocked must be called with m.mu held.
func (m *Manager) setPhaseLocked(ctx context.Context, p Phase) {
	if m.phase == p {
		return
	}
	m.log.Debug(ctx, "phase transition", "from", m.phase.String(), "to", p.String())
	m.phase = p
}
