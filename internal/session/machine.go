package session

import (
	"time"

	"github.com/hartleigh/tivod/internal/tivo"
)

// State is the user-facing operational state of a box.
type State string

// Device states.
const (
	// StateOn means the box reported a live channel on the last poll.
	StateOn State = "on"

	// StateIdle means the box has gone silent but the idle timeout has
	// not yet elapsed. The box is likely showing a recording or an app.
	StateIdle State = "idle"

	// StateOff means the box is in standby, or has been idle past the
	// configured timeout.
	StateOff State = "off"
)

// Machine infers a box's state from poll observations.
//
// A valid channel always means on. Silence from an on box means idle
// first, then off once the idle timeout has elapsed; with a zero
// timeout silence means off immediately. The machine carries no locking
// of its own; Session serialises every Observe and read under its state
// mutex.
type Machine struct {
	idleTimeout time.Duration

	state          State
	lastChannel    int
	lastObservedAt time.Time
	idleSince      time.Time
}

// NewMachine creates a state machine with the given idle-to-off
// timeout. Zero means silence maps straight to off.
func NewMachine(idleTimeout time.Duration) *Machine {
	return &Machine{
		idleTimeout: idleTimeout,
		state:       StateOff,
	}
}

// Observe feeds one poll result into the machine and returns the
// resulting state.
func (m *Machine) Observe(status tivo.Status, now time.Time) State {
	if status.Live {
		m.state = StateOn
		m.lastChannel = status.Channel
		m.lastObservedAt = now
		m.idleSince = time.Time{}
		return m.state
	}

	if m.idleTimeout <= 0 {
		m.state = StateOff
		m.idleSince = time.Time{}
		return m.state
	}

	switch m.state {
	case StateOn:
		m.state = StateIdle
		m.idleSince = now
	case StateIdle:
		if now.Sub(m.idleSince) >= m.idleTimeout {
			m.state = StateOff
			m.idleSince = time.Time{}
		}
	}
	return m.state
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Channel returns the last observed channel number, zero when none has
// been seen. The value survives idle and off so the last channel can
// still be displayed.
func (m *Machine) Channel() int {
	return m.lastChannel
}

// LastObservedAt returns when a live channel was last seen.
func (m *Machine) LastObservedAt() time.Time {
	return m.lastObservedAt
}

// IdleSince returns when the box went idle; zero unless idle.
func (m *Machine) IdleSince() time.Time {
	return m.idleSince
}
