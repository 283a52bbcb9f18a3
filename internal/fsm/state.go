// Package fsm implements the per-function lifecycle state machine.
package fsm

import (
	"sync"
	"time"

	"github.com/ankitkpandey1/aetherless/internal/aethererr"
	"github.com/ankitkpandey1/aetherless/internal/values"
)

// State is one of the function lifecycle's four tagged states.
type State int

const (
	Uninitialized State = iota
	WarmSnapshot
	Running
	Suspended
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case WarmSnapshot:
		return "WarmSnapshot"
	case Running:
		return "Running"
	case Suspended:
		return "Suspended"
	default:
		return "Unknown"
	}
}

// IsInvokable reports whether a function in state s can currently accept an
// invocation — either already Running or restorable from WarmSnapshot.
func (s State) IsInvokable() bool {
	return s == Running || s == WarmSnapshot
}

// CanTransitionTo reports whether target is a legal next state from s.
func (s State) CanTransitionTo(target State) bool {
	switch s {
	case Uninitialized:
		return target == WarmSnapshot || target == Running
	case WarmSnapshot:
		return target == Running || target == Uninitialized
	case Running:
		return target == Suspended || target == WarmSnapshot
	case Suspended:
		return target == Running || target == WarmSnapshot || target == Uninitialized
	default:
		return false
	}
}

// Machine is a per-function state machine. It is safe for concurrent use;
// every method acquires the machine's own mutex, giving per-function
// serialized transitions without blocking operations on other functions.
type Machine struct {
	mu              sync.Mutex
	functionID      values.FunctionId
	current         State
	lastTransition  time.Time
	transitionCount uint64
}

func New(id values.FunctionId) *Machine {
	return &Machine{
		functionID:     id,
		current:        Uninitialized,
		lastTransition: time.Now(),
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Machine) FunctionID() values.FunctionId {
	return m.functionID
}

func (m *Machine) TimeInCurrentState() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.lastTransition)
}

func (m *Machine) TransitionCount() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionCount
}

// TransitionTo attempts to move the machine to target, returning a
// StateTransition error if the move is illegal.
func (m *Machine) TransitionTo(target State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.current.CanTransitionTo(target) {
		return aethererr.NewStateTransition("TransitionTo", m.functionID.String(), m.current.String(), target.String())
	}

	m.current = target
	m.lastTransition = time.Now()
	m.transitionCount++
	return nil
}

// IsInvokable reports whether the machine's state admits invocation.
func (m *Machine) IsInvokable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current == Running || m.current == WarmSnapshot
}

// HasWarmSnapshot reports whether the machine is currently in WarmSnapshot.
func (m *Machine) HasWarmSnapshot() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current == WarmSnapshot
}

// Metrics is a point-in-time snapshot of a machine's metrics fields.
type Metrics struct {
	FunctionID      string
	CurrentState    string
	TimeInStateMs   uint64
	TransitionCount uint64
}

func (m *Machine) Metrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Metrics{
		FunctionID:      m.functionID.String(),
		CurrentState:    m.current.String(),
		TimeInStateMs:   uint64(time.Since(m.lastTransition).Milliseconds()),
		TransitionCount: m.transitionCount,
	}
}
