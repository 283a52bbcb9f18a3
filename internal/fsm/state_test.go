package fsm

import (
	"testing"

	"github.com/ankitkpandey1/aetherless/internal/values"
)

func makeFunctionID(t *testing.T) values.FunctionId {
	id, err := values.NewFunctionId("test-function")
	if err != nil {
		t.Fatalf("NewFunctionId: %v", err)
	}
	return id
}

func TestInitialState(t *testing.T) {
	m := New(makeFunctionID(t))
	if m.State() != Uninitialized {
		t.Errorf("State() = %v, want Uninitialized", m.State())
	}
	if m.TransitionCount() != 0 {
		t.Errorf("TransitionCount() = %d, want 0", m.TransitionCount())
	}
}

func TestValidTransitions(t *testing.T) {
	m := New(makeFunctionID(t))

	if err := m.TransitionTo(WarmSnapshot); err != nil {
		t.Fatalf("Uninitialized -> WarmSnapshot: %v", err)
	}
	if m.State() != WarmSnapshot {
		t.Errorf("State() = %v, want WarmSnapshot", m.State())
	}
	if m.TransitionCount() != 1 {
		t.Errorf("TransitionCount() = %d, want 1", m.TransitionCount())
	}

	if err := m.TransitionTo(Running); err != nil {
		t.Fatalf("WarmSnapshot -> Running: %v", err)
	}
	if err := m.TransitionTo(Suspended); err != nil {
		t.Fatalf("Running -> Suspended: %v", err)
	}
	if err := m.TransitionTo(Running); err != nil {
		t.Fatalf("Suspended -> Running: %v", err)
	}
}

func TestInvalidTransitions(t *testing.T) {
	m := New(makeFunctionID(t))
	if err := m.TransitionTo(Suspended); err == nil {
		t.Errorf("Uninitialized -> Suspended = nil, want error")
	}
	if m.State() != Uninitialized {
		t.Errorf("State() = %v, want Uninitialized after failed transition", m.State())
	}
}

func TestIsInvokable(t *testing.T) {
	m := New(makeFunctionID(t))
	if m.IsInvokable() {
		t.Errorf("IsInvokable() = true, want false in Uninitialized")
	}

	if err := m.TransitionTo(WarmSnapshot); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if !m.HasWarmSnapshot() || !m.IsInvokable() {
		t.Errorf("expected WarmSnapshot to be invokable with a warm snapshot")
	}

	if err := m.TransitionTo(Running); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if !m.IsInvokable() {
		t.Errorf("expected Running to be invokable")
	}
}
