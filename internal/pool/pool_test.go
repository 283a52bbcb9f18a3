//go:build linux

package pool

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ankitkpandey1/aetherless/internal/config"
	"github.com/ankitkpandey1/aetherless/internal/fsm"
	"github.com/ankitkpandey1/aetherless/internal/metrics"
	"github.com/ankitkpandey1/aetherless/internal/registry"
	"github.com/ankitkpandey1/aetherless/internal/values"
)

func makeConfig(t *testing.T, name string, port uint16) config.FunctionConfig {
	t.Helper()
	id, err := values.NewFunctionId(name)
	if err != nil {
		t.Fatalf("NewFunctionId: %v", err)
	}
	mem, err := values.NewMemoryLimitMB(128)
	if err != nil {
		t.Fatalf("NewMemoryLimitMB: %v", err)
	}
	p, err := values.NewPort(port)
	if err != nil {
		t.Fatalf("NewPort: %v", err)
	}
	return config.FunctionConfig{
		ID:          id,
		MemoryLimit: mem,
		TriggerPort: p,
		HandlerPath: values.NewHandlerPathUnchecked("/bin/echo"),
		Environment: map[string]string{},
		TimeoutMs:   30000,
	}
}

func TestDisabledControllerRegisterAndState(t *testing.T) {
	reg := registry.New()
	ctrl := Disabled(reg, nil)

	cfg := makeConfig(t, "test-func", 9100)
	if err := ctrl.Register(cfg); err != nil {
		t.Fatalf("Register: %v", err)
	}

	state, err := ctrl.GetState(cfg.ID)
	if err != nil || state != fsm.Uninitialized {
		t.Fatalf("GetState = %v, %v; want Uninitialized, nil", state, err)
	}

	if ctrl.HasSnapshot(cfg.ID) {
		t.Errorf("HasSnapshot() = true, want false")
	}
	if ctrl.PoolSize() != 0 {
		t.Errorf("PoolSize() = %d, want 0", ctrl.PoolSize())
	}
}

func TestDisabledControllerSnapshotOpsFail(t *testing.T) {
	reg := registry.New()
	ctrl := Disabled(reg, nil)
	cfg := makeConfig(t, "test-func", 9101)
	if err := ctrl.Register(cfg); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := ctrl.CreateSnapshot(nil, cfg.ID); err == nil {
		t.Errorf("CreateSnapshot() = nil, want error when warm pool disabled")
	}
	if _, err := ctrl.Restore(nil, cfg.ID); err == nil {
		t.Errorf("Restore() = nil, want error when warm pool disabled")
	}
	if err := ctrl.DeleteSnapshot(cfg.ID); err == nil {
		t.Errorf("DeleteSnapshot() = nil, want error when warm pool disabled")
	}
}

func TestSuspendUnknownFunction(t *testing.T) {
	reg := registry.New()
	ctrl := Disabled(reg, nil)
	cfg := makeConfig(t, "test-func", 9102)
	if err := ctrl.Register(cfg); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// No process was ever tracked for this function, so Suspend should
	// still attempt the state transition and fail because a function
	// starts Uninitialized (Uninitialized -> Suspended is illegal).
	if err := ctrl.Suspend(cfg.ID); err == nil {
		t.Errorf("Suspend() on never-started function = nil, want error")
	}
}

func TestListEntries(t *testing.T) {
	reg := registry.New()
	ctrl := Disabled(reg, nil)
	cfg1 := makeConfig(t, "func-a", 9103)
	cfg2 := makeConfig(t, "func-b", 9104)
	if err := ctrl.Register(cfg1); err != nil {
		t.Fatalf("Register cfg1: %v", err)
	}
	if err := ctrl.Register(cfg2); err != nil {
		t.Fatalf("Register cfg2: %v", err)
	}

	entries := ctrl.ListEntries()
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[cfg1.ID] != fsm.Uninitialized {
		t.Errorf("entries[cfg1.ID] = %v, want Uninitialized", entries[cfg1.ID])
	}
}

func TestSetMetricsStoresRegistry(t *testing.T) {
	reg := registry.New()
	ctrl := Disabled(reg, nil)

	m := metrics.NewRegistry(prometheus.NewRegistry())
	ctrl.SetMetrics(m)

	if ctrl.metrics != m {
		t.Errorf("SetMetrics did not store the registry on the controller")
	}
}

func TestStats(t *testing.T) {
	reg := registry.New()
	ctrl := Disabled(reg, nil)
	stats := ctrl.Stats()
	if stats.WarmPoolActive {
		t.Errorf("Stats().WarmPoolActive = true, want false for Disabled controller")
	}
	if stats.ActiveInstances != 0 {
		t.Errorf("Stats().ActiveInstances = %d, want 0", stats.ActiveInstances)
	}
}
