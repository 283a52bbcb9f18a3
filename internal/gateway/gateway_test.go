//go:build linux

package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ankitkpandey1/aetherless/internal/config"
	"github.com/ankitkpandey1/aetherless/internal/fsm"
	"github.com/ankitkpandey1/aetherless/internal/pool"
	"github.com/ankitkpandey1/aetherless/internal/registry"
	"github.com/ankitkpandey1/aetherless/internal/storage"
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

func TestHealthz(t *testing.T) {
	reg := registry.New()
	ctrl := pool.Disabled(reg, nil)
	gw := New(ctrl, storage.New(), nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestStoragePutGetDelete(t *testing.T) {
	reg := registry.New()
	ctrl := pool.Disabled(reg, nil)
	gw := New(ctrl, storage.New(), nil)
	handler := gw.Handler()

	put := httptest.NewRequest(http.MethodPut, "/storage/mykey", strings.NewReader("hello"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, put)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("PUT status = %d, want 204", rec.Code)
	}

	get := httptest.NewRequest(http.MethodGet, "/storage/mykey", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, get)
	if rec.Code != http.StatusOK || rec.Body.String() != "hello" {
		t.Fatalf("GET = %d %q, want 200 hello", rec.Code, rec.Body.String())
	}

	del := httptest.NewRequest(http.MethodDelete, "/storage/mykey", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, del)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want 204", rec.Code)
	}

	get2 := httptest.NewRequest(http.MethodGet, "/storage/mykey", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, get2)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET after DELETE = %d, want 404", rec.Code)
	}
}

func TestFunctionUnknownID(t *testing.T) {
	reg := registry.New()
	ctrl := pool.Disabled(reg, nil)
	gw := New(ctrl, storage.New(), nil)

	req := httptest.NewRequest(http.MethodGet, "/function/nope/ping", nil)
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestFunctionInvalidID(t *testing.T) {
	reg := registry.New()
	ctrl := pool.Disabled(reg, nil)
	gw := New(ctrl, storage.New(), nil)

	req := httptest.NewRequest(http.MethodGet, "/function/bad id!!/ping", nil)
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAdminDeploy(t *testing.T) {
	reg := registry.New()
	ctrl := pool.Disabled(reg, nil)
	gw := New(ctrl, storage.New(), nil)

	doc := `
id: new-func
memory_limit_mb: 128
trigger_port: 9500
handler_path: /bin/echo
`
	req := httptest.NewRequest(http.MethodPost, "/admin/functions", strings.NewReader(doc))
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}

	id, err := values.NewFunctionId("new-func")
	if err != nil {
		t.Fatalf("NewFunctionId: %v", err)
	}
	if _, err := ctrl.GetConfig(id); err != nil {
		t.Errorf("function not registered after admin deploy: %v", err)
	}
}

func TestAdminDeployRejectsDuplicate(t *testing.T) {
	reg := registry.New()
	ctrl := pool.Disabled(reg, nil)
	cfg := makeConfig(t, "dup-func", 9501)
	if err := ctrl.Register(cfg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	gw := New(ctrl, storage.New(), nil)

	doc := "id: dup-func\nmemory_limit_mb: 128\ntrigger_port: 9502\nhandler_path: /bin/echo\n"
	req := httptest.NewRequest(http.MethodPost, "/admin/functions", strings.NewReader(doc))
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 for duplicate function id", rec.Code)
	}
}

func TestFunctionKnownIDProxies(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("backend:" + r.URL.Path))
	}))
	defer backend.Close()

	reg := registry.New()
	ctrl := pool.Disabled(reg, nil)
	cfg := makeConfig(t, "echo-func", 9999)
	if err := ctrl.Register(cfg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Transition(cfg.ID, fsm.Running); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	gw := New(ctrl, storage.New(), nil)

	// handleFunction proxies to 127.0.0.1:<trigger_port>, which this test
	// doesn't control directly since the backend runs on a random port;
	// it only verifies the routing resolves the function and does not
	// 404/400/503 before attempting (and failing) the proxy dial.
	req := httptest.NewRequest(http.MethodGet, "/function/echo-func/ping", nil)
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)

	if rec.Code == http.StatusNotFound || rec.Code == http.StatusBadRequest || rec.Code == http.StatusServiceUnavailable {
		t.Errorf("status = %d, want neither 404, 400, nor 503 for a known, running function id", rec.Code)
	}
}

func TestFunctionNotYetInvokableReturns503(t *testing.T) {
	reg := registry.New()
	ctrl := pool.Disabled(reg, nil)
	cfg := makeConfig(t, "cold-func", 9998)
	if err := ctrl.Register(cfg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	// Freshly registered functions start Uninitialized, which is not
	// invokable until a Spawn or Restore transitions them.

	gw := New(ctrl, storage.New(), nil)

	req := httptest.NewRequest(http.MethodGet, "/function/cold-func/ping", nil)
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 for a registered but not-yet-invokable function", rec.Code)
	}
}

func TestFunctionSuspendedReturns503(t *testing.T) {
	reg := registry.New()
	ctrl := pool.Disabled(reg, nil)
	cfg := makeConfig(t, "suspended-func", 9997)
	if err := ctrl.Register(cfg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Transition(cfg.ID, fsm.Running); err != nil {
		t.Fatalf("Transition to Running: %v", err)
	}
	if err := reg.Transition(cfg.ID, fsm.Suspended); err != nil {
		t.Fatalf("Transition to Suspended: %v", err)
	}

	gw := New(ctrl, storage.New(), nil)

	req := httptest.NewRequest(http.MethodGet, "/function/suspended-func/ping", nil)
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 for a suspended function", rec.Code)
	}
}
