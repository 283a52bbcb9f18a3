package config

import "testing"

func validYAML() []byte {
	return []byte(`
orchestrator:
  shm_buffer_size: 4194304
  warm_pool_size: 10
  restore_timeout_ms: 15
  snapshot_dir: /dev/shm/aetherless
functions:
  - id: f1
    memory_limit_mb: 128
    trigger_port: 8080
    handler_path: /bin/echo
  - id: f2
    memory_limit_mb: 256
    trigger_port: 8081
    handler_path: /bin/echo
`)
}

func TestLoadStringValid(t *testing.T) {
	cfg, err := LoadString(validYAML())
	if err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	if len(cfg.Functions) != 2 {
		t.Fatalf("len(Functions) = %d, want 2", len(cfg.Functions))
	}
	if cfg.Orchestrator.WarmPoolSize != 10 {
		t.Errorf("WarmPoolSize = %d, want 10", cfg.Orchestrator.WarmPoolSize)
	}
}

func TestLoadStringDuplicatePorts(t *testing.T) {
	content := []byte(`
functions:
  - id: f1
    memory_limit_mb: 128
    trigger_port: 8080
    handler_path: /bin/echo
  - id: f2
    memory_limit_mb: 128
    trigger_port: 8080
    handler_path: /bin/echo
`)
	if _, err := LoadString(content); err == nil {
		t.Errorf("LoadString with duplicate ports = nil, want error")
	}
}

func TestLoadStringDuplicateIDs(t *testing.T) {
	content := []byte(`
functions:
  - id: f1
    memory_limit_mb: 128
    trigger_port: 8080
    handler_path: /bin/echo
  - id: f1
    memory_limit_mb: 128
    trigger_port: 8081
    handler_path: /bin/echo
`)
	if _, err := LoadString(content); err == nil {
		t.Errorf("LoadString with duplicate ids = nil, want error")
	}
}

func TestLoadStringNoFunctions(t *testing.T) {
	if _, err := LoadString([]byte(`functions: []`)); err == nil {
		t.Errorf("LoadString with no functions = nil, want error")
	}
}

func TestLoadStringDefaultsApplied(t *testing.T) {
	content := []byte(`
functions:
  - id: f1
    memory_limit_mb: 128
    trigger_port: 8080
    handler_path: /bin/echo
`)
	cfg, err := LoadString(content)
	if err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	if cfg.Orchestrator.ShmBufferSize != defaultShmBufferSize {
		t.Errorf("ShmBufferSize = %d, want default %d", cfg.Orchestrator.ShmBufferSize, defaultShmBufferSize)
	}
	if cfg.Functions[0].TimeoutMs != defaultFunctionTimeout {
		t.Errorf("TimeoutMs = %d, want default %d", cfg.Functions[0].TimeoutMs, defaultFunctionTimeout)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	if _, err := LoadFile("/nonexistent/aetherless.yaml"); err == nil {
		t.Errorf("LoadFile on missing path = nil, want error")
	}
}
