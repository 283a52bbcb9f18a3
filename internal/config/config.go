// Package config loads and validates the orchestrator's YAML configuration
// document, converting raw decoded fields into the value types in
// internal/values. It also resolves the orchestrator's home directory,
// adapted from the teacher's DH_HOME precedence rule.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ankitkpandey1/aetherless/internal/aethererr"
	"github.com/ankitkpandey1/aetherless/internal/values"
)

const (
	defaultShmBufferSize   = 4 * 1024 * 1024
	defaultWarmPoolSize    = 10
	defaultRestoreTimeout  = 15
	defaultSnapshotDir     = "/dev/shm/aetherless"
	defaultFunctionTimeout = 30_000

	minShmBufferSize = 64 * 1024
	maxShmBufferSize = 1024 * 1024 * 1024
	maxWarmPoolSize  = 1000
	maxRestoreTimeMs = 100
	maxTimeoutMs     = 900_000
)

// FunctionConfig is the validated configuration for one function. It is
// immutable once constructed.
type FunctionConfig struct {
	ID          values.FunctionId
	MemoryLimit values.MemoryLimit
	TriggerPort values.Port
	HandlerPath values.HandlerPath
	Environment map[string]string
	TimeoutMs   uint64
}

// OrchestratorConfig is the validated global configuration.
type OrchestratorConfig struct {
	ShmBufferSize    int
	WarmPoolSize     int
	RestoreTimeoutMs uint64
	SnapshotDir      string
}

// Config is the complete validated configuration document.
type Config struct {
	Orchestrator OrchestratorConfig
	Functions    []FunctionConfig
}

type rawFunctionConfig struct {
	ID          string            `yaml:"id"`
	MemoryMB    uint64            `yaml:"memory_limit_mb"`
	TriggerPort uint16            `yaml:"trigger_port"`
	HandlerPath string            `yaml:"handler_path"`
	Environment map[string]string `yaml:"environment"`
	TimeoutMs   uint64            `yaml:"timeout_ms"`
}

type rawOrchestratorConfig struct {
	ShmBufferSize    int    `yaml:"shm_buffer_size"`
	WarmPoolSize     int    `yaml:"warm_pool_size"`
	RestoreTimeoutMs uint64 `yaml:"restore_timeout_ms"`
	SnapshotDir      string `yaml:"snapshot_dir"`
}

type rawConfig struct {
	Orchestrator rawOrchestratorConfig `yaml:"orchestrator"`
	Functions    []rawFunctionConfig   `yaml:"functions"`
}

func (r *rawOrchestratorConfig) applyDefaults() {
	if r.ShmBufferSize == 0 {
		r.ShmBufferSize = defaultShmBufferSize
	}
	if r.WarmPoolSize == 0 {
		r.WarmPoolSize = defaultWarmPoolSize
	}
	if r.RestoreTimeoutMs == 0 {
		r.RestoreTimeoutMs = defaultRestoreTimeout
	}
	if r.SnapshotDir == "" {
		r.SnapshotDir = defaultSnapshotDir
	}
}

func (r *rawFunctionConfig) applyDefaults() {
	if r.TimeoutMs == 0 {
		r.TimeoutMs = defaultFunctionTimeout
	}
	if r.Environment == nil {
		r.Environment = map[string]string{}
	}
}

// configDirOverride is set by the --config-dir flag.
var configDirOverride string

// SetConfigDir allows the CLI to override the home directory resolved by
// Home() (analogous to the teacher's SetConfigDir for DH_HOME).
func SetConfigDir(dir string) {
	configDirOverride = dir
}

// Home returns the orchestrator's home directory. Precedence: --config-dir
// flag / SetConfigDir > AETHERLESS_HOME env > ~/.aetherless.
func Home() string {
	if configDirOverride != "" {
		return configDirOverride
	}
	if v := os.Getenv("AETHERLESS_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".aetherless")
	}
	return filepath.Join(home, ".aetherless")
}

// LoadFile reads and validates configuration from a YAML file on disk.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, aethererr.Wrap("LoadFile", aethererr.KindSystem, "",
			fmt.Sprintf("configuration file not found: %s", path), err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, aethererr.NewSystem("LoadFile", "reading config file", err)
	}

	return LoadString(content)
}

// LoadString parses and validates configuration from raw YAML bytes.
func LoadString(content []byte) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, aethererr.Wrap("LoadString", aethererr.KindHardValidation, "",
			fmt.Sprintf("YAML parse error: %v", err), err)
	}
	return validate(raw)
}

func validate(raw rawConfig) (*Config, error) {
	orchestrator, err := validateOrchestrator(raw.Orchestrator)
	if err != nil {
		return nil, err
	}

	functions := make([]FunctionConfig, 0, len(raw.Functions))
	seenIDs := make(map[string]struct{}, len(raw.Functions))
	seenPorts := make(map[uint16]struct{}, len(raw.Functions))

	for i, rf := range raw.Functions {
		fc, err := validateFunction(rf, i)
		if err != nil {
			return nil, err
		}

		idStr := fc.ID.String()
		if _, dup := seenIDs[idStr]; dup {
			return nil, aethererr.NewHardValidation("validate", "id", idStr, "duplicate function ID")
		}
		seenIDs[idStr] = struct{}{}

		port := fc.TriggerPort.Value()
		if _, dup := seenPorts[port]; dup {
			return nil, aethererr.NewHardValidation("validate", "trigger_port", fmt.Sprintf("%d", port),
				fmt.Sprintf("port %d is already used by another function", port))
		}
		seenPorts[port] = struct{}{}

		functions = append(functions, fc)
	}

	if len(functions) == 0 {
		return nil, aethererr.New("validate", aethererr.KindHardValidation, "", "at least one function must be defined")
	}

	return &Config{Orchestrator: *orchestrator, Functions: functions}, nil
}

func validateOrchestrator(raw rawOrchestratorConfig) (*OrchestratorConfig, error) {
	raw.applyDefaults()

	if raw.ShmBufferSize < minShmBufferSize || raw.ShmBufferSize > maxShmBufferSize {
		return nil, aethererr.NewHardValidation("validateOrchestrator", "shm_buffer_size",
			fmt.Sprintf("%d", raw.ShmBufferSize),
			fmt.Sprintf("must be in range [%d, %d]", minShmBufferSize, maxShmBufferSize))
	}
	if raw.WarmPoolSize < 1 || raw.WarmPoolSize > maxWarmPoolSize {
		return nil, aethererr.NewHardValidation("validateOrchestrator", "warm_pool_size",
			fmt.Sprintf("%d", raw.WarmPoolSize), fmt.Sprintf("must be in range [1, %d]", maxWarmPoolSize))
	}
	if raw.RestoreTimeoutMs > maxRestoreTimeMs {
		return nil, aethererr.NewHardValidation("validateOrchestrator", "restore_timeout_ms",
			fmt.Sprintf("%d", raw.RestoreTimeoutMs), fmt.Sprintf("must be at most %d", maxRestoreTimeMs))
	}

	return &OrchestratorConfig{
		ShmBufferSize:    raw.ShmBufferSize,
		WarmPoolSize:     raw.WarmPoolSize,
		RestoreTimeoutMs: raw.RestoreTimeoutMs,
		SnapshotDir:      filepath.Clean(raw.SnapshotDir),
	}, nil
}

// ValidateFunctionDocument parses and validates a single function
// definition from raw YAML (or JSON, a YAML subset) bytes, for use by
// callers that hot-deploy one function at a time rather than loading a
// full orchestrator configuration document.
func ValidateFunctionDocument(content []byte) (FunctionConfig, error) {
	var raw rawFunctionConfig
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return FunctionConfig{}, aethererr.Wrap("ValidateFunctionDocument", aethererr.KindHardValidation, "",
			fmt.Sprintf("YAML parse error: %v", err), err)
	}
	return validateFunction(raw, 0)
}

func validateFunction(raw rawFunctionConfig, index int) (FunctionConfig, error) {
	raw.applyDefaults()

	id, err := values.NewFunctionId(raw.ID)
	if err != nil {
		return FunctionConfig{}, err
	}

	memLimit, err := values.NewMemoryLimitMB(raw.MemoryMB)
	if err != nil {
		return FunctionConfig{}, err
	}

	port, err := values.NewPort(raw.TriggerPort)
	if err != nil {
		return FunctionConfig{}, err
	}

	if raw.HandlerPath == "" {
		return FunctionConfig{}, aethererr.NewHardValidation("validateFunction", "handler_path",
			"", fmt.Sprintf("function at index %d is missing handler_path", index))
	}
	handler := values.NewHandlerPathUnchecked(raw.HandlerPath)

	if raw.TimeoutMs == 0 || raw.TimeoutMs > maxTimeoutMs {
		return FunctionConfig{}, aethererr.NewHardValidation("validateFunction", "timeout_ms",
			fmt.Sprintf("%d", raw.TimeoutMs), fmt.Sprintf("must be in range (0, %d]", maxTimeoutMs))
	}

	return FunctionConfig{
		ID:          id,
		MemoryLimit: memLimit,
		TriggerPort: port,
		HandlerPath: handler,
		Environment: raw.Environment,
		TimeoutMs:   raw.TimeoutMs,
	}, nil
}
