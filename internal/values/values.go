// Package values implements the orchestrator's parse-don't-validate scalar
// types. Each type validates its invariant once at construction; once
// constructed, the invariant holds for the value's lifetime.
package values

import (
	"fmt"
	"os"
	"strings"

	"github.com/ankitkpandey1/aetherless/internal/aethererr"
)

const (
	minMemoryLimit = 1024 * 1024
	maxMemoryLimit = 16 * 1024 * 1024 * 1024
	maxIDLength    = 64
)

// FunctionId is a validated function identifier: non-empty, at most 64
// bytes, charset [A-Za-z0-9_-].
type FunctionId struct {
	value string
}

func NewFunctionId(id string) (FunctionId, error) {
	if id == "" {
		return FunctionId{}, aethererr.NewHardValidation("FunctionId", "function_id", id, "function ID cannot be empty")
	}
	if len(id) > maxIDLength {
		return FunctionId{}, aethererr.NewHardValidation("FunctionId", "function_id", id,
			fmt.Sprintf("function ID too long: %d chars (max %d)", len(id), maxIDLength))
	}
	for _, r := range id {
		if !isIDChar(r) {
			return FunctionId{}, aethererr.NewHardValidation("FunctionId", "function_id", id,
				"function ID must contain only alphanumeric characters, hyphens, and underscores")
		}
	}
	return FunctionId{value: id}, nil
}

func isIDChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	default:
		return false
	}
}

func (f FunctionId) String() string { return f.value }

// Port is a validated network port in [1, 65535]; 0 is reserved.
type Port struct {
	value uint16
}

func NewPort(port uint16) (Port, error) {
	if port == 0 {
		return Port{}, aethererr.NewHardValidation("Port", "trigger_port", "0", "port 0 is reserved and cannot be used")
	}
	return Port{value: port}, nil
}

func (p Port) Value() uint16  { return p.value }
func (p Port) String() string { return fmt.Sprintf("%d", p.value) }

// MemoryLimit is a validated byte count in [1 MiB, 16 GiB].
type MemoryLimit struct {
	bytes uint64
}

func NewMemoryLimit(bytes uint64) (MemoryLimit, error) {
	if bytes < minMemoryLimit || bytes > maxMemoryLimit {
		return MemoryLimit{}, aethererr.New("MemoryLimit", aethererr.KindHardValidation, "",
			fmt.Sprintf("memory limit out of bounds: %d bytes (min: %d, max: %d)", bytes, minMemoryLimit, maxMemoryLimit))
	}
	return MemoryLimit{bytes: bytes}, nil
}

func NewMemoryLimitMB(mb uint64) (MemoryLimit, error) {
	return NewMemoryLimit(mb * 1024 * 1024)
}

func (m MemoryLimit) Bytes() uint64     { return m.bytes }
func (m MemoryLimit) Megabytes() uint64 { return m.bytes / (1024 * 1024) }
func (m MemoryLimit) String() string    { return fmt.Sprintf("%dMB", m.Megabytes()) }

// HandlerPath is a validated handler executable path. When strict-checked
// via NewHandlerPath, the path must exist and have some execute bit set.
// NewHandlerPathUnchecked skips validation for trusted or test-only paths.
type HandlerPath struct {
	path string
}

func NewHandlerPath(path string) (HandlerPath, error) {
	info, err := os.Stat(path)
	if err != nil {
		return HandlerPath{}, aethererr.New("HandlerPath", aethererr.KindHardValidation, "",
			fmt.Sprintf("handler path does not exist: %s", path))
	}
	if info.Mode().Perm()&0o111 == 0 {
		return HandlerPath{}, aethererr.New("HandlerPath", aethererr.KindHardValidation, "",
			fmt.Sprintf("handler path is not executable: %s", path))
	}
	return HandlerPath{path: path}, nil
}

func NewHandlerPathUnchecked(path string) HandlerPath {
	return HandlerPath{path: path}
}

func (h HandlerPath) Path() string   { return h.path }
func (h HandlerPath) String() string { return h.path }

// IsScript reports whether the handler should be launched through an
// interpreter (currently: Python scripts).
func (h HandlerPath) IsScript() bool {
	return strings.HasSuffix(h.path, ".py")
}

// ProcessId is a validated, non-zero process id.
type ProcessId struct {
	value uint32
}

func NewProcessId(pid uint32) (ProcessId, error) {
	if pid == 0 {
		return ProcessId{}, aethererr.NewHardValidation("ProcessId", "process_id", "0", "process ID 0 is reserved")
	}
	return ProcessId{value: pid}, nil
}

func (p ProcessId) Value() uint32  { return p.value }
func (p ProcessId) String() string { return fmt.Sprintf("%d", p.value) }
