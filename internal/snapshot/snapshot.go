//go:build linux

// Package snapshot drives the external checkpoint/restore tool (CRIU) to
// dump a running handler process to a directory and later restore it under
// a hard latency budget.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ankitkpandey1/aetherless/internal/aethererr"
	"github.com/ankitkpandey1/aetherless/internal/values"
)

// DefaultRestoreTimeoutMs is the default hard ceiling on restore wall-clock
// latency.
const DefaultRestoreTimeoutMs = 15

// DumpDirPrefix names the per-function snapshot directory:
// <snapshot_dir>/<DumpDirPrefix>_<function_id>/.
const DumpDirPrefix = "criu_dump"

var criuCandidates = []string{
	"/usr/sbin/criu",
	"/usr/bin/criu",
	"/sbin/criu",
	"/bin/criu",
	"/usr/local/sbin/criu",
	"/usr/local/bin/criu",
}

// Metadata describes a cached, successfully dumped snapshot.
type Metadata struct {
	FunctionID  values.FunctionId
	Path        string
	OriginalPID values.ProcessId
	CreatedAt   time.Time
}

// Manager drives CRIU dump/restore operations and enforces the restore
// latency ceiling. One Manager instance serves the whole orchestrator;
// concurrent dumps for the same function id are not permitted, and Manager
// itself does not serialize them.
type Manager struct {
	criuPath         string
	snapshotDir      string
	restoreTimeoutMs uint64

	mu        sync.RWMutex
	snapshots map[string]Metadata
}

// NewManager discovers the CRIU binary once (fatal if absent) and returns a
// Manager rooted at snapshotDir.
func NewManager(snapshotDir string, restoreTimeoutMs uint64) (*Manager, error) {
	path, err := discoverCriu()
	if err != nil {
		return nil, err
	}
	if restoreTimeoutMs == 0 {
		restoreTimeoutMs = DefaultRestoreTimeoutMs
	}
	if err := os.MkdirAll(snapshotDir, 0o755); err != nil {
		return nil, aethererr.NewSystem("NewManager", "creating snapshot directory", err)
	}
	return &Manager{
		criuPath:         path,
		snapshotDir:      snapshotDir,
		restoreTimeoutMs: restoreTimeoutMs,
		snapshots:        make(map[string]Metadata),
	}, nil
}

func discoverCriu() (string, error) {
	for _, candidate := range criuCandidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	if path, err := exec.LookPath("criu"); err == nil {
		return path, nil
	}
	return "", aethererr.New("discoverCriu", aethererr.KindSnapshot, "", "CRIU binary not found at expected path")
}

func (m *Manager) dumpPath(id values.FunctionId) string {
	return filepath.Join(m.snapshotDir, fmt.Sprintf("%s_%s", DumpDirPrefix, id.String()))
}

// Dump checkpoints the running process pid to a fresh snapshot directory,
// removing any prior snapshot for the same function id.
func (m *Manager) Dump(ctx context.Context, id values.FunctionId, pid values.ProcessId) (Metadata, error) {
	dumpPath := m.dumpPath(id)

	if err := os.RemoveAll(dumpPath); err != nil {
		return Metadata{}, aethererr.WrapSnapshot("Dump", id.String(), "failed to remove old dump directory", err)
	}
	if err := os.MkdirAll(dumpPath, 0o755); err != nil {
		return Metadata{}, aethererr.WrapSnapshot("Dump", id.String(), "failed to create dump directory", err)
	}

	cmd := exec.CommandContext(ctx, m.criuPath,
		"dump",
		"-t", strconv.FormatUint(uint64(pid.Value()), 10),
		"-D", dumpPath,
		"-j", "--shell-job",
		"-v4",
		"--tcp-established",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Metadata{}, aethererr.WrapSnapshot("Dump", id.String(),
			fmt.Sprintf("CRIU dump failed: %s", strings.TrimSpace(stderr.String())), err)
	}

	meta := Metadata{
		FunctionID:  id,
		Path:        dumpPath,
		OriginalPID: pid,
		CreatedAt:   time.Now(),
	}

	m.mu.Lock()
	m.snapshots[id.String()] = meta
	m.mu.Unlock()

	return meta, nil
}

// Restore restores a prior snapshot, killing the restored process if the
// restore exceeds the configured latency ceiling. The latency check
// precedes the command-success check, so a slow success is still a
// violation.
func (m *Manager) Restore(ctx context.Context, id values.FunctionId) (values.ProcessId, error) {
	meta, err := m.GetMetadata(id)
	if err != nil {
		return values.ProcessId{}, err
	}

	pidFile := filepath.Join(meta.Path, "restored.pid")
	os.Remove(pidFile)

	start := time.Now()
	cmd := exec.CommandContext(ctx, m.criuPath,
		"restore",
		"-D", meta.Path,
		"-j", "--shell-job",
		"-d",
		"--pidfile", pidFile,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	elapsedMs := uint64(time.Since(start).Milliseconds())

	if elapsedMs > m.restoreTimeoutMs {
		if pid, pidErr := readPidFile(pidFile); pidErr == nil {
			killProcess(pid)
		}
		return values.ProcessId{}, &aethererr.LatencyViolation{
			FunctionID: id.String(),
			ActualMs:   elapsedMs,
			LimitMs:    m.restoreTimeoutMs,
		}
	}

	if runErr != nil {
		return values.ProcessId{}, aethererr.WrapSnapshot("Restore", id.String(),
			fmt.Sprintf("CRIU restore failed: %s", strings.TrimSpace(stderr.String())), runErr)
	}

	rawPid, err := readPidFile(pidFile)
	if err != nil {
		return values.ProcessId{}, aethererr.WrapSnapshot("Restore", id.String(), "failed to read restored pidfile", err)
	}

	return values.NewProcessId(rawPid)
}

func readPidFile(path string) (uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(pid), nil
}

func killProcess(pid uint32) {
	exec.Command("kill", "-9", strconv.FormatUint(uint64(pid), 10)).Run()
}

// HasSnapshot reports whether a cached snapshot exists for id.
func (m *Manager) HasSnapshot(id values.FunctionId) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.snapshots[id.String()]
	return ok
}

// GetMetadata returns the cached metadata for id, failing with a Snapshot
// error if none exists.
func (m *Manager) GetMetadata(id values.FunctionId) (Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.snapshots[id.String()]
	if !ok {
		return Metadata{}, aethererr.NewSnapshot("GetMetadata", id.String(), "snapshot not found")
	}
	return meta, nil
}

// ListSnapshots returns metadata for every cached snapshot.
func (m *Manager) ListSnapshots() []Metadata {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Metadata, 0, len(m.snapshots))
	for _, meta := range m.snapshots {
		out = append(out, meta)
	}
	return out
}

// DeleteSnapshot removes a function's on-disk snapshot and cached metadata.
func (m *Manager) DeleteSnapshot(id values.FunctionId) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	meta, ok := m.snapshots[id.String()]
	if !ok {
		return aethererr.NewSnapshot("DeleteSnapshot", id.String(), "snapshot not found")
	}
	if err := os.RemoveAll(meta.Path); err != nil {
		return aethererr.WrapSnapshot("DeleteSnapshot", id.String(), "failed to remove snapshot directory", err)
	}
	delete(m.snapshots, id.String())
	return nil
}
