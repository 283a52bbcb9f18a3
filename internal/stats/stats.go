// Package stats publishes a point-in-time snapshot of orchestrator state
// to a JSON file on a fixed cadence, so external tooling (a CLI, a
// dashboard) can read current status without a control-plane round trip.
package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ankitkpandey1/aetherless/internal/aethererr"
)

// FunctionStatus is one function's point-in-time status.
type FunctionStatus struct {
	ID            string  `json:"id"`
	State         string  `json:"state"`
	PID           *uint32 `json:"pid,omitempty"`
	Port          uint16  `json:"port"`
	MemoryMB      uint64  `json:"memory_mb"`
	RestoreCount  uint64  `json:"restore_count"`
	LastRestoreMs *uint64 `json:"last_restore_ms,omitempty"`
}

// Snapshot is the complete published document.
type Snapshot struct {
	Functions      map[string]FunctionStatus `json:"functions"`
	ShmLatencyUs   uint64                    `json:"shm_latency_us"`
	ActiveInstances int                      `json:"active_instances"`
	WarmPoolActive bool                      `json:"warm_pool_active"`
}

// emptySnapshot returns a Snapshot with an initialized (non-nil) map, so
// it serializes as `{}` rather than `null` for an empty function set.
func emptySnapshot() Snapshot {
	return Snapshot{Functions: make(map[string]FunctionStatus)}
}

// DefaultCadence is how often Publisher writes a fresh snapshot when run
// via Run.
const DefaultCadence = 100 * time.Millisecond

// Publisher atomically writes Snapshot documents to a fixed path: each
// publish writes to a temp file in the same directory and renames it over
// the target, so readers never observe a partially written document.
type Publisher struct {
	path string

	mu       sync.Mutex
	current  Snapshot
	provider func() Snapshot
}

// NewPublisher creates a Publisher that writes to path. provider is called
// on each Publish to produce the snapshot to write.
func NewPublisher(path string, provider func() Snapshot) *Publisher {
	return &Publisher{
		path:     path,
		current:  emptySnapshot(),
		provider: provider,
	}
}

// Publish computes a fresh snapshot via the provider and writes it
// atomically to the publisher's path.
func (p *Publisher) Publish() error {
	snap := p.provider()

	p.mu.Lock()
	p.current = snap
	p.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return aethererr.NewSystem("Publish", "marshaling stats snapshot", err)
	}

	dir := filepath.Dir(p.path)
	tmp, err := os.CreateTemp(dir, ".stats-*.tmp")
	if err != nil {
		return aethererr.NewSystem("Publish", "creating temp stats file", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return aethererr.NewSystem("Publish", "writing temp stats file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return aethererr.NewSystem("Publish", "closing temp stats file", err)
	}

	if err := os.Rename(tmpPath, p.path); err != nil {
		os.Remove(tmpPath)
		return aethererr.NewSystem("Publish", "renaming temp stats file into place", err)
	}

	return nil
}

// Current returns the last snapshot successfully computed by Publish.
func (p *Publisher) Current() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Run publishes on cadence until stop is closed. It publishes once
// immediately before entering the ticking loop.
func (p *Publisher) Run(stop <-chan struct{}, cadence time.Duration) {
	if cadence <= 0 {
		cadence = DefaultCadence
	}
	p.Publish()

	ticker := time.NewTicker(cadence)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.Publish()
		}
	}
}
