//go:build linux

// Package pool implements the warm-pool controller: it ties the function
// registry, the CRIU snapshot manager, and spawned handler processes
// together so that a cold function can be brought to a running instance
// either by a fresh spawn or, when a warm snapshot exists, by a bounded
// restore.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ankitkpandey1/aetherless/internal/aethererr"
	"github.com/ankitkpandey1/aetherless/internal/config"
	"github.com/ankitkpandey1/aetherless/internal/fsm"
	"github.com/ankitkpandey1/aetherless/internal/metrics"
	"github.com/ankitkpandey1/aetherless/internal/process"
	"github.com/ankitkpandey1/aetherless/internal/registry"
	"github.com/ankitkpandey1/aetherless/internal/snapshot"
	"github.com/ankitkpandey1/aetherless/internal/values"
)

// Controller owns the registry, the snapshot manager, and the set of
// currently live function processes. One Controller serves the whole
// orchestrator.
type Controller struct {
	registry  *registry.Registry
	snapshots *snapshot.Manager
	socketDir string
	log       *logrus.Logger
	metrics   *metrics.Registry

	mu        sync.Mutex
	processes map[string]*process.Process
}

// Config configures a new Controller.
type Config struct {
	Registry         *registry.Registry
	SnapshotDir      string
	RestoreTimeoutMs uint64
	SocketDir        string
	Logger           *logrus.Logger
}

// New constructs a Controller backed by a real CRIU snapshot manager. It
// fails if the CRIU binary cannot be located (see snapshot.NewManager).
func New(cfg Config) (*Controller, error) {
	mgr, err := snapshot.NewManager(cfg.SnapshotDir, cfg.RestoreTimeoutMs)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Controller{
		registry:  cfg.Registry,
		snapshots: mgr,
		socketDir: cfg.SocketDir,
		log:       logger,
		processes: make(map[string]*process.Process),
	}, nil
}

// Disabled returns a Controller with no backing snapshot manager, for
// deployments that run without warm-pool support (e.g. CRIU unavailable).
// Every snapshot-related operation fails with a Snapshot-kind error;
// Spawn still starts fresh processes.
func Disabled(reg *registry.Registry, logger *logrus.Logger) *Controller {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Controller{
		registry:  reg,
		snapshots: nil,
		processes: make(map[string]*process.Process),
		log:       logger,
	}
}

// SetMetrics attaches a metrics registry that Spawn, CreateSnapshot, and
// Restore report observations to. A nil Controller metrics field (the
// default) means those calls are simply skipped.
func (c *Controller) SetMetrics(m *metrics.Registry) {
	c.metrics = m
}

// Register adds a function to the backing registry.
func (c *Controller) Register(cfg config.FunctionConfig) error {
	return c.registry.Register(cfg)
}

// GetState returns a registered function's current lifecycle state.
func (c *Controller) GetState(id values.FunctionId) (fsm.State, error) {
	return c.registry.GetState(id)
}

// GetConfig returns a registered function's current configuration.
func (c *Controller) GetConfig(id values.FunctionId) (config.FunctionConfig, error) {
	return c.registry.GetConfig(id)
}

// HasSnapshot reports whether a warm snapshot is cached for id.
func (c *Controller) HasSnapshot(id values.FunctionId) bool {
	if c.snapshots == nil {
		return false
	}
	return c.snapshots.HasSnapshot(id)
}

// PoolSize returns how many of the registered functions currently hold a
// cached warm snapshot.
func (c *Controller) PoolSize() int {
	if c.snapshots == nil {
		return 0
	}
	return len(c.snapshots.ListSnapshots())
}

// ListEntries returns the ids of every registered function alongside its
// current lifecycle state.
func (c *Controller) ListEntries() map[values.FunctionId]fsm.State {
	out := make(map[values.FunctionId]fsm.State)
	for _, id := range c.registry.FunctionIDs() {
		state, err := c.registry.GetState(id)
		if err != nil {
			continue
		}
		out[id] = state
	}
	return out
}

// Spawn brings up a fresh handler process for id (cold start): it spawns
// the handler, completes the READY handshake, and transitions the
// function's state machine to Running.
func (c *Controller) Spawn(ctx context.Context, id values.FunctionId) (*process.Process, error) {
	cfg, err := c.registry.GetConfig(id)
	if err != nil {
		return nil, err
	}

	proc, err := process.Spawn(process.SpawnOptions{
		FunctionID:  id,
		HandlerPath: cfg.HandlerPath,
		SocketDir:   c.socketDir,
		TriggerPort: cfg.TriggerPort,
		InstanceID:  uuid.NewString(),
		Environment: cfg.Environment,
	})
	if err != nil {
		return nil, err
	}

	if err := c.registry.Transition(id, fsm.Running); err != nil {
		proc.Close()
		return nil, err
	}

	c.mu.Lock()
	if old, exists := c.processes[id.String()]; exists {
		old.Close()
	}
	c.processes[id.String()] = proc
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.ObserveColdStart(id.String())
	}

	c.log.WithField("function_id", id.String()).Info("spawned fresh handler process")
	return proc, nil
}

// CreateSnapshot dumps the process currently serving id to a fresh CRIU
// snapshot and transitions the function to WarmSnapshot. The process must
// already be Running.
func (c *Controller) CreateSnapshot(ctx context.Context, id values.FunctionId) (snapshot.Metadata, error) {
	if c.snapshots == nil {
		return snapshot.Metadata{}, aethererr.NewSnapshot("CreateSnapshot", id.String(), "warm-pool support is disabled")
	}

	c.mu.Lock()
	proc, ok := c.processes[id.String()]
	c.mu.Unlock()
	if !ok {
		return snapshot.Metadata{}, aethererr.NewRegistryLookup("CreateSnapshot", id.String(), "no running process for function")
	}

	pid, err := values.NewProcessId(proc.PID())
	if err != nil {
		return snapshot.Metadata{}, err
	}

	meta, err := c.snapshots.Dump(ctx, id, pid)
	if err != nil {
		return snapshot.Metadata{}, err
	}

	if err := c.registry.Transition(id, fsm.WarmSnapshot); err != nil {
		return snapshot.Metadata{}, err
	}

	if c.metrics != nil {
		c.metrics.SetWarmPoolSize(id.String(), float64(c.PoolSize()))
	}

	c.log.WithField("function_id", id.String()).Info("created warm snapshot")
	return meta, nil
}

// Restore brings a function up from its cached warm snapshot, enforcing
// the configured restore latency ceiling, and transitions the function to
// Running. Callers should fall back to Spawn on failure.
func (c *Controller) Restore(ctx context.Context, id values.FunctionId) (values.ProcessId, error) {
	if c.snapshots == nil {
		return values.ProcessId{}, aethererr.NewSnapshot("Restore", id.String(), "warm-pool support is disabled")
	}

	start := time.Now()
	pid, err := c.snapshots.Restore(ctx, id)
	elapsed := time.Since(start)
	if err != nil {
		return values.ProcessId{}, err
	}

	if err := c.registry.Transition(id, fsm.Running); err != nil {
		return values.ProcessId{}, err
	}

	if c.metrics != nil {
		c.metrics.ObserveRestore(id.String(), elapsed.Seconds())
		c.metrics.SetWarmPoolSize(id.String(), float64(c.PoolSize()))
	}

	c.log.WithField("function_id", id.String()).Info("restored from warm snapshot")
	return pid, nil
}

// DeleteSnapshot removes a cached snapshot for id, if one exists.
func (c *Controller) DeleteSnapshot(id values.FunctionId) error {
	if c.snapshots == nil {
		return aethererr.NewSnapshot("DeleteSnapshot", id.String(), "warm-pool support is disabled")
	}
	if err := c.snapshots.DeleteSnapshot(id); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.SetWarmPoolSize(id.String(), float64(c.PoolSize()))
	}
	return nil
}

// Suspend kills the tracked process for id (e.g. after an idle timeout)
// and transitions the function to Suspended. A prior warm snapshot, if
// any, is left intact.
func (c *Controller) Suspend(id values.FunctionId) error {
	c.mu.Lock()
	proc, ok := c.processes[id.String()]
	if ok {
		delete(c.processes, id.String())
	}
	c.mu.Unlock()

	if ok {
		proc.Close()
	}

	return c.registry.Transition(id, fsm.Suspended)
}

// Stats returns a point-in-time view of the controller, suitable for
// feeding a stats publisher.
type Stats struct {
	WarmPoolActive bool
	PoolSize       int
	ActiveInstances int
}

// Stats summarizes the controller's current occupancy.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	active := len(c.processes)
	c.mu.Unlock()

	return Stats{
		WarmPoolActive: c.snapshots != nil,
		PoolSize:       c.PoolSize(),
		ActiveInstances: active,
	}
}

func (c *Controller) String() string {
	return fmt.Sprintf("pool.Controller{functions=%d}", c.registry.Len())
}
