//go:build linux

// Package process manages function handler processes: spawning them,
// completing the control-socket READY handshake, and tearing them down.
package process

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/ankitkpandey1/aetherless/internal/aethererr"
	"github.com/ankitkpandey1/aetherless/internal/values"
)

// ReadyTimeout bounds how long Spawn waits for the handler's READY signal.
const ReadyTimeout = 30 * time.Second

// ReadySignal is the exact handshake payload a handler must send.
const ReadySignal = "READY"

// Process wraps a spawned handler: its control socket, its OS process, and
// the accepted control connection (if any).
type Process struct {
	functionID values.FunctionId
	cmd        *exec.Cmd
	socketPath string
	pid        uint32

	mu     sync.Mutex
	stream net.Conn
}

// SpawnOptions configures Spawn beyond the handshake mechanics.
type SpawnOptions struct {
	FunctionID    values.FunctionId
	HandlerPath   values.HandlerPath
	SocketDir     string
	TriggerPort   values.Port
	InstanceID    string
	Environment   map[string]string
}

// Spawn creates a control socket, launches the handler process with the
// environment the spec names, and blocks until the handler connects and
// sends the 5-byte READY signal. The connection must arrive within
// ReadyTimeout and the signal within 5 seconds of connecting; otherwise the
// child is killed and a Snapshot-kind error is returned.
func Spawn(opts SpawnOptions) (*Process, error) {
	socketPath := filepath.Join(opts.SocketDir, opts.FunctionID.String()+".sock")
	os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, aethererr.WrapSnapshot("Spawn", opts.FunctionID.String(), "failed to bind control socket", err)
	}
	defer listener.Close()

	if unixListener, ok := listener.(*net.UnixListener); ok {
		unixListener.SetDeadline(time.Now().Add(ReadyTimeout))
	}

	name := opts.HandlerPath.Path()
	var cmd *exec.Cmd
	if opts.HandlerPath.IsScript() {
		cmd = exec.Command("python3", name)
	} else {
		cmd = exec.Command(name)
	}

	env := os.Environ()
	for k, v := range opts.Environment {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	env = append(env,
		"AETHER_SOCKET="+socketPath,
		"AETHER_FUNCTION_ID="+opts.FunctionID.String(),
		"AETHER_TRIGGER_PORT="+strconv.FormatUint(uint64(opts.TriggerPort.Value()), 10),
	)
	if opts.InstanceID != "" {
		env = append(env, "AETHER_INSTANCE_ID="+opts.InstanceID)
	}
	cmd.Env = env
	cmd.Stdin = nil
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, aethererr.WrapSnapshot("Spawn", opts.FunctionID.String(),
			fmt.Sprintf("failed to spawn %s", name), err)
	}

	pid := uint32(cmd.Process.Pid)

	stream, err := waitForReady(listener)
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		os.Remove(socketPath)
		return nil, aethererr.WrapSnapshot("Spawn", opts.FunctionID.String(), "process did not send READY signal within timeout", err)
	}

	return &Process{
		functionID: opts.FunctionID,
		cmd:        cmd,
		socketPath: socketPath,
		pid:        pid,
		stream:     stream,
	}, nil
}

func waitForReady(listener net.Listener) (net.Conn, error) {
	conn, err := listener.Accept()
	if err != nil {
		return nil, err
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if n < len(ReadySignal) || string(buf[:len(ReadySignal)]) != ReadySignal {
		conn.Close()
		return nil, fmt.Errorf("unexpected handshake payload")
	}
	conn.SetReadDeadline(time.Time{})
	return conn, nil
}

func (p *Process) PID() uint32                   { return p.pid }
func (p *Process) FunctionID() values.FunctionId { return p.functionID }
func (p *Process) SocketPath() string            { return p.socketPath }

// Send writes message to the process's accepted control connection.
func (p *Process) Send(message []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return aethererr.NewSnapshot("Send", p.functionID.String(), "no connection to process")
	}
	if _, err := p.stream.Write(message); err != nil {
		return aethererr.WrapSnapshot("Send", p.functionID.String(), "send failed", err)
	}
	return nil
}

// IsRunning reports whether the underlying OS process is still alive.
func (p *Process) IsRunning() bool {
	if p.cmd.Process == nil {
		return false
	}
	return p.cmd.Process.Signal(syscall.Signal(0)) == nil
}

// Kill terminates and reaps the handler process.
func (p *Process) Kill() error {
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
		p.cmd.Wait()
	}
	return nil
}

// Close releases the process's resources: it kills the child if still
// running, closes the control connection, and removes the socket file.
func (p *Process) Close() error {
	p.mu.Lock()
	if p.stream != nil {
		p.stream.Close()
		p.stream = nil
	}
	p.mu.Unlock()

	p.Kill()
	return os.Remove(p.socketPath)
}
