//go:build linux

package process

import (
	"net"
	"testing"
	"time"
)

func TestWaitForReadySuccess(t *testing.T) {
	dir := t.TempDir()
	listener, err := net.Listen("unix", dir+"/test.sock")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer listener.Close()

	go func() {
		conn, err := net.Dial("unix", dir+"/test.sock")
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte(ReadySignal))
	}()

	conn, err := waitForReady(listener)
	if err != nil {
		t.Fatalf("waitForReady: %v", err)
	}
	defer conn.Close()
}

func TestWaitForReadyBadPayload(t *testing.T) {
	dir := t.TempDir()
	listener, err := net.Listen("unix", dir+"/test.sock")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer listener.Close()

	go func() {
		conn, err := net.Dial("unix", dir+"/test.sock")
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("NOPE!"))
	}()

	time.Sleep(50 * time.Millisecond)
	if _, err := waitForReady(listener); err == nil {
		t.Errorf("waitForReady() with bad payload = nil, want error")
	}
}
