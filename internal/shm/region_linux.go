//go:build linux

// Package shm implements POSIX shared-memory regions and the lock-free SPSC
// ring buffer layered over them.
package shm

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ankitkpandey1/aetherless/internal/aethererr"
)

// MinSize and MaxSize bound a region's byte size.
const (
	MinSize = 4096
	MaxSize = 1024 * 1024 * 1024
)

// Region is a mapped POSIX shared-memory region. It owns its mapping and
// exposes no synchronization of its own — the ring buffer layered over it
// provides all cross-process visibility guarantees via atomics.
type Region struct {
	name    string
	data    []byte
	fd      int
	isOwner bool
}

// Create creates a new named shared-memory region of the given size,
// zero-filling it. The caller becomes the owner and will unlink the
// region's backing object when Close is called.
func Create(name string, size int) (*Region, error) {
	if size < MinSize || size > MaxSize {
		return nil, aethererr.NewSharedMemory("Create",
			fmt.Sprintf("region size %d outside [%d, %d]", size, MinSize, MaxSize))
	}
	if name == "" {
		return nil, aethererr.NewSharedMemory("Create", "name cannot be empty")
	}

	shmName := "/" + name
	fd, err := unix.ShmOpen(shmName, unix.O_CREAT|unix.O_RDWR|unix.O_EXCL, 0o600)
	if err != nil {
		if err == unix.EEXIST {
			return nil, aethererr.WrapSharedMemory("Create", "shared memory already exists", err)
		}
		return nil, aethererr.WrapSharedMemory("Create", "shm_open failed", err)
	}

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		unix.ShmUnlink(shmName)
		return nil, aethererr.WrapSharedMemory("Create", "ftruncate failed", err)
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		unix.ShmUnlink(shmName)
		return nil, aethererr.WrapSharedMemory("Create", "mmap failed", err)
	}

	for i := range data {
		data[i] = 0
	}

	return &Region{name: name, data: data, fd: fd, isOwner: true}, nil
}

// Open attaches to an existing named shared-memory region without
// reinitializing its contents.
func Open(name string, size int) (*Region, error) {
	if size < MinSize || size > MaxSize {
		return nil, aethererr.NewSharedMemory("Open", fmt.Sprintf("invalid size: %d", size))
	}

	shmName := "/" + name
	fd, err := unix.ShmOpen(shmName, unix.O_RDWR, 0)
	if err != nil {
		return nil, aethererr.WrapSharedMemory("Open", "shm_open failed", err)
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, aethererr.WrapSharedMemory("Open", "mmap failed", err)
	}

	return &Region{name: name, data: data, fd: fd, isOwner: false}, nil
}

func (r *Region) Name() string { return r.name }
func (r *Region) Size() int    { return len(r.data) }

// Bytes returns the region's raw backing slice. Callers must coordinate
// access themselves (via the ring buffer's framed protocol and atomics);
// the region performs no synchronization.
func (r *Region) Bytes() []byte { return r.data }

// ptr returns the base address of the mapping, used by the ring buffer to
// build atomic views over the header.
func (r *Region) ptr() unsafe.Pointer {
	if len(r.data) == 0 {
		return nil
	}
	return unsafe.Pointer(&r.data[0])
}

// Close unmaps the region and, if this instance is the owner, unlinks the
// backing shared-memory object.
func (r *Region) Close() error {
	if err := unix.Munmap(r.data); err != nil {
		return aethererr.WrapSharedMemory("Close", "munmap failed", err)
	}
	unix.Close(r.fd)

	if r.isOwner {
		unix.ShmUnlink("/" + r.name)
	}
	return nil
}
