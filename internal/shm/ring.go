//go:build linux

package shm

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/ankitkpandey1/aetherless/internal/aethererr"
)

// HeaderSize is the byte size of the ring buffer header (head, tail,
// capacity, each a little-endian u64 in shared memory).
const HeaderSize = 24

// EntryAlignment is the alignment, in bytes, of every framed entry.
const EntryAlignment = 8

// EntryHeaderSize is the byte size of the per-entry header (length +
// checksum, each a u32).
const EntryHeaderSize = 8

// maxPayloadSize bounds a single ring buffer payload (§4.4 payload
// validator).
const maxPayloadSize = 16 * 1024 * 1024

// header is the atomic triple stored at offset 0 of the region. It must
// never be copied; Ring keeps pointers directly into the mapped memory.
type header struct {
	head     atomic.Uint64
	tail     atomic.Uint64
	capacity atomic.Uint64
}

// Ring is a lock-free, single-producer single-consumer framed byte queue
// layered over a Region. Exactly one producer and one consumer may use a
// given Ring; bidirectional communication requires two Rings.
type Ring struct {
	region *Region
	hdr    *header
	data   []byte
}

// New initializes a fresh ring buffer header in region and returns a Ring
// bound to it. The caller must be the region's sole writer at this point.
func New(region *Region) (*Ring, error) {
	size := region.Size()
	if size < HeaderSize+64 {
		return nil, aethererr.NewSharedMemory("New", fmt.Sprintf("region too small: %d bytes", size))
	}

	r := newRing(region)
	r.hdr.head.Store(0)
	r.hdr.tail.Store(0)
	r.hdr.capacity.Store(uint64(size - HeaderSize))
	return r, nil
}

// Open attaches to an existing ring buffer header without reinitializing.
func Open(region *Region) (*Ring, error) {
	size := region.Size()
	if size < HeaderSize+64 {
		return nil, aethererr.NewSharedMemory("Open", fmt.Sprintf("region too small: %d bytes", size))
	}
	return newRing(region), nil
}

func newRing(region *Region) *Ring {
	base := region.ptr()
	return &Ring{
		region: region,
		hdr:    (*header)(base),
		data:   region.Bytes()[HeaderSize:],
	}
}

func (r *Ring) Capacity() int {
	return int(r.hdr.capacity.Load())
}

func (r *Ring) head() uint64 { return r.hdr.head.Load() }
func (r *Ring) tail() uint64 { return r.hdr.tail.Load() }

// AvailableSpace returns the number of bytes currently free for writing.
func (r *Ring) AvailableSpace() int {
	capacity := uint64(r.Capacity())
	return int(capacity - (r.head() - r.tail()))
}

// ReadableBytes returns the number of bytes currently queued for reading.
func (r *Ring) ReadableBytes() int {
	return int(r.head() - r.tail())
}

// IsEmpty reports whether the ring currently holds no entries.
func (r *Ring) IsEmpty() bool {
	return r.ReadableBytes() == 0
}

func alignUp(value, alignment int) int {
	return (value + alignment - 1) &^ (alignment - 1)
}

// Write appends one framed entry (CRC32-checksummed, 8-byte aligned) to the
// ring, or fails with a SharedMemory error if there is insufficient space
// or the payload violates the size bound.
func (r *Ring) Write(payload []byte) error {
	if err := ValidateForWrite(payload); err != nil {
		return err
	}

	entrySize := alignUp(EntryHeaderSize+len(payload), EntryAlignment)
	if entrySize > r.AvailableSpace() {
		return aethererr.NewSharedMemory("Write", fmt.Sprintf("ring buffer full: cannot write %d bytes", len(payload)))
	}

	checksum := Checksum(payload)

	capacity := r.Capacity()
	head := r.head()
	offset := int(head) % capacity

	var entryHdr [EntryHeaderSize]byte
	binary.LittleEndian.PutUint32(entryHdr[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(entryHdr[4:8], checksum)

	r.writeAt(offset, entryHdr[:])
	r.writeAt(offset+EntryHeaderSize, payload)

	r.hdr.head.Store(head + uint64(entrySize))
	return nil
}

// writeAt writes src into the data area starting at offset, wrapping
// around the end of the circular buffer as needed.
func (r *Ring) writeAt(offset int, src []byte) {
	capacity := len(r.data)
	first := len(src)
	if offset+first > capacity {
		first = capacity - offset
	}
	copy(r.data[offset:offset+first], src[:first])
	if first < len(src) {
		copy(r.data[0:len(src)-first], src[first:])
	}
}

// readAt reads n bytes starting at offset, wrapping around the end of the
// circular buffer as needed, into a freshly allocated slice.
func (r *Ring) readAt(offset, n int) []byte {
	capacity := len(r.data)
	out := make([]byte, n)
	first := n
	if offset+first > capacity {
		first = capacity - offset
	}
	copy(out[:first], r.data[offset:offset+first])
	if first < n {
		copy(out[first:], r.data[0:n-first])
	}
	return out
}

// Read removes and returns one framed entry from the ring, or fails with a
// SharedMemory error if the ring is empty, the buffer state is corrupt, or
// the entry's CRC32 does not match — in the latter case tail is left
// unadvanced, per the unconditional-verification contract.
func (r *Ring) Read() ([]byte, error) {
	if r.ReadableBytes() < EntryHeaderSize {
		return nil, aethererr.NewSharedMemory("Read", "ring buffer empty")
	}

	capacity := r.Capacity()
	tail := r.tail()
	offset := int(tail) % capacity

	entryHdr := r.readAt(offset, EntryHeaderSize)
	payloadLen := int(binary.LittleEndian.Uint32(entryHdr[0:4]))
	expectedChecksum := binary.LittleEndian.Uint32(entryHdr[4:8])

	entrySize := alignUp(EntryHeaderSize+payloadLen, EntryAlignment)
	if r.ReadableBytes() < entrySize {
		return nil, aethererr.NewSharedMemory("Read", "incomplete entry in buffer")
	}

	payload := r.readAt(offset+EntryHeaderSize, payloadLen)

	if err := ValidateChecksum(payload, expectedChecksum); err != nil {
		return nil, aethererr.WrapSharedMemory("Read", fmt.Sprintf("entry at offset %d", offset), err)
	}

	r.hdr.tail.Store(tail + uint64(entrySize))
	return payload, nil
}
