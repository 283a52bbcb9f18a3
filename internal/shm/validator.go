//go:build linux

package shm

import (
	"hash/crc32"

	"github.com/ankitkpandey1/aetherless/internal/aethererr"
)

// MaxPayloadSize is the maximum payload accepted by the ring buffer.
const MaxPayloadSize = maxPayloadSize

// ValidateForWrite checks a payload's size bounds before it is handed to
// Ring.Write.
func ValidateForWrite(payload []byte) error {
	if len(payload) == 0 {
		return aethererr.NewSharedMemory("ValidateForWrite", "cannot write empty payload")
	}
	if len(payload) > MaxPayloadSize {
		return aethererr.NewSharedMemory("ValidateForWrite", "payload too large")
	}
	return nil
}

// Checksum computes the CRC32 checksum used to frame ring buffer entries.
func Checksum(payload []byte) uint32 {
	return crc32.ChecksumIEEE(payload)
}

// ValidateChecksum fails immediately, with no fallback, if expected does not
// match the payload's recomputed checksum.
func ValidateChecksum(payload []byte, expected uint32) error {
	actual := Checksum(payload)
	if actual != expected {
		return aethererr.NewSharedMemory("ValidateChecksum", "checksum mismatch")
	}
	return nil
}
