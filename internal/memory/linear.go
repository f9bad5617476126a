package memory

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/wippyai/vspirv"
)

const pageSize = 64 * 1024

// Linear is a growable little-endian byte memory addressed from zero.
type Linear struct {
	buf      []byte
	maxBytes uint32
	mu       sync.RWMutex
}

// NewLinear creates a memory of initialPages pages that may grow up to
// maxPages pages. maxPages of zero means no limit below 4GB.
func NewLinear(initialPages, maxPages uint32) *Linear {
	maxBytes := uint32(0xFFFFFFFF)
	if maxPages > 0 && uint64(maxPages)*pageSize < uint64(maxBytes) {
		maxBytes = maxPages * pageSize
	}
	return &Linear{
		buf:      make([]byte, initialPages*pageSize),
		maxBytes: maxBytes,
	}
}

// Grow ensures the memory spans at least end bytes.
func (m *Linear) Grow(end uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if end <= uint32(len(m.buf)) {
		return nil
	}
	if end > m.maxBytes {
		return fmt.Errorf("memory limit exceeded: need %d bytes, limit %d", end, m.maxBytes)
	}
	pages := (uint64(end) + pageSize - 1) / pageSize
	grown := make([]byte, pages*pageSize)
	copy(grown, m.buf)
	m.buf = grown
	return nil
}

// Size returns the current memory size in bytes.
func (m *Linear) Size() uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint32(len(m.buf))
}

func (m *Linear) span(offset, length uint32) ([]byte, bool) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(m.buf)) {
		return nil, false
	}
	return m.buf[offset:end], true
}

// Read returns a view of length bytes at offset. The view aliases memory.
func (m *Linear) Read(offset uint32, length uint32) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.span(offset, length)
	if !ok {
		return nil, fmt.Errorf("memory read out of bounds: offset=%d, length=%d", offset, length)
	}
	return b, nil
}

// Write copies data to offset.
func (m *Linear) Write(offset uint32, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.span(offset, uint32(len(data)))
	if !ok {
		return fmt.Errorf("memory write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	copy(b, data)
	return nil
}

func (m *Linear) ReadU8(offset uint32) (uint8, error) {
	b, err := m.Read(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (m *Linear) ReadU16(offset uint32) (uint16, error) {
	b, err := m.Read(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (m *Linear) ReadU32(offset uint32) (uint32, error) {
	b, err := m.Read(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (m *Linear) ReadU64(offset uint32) (uint64, error) {
	b, err := m.Read(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (m *Linear) WriteU8(offset uint32, value uint8) error {
	return m.Write(offset, []byte{value})
}

func (m *Linear) WriteU16(offset uint32, value uint16) error {
	return m.Write(offset, binary.LittleEndian.AppendUint16(nil, value))
}

func (m *Linear) WriteU32(offset uint32, value uint32) error {
	return m.Write(offset, binary.LittleEndian.AppendUint32(nil, value))
}

func (m *Linear) WriteU64(offset uint32, value uint64) error {
	return m.Write(offset, binary.LittleEndian.AppendUint64(nil, value))
}

var _ vspirv.Memory = (*Linear)(nil)
var _ vspirv.MemorySizer = (*Linear)(nil)
