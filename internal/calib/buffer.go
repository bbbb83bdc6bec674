// internal/calib/buffer.go
package calib

import (
	"fmt"
	"strings"
)

// Builder collects pairs in lock order.
// Pairs are appended two bytes at a time; the buffer is complete after one pair per target.
type Builder struct {
	buf Buffer
	n   int
}

// Append stores the next pair.
func (b *Builder) Append(p Pair) error {
	if b.n+BytesPerTarget > BufferSize {
		return fmt.Errorf("calib: buffer full (%d bytes)", BufferSize)
	}
	b.buf[b.n] = p.DCO
	b.buf[b.n+1] = p.BC1
	b.n += BytesPerTarget
	return nil
}

// Complete reports whether every target has a pair.
func (b *Builder) Complete() bool {
	return b.n == BufferSize
}

// Buffer returns the collected block. It fails unless Complete.
func (b *Builder) Buffer() (Buffer, error) {
	if !b.Complete() {
		return Buffer{}, fmt.Errorf("calib: buffer incomplete (%d of %d bytes)", b.n, BufferSize)
	}
	return b.buf, nil
}

// Pair returns the stored pair of a target.
func (b Buffer) Pair(t Target) Pair {
	return Pair{DCO: b[t.Offset], BC1: b[t.Offset+1]}
}

// With returns a copy of b with the target's pair replaced.
func (b Buffer) With(t Target, p Pair) Buffer {
	b[t.Offset] = p.DCO
	b[t.Offset+1] = p.BC1
	return b
}

// Erased reports whether the block reads as blank flash.
func (b Buffer) Erased() bool {
	for _, v := range b {
		if v != 0xFF {
			return false
		}
	}
	return true
}

func (b Buffer) String() string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("0x%02X", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
