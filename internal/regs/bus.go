// internal/regs/bus.go
package regs

import (
	"context"
	"time"
)

// Bus abstracts access to the MCU's memory-mapped state.
// Addresses are MCU byte addresses. Word registers are accessed with Read16/Write16.
type Bus interface {
	Read8(addr uint16) (uint8, error)
	Write8(addr uint16, v uint8) error
	Read16(addr uint16) (uint16, error)
	Write16(addr uint16, v uint16) error
}

// Cond reports whether the awaited hardware condition holds.
type Cond func() (bool, error)

// Waiter blocks until a hardware condition holds.
// It replaces the firmware's busy-wait on status flags.
type Waiter interface {
	WaitFor(ctx context.Context, cond Cond) error
}

// PollWaiter re-evaluates the condition every Interval.
// A zero Interval spins, which is what a real bench bridge wants at low latency.
type PollWaiter struct {
	Interval time.Duration
}

func (w PollWaiter) WaitFor(ctx context.Context, cond Cond) error {
	for {
		ok, err := cond()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		if w.Interval <= 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}

		t := time.NewTimer(w.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// ---- read-modify-write helpers ----

// SetBits8 performs *addr |= mask.
func SetBits8(b Bus, addr uint16, mask uint8) error {
	v, err := b.Read8(addr)
	if err != nil {
		return err
	}
	return b.Write8(addr, v|mask)
}

// ClearBits8 performs *addr &= ^mask.
func ClearBits8(b Bus, addr uint16, mask uint8) error {
	v, err := b.Read8(addr)
	if err != nil {
		return err
	}
	return b.Write8(addr, v&^mask)
}

// ToggleBits8 performs *addr ^= mask.
func ToggleBits8(b Bus, addr uint16, mask uint8) error {
	v, err := b.Read8(addr)
	if err != nil {
		return err
	}
	return b.Write8(addr, v^mask)
}

// ClearBits16 performs *addr &= ^mask on a word register.
func ClearBits16(b Bus, addr uint16, mask uint16) error {
	v, err := b.Read16(addr)
	if err != nil {
		return err
	}
	return b.Write16(addr, v&^mask)
}
