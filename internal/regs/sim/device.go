// internal/regs/sim/device.go
package sim

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/tamzrod/dco-calibrator/internal/regs"
)

// Device is a simulated MSP430G2x55 register file.
// It implements regs.Bus and regs.Waiter: waiting advances simulated time
// to the next reference-clock edge, so captures happen on demand.
type Device struct {
	mu sync.Mutex

	mem   [0x10000]byte
	curve Curve

	referencePresent bool

	// Timer_A
	tar uint16

	// Flash controller (low bytes; reads are OR'ed with FRKEY)
	fctl1, fctl2, fctl3 uint16

	stats Stats
}

// Stats counts observable side effects for assertions.
type Stats struct {
	Captures         int
	KeyViolations    int
	AccessViolations int
	TimingFailures   int
	SegmentErases    map[uint16]int
	FlashWrites      int
	PinToggles       map[uint8]int
}

// Option configures a Device.
type Option func(*Device)

// WithCurve replaces the nominal tuning curve.
func WithCurve(c Curve) Option {
	return func(d *Device) { d.curve = c }
}

// WithoutReference simulates a missing 32 kHz input: no capture ever fires.
func WithoutReference() Option {
	return func(d *Device) { d.referencePresent = false }
}

// New returns a device in its power-up state with erased flash.
func New(opts ...Option) *Device {
	d := &Device{
		curve:            NominalCurve,
		referencePresent: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.reset()
	return d
}

func (d *Device) reset() {
	for a := 0x1000; a < 0x1100; a++ {
		d.mem[a] = 0xFF
	}
	for a := 0xC000; a < 0x10000; a++ {
		d.mem[a] = 0xFF
	}
	d.mem[regs.DCOCTL] = regs.ResetDCOCTL
	d.mem[regs.BCSCTL1] = regs.ResetBCSCTL1

	d.fctl1 = 0x0000
	d.fctl2 = 0x0042
	d.fctl3 = regs.LOCK | regs.LOCKA | regs.WAIT

	d.stats = Stats{
		SegmentErases: map[uint16]int{},
		PinToggles:    map[uint8]int{},
	}
}

// ---- regs.Bus ----

func (d *Device) Read8(addr uint16) (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if isWordRegister(addr &^ 1) {
		v := d.read16(addr &^ 1)
		if addr&1 == 1 {
			return uint8(v >> 8), nil
		}
		return uint8(v), nil
	}
	return d.mem[addr], nil
}

func (d *Device) Write8(addr uint16, v uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case isFlash(addr):
		d.flashWrite(addr, v)
	case addr == regs.P4OUT:
		d.countToggles(d.mem[addr] ^ v)
		d.mem[addr] = v
	default:
		d.mem[addr] = v
	}
	return nil
}

func (d *Device) Read16(addr uint16) (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.read16(addr), nil
}

func (d *Device) Write16(addr uint16, v uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch addr {
	case regs.FCTL1, regs.FCTL2, regs.FCTL3:
		d.flashControlWrite(addr, v)
	case regs.WDTCTL:
		if v&0xFF00 != regs.WDTPW {
			d.stats.KeyViolations++
			return nil
		}
		d.putWord(addr, v&0x00FF)
	case regs.TACTL:
		if v&regs.TACLR != 0 {
			d.tar = 0
		}
		d.putWord(addr, v&^regs.TACLR)
	case regs.TAR:
		d.tar = v
	default:
		d.putWord(addr, v)
	}
	return nil
}

func (d *Device) read16(addr uint16) uint16 {
	switch addr {
	case regs.FCTL1:
		return regs.FRKEY | d.fctl1
	case regs.FCTL2:
		return regs.FRKEY | d.fctl2
	case regs.FCTL3:
		return regs.FRKEY | d.fctl3
	case regs.WDTCTL:
		return 0x6900 | uint16(d.mem[addr])
	case regs.TAR:
		return d.tar
	}
	return uint16(d.mem[addr]) | uint16(d.mem[addr+1])<<8
}

func (d *Device) putWord(addr uint16, v uint16) {
	d.mem[addr] = uint8(v)
	d.mem[addr+1] = uint8(v >> 8)
}

func isWordRegister(addr uint16) bool {
	switch addr {
	case regs.FCTL1, regs.FCTL2, regs.FCTL3, regs.WDTCTL, regs.TAR:
		return true
	}
	return false
}

func (d *Device) countToggles(changed uint8) {
	for bit := uint8(1); bit != 0; bit <<= 1 {
		if changed&bit != 0 {
			d.stats.PinToggles[bit]++
		}
	}
}

// ---- regs.Waiter ----

// WaitFor evaluates cond, advancing to the next reference edge while it is false.
// Without a running capture unit nothing can change, so it blocks until ctx ends.
func (d *Device) WaitFor(ctx context.Context, cond regs.Cond) error {
	for {
		ok, err := cond()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if !d.step() {
			<-ctx.Done()
			return ctx.Err()
		}
	}
}

// step advances to the next ACLK rising edge. Reports false when no
// event source is active.
func (d *Device) step() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.referencePresent {
		return false
	}

	tactl := d.read16(regs.TACTL)
	cctl := d.read16(regs.TACCTL2)
	if tactl&0x0030 == 0 || cctl&regs.CAP == 0 || cctl&0x3000 != regs.CCIS_1 || cctl&0xC000 == 0 {
		return false
	}

	// SMCLK cycles per ACLK period scale with the ACLK divider.
	div := 1 << ((d.mem[regs.BCSCTL1] & regs.DIVA_3) >> 4)
	ticks := d.curve.Ticks(d.mem[regs.DCOCTL], d.mem[regs.BCSCTL1]) * div / 8

	d.tar += uint16(ticks)
	d.putWord(regs.TACCR2, d.tar)
	d.putWord(regs.TACCTL2, cctl|regs.CCIFG)
	d.stats.Captures++

	if glog.V(3) {
		glog.Infof("sim: capture tar=%d dco=0x%02X bcs=0x%02X", d.tar, d.mem[regs.DCOCTL], d.mem[regs.BCSCTL1])
	}
	return true
}

// ---- test helpers ----

// Peek returns a byte of raw memory without side effects.
func (d *Device) Peek(addr uint16) uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mem[addr]
}

// Load places raw bytes into memory, bypassing the flash controller.
func (d *Device) Load(addr uint16, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(d.mem[addr:], data)
}

// SetTuning forces the DCO registers.
func (d *Device) SetTuning(dcoctl, bcsctl1 uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mem[regs.DCOCTL] = dcoctl
	d.mem[regs.BCSCTL1] = bcsctl1
}

// MeasureTicks returns what one capture window would measure at the given tuning.
func (d *Device) MeasureTicks(dcoctl, bcsctl1 uint8) int {
	return d.curve.Ticks(dcoctl, bcsctl1)
}

// Stats returns a copy of the side-effect counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.stats
	s.SegmentErases = make(map[uint16]int, len(d.stats.SegmentErases))
	for k, v := range d.stats.SegmentErases {
		s.SegmentErases[k] = v
	}
	s.PinToggles = make(map[uint8]int, len(d.stats.PinToggles))
	for k, v := range d.stats.PinToggles {
		s.PinToggles[k] = v
	}
	return s
}
