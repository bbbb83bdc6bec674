// internal/board/board.go
package board

import (
	"fmt"

	"github.com/tamzrod/dco-calibrator/internal/regs"
)

// Board pin assignment on port 4.
const (
	StatusLED  = regs.BIT3 // per-target progress, per-report heartbeat
	CaptureLED = regs.BIT4 // per-capture heartbeat
	OutputPins = StatusLED | CaptureLED
)

// Init brings the part into the calibration configuration:
// watchdog held, LFXT1 fed by an external digital clock, LED pins driven low.
func Init(bus regs.Bus) error {
	if err := bus.Write16(regs.WDTCTL, regs.WDTPW|regs.WDTHOLD); err != nil {
		return fmt.Errorf("board: hold watchdog: %w", err)
	}
	if err := regs.SetBits8(bus, regs.BCSCTL3, regs.LFXT1S_3|regs.XCAP_0); err != nil {
		return fmt.Errorf("board: select external clock: %w", err)
	}
	if err := bus.Write8(regs.P4OUT, 0x00); err != nil {
		return fmt.Errorf("board: clear port 4: %w", err)
	}
	if err := bus.Write8(regs.P4DIR, OutputPins); err != nil {
		return fmt.Errorf("board: port 4 direction: %w", err)
	}
	return nil
}

// Pin is one output on port 4.
type Pin struct {
	bus  regs.Bus
	mask uint8
}

// NewPin binds an output mask to a bus.
func NewPin(bus regs.Bus, mask uint8) *Pin {
	return &Pin{bus: bus, mask: mask}
}

func (p *Pin) Toggle() error {
	return regs.ToggleBits8(p.bus, regs.P4OUT, p.mask)
}

func (p *Pin) Set() error {
	return regs.SetBits8(p.bus, regs.P4OUT, p.mask)
}

func (p *Pin) Clear() error {
	return regs.ClearBits8(p.bus, regs.P4OUT, p.mask)
}
