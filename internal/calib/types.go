// internal/calib/types.go
package calib

// Delta is the expected number of SMCLK ticks between two capture events.
type Delta uint16

// Hz is the oscillator frequency the delta stands for.
func (d Delta) Hz() int {
	return int(d) * CaptureHz
}

// Target is one frequency the DCO is calibrated for.
type Target struct {
	Name   string // register-name suffix, e.g. "16MHZ"
	MHz    int
	Delta  Delta
	Offset int // byte offset of the pair in Buffer
}

// Pair is the tuning register pair that produces a target frequency.
type Pair struct {
	DCO uint8 // DCOCTL, fine value
	BC1 uint8 // BCSCTL1, range selector in the low nibble
}

// RSEL returns the range selector nibble.
func (p Pair) RSEL() uint8 {
	return p.BC1 & 0x0F
}

// Buffer is the 8-byte calibration block in stored order.
type Buffer [BufferSize]byte
