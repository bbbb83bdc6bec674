// internal/calib/constants.go
package calib

// Calibration block layout constants.
// These values define the stored format and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// BufferSize is the number of bytes in the calibration block.
const BufferSize = 8

// BytesPerTarget is one (DCOCTL, BCSCTL1) pair.
const BytesPerTarget = 2

// ---- REFERENCE ----

// ReferenceHz is the external reference clock frequency.
const ReferenceHz = 32768

// ReferenceDivider is the ACLK divider applied while locking.
const ReferenceDivider = 8

// CaptureHz is the capture-event rate (one capture per divided reference period).
const CaptureHz = ReferenceHz / ReferenceDivider

// ---- TARGET DELTAS ----
// SMCLK ticks per capture window at the target frequency.

const (
	Delta1MHz  Delta = 244  // 244 x 4096 Hz = 999.4 kHz
	Delta8MHz  Delta = 1953 // 1953 x 4096 Hz = 7.99 MHz
	Delta12MHz Delta = 2930 // 2930 x 4096 Hz = 12.00 MHz
	Delta16MHz Delta = 3906 // 3906 x 4096 Hz = 15.99 MHz
)

// ---- BUFFER OFFSETS ----
// Each target owns [DCOCTL, BCSCTL1] at its offset.

const (
	Offset16MHz = 0
	Offset12MHz = 2
	Offset8MHz  = 4
	Offset1MHz  = 6
)

// ---- TARGETS ----

// Targets lists calibration targets in lock order (fast to slow).
var Targets = []Target{
	{Name: "16MHZ", MHz: 16, Delta: Delta16MHz, Offset: Offset16MHz},
	{Name: "12MHZ", MHz: 12, Delta: Delta12MHz, Offset: Offset12MHz},
	{Name: "8MHZ", MHz: 8, Delta: Delta8MHz, Offset: Offset8MHz},
	{Name: "1MHZ", MHz: 1, Delta: Delta1MHz, Offset: Offset1MHz},
}

// ---- FALLBACK ----

// Fallback is the recorded calibration block of a nominal part.
// Committing it skips live calibration.
var Fallback = Buffer{
	0x7F, 0x8F, // 16 MHz
	0x85, 0x8E, // 12 MHz
	0x75, 0x8D, // 8 MHz
	0x34, 0x87, // 1 MHz
}
