// internal/regs/msp430.go
package regs

// MSP430G2x55 register map and bit constants used by the calibrator.
// Values are fixed by the device datasheet and MUST NOT be configurable.

// ---- WATCHDOG ----

const WDTCTL uint16 = 0x0120

const (
	WDTPW   uint16 = 0x5A00
	WDTHOLD uint16 = 0x0080
)

// ---- BASIC CLOCK MODULE+ ----

const (
	DCOCTL  uint16 = 0x0056
	BCSCTL1 uint16 = 0x0057
	BCSCTL2 uint16 = 0x0058
	BCSCTL3 uint16 = 0x0053
)

// BCSCTL1 bits.
const (
	XT2OFF uint8 = 0x80
	DIVA_3 uint8 = 0x30 // ACLK / 8
	RSEL   uint8 = 0x0F // range selector nibble
)

// BCSCTL3 bits.
const (
	LFXT1S_3 uint8 = 0x30 // external digital clock on XIN
	XCAP_0   uint8 = 0x00
)

// ---- TIMER_A3 ----

const (
	TACTL   uint16 = 0x0160
	TACCTL2 uint16 = 0x0166
	TAR     uint16 = 0x0170
	TACCR2  uint16 = 0x0176
)

// TACTL bits.
const (
	TASSEL_2 uint16 = 0x0200 // SMCLK
	MC_2     uint16 = 0x0020 // continuous mode
	TACLR    uint16 = 0x0004
)

// TACCTLx bits.
const (
	CM_1   uint16 = 0x4000 // capture on rising edge
	CCIS_1 uint16 = 0x1000 // CCIxB (ACLK on CCR2)
	CAP    uint16 = 0x0100
	CCIFG  uint16 = 0x0001
)

// ---- FLASH CONTROLLER ----

const (
	FCTL1 uint16 = 0x0128
	FCTL2 uint16 = 0x012A
	FCTL3 uint16 = 0x012C
)

const (
	FWKEY uint16 = 0xA500 // write password
	FRKEY uint16 = 0x9600 // read-back password
)

// FCTL1 bits.
const (
	ERASE  uint16 = 0x0002
	MERAS  uint16 = 0x0004
	WRT    uint16 = 0x0040
	BLKWRT uint16 = 0x0080
)

// FCTL2 bits.
const (
	FSSEL0 uint16 = 0x0040 // MCLK
	FSSEL1 uint16 = 0x0080 // SMCLK
	FN1    uint16 = 0x0002 // divider = FN + 1
	FNMask uint16 = 0x003F
)

// FCTL3 bits.
const (
	BUSY    uint16 = 0x0001
	KEYV    uint16 = 0x0002
	ACCVIFG uint16 = 0x0004
	WAIT    uint16 = 0x0008
	LOCK    uint16 = 0x0010
	EMEX    uint16 = 0x0020
	LOCKA   uint16 = 0x0040
	FAIL    uint16 = 0x0080
)

// ---- INFORMATION MEMORY ----

const (
	InfoSegmentA     uint16 = 0x10C0
	InfoSegmentSize         = 64
	InfoSegmentAEnd  uint16 = InfoSegmentA + InfoSegmentSize - 1
	CalibrationBlock uint16 = 0x10F8
)

// ---- PORT 4 ----

const (
	P4IN  uint16 = 0x001C
	P4OUT uint16 = 0x001D
	P4DIR uint16 = 0x001E
)

const (
	BIT3 uint8 = 0x08
	BIT4 uint8 = 0x10
)

// ---- RESET STATE ----

// Power-up values of the clock registers.
const (
	ResetDCOCTL  uint8 = 0x60
	ResetBCSCTL1 uint8 = 0x87
)
