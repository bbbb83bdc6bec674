// internal/regs/sim/flash.go
package sim

import (
	"github.com/golang/glog"

	"github.com/tamzrod/dco-calibrator/internal/regs"
)

// Flash timing generator window accepted by the controller.
const (
	FTGMinHz = 257000
	FTGMaxHz = 476000
)

const mainSegmentSize = 512

func isFlash(addr uint16) bool {
	return (addr >= 0x1000 && addr < 0x1100) || addr >= 0xC000
}

func isInfoA(addr uint16) bool {
	return addr >= regs.InfoSegmentA && addr <= regs.InfoSegmentAEnd
}

func segmentBase(addr uint16) uint16 {
	if addr < 0x1100 {
		return addr &^ (regs.InfoSegmentSize - 1)
	}
	return addr &^ (mainSegmentSize - 1)
}

func segmentSize(addr uint16) int {
	if addr < 0x1100 {
		return regs.InfoSegmentSize
	}
	return mainSegmentSize
}

// flashControlWrite handles FCTL1..3. A wrong password is a key violation
// and the write is dropped.
func (d *Device) flashControlWrite(addr uint16, v uint16) {
	if v&0xFF00 != regs.FWKEY {
		d.stats.KeyViolations++
		d.fctl3 |= regs.KEYV
		glog.Warningf("sim: flash key violation addr=0x%04X value=0x%04X", addr, v)
		return
	}
	low := v & 0x00FF

	switch addr {
	case regs.FCTL1:
		d.fctl1 = low
	case regs.FCTL2:
		d.fctl2 = low
	case regs.FCTL3:
		// LOCKA toggles on a written 1; everything else is plain.
		locka := (d.fctl3 ^ low) & regs.LOCKA
		d.fctl3 = (low &^ (regs.LOCKA | regs.BUSY)) | locka
	}
}

// ftgHz is the flash timing generator frequency selected by FCTL2.
func (d *Device) ftgHz() int {
	dco := d.curve.Hz(d.mem[regs.DCOCTL], d.mem[regs.BCSCTL1])

	var src int
	switch d.fctl2 & 0x00C0 {
	case 0x0000:
		div := 1 << ((d.mem[regs.BCSCTL1] & regs.DIVA_3) >> 4)
		src = ReferenceHz / div
	default:
		// MCLK and SMCLK both run from the DCO here.
		src = dco
	}
	return src / (int(d.fctl2&regs.FNMask) + 1)
}

// flashWrite is a CPU write into flash address space.
func (d *Device) flashWrite(addr uint16, v uint8) {
	if d.fctl3&regs.LOCK != 0 || (isInfoA(addr) && d.fctl3&regs.LOCKA != 0) {
		d.stats.AccessViolations++
		d.fctl3 |= regs.ACCVIFG
		glog.Warningf("sim: flash access violation addr=0x%04X (locked)", addr)
		return
	}

	mode := d.fctl1 & (regs.ERASE | regs.MERAS | regs.WRT | regs.BLKWRT)
	if mode == 0 {
		d.stats.AccessViolations++
		d.fctl3 |= regs.ACCVIFG
		return
	}

	if hz := d.ftgHz(); hz < FTGMinHz || hz > FTGMaxHz {
		d.stats.TimingFailures++
		d.fctl3 |= regs.FAIL
		glog.Warningf("sim: flash timing generator out of range: %d Hz", hz)
		return
	}

	switch {
	case mode&(regs.ERASE|regs.MERAS) != 0:
		base := segmentBase(addr)
		for i := 0; i < segmentSize(addr); i++ {
			d.mem[int(base)+i] = 0xFF
		}
		d.stats.SegmentErases[base]++
		// ERASE self-clears after a segment erase.
		d.fctl1 &^= regs.ERASE | regs.MERAS

	default:
		// Programming can only clear bits.
		d.mem[addr] &= v
		d.stats.FlashWrites++
	}
}
