// internal/regs/sim/curve.go
package sim

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// ReferenceHz is the external reference clock fed to XIN.
const ReferenceHz = 32768

// Point anchors the tuning curve: at Index the DCO runs Ticks SMCLK cycles
// per 1/4096 s (one ACLK/8 period of a 32768 Hz reference).
type Point struct {
	Index int
	Ticks int
}

// Curve is a monotonic DCO tuning curve over the combined index
// RSEL*256 + DCOCTL, piecewise linear between anchor points.
type Curve struct {
	points []Point
}

// NominalCurve is shaped after a G2x55 sample whose calibrated pairs are
// 16 MHz 0x7F/0x8F, 12 MHz 0x85/0x8E, 8 MHz 0x75/0x8D and 1 MHz 0x34/0x87.
// Every tick count from 244 upwards is hit at most once.
var NominalCurve = MustCurve(
	Point{Index: 0x000, Ticks: 12},
	Point{Index: 0x734, Ticks: 244},
	Point{Index: 0xD75, Ticks: 1953},
	Point{Index: 0xE85, Ticks: 2930},
	Point{Index: 0xF7F, Ticks: 3906},
	Point{Index: 0xFFF, Ticks: 4620},
)

// NewCurve validates anchors: sorted by index, covering 0..4095, non-decreasing ticks.
func NewCurve(points ...Point) (Curve, error) {
	if len(points) < 2 {
		return Curve{}, fmt.Errorf("sim curve: need at least 2 points, got %d", len(points))
	}

	ps := slices.Clone(points)
	slices.SortFunc(ps, func(a, b Point) bool { return a.Index < b.Index })

	if ps[0].Index != 0 || ps[len(ps)-1].Index != 0xFFF {
		return Curve{}, fmt.Errorf("sim curve: anchors must span 0x000..0xFFF")
	}
	for i := 1; i < len(ps); i++ {
		if ps[i].Index == ps[i-1].Index {
			return Curve{}, fmt.Errorf("sim curve: duplicate anchor at index 0x%03X", ps[i].Index)
		}
		if ps[i].Ticks < ps[i-1].Ticks {
			return Curve{}, fmt.Errorf("sim curve: ticks decrease at index 0x%03X", ps[i].Index)
		}
	}
	return Curve{points: ps}, nil
}

// MustCurve is NewCurve that panics on invalid anchors.
func MustCurve(points ...Point) Curve {
	c, err := NewCurve(points...)
	if err != nil {
		panic(err)
	}
	return c
}

// Index combines the tuning registers into the curve coordinate.
func Index(dcoctl, bcsctl1 uint8) int {
	return int(bcsctl1&0x0F)<<8 | int(dcoctl)
}

// Ticks returns SMCLK cycles per ACLK/8 period at the given tuning.
func (c Curve) Ticks(dcoctl, bcsctl1 uint8) int {
	idx := Index(dcoctl, bcsctl1)

	// first anchor with Index >= idx
	i := slices.IndexFunc(c.points, func(p Point) bool { return p.Index >= idx })
	if i <= 0 {
		return c.points[0].Ticks
	}

	a, b := c.points[i-1], c.points[i]
	return a.Ticks + (b.Ticks-a.Ticks)*(idx-a.Index)/(b.Index-a.Index)
}

// Hz returns the DCO frequency at the given tuning.
func (c Curve) Hz(dcoctl, bcsctl1 uint8) int {
	return c.Ticks(dcoctl, bcsctl1) * (ReferenceHz / 8)
}
