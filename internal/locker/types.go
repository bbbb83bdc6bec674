// internal/locker/types.go
package locker

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/tamzrod/dco-calibrator/internal/calib"
)

// Toggler is a diagnostic output flipped once per capture event.
type Toggler interface {
	Toggle() error
}

// Result is the outcome of one lock.
type Result struct {
	Target calib.Delta
	Pair   calib.Pair // DCOCTL, BCSCTL1 after the reference divider is restored

	Captures int
	Summary  Summary
}

// Summary describes the measured deltas seen while walking to the target.
type Summary struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

func summarize(measured []float64) Summary {
	if len(measured) == 0 {
		return Summary{}
	}
	mean, std := stat.MeanStdDev(measured, nil)
	if len(measured) == 1 {
		std = 0
	}
	return Summary{
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(measured),
		Max:    floats.Max(measured),
	}
}

func (s Summary) String() string {
	return fmt.Sprintf("mean=%.1f sd=%.1f min=%.0f max=%.0f", s.Mean, s.StdDev, s.Min, s.Max)
}
