// internal/locker/errors.go
package locker

import (
	"errors"
	"fmt"

	"github.com/tamzrod/dco-calibrator/internal/calib"
)

// NotConvergedError is returned when the capture budget runs out before the
// measured delta equals the target.
type NotConvergedError struct {
	Delta        calib.Delta
	Captures     int
	LastMeasured uint16
}

func (e *NotConvergedError) Error() string {
	return fmt.Sprintf("locker: delta %d not reached after %d captures (last measured %d)",
		e.Delta, e.Captures, e.LastMeasured)
}

// IsNotConverged reports whether err is or wraps a NotConvergedError.
func IsNotConverged(err error) bool {
	var nc *NotConvergedError
	return errors.As(err, &nc)
}
