// internal/store/store.go
package store

import (
	"errors"
	"fmt"

	"github.com/golang/glog"

	"github.com/tamzrod/dco-calibrator/internal/calib"
	"github.com/tamzrod/dco-calibrator/internal/regs"
)

// Config is the store's runtime config.
type Config struct {
	// Verify reads the block back after programming.
	Verify bool
}

// Store commits the calibration block into information segment A.
// It owns the flash controller for the duration of one Commit.
type Store struct {
	cfg Config
	bus regs.Bus
}

// New creates a store.
func New(cfg Config, bus regs.Bus) (*Store, error) {
	if bus == nil {
		return nil, errors.New("store: bus required")
	}
	return &Store{cfg: cfg, bus: bus}, nil
}

// Commit erases segment A and programs buf at the calibration block address.
//
// Sequence (order is required by the flash controller):
//  1. flash timing generator = MCLK/3
//  2. erase mode, unlock LOCK and LOCKA
//  3. dummy write into the segment (segment erase)
//  4. write mode, program 8 bytes
//  5. clear write mode, re-lock
//
// The whole segment is rewritten on every call. Only transport errors are reported.
func (s *Store) Commit(buf calib.Buffer) (err error) {
	// ---- 1. timing generator ----
	if err := s.bus.Write16(regs.FCTL2, regs.FWKEY|regs.FSSEL0|regs.FN1); err != nil {
		return fmt.Errorf("store: select flash clock: %w", err)
	}

	// ---- 2. erase mode + unlock ----
	if err := s.bus.Write16(regs.FCTL1, regs.FWKEY|regs.ERASE); err != nil {
		return fmt.Errorf("store: set erase mode: %w", err)
	}
	// LOCKA toggles: writing it here clears the segment A lock.
	if err := s.bus.Write16(regs.FCTL3, regs.FWKEY|regs.LOCKA); err != nil {
		return fmt.Errorf("store: unlock segment: %w", err)
	}

	// From here on the segment is open; always re-lock.
	defer func() {
		if rerr := s.relock(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	// ---- 3. segment erase ----
	if err := s.bus.Write8(regs.InfoSegmentA, 0x00); err != nil {
		return fmt.Errorf("store: erase segment: %w", err)
	}

	// ---- 4. program ----
	if err := s.bus.Write16(regs.FCTL1, regs.FWKEY|regs.WRT); err != nil {
		return fmt.Errorf("store: set write mode: %w", err)
	}
	for i, v := range buf {
		addr := regs.CalibrationBlock + uint16(i)
		if err := s.bus.Write8(addr, v); err != nil {
			return fmt.Errorf("store: program 0x%04X: %w", addr, err)
		}
	}

	glog.Infof("store: committed %s at 0x%04X", buf, regs.CalibrationBlock)

	if !s.cfg.Verify {
		return nil
	}

	got, err := s.Read()
	if err != nil {
		return err
	}
	if got != buf {
		return &VerifyError{Want: buf, Got: got}
	}
	return nil
}

// relock clears write mode and sets LOCK and LOCKA again.
func (s *Store) relock() error {
	if err := s.bus.Write16(regs.FCTL1, regs.FWKEY); err != nil {
		return fmt.Errorf("store: clear write mode: %w", err)
	}
	if err := s.bus.Write16(regs.FCTL3, regs.FWKEY|regs.LOCKA|regs.LOCK); err != nil {
		return fmt.Errorf("store: lock segment: %w", err)
	}
	return nil
}

// Read returns the stored calibration block.
func (s *Store) Read() (calib.Buffer, error) {
	var buf calib.Buffer
	for i := range buf {
		addr := regs.CalibrationBlock + uint16(i)
		v, err := s.bus.Read8(addr)
		if err != nil {
			return calib.Buffer{}, fmt.Errorf("store: read 0x%04X: %w", addr, err)
		}
		buf[i] = v
	}
	return buf, nil
}

// VerifyError reports a read-back mismatch after programming.
type VerifyError struct {
	Want calib.Buffer
	Got  calib.Buffer
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("store: verify failed: want %s got %s", e.Want, e.Got)
}
