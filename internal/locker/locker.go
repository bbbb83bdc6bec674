// internal/locker/locker.go
package locker

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/glog"

	"github.com/tamzrod/dco-calibrator/internal/calib"
	"github.com/tamzrod/dco-calibrator/internal/regs"
)

// Config is the minimal runtime config the locker needs.
type Config struct {
	// MaxCaptures bounds one lock. 0 waits for convergence indefinitely.
	MaxCaptures int

	// Heartbeat is toggled on every capture event (optional).
	Heartbeat Toggler
}

// Locker tunes the DCO until its tick count per reference period equals a target delta.
// It owns Timer_A and the ACLK divider for the duration of one Lock call.
type Locker struct {
	cfg  Config
	bus  regs.Bus
	wait regs.Waiter
}

// New creates a locker with immutable config.
func New(cfg Config, bus regs.Bus, wait regs.Waiter) (*Locker, error) {
	if bus == nil {
		return nil, errors.New("locker: bus required")
	}
	if wait == nil {
		return nil, errors.New("locker: waiter required")
	}
	if cfg.MaxCaptures < 0 {
		return nil, errors.New("locker: max captures must be >= 0")
	}
	return &Locker{cfg: cfg, bus: bus, wait: wait}, nil
}

// Lock walks DCOCTL (and RSEL when DCOCTL wraps) until one capture window
// measures exactly delta SMCLK ticks, then returns the tuning pair.
//
// Timer_A is stopped and the ACLK divider restored on every return path.
func (l *Locker) Lock(ctx context.Context, delta calib.Delta) (Result, error) {
	res := Result{Target: delta}

	measured, err := l.run(ctx, delta)
	res.Captures = len(measured)

	if rerr := l.release(); rerr != nil && err == nil {
		err = rerr
	}
	if err != nil {
		return res, err
	}

	pair, err := l.readPair()
	if err != nil {
		return res, err
	}
	res.Pair = pair
	res.Summary = summarize(measured)

	glog.Infof("locker: delta=%d locked dco=0x%02X bcs1=0x%02X captures=%d (%s)",
		delta, pair.DCO, pair.BC1, res.Captures, res.Summary)

	return res, nil
}

// run arms the capture unit and iterates until convergence.
// It returns the measured delta of every capture.
func (l *Locker) run(ctx context.Context, delta calib.Delta) ([]float64, error) {
	// ACLK = reference / 8
	if err := regs.SetBits8(l.bus, regs.BCSCTL1, regs.DIVA_3); err != nil {
		return nil, fmt.Errorf("locker: divide reference: %w", err)
	}
	// CCR2: capture rising edge of ACLK
	if err := l.bus.Write16(regs.TACCTL2, regs.CM_1|regs.CCIS_1|regs.CAP); err != nil {
		return nil, fmt.Errorf("locker: arm capture: %w", err)
	}
	// SMCLK, continuous, clear
	if err := l.bus.Write16(regs.TACTL, regs.TASSEL_2|regs.MC_2|regs.TACLR); err != nil {
		return nil, fmt.Errorf("locker: start timer: %w", err)
	}

	var (
		measured []float64
		previous uint16
		last     uint16
	)
	target := uint16(delta)

	for {
		if l.cfg.MaxCaptures > 0 && len(measured) >= l.cfg.MaxCaptures {
			return measured, &NotConvergedError{
				Delta:        delta,
				Captures:     len(measured),
				LastMeasured: last,
			}
		}

		if err := l.wait.WaitFor(ctx, l.captured); err != nil {
			return measured, fmt.Errorf("locker: wait for capture: %w", err)
		}

		if l.cfg.Heartbeat != nil {
			if err := l.cfg.Heartbeat.Toggle(); err != nil {
				return measured, fmt.Errorf("locker: heartbeat: %w", err)
			}
		}

		if err := regs.ClearBits16(l.bus, regs.TACCTL2, regs.CCIFG); err != nil {
			return measured, fmt.Errorf("locker: clear capture flag: %w", err)
		}

		current, err := l.bus.Read16(regs.TACCR2)
		if err != nil {
			return measured, fmt.Errorf("locker: read capture: %w", err)
		}

		// free-running 16-bit counter: modular difference
		last = current - previous
		previous = current
		measured = append(measured, float64(last))

		if glog.V(2) {
			glog.Infof("locker: capture=%d measured=%d target=%d", len(measured), last, target)
		}

		switch {
		case last == target:
			return measured, nil
		case target < last:
			err = l.slower()
		default:
			err = l.faster()
		}
		if err != nil {
			return measured, err
		}
	}
}

func (l *Locker) captured() (bool, error) {
	v, err := l.bus.Read16(regs.TACCTL2)
	if err != nil {
		return false, err
	}
	return v&regs.CCIFG != 0, nil
}

// slower steps DCOCTL down; on roll-under it selects the next lower range
// unless RSEL is already 0.
func (l *Locker) slower() error {
	dco, err := l.bus.Read8(regs.DCOCTL)
	if err != nil {
		return fmt.Errorf("locker: read DCOCTL: %w", err)
	}
	dco--
	if err := l.bus.Write8(regs.DCOCTL, dco); err != nil {
		return fmt.Errorf("locker: write DCOCTL: %w", err)
	}
	if dco != 0xFF {
		return nil
	}

	bcs, err := l.bus.Read8(regs.BCSCTL1)
	if err != nil {
		return fmt.Errorf("locker: read BCSCTL1: %w", err)
	}
	if bcs&regs.RSEL == 0 {
		return nil
	}
	if err := l.bus.Write8(regs.BCSCTL1, bcs-1); err != nil {
		return fmt.Errorf("locker: write BCSCTL1: %w", err)
	}
	return nil
}

// faster steps DCOCTL up; on roll-over it selects the next higher range
// unless RSEL is already 15.
func (l *Locker) faster() error {
	dco, err := l.bus.Read8(regs.DCOCTL)
	if err != nil {
		return fmt.Errorf("locker: read DCOCTL: %w", err)
	}
	dco++
	if err := l.bus.Write8(regs.DCOCTL, dco); err != nil {
		return fmt.Errorf("locker: write DCOCTL: %w", err)
	}
	if dco != 0x00 {
		return nil
	}

	bcs, err := l.bus.Read8(regs.BCSCTL1)
	if err != nil {
		return fmt.Errorf("locker: read BCSCTL1: %w", err)
	}
	if bcs&regs.RSEL == regs.RSEL {
		return nil
	}
	if err := l.bus.Write8(regs.BCSCTL1, bcs+1); err != nil {
		return fmt.Errorf("locker: write BCSCTL1: %w", err)
	}
	return nil
}

// release stops CCR2 and Timer_A and restores ACLK to the undivided reference.
func (l *Locker) release() error {
	var errs []error
	if err := l.bus.Write16(regs.TACCTL2, 0); err != nil {
		errs = append(errs, err)
	}
	if err := l.bus.Write16(regs.TACTL, 0); err != nil {
		errs = append(errs, err)
	}
	if err := regs.ClearBits8(l.bus, regs.BCSCTL1, regs.DIVA_3); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("locker: release timer: %w", errors.Join(errs...))
	}
	return nil
}

// Retune forces the DCO onto p. DCOCTL is zeroed before the range changes so
// the oscillator never passes above either endpoint.
func (l *Locker) Retune(p calib.Pair) error {
	if err := l.bus.Write8(regs.DCOCTL, 0x00); err != nil {
		return fmt.Errorf("locker: retune DCOCTL: %w", err)
	}
	if err := l.bus.Write8(regs.BCSCTL1, p.BC1); err != nil {
		return fmt.Errorf("locker: retune BCSCTL1: %w", err)
	}
	if err := l.bus.Write8(regs.DCOCTL, p.DCO); err != nil {
		return fmt.Errorf("locker: retune DCOCTL: %w", err)
	}
	glog.Infof("locker: retuned dco=0x%02X bcs1=0x%02X", p.DCO, p.BC1)
	return nil
}

func (l *Locker) readPair() (calib.Pair, error) {
	dco, err := l.bus.Read8(regs.DCOCTL)
	if err != nil {
		return calib.Pair{}, fmt.Errorf("locker: read DCOCTL: %w", err)
	}
	bcs, err := l.bus.Read8(regs.BCSCTL1)
	if err != nil {
		return calib.Pair{}, fmt.Errorf("locker: read BCSCTL1: %w", err)
	}
	return calib.Pair{DCO: dco, BC1: bcs}, nil
}
