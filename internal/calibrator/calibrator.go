// internal/calibrator/calibrator.go
package calibrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/tamzrod/dco-calibrator/internal/calib"
	"github.com/tamzrod/dco-calibrator/internal/locker"
	"github.com/tamzrod/dco-calibrator/internal/regs"
)

// Mode selects where the committed block comes from.
type Mode string

const (
	// ModeLive locks every target and commits the measured block.
	ModeLive Mode = "live"
	// ModeFallback commits the recorded block without calibrating.
	ModeFallback Mode = "fallback"
	// ModeLiveWithFallback commits the recorded block when a live lock does not converge.
	ModeLiveWithFallback Mode = "live-with-fallback"
)

// Source tells which path produced the committed block.
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

// Locker is the frequency-locking contract.
type Locker interface {
	Lock(ctx context.Context, delta calib.Delta) (locker.Result, error)
	Retune(p calib.Pair) error
}

// FlashTuning is the DCO setting the recorded block is committed at.
// The flash clock is MCLK/3, which is only inside the timing generator
// window near the power-up frequency.
var FlashTuning = calib.Pair{DCO: regs.ResetDCOCTL, BC1: regs.ResetBCSCTL1}

// Committer is the constant-store contract.
type Committer interface {
	Commit(buf calib.Buffer) error
}

// Indicator is the status LED.
type Indicator interface {
	Set() error
	Clear() error
}

// Config is the orchestration config.
type Config struct {
	Mode Mode

	// Timeout bounds the four locks together. 0 = no bound.
	Timeout time.Duration
}

// Outcome is what was committed and how.
type Outcome struct {
	Buffer  calib.Buffer
	Source  Source
	Results []locker.Result // empty for SourceFallback
}

// Calibrator runs the locks in order and commits the block exactly once.
type Calibrator struct {
	cfg    Config
	locker Locker
	store  Committer
	status Indicator
}

// New wires a calibrator. status may be nil.
func New(cfg Config, l Locker, s Committer, status Indicator) (*Calibrator, error) {
	if l == nil || s == nil {
		return nil, errors.New("calibrator: locker and store required")
	}
	switch cfg.Mode {
	case ModeLive, ModeFallback, ModeLiveWithFallback:
	case "":
		cfg.Mode = ModeLive
	default:
		return nil, fmt.Errorf("calibrator: unknown mode %q", cfg.Mode)
	}
	return &Calibrator{cfg: cfg, locker: l, store: s, status: status}, nil
}

// Calibrate locks every target in calib.Targets order and returns the collected block.
// It does not commit.
func (c *Calibrator) Calibrate(ctx context.Context) (calib.Buffer, []locker.Result, error) {
	var (
		b       calib.Builder
		results = make([]locker.Result, 0, len(calib.Targets))
	)

	for i, t := range calib.Targets {
		res, err := c.locker.Lock(ctx, t.Delta)
		if err != nil {
			return calib.Buffer{}, results, fmt.Errorf("calibrator: lock %s: %w", t.Name, err)
		}
		results = append(results, res)

		if err := b.Append(res.Pair); err != nil {
			return calib.Buffer{}, results, err
		}

		// Status LED alternates after every lock: off, on, off, on.
		if err := c.progress(i); err != nil {
			return calib.Buffer{}, results, err
		}
	}

	buf, err := b.Buffer()
	return buf, results, err
}

func (c *Calibrator) progress(i int) error {
	if c.status == nil {
		return nil
	}
	var err error
	if i%2 == 0 {
		err = c.status.Clear()
	} else {
		err = c.status.Set()
	}
	if err != nil {
		return fmt.Errorf("calibrator: status led: %w", err)
	}
	return nil
}

// Run produces the block according to the configured mode and commits it once.
func (c *Calibrator) Run(ctx context.Context) (Outcome, error) {
	if c.cfg.Mode == ModeFallback {
		return c.commit(Outcome{Buffer: calib.Fallback, Source: SourceFallback})
	}

	lockCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	buf, results, err := c.Calibrate(lockCtx)
	if err == nil {
		return c.commit(Outcome{Buffer: buf, Source: SourceLive, Results: results})
	}

	if c.cfg.Mode == ModeLiveWithFallback && ctx.Err() == nil && fallbackEligible(err) {
		glog.Warningf("calibrator: live calibration failed, committing fallback block: %v", err)
		return c.commit(Outcome{Buffer: calib.Fallback, Source: SourceFallback, Results: results})
	}
	return Outcome{Results: results}, err
}

// fallbackEligible reports whether err means the reference never matched,
// as opposed to a transport failure.
func fallbackEligible(err error) bool {
	return locker.IsNotConverged(err) || errors.Is(err, context.DeadlineExceeded)
}

func (c *Calibrator) commit(o Outcome) (Outcome, error) {
	// A live block is committed right after the 1 MHz lock. A recorded one may
	// follow an interrupted walk that left the DCO anywhere.
	if o.Source == SourceFallback {
		if err := c.locker.Retune(FlashTuning); err != nil {
			return o, fmt.Errorf("calibrator: flash clock: %w", err)
		}
	}
	if err := c.store.Commit(o.Buffer); err != nil {
		return o, fmt.Errorf("calibrator: commit: %w", err)
	}
	glog.Infof("calibrator: committed %s block %s", o.Source, o.Buffer)
	return o, nil
}
