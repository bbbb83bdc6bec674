// internal/locker/locker_test.go
package locker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tamzrod/dco-calibrator/internal/calib"
	"github.com/tamzrod/dco-calibrator/internal/regs"
	"github.com/tamzrod/dco-calibrator/internal/regs/sim"
)

// ---- fakes ----

type countingToggler struct{ n int }

func (c *countingToggler) Toggle() error {
	c.n++
	return nil
}

// failingBus fails every access to one address.
type failingBus struct {
	regs.Bus
	addr uint16
}

var errBridge = errors.New("bridge down")

func (f *failingBus) Read16(addr uint16) (uint16, error) {
	if addr == f.addr {
		return 0, errBridge
	}
	return f.Bus.Read16(addr)
}

func newLocker(t *testing.T, dev *sim.Device, cfg Config) *Locker {
	t.Helper()
	l, err := New(cfg, dev, dev)
	require.NoError(t, err)
	return l
}

func requireReleased(t *testing.T, dev *sim.Device) {
	t.Helper()
	tactl, err := dev.Read16(regs.TACTL)
	require.NoError(t, err)
	require.Zero(t, tactl, "timer must be stopped")

	cctl, err := dev.Read16(regs.TACCTL2)
	require.NoError(t, err)
	require.Zero(t, cctl, "capture unit must be disarmed")

	require.Zero(t, dev.Peek(regs.BCSCTL1)&regs.DIVA_3, "reference divider must be restored")
}

// ---- tests ----

func TestNew_Requirements(t *testing.T) {
	dev := sim.New()

	_, err := New(Config{}, nil, dev)
	require.Error(t, err)
	_, err = New(Config{}, dev, nil)
	require.Error(t, err)
	_, err = New(Config{MaxCaptures: -1}, dev, dev)
	require.Error(t, err)
}

func TestLock_ConvergesForEveryTarget(t *testing.T) {
	for _, tg := range calib.Targets {
		tg := tg
		t.Run(tg.Name, func(t *testing.T) {
			dev := sim.New()
			l := newLocker(t, dev, Config{})

			res, err := l.Lock(context.Background(), tg.Delta)
			require.NoError(t, err)

			// re-measuring under the returned pair yields exactly the target
			require.Equal(t, int(tg.Delta), dev.MeasureTicks(res.Pair.DCO, res.Pair.BC1))
			require.Equal(t, res.Pair.DCO, dev.Peek(regs.DCOCTL))
			require.Equal(t, res.Pair.BC1, dev.Peek(regs.BCSCTL1))
			require.Positive(t, res.Captures)

			requireReleased(t, dev)
		})
	}
}

func TestLock_AlreadyTunedNeedsOneCapture(t *testing.T) {
	dev := sim.New()
	dev.SetTuning(0x75, 0x8D)
	l := newLocker(t, dev, Config{})

	res, err := l.Lock(context.Background(), calib.Delta8MHz)
	require.NoError(t, err)
	require.Equal(t, 1, res.Captures)
	require.Equal(t, calib.Pair{DCO: 0x75, BC1: 0x8D}, res.Pair)
	require.Equal(t, 1953.0, res.Summary.Mean)
	require.Zero(t, res.Summary.StdDev)
}

func TestLock_HeartbeatPerCapture(t *testing.T) {
	dev := sim.New()
	hb := &countingToggler{}
	l := newLocker(t, dev, Config{Heartbeat: hb})

	res, err := l.Lock(context.Background(), calib.Delta1MHz)
	require.NoError(t, err)
	require.Equal(t, res.Captures, hb.n)
	require.Equal(t, res.Captures, dev.Stats().Captures)
}

func TestLock_SummaryBounds(t *testing.T) {
	dev := sim.New()
	l := newLocker(t, dev, Config{})

	res, err := l.Lock(context.Background(), calib.Delta16MHz)
	require.NoError(t, err)
	require.Equal(t, 3906.0, res.Summary.Max)
	require.Less(t, res.Summary.Min, res.Summary.Max)
	require.Greater(t, res.Summary.Mean, res.Summary.Min)
}

// One capture, then the budget stops the walk so the single adjustment is visible.
func stepOnce(t *testing.T, dco, bcs uint8, target calib.Delta) *sim.Device {
	t.Helper()
	dev := sim.New()
	dev.SetTuning(dco, bcs)
	l := newLocker(t, dev, Config{MaxCaptures: 1})

	_, err := l.Lock(context.Background(), target)
	require.Error(t, err)
	require.True(t, IsNotConverged(err))
	requireReleased(t, dev)
	return dev
}

func TestLock_FineStepDown(t *testing.T) {
	dev := stepOnce(t, 0x40, 0x87, 1)
	require.Equal(t, uint8(0x3F), dev.Peek(regs.DCOCTL))
	require.Equal(t, uint8(0x87), dev.Peek(regs.BCSCTL1))
}

func TestLock_FineStepUp(t *testing.T) {
	dev := stepOnce(t, 0x40, 0x87, 60000)
	require.Equal(t, uint8(0x41), dev.Peek(regs.DCOCTL))
	require.Equal(t, uint8(0x87), dev.Peek(regs.BCSCTL1))
}

func TestLock_RollUnderSelectsLowerRange(t *testing.T) {
	dev := stepOnce(t, 0x00, 0x87, 1)
	require.Equal(t, uint8(0xFF), dev.Peek(regs.DCOCTL))
	require.Equal(t, uint8(0x86), dev.Peek(regs.BCSCTL1))
}

func TestLock_RollOverSelectsHigherRange(t *testing.T) {
	dev := stepOnce(t, 0xFF, 0x87, 60000)
	require.Equal(t, uint8(0x00), dev.Peek(regs.DCOCTL))
	require.Equal(t, uint8(0x88), dev.Peek(regs.BCSCTL1))
}

func TestLock_RangeClampedAtZero(t *testing.T) {
	dev := stepOnce(t, 0x00, 0x80, 1)
	require.Equal(t, uint8(0xFF), dev.Peek(regs.DCOCTL))
	require.Equal(t, uint8(0x80), dev.Peek(regs.BCSCTL1), "RSEL must not underflow")
}

func TestLock_RangeClampedAtFifteen(t *testing.T) {
	dev := stepOnce(t, 0xFF, 0x8F, 60000)
	require.Equal(t, uint8(0x00), dev.Peek(regs.DCOCTL))
	require.Equal(t, uint8(0x8F), dev.Peek(regs.BCSCTL1), "RSEL must not overflow")
}

func TestLock_NotConvergedReportsLastMeasurement(t *testing.T) {
	dev := sim.New()
	dev.SetTuning(0x34, 0x87)
	l := newLocker(t, dev, Config{MaxCaptures: 1})

	_, err := l.Lock(context.Background(), 1)

	var nc *NotConvergedError
	require.True(t, errors.As(err, &nc))
	require.Equal(t, 1, nc.Captures)
	require.Equal(t, uint16(244), nc.LastMeasured)
}

func TestLock_NoReferenceBlocksUntilCancelled(t *testing.T) {
	dev := sim.New(sim.WithoutReference())
	l := newLocker(t, dev, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	res, err := l.Lock(ctx, calib.Delta1MHz)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Zero(t, res.Captures)
	requireReleased(t, dev)
}

func TestLock_BusErrorReleasesTimer(t *testing.T) {
	dev := sim.New()
	bus := &failingBus{Bus: dev, addr: regs.TACCR2}
	l, err := New(Config{}, bus, dev)
	require.NoError(t, err)

	_, err = l.Lock(context.Background(), calib.Delta8MHz)
	require.ErrorIs(t, err, errBridge)
	requireReleased(t, dev)
}

func TestRetune_ForcesPair(t *testing.T) {
	dev := sim.New()
	dev.SetTuning(0x7F, 0x8F)
	l := newLocker(t, dev, Config{})

	require.NoError(t, l.Retune(calib.Pair{DCO: regs.ResetDCOCTL, BC1: regs.ResetBCSCTL1}))
	require.Equal(t, regs.ResetDCOCTL, dev.Peek(regs.DCOCTL))
	require.Equal(t, regs.ResetBCSCTL1, dev.Peek(regs.BCSCTL1))
}
