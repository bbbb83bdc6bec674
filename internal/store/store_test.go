// internal/store/store_test.go
package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tamzrod/dco-calibrator/internal/calib"
	"github.com/tamzrod/dco-calibrator/internal/regs"
	"github.com/tamzrod/dco-calibrator/internal/regs/sim"
)

var sample = calib.Buffer{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}

// failingBus rejects byte writes to one address.
type failingBus struct {
	regs.Bus
	addr uint16
}

var errBridge = errors.New("bridge down")

func (f *failingBus) Write8(addr uint16, v uint8) error {
	if addr == f.addr {
		return errBridge
	}
	return f.Bus.Write8(addr, v)
}

func newStore(t *testing.T, bus regs.Bus, verify bool) *Store {
	t.Helper()
	s, err := New(Config{Verify: verify}, bus)
	require.NoError(t, err)
	return s
}

func requireLocked(t *testing.T, dev *sim.Device) {
	t.Helper()
	fctl1, err := dev.Read16(regs.FCTL1)
	require.NoError(t, err)
	require.Zero(t, fctl1&(regs.ERASE|regs.WRT), "programming mode left enabled")

	fctl3, err := dev.Read16(regs.FCTL3)
	require.NoError(t, err)
	require.NotZero(t, fctl3&regs.LOCK, "LOCK not restored")
	require.NotZero(t, fctl3&regs.LOCKA, "LOCKA not restored")
}

// ---- tests ----

func TestNew_RequiresBus(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)
}

func TestCommit_ReadBackMatches(t *testing.T) {
	dev := sim.New()
	s := newStore(t, dev, true)

	require.NoError(t, s.Commit(sample))

	got, err := s.Read()
	require.NoError(t, err)
	require.Equal(t, sample, got)
	requireLocked(t, dev)

	st := dev.Stats()
	require.Zero(t, st.AccessViolations)
	require.Zero(t, st.KeyViolations)
	require.Zero(t, st.TimingFailures)
	require.Equal(t, 1, st.SegmentErases[regs.InfoSegmentA])
}

func TestCommit_OverwritesPriorContents(t *testing.T) {
	dev := sim.New()
	zeros := make([]byte, regs.InfoSegmentSize)
	dev.Load(regs.InfoSegmentA, zeros)

	s := newStore(t, dev, false)
	require.NoError(t, s.Commit(sample))

	got, err := s.Read()
	require.NoError(t, err)
	require.Equal(t, sample, got)
}

func TestCommit_RewritesWholeSegment(t *testing.T) {
	dev := sim.New()
	dev.Load(regs.InfoSegmentA, []byte{0x00, 0x01, 0x02})
	dev.Load(0x1080, []byte{0x42}) // segment B

	s := newStore(t, dev, false)
	require.NoError(t, s.Commit(sample))

	for a := regs.InfoSegmentA; a < regs.CalibrationBlock; a++ {
		require.Equal(t, uint8(0xFF), dev.Peek(a), "addr 0x%04X", a)
	}
	require.Equal(t, uint8(0x42), dev.Peek(0x1080))
}

func TestCommit_Idempotent(t *testing.T) {
	dev := sim.New()
	s := newStore(t, dev, true)

	require.NoError(t, s.Commit(calib.Fallback))
	require.NoError(t, s.Commit(calib.Fallback))

	got, err := s.Read()
	require.NoError(t, err)
	require.Equal(t, calib.Fallback, got)
	require.Equal(t, 2, dev.Stats().SegmentErases[regs.InfoSegmentA])
	requireLocked(t, dev)
}

func TestCommit_TimingGeneratorOutOfRange(t *testing.T) {
	// MCLK at 16 MHz puts MCLK/3 far outside the flash clock window.
	dev := sim.New()
	dev.SetTuning(0x7F, 0x8F)

	// unverified: the controller only flags FAIL, no transport error
	require.NoError(t, newStore(t, dev, false).Commit(sample))
	require.Positive(t, dev.Stats().TimingFailures)

	err := newStore(t, dev, true).Commit(sample)
	var verr *VerifyError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, sample, verr.Want)
	require.True(t, verr.Got.Erased())
	requireLocked(t, dev)
}

func TestCommit_RelocksAfterBusFailure(t *testing.T) {
	dev := sim.New()
	bus := &failingBus{Bus: dev, addr: regs.CalibrationBlock + 3}

	err := newStore(t, bus, false).Commit(sample)
	require.ErrorIs(t, err, errBridge)
	requireLocked(t, dev)

	// bytes before the failure were programmed
	require.Equal(t, uint8(0x33), dev.Peek(regs.CalibrationBlock+2))
	require.Equal(t, uint8(0xFF), dev.Peek(regs.CalibrationBlock+3))
}

func TestRead_ErasedSegment(t *testing.T) {
	got, err := newStore(t, sim.New(), false).Read()
	require.NoError(t, err)
	require.True(t, got.Erased())
}
