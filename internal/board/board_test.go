// internal/board/board_test.go
package board

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tamzrod/dco-calibrator/internal/regs"
	"github.com/tamzrod/dco-calibrator/internal/regs/sim"
)

func TestInit_ConfiguresPart(t *testing.T) {
	dev := sim.New()
	dev.Load(regs.P4OUT, []byte{0xFF})

	require.NoError(t, Init(dev))

	wdt, err := dev.Read16(regs.WDTCTL)
	require.NoError(t, err)
	require.NotZero(t, wdt&regs.WDTHOLD)

	require.Equal(t, regs.LFXT1S_3, dev.Peek(regs.BCSCTL3)&regs.LFXT1S_3)
	require.Zero(t, dev.Peek(regs.P4OUT))
	require.Equal(t, OutputPins, dev.Peek(regs.P4DIR))
	require.Zero(t, dev.Stats().KeyViolations)
}

func TestPin_Operations(t *testing.T) {
	dev := sim.New()
	require.NoError(t, Init(dev))

	status := NewPin(dev, StatusLED)
	capture := NewPin(dev, CaptureLED)

	require.NoError(t, status.Set())
	require.NoError(t, capture.Toggle())
	require.Equal(t, StatusLED|CaptureLED, dev.Peek(regs.P4OUT))

	require.NoError(t, status.Clear())
	require.Equal(t, CaptureLED, dev.Peek(regs.P4OUT))

	require.NoError(t, capture.Toggle())
	require.Zero(t, dev.Peek(regs.P4OUT))
	require.Equal(t, 2, dev.Stats().PinToggles[CaptureLED])
}
