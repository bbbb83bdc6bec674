// internal/device/builder_test.go
package device

import (
	"testing"

	"github.com/stretchr/testify/require"

	cfg "github.com/tamzrod/dco-calibrator/internal/config"
	"github.com/tamzrod/dco-calibrator/internal/regs"
	"github.com/tamzrod/dco-calibrator/internal/regs/sim"
)

func TestBuild_Sim(t *testing.T) {
	h, err := Build(cfg.DeviceConfig{Backend: cfg.BackendSim})
	require.NoError(t, err)
	defer h.Close()

	_, ok := h.Bus.(*sim.Device)
	require.True(t, ok, "sim backend should expose the simulated device")
	require.Equal(t, h.Bus, h.Waiter)

	v, err := h.Bus.Read8(regs.DCOCTL)
	require.NoError(t, err)
	require.Equal(t, regs.ResetDCOCTL, v)
}

func TestBuild_Unknown(t *testing.T) {
	_, err := Build(cfg.DeviceConfig{Backend: "swd"})
	require.Error(t, err)
}

func TestBuild_TCPWithoutEndpoint(t *testing.T) {
	_, err := Build(cfg.DeviceConfig{Backend: cfg.BackendModbusTCP})
	require.Error(t, err)
}
