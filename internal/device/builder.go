// internal/device/builder.go
package device

import (
	"fmt"
	"time"

	"github.com/golang/glog"

	cfg "github.com/tamzrod/dco-calibrator/internal/config"
	"github.com/tamzrod/dco-calibrator/internal/regs"
	rmodbus "github.com/tamzrod/dco-calibrator/internal/regs/modbus"
	"github.com/tamzrod/dco-calibrator/internal/regs/sim"
)

// Handle is a connected register backend.
type Handle struct {
	Bus    regs.Bus
	Waiter regs.Waiter
	Close  func() error
}

// Build constructs the register backend named by the config.
// Config must already be validated and normalized.
func Build(d cfg.DeviceConfig) (Handle, error) {
	timeout := time.Duration(d.TimeoutMs) * time.Millisecond
	poll := regs.PollWaiter{Interval: time.Duration(d.PollIntervalMs) * time.Millisecond}

	switch d.Backend {
	case cfg.BackendSim:
		dev := sim.New()
		glog.Info("device: simulated MSP430G2x55")
		// the simulator advances time while waiting
		return Handle{Bus: dev, Waiter: dev, Close: func() error { return nil }}, nil

	case cfg.BackendModbusTCP:
		bus, err := rmodbus.NewTCP(rmodbus.Config{
			Endpoint: d.Endpoint,
			UnitID:   d.UnitID,
			Timeout:  timeout,
		})
		if err != nil {
			return Handle{}, err
		}
		glog.Infof("device: modbus-tcp bridge %s unit=%d", d.Endpoint, d.UnitID)
		return Handle{Bus: bus, Waiter: poll, Close: bus.Close}, nil

	case cfg.BackendModbusRTU:
		bus, err := rmodbus.NewRTU(rmodbus.Config{
			SerialPort: d.SerialPort,
			BaudRate:   d.BaudRate,
			UnitID:     d.UnitID,
			Timeout:    timeout,
		})
		if err != nil {
			return Handle{}, err
		}
		glog.Infof("device: modbus-rtu bridge %s@%d unit=%d", d.SerialPort, d.BaudRate, d.UnitID)
		return Handle{Bus: bus, Waiter: poll, Close: bus.Close}, nil
	}

	return Handle{}, fmt.Errorf("device: unknown backend %q", d.Backend)
}
