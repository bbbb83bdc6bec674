// internal/config/validate.go
package config

import (
	"fmt"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	// ------------------------------------------------------------
	// DEVICE BACKEND
	// ------------------------------------------------------------

	d := cfg.Device

	switch d.Backend {
	case "", BackendSim:
	case BackendModbusTCP:
		if d.Endpoint == "" {
			return fmt.Errorf("device: backend %q requires endpoint", d.Backend)
		}
	case BackendModbusRTU:
		if d.SerialPort == "" {
			return fmt.Errorf("device: backend %q requires serial_port", d.Backend)
		}
	default:
		return fmt.Errorf("device: unknown backend %q", d.Backend)
	}

	if d.TimeoutMs < 0 {
		return fmt.Errorf("device: timeout_ms must be >= 0, got %d", d.TimeoutMs)
	}
	if d.PollIntervalMs < 0 {
		return fmt.Errorf("device: poll_interval_ms must be >= 0, got %d", d.PollIntervalMs)
	}
	if d.BaudRate < 0 {
		return fmt.Errorf("device: baud_rate must be >= 0, got %d", d.BaudRate)
	}

	// ------------------------------------------------------------
	// CALIBRATION
	// ------------------------------------------------------------

	c := cfg.Calibration

	switch c.Mode {
	case "", ModeLive, ModeFallback, ModeLiveWithFallback:
	default:
		return fmt.Errorf("calibration: unknown mode %q", c.Mode)
	}

	if c.MaxCaptures < 0 {
		return fmt.Errorf("calibration: max_captures must be >= 0, got %d", c.MaxCaptures)
	}
	if c.TimeoutMs < 0 {
		return fmt.Errorf("calibration: timeout_ms must be >= 0, got %d", c.TimeoutMs)
	}

	// live-with-fallback needs a way to give up
	if c.Mode == ModeLiveWithFallback && c.MaxCaptures == 0 && c.TimeoutMs == 0 {
		return fmt.Errorf(
			"calibration: mode %q requires max_captures or timeout_ms",
			c.Mode,
		)
	}

	// ------------------------------------------------------------
	// REPORT
	// ------------------------------------------------------------

	r := cfg.Report

	if r.IntervalMs < 0 {
		return fmt.Errorf("report: interval_ms must be >= 0, got %d", r.IntervalMs)
	}
	if r.Cycles < 0 {
		return fmt.Errorf("report: cycles must be >= 0, got %d", r.Cycles)
	}
	if r.BaudRate < 0 {
		return fmt.Errorf("report: baud_rate must be >= 0, got %d", r.BaudRate)
	}
	if r.MQTTTimeoutMs < 0 {
		return fmt.Errorf("report: mqtt_timeout_ms must be >= 0, got %d", r.MQTTTimeoutMs)
	}

	// the report UART and the RTU bridge cannot share a port
	if d.Backend == BackendModbusRTU && r.Port != "" && r.Port == d.SerialPort {
		return fmt.Errorf(
			"serial port collision: %s used by device and report",
			r.Port,
		)
	}

	return nil
}
