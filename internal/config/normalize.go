// internal/config/normalize.go
package config

// Defaults applied by Normalize.
const (
	DefaultDeviceTimeoutMs  = 1000
	DefaultDeviceBaudRate   = 115200
	DefaultReportBaudRate   = 9600
	DefaultReportIntervalMs = 4250
	DefaultMQTTTopic        = "dco/constants"
	DefaultMQTTClientID     = "dcocal"
	DefaultMQTTTimeoutMs    = 2000
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// ---- device ----

	if cfg.Device.Backend == "" {
		cfg.Device.Backend = BackendSim
	}
	if cfg.Device.TimeoutMs == 0 {
		cfg.Device.TimeoutMs = DefaultDeviceTimeoutMs
	}
	if cfg.Device.Backend == BackendModbusRTU && cfg.Device.BaudRate == 0 {
		cfg.Device.BaudRate = DefaultDeviceBaudRate
	}

	// ---- calibration ----

	if cfg.Calibration.Mode == "" {
		cfg.Calibration.Mode = ModeLive
	}

	// ---- report ----

	if cfg.Report.BaudRate == 0 {
		cfg.Report.BaudRate = DefaultReportBaudRate
	}
	if cfg.Report.IntervalMs == 0 {
		cfg.Report.IntervalMs = DefaultReportIntervalMs
	}

	// MQTT is opt-in; only fill the rest when a broker is set.
	if cfg.Report.MQTTBroker != "" {
		if cfg.Report.MQTTTopic == "" {
			cfg.Report.MQTTTopic = DefaultMQTTTopic
		}
		if cfg.Report.MQTTClientID == "" {
			cfg.Report.MQTTClientID = DefaultMQTTClientID
		}
		if cfg.Report.MQTTTimeoutMs == 0 {
			cfg.Report.MQTTTimeoutMs = DefaultMQTTTimeoutMs
		}
	}
}
