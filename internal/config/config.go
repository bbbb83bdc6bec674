// internal/config/config.go
package config

type Config struct {
	Device      DeviceConfig      `yaml:"device"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Report      ReportConfig      `yaml:"report"`
}

// ---- DEVICE ----

// Backend names.
const (
	BackendSim       = "sim"
	BackendModbusTCP = "modbus-tcp"
	BackendModbusRTU = "modbus-rtu"
)

type DeviceConfig struct {
	Backend        string `yaml:"backend"`
	Endpoint       string `yaml:"endpoint"`    // modbus-tcp
	SerialPort     string `yaml:"serial_port"` // modbus-rtu
	BaudRate       int    `yaml:"baud_rate"`
	UnitID         uint8  `yaml:"unit_id"`
	TimeoutMs      int    `yaml:"timeout_ms"`
	PollIntervalMs int    `yaml:"poll_interval_ms"` // capture-flag polling; 0 = spin
}

// ---- CALIBRATION ----

// Calibration modes.
const (
	ModeLive             = "live"
	ModeFallback         = "fallback"
	ModeLiveWithFallback = "live-with-fallback"
)

type CalibrationConfig struct {
	Mode        string `yaml:"mode"`
	MaxCaptures int    `yaml:"max_captures"` // per target; 0 = unbounded
	TimeoutMs   int    `yaml:"timeout_ms"`   // all targets; 0 = unbounded
	Verify      bool   `yaml:"verify"`
}

// ---- REPORT ----

type ReportConfig struct {
	Port       string `yaml:"port"` // empty = stdout
	BaudRate   int    `yaml:"baud_rate"`
	IntervalMs int    `yaml:"interval_ms"`
	Cycles     int    `yaml:"cycles"` // 0 = forever
	LogFile    string `yaml:"log_file"`

	MQTTBroker    string `yaml:"mqtt_broker"`
	MQTTTopic     string `yaml:"mqtt_topic"`
	MQTTClientID  string `yaml:"mqtt_client_id"`
	MQTTTimeoutMs int    `yaml:"mqtt_timeout_ms"` // connect and publish
}
