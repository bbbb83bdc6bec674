// internal/report/sinks.go
package report

import (
	"errors"
	"fmt"
	"io"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/goburrow/serial"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ---- UART ----

// OpenSerial opens the report UART, 8N1.
func OpenSerial(port string, baud int) (io.WriteCloser, error) {
	if port == "" {
		return nil, errors.New("report serial: port required")
	}
	p, err := serial.Open(&serial.Config{
		Address:  port,
		BaudRate: baud,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("report serial: open %s: %w", port, err)
	}
	return p, nil
}

// ---- ROTATING FILE ----

// NewRotatingFile returns a size-rotated transcript of every report cycle.
func NewRotatingFile(path string) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    1, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
}

// ---- MQTT ----

// MQTTPublisher publishes the block as a retained message.
type MQTTPublisher struct {
	client  paho.Client
	topic   string
	timeout time.Duration
}

// NewMQTTPublisher connects to broker (e.g. "tcp://host:1883").
func NewMQTTPublisher(broker, topic, clientID string, timeout time.Duration) (*MQTTPublisher, error) {
	if broker == "" || topic == "" {
		return nil, errors.New("report mqtt: broker and topic required")
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(broker).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if clientID != "" {
		opts.SetClientID(clientID)
	}

	c := paho.NewClient(opts)
	tok := c.Connect()
	if !tok.WaitTimeout(timeout) {
		return nil, fmt.Errorf("report mqtt: connect %s: timeout", broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("report mqtt: connect %s: %w", broker, err)
	}

	return &MQTTPublisher{client: c, topic: topic, timeout: timeout}, nil
}

func (p *MQTTPublisher) Publish(payload []byte) error {
	tok := p.client.Publish(p.topic, 1, true, payload)
	if !tok.WaitTimeout(p.timeout) {
		return fmt.Errorf("report mqtt: publish %s: timeout", p.topic)
	}
	return tok.Error()
}

// Close implements io.Closer.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
