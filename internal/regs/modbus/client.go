// internal/regs/modbus/client.go
package modbus

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// Bus implements regs.Bus against a Modbus bench bridge attached to the
// target's debug port.
//
// Bridge contract: one holding register per MCU byte address.
// Byte registers carry their value in the low byte; word registers carry the full word.
// Requests are serialized; the bridge is single-master.
type Bus struct {
	mu     sync.Mutex
	client registerClient
	closer io.Closer
}

// registerClient is the subset of modbus.Client the bus needs.
type registerClient interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	WriteSingleRegister(address, value uint16) ([]byte, error)
}

// Config is minimal transport config.
type Config struct {
	Endpoint   string // modbus-tcp
	SerialPort string // modbus-rtu
	BaudRate   int
	UnitID     uint8
	Timeout    time.Duration
}

// NewTCP connects to a bridge over Modbus TCP.
func NewTCP(cfg Config) (*Bus, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("regs modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("regs modbus: connect %s: %w", cfg.Endpoint, err)
	}

	return &Bus{
		client: modbus.NewClient(h),
		closer: h,
	}, nil
}

// NewRTU opens a bridge over Modbus RTU on a serial port (8N1).
func NewRTU(cfg Config) (*Bus, error) {
	if cfg.SerialPort == "" {
		return nil, errors.New("regs modbus: serial port required")
	}

	h := modbus.NewRTUClientHandler(cfg.SerialPort)
	h.BaudRate = cfg.BaudRate
	h.DataBits = 8
	h.Parity = "N"
	h.StopBits = 1
	h.SlaveId = cfg.UnitID
	h.Timeout = cfg.Timeout

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("regs modbus: open %s: %w", cfg.SerialPort, err)
	}

	return &Bus{
		client: modbus.NewClient(h),
		closer: h,
	}, nil
}

// Close releases the transport.
func (b *Bus) Close() error {
	if b == nil || b.closer == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closer.Close()
}

// ---- regs.Bus ----

func (b *Bus) Read8(addr uint16) (uint8, error) {
	v, err := b.readRegister(addr)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

func (b *Bus) Write8(addr uint16, v uint8) error {
	return b.writeRegister(addr, uint16(v))
}

func (b *Bus) Read16(addr uint16) (uint16, error) {
	return b.readRegister(addr)
}

func (b *Bus) Write16(addr uint16, v uint16) error {
	return b.writeRegister(addr, v)
}

// ---- internal helpers ----

func (b *Bus) readRegister(addr uint16) (uint16, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client == nil {
		return 0, errors.New("regs modbus: not connected")
	}

	raw, err := b.client.ReadHoldingRegisters(addr, 1)
	if err != nil {
		return 0, fmt.Errorf("regs modbus: read 0x%04X: %w", addr, err)
	}

	regs := unpackRegisters(raw)
	if len(regs) != 1 {
		return 0, fmt.Errorf("regs modbus: read 0x%04X: short payload (%d bytes)", addr, len(raw))
	}
	return regs[0], nil
}

func (b *Bus) writeRegister(addr, v uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client == nil {
		return errors.New("regs modbus: not connected")
	}

	if _, err := b.client.WriteSingleRegister(addr, v); err != nil {
		return fmt.Errorf("regs modbus: write 0x%04X: %w", addr, err)
	}
	return nil
}

// Modbus register memory order (BIG-ENDIAN)
func unpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}
