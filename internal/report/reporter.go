// internal/report/reporter.go
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/tamzrod/dco-calibrator/internal/calib"
)

// Source reads the committed calibration block.
type Source interface {
	Read() (calib.Buffer, error)
}

// Toggler is the status heartbeat flipped once per cycle.
type Toggler interface {
	Toggle() error
}

// Publisher delivers the encoded block to a broker.
type Publisher interface {
	Publish(payload []byte) error
}

// Config is the minimal runtime config the reporter needs.
type Config struct {
	Interval time.Duration
	Cycles   int // 0 = until cancelled
}

// Reporter is a dumb, clock-driven presenter of the stored constants.
type Reporter struct {
	cfg   Config
	src   Source
	sinks []io.Writer

	Heartbeat Toggler   // optional
	Publisher Publisher // optional
}

// New creates a reporter with immutable config.
func New(cfg Config, src Source, sinks ...io.Writer) (*Reporter, error) {
	if src == nil {
		return nil, errors.New("report: source required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("report: interval must be > 0")
	}
	if cfg.Cycles < 0 {
		return nil, errors.New("report: cycles must be >= 0")
	}
	return &Reporter{cfg: cfg, src: src, sinks: sinks}, nil
}

// Cycle performs exactly one report: read, write every sink, publish, heartbeat.
// A failing sink does not stop the others.
func (r *Reporter) Cycle() error {
	buf, err := r.src.Read()
	if err != nil {
		return fmt.Errorf("report: read constants: %w", err)
	}

	text := strings.Join(Lines(buf), "")

	var errs []string
	for i, w := range r.sinks {
		if _, err := io.WriteString(w, text); err != nil {
			errs = append(errs, fmt.Sprintf("sink %d: %v", i, err))
		}
	}

	if r.Publisher != nil {
		payload, err := Document(buf)
		if err == nil {
			err = r.Publisher.Publish(payload)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("publish: %v", err))
		}
	}

	if r.Heartbeat != nil {
		if err := r.Heartbeat.Toggle(); err != nil {
			errs = append(errs, fmt.Sprintf("heartbeat: %v", err))
		}
	}

	if len(errs) > 0 {
		return errors.New("report: " + strings.Join(errs, " | "))
	}
	return nil
}

// Run reports immediately, then once per interval.
// It returns when ctx ends or the configured number of cycles is done.
func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		if err := r.Cycle(); err != nil {
			glog.Errorf("report cycle %d: %v", n, err)
		}
		if r.cfg.Cycles > 0 && n >= r.cfg.Cycles {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
