// cmd/dcocal/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/tamzrod/dco-calibrator/internal/board"
	"github.com/tamzrod/dco-calibrator/internal/calibrator"
	"github.com/tamzrod/dco-calibrator/internal/config"
	"github.com/tamzrod/dco-calibrator/internal/device"
	"github.com/tamzrod/dco-calibrator/internal/locker"
	"github.com/tamzrod/dco-calibrator/internal/report"
	"github.com/tamzrod/dco-calibrator/internal/store"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: dcocal [glog flags] <config.yaml>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	defer glog.Flush()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfgPath := flag.Arg(0)

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		glog.Exitf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		glog.Exitf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		glog.Errorf("dcocal: %v", err)
		glog.Flush()
		os.Exit(1)
	}
}

// run calibrates once and then reports. stdout is the sink when no report port is set.
func run(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	// --------------------
	// Device + board
	// --------------------

	dev, err := device.Build(cfg.Device)
	if err != nil {
		return fmt.Errorf("device build failed: %w", err)
	}
	defer dev.Close()

	if err := board.Init(dev.Bus); err != nil {
		return err
	}
	statusLED := board.NewPin(dev.Bus, board.StatusLED)

	// --------------------
	// Calibrate + commit (exactly once)
	// --------------------

	lk, err := locker.New(locker.Config{
		MaxCaptures: cfg.Calibration.MaxCaptures,
		Heartbeat:   board.NewPin(dev.Bus, board.CaptureLED),
	}, dev.Bus, dev.Waiter)
	if err != nil {
		return err
	}

	st, err := store.New(store.Config{Verify: cfg.Calibration.Verify}, dev.Bus)
	if err != nil {
		return err
	}

	cal, err := calibrator.New(calibrator.Config{
		Mode:    calibrator.Mode(cfg.Calibration.Mode),
		Timeout: time.Duration(cfg.Calibration.TimeoutMs) * time.Millisecond,
	}, lk, st, statusLED)
	if err != nil {
		return err
	}

	out, err := cal.Run(ctx)
	if err != nil {
		return err
	}
	glog.Infof("calibration %s: %s", out.Source, out.Buffer)

	// --------------------
	// Report loop
	// --------------------

	sinks, closeSinks, err := buildSinks(cfg.Report, stdout)
	if err != nil {
		return err
	}
	defer closeSinks()

	rep, err := report.New(report.Config{
		Interval: time.Duration(cfg.Report.IntervalMs) * time.Millisecond,
		Cycles:   cfg.Report.Cycles,
	}, st, sinks...)
	if err != nil {
		return err
	}
	rep.Heartbeat = statusLED

	if cfg.Report.MQTTBroker != "" {
		pub, err := report.NewMQTTPublisher(
			cfg.Report.MQTTBroker,
			cfg.Report.MQTTTopic,
			cfg.Report.MQTTClientID,
			time.Duration(cfg.Report.MQTTTimeoutMs)*time.Millisecond,
		)
		if err != nil {
			// publication is best-effort; the UART report still runs
			glog.Warningf("mqtt disabled: %v", err)
		} else {
			defer pub.Close()
			rep.Publisher = pub
		}
	}

	return rep.Run(ctx)
}

// buildSinks opens the report UART (or stdout) and the optional transcript file.
func buildSinks(r config.ReportConfig, stdout io.Writer) ([]io.Writer, func(), error) {
	var (
		sinks   []io.Writer
		closers []io.Closer
	)

	if r.Port == "" {
		sinks = append(sinks, stdout)
	} else {
		port, err := report.OpenSerial(r.Port, r.BaudRate)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, port)
		closers = append(closers, port)
	}

	if r.LogFile != "" {
		f := report.NewRotatingFile(r.LogFile)
		sinks = append(sinks, f)
		closers = append(closers, f)
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				glog.Warningf("close sink: %v", err)
			}
		}
	}
	return sinks, closeAll, nil
}
