//go:build !tinygo

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"ember/app"
	"ember/hal"
)

func main() {
	var hcfg hal.HeadlessConfig
	var serialPort string
	var serialBaud int
	var noMonitor bool
	flag.BoolVar(&hcfg.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&hcfg.Hz, "hz", 1000, "Tick rate in headless mode.")
	flag.Uint64Var(&hcfg.Ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run forever).")
	flag.StringVar(&serialPort, "serial", "", "Serial device for the monitor console (default stdio).")
	flag.IntVar(&serialBaud, "baud", 115200, "Baud rate for -serial.")
	flag.BoolVar(&noMonitor, "no-monitor", false, "Disable the serial command console.")
	flag.Parse()

	cfg := hal.Config{SerialPort: serialPort, SerialBaud: serialBaud}
	newApp := func(h hal.HAL) func() error {
		return app.NewWithConfig(h, app.Config{Monitor: !noMonitor})
	}

	if hcfg.Enabled {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := hal.RunHeadless(ctx, cfg, newApp, hcfg); err != nil {
			if err == context.Canceled {
				return
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := hal.RunWindow(cfg, newApp); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
