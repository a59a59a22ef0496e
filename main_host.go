package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/shlex"

	"kthreads/app"
	"kthreads/hal"
)

func main() {
	var hcfg hal.HeadlessConfig
	var cfg app.Config
	var initLine string
	flag.BoolVar(&hcfg.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&hcfg.Hz, "hz", 60, "Tick rate in headless mode.")
	flag.Uint64Var(&hcfg.Ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run forever).")
	flag.IntVar(&cfg.CPUs, "cpus", 2, "Number of processors.")
	flag.IntVar(&cfg.Pages, "pages", 0, "Kernel stack pages (0 = one per thread slot).")
	flag.StringVar(&initLine, "init", "counter pingpong spawn", "Programs for init to start.")
	flag.Uint64Var(&cfg.DumpEvery, "dump-every", 0, "List processes every N timer ticks (0 = never).")
	flag.Parse()

	argv, err := shlex.Split(initLine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "-init: %v\n", err)
		os.Exit(2)
	}
	cfg.Init = argv

	if hcfg.Enabled {
		cfg.ExitOnPanic = true
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := hal.RunHeadless(ctx, func(h hal.HAL) func() error {
			return app.NewWithConfig(h, cfg)
		}, hcfg); err != nil {
			if err == context.Canceled {
				return
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := hal.RunWindow(func(h hal.HAL) func() error {
		return app.NewWithConfig(h, cfg)
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
