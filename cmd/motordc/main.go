package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"motordc/internal/config"
	"motordc/internal/hal"
	"motordc/internal/motor"
)

type options struct {
	configPath string
	backend    string
	duty       string
	hold       bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "./motordc.yaml", "Path to YAML config")
	flag.StringVar(&opts.backend, "backend", "", "Override hal.backend ("+fmt.Sprint(hal.Backends)+")")
	flag.StringVar(&opts.duty, "duty", "", "Apply this duty cycle [%] once instead of prompting")
	flag.BoolVar(&opts.hold, "hold", false, "With -duty, keep the motor running until interrupted")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		log.Fatalf("motordc: %v", err)
	}
}

var openHALFn = hal.Open

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if opts.backend != "" {
		cfg.HAL.Backend = opts.backend
	}
	mcfg, err := cfg.Motor.Build()
	if err != nil {
		return fmt.Errorf("motor config invalid: %w", err)
	}

	hw, err := openHALFn(cfg.HAL.Backend, cfg.HAL.Options())
	if err != nil {
		return fmt.Errorf("hal open failed: %w", err)
	}
	defer hw.Close()

	drv := motor.New(hw, mcfg, motor.WithLogger(log.Default()))
	if err := drv.Initialize(); err != nil {
		return fmt.Errorf("motor init failed: %w", err)
	}
	defer func() {
		if err := drv.Close(); err != nil {
			log.Printf("motor shutdown: %v", err)
		}
	}()

	log.Printf("motordc starting backend=%s %s", cfg.HAL.Backend, mcfg)

	if opts.duty != "" {
		return runOnce(ctx, drv, opts.duty, opts.hold)
	}
	err = runPrompt(ctx, os.Stdin, os.Stdout, drv)
	log.Printf("motordc stopping")
	return err
}

func runOnce(ctx context.Context, drv *motor.Driver, duty string, hold bool) error {
	v, err := strconv.ParseFloat(duty, 64)
	if err != nil {
		return fmt.Errorf("parse -duty %q: %w", duty, err)
	}
	if err := drv.SetDutyCycle(v); err != nil {
		return err
	}
	st := drv.State()
	fmt.Printf("pwm=%d dir=%d\n", st.PWM, st.Direction)
	if hold {
		<-ctx.Done()
	}
	return nil
}
