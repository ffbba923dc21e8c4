// Command glow-sim is a simulated game host for the highlight engine.
//
// It runs the engine against an in-process world whose clients receive every
// packet through the real connection pipeline and frame codec, so highlights
// can be tried and captured without a game server.
//
// Usage:
//
//	glow-sim [flags] [client...]
//
// Flags:
//
//	-config string        YAML configuration file
//	-protocol int         Protocol version the host speaks (default 767)
//	-blocks               Host supports block highlights (default true)
//	-disable-blocks       Disable the block extension in the engine
//	-compression int      Frame compression threshold (default 256)
//	-capture string       Write capture events to a .glog or .glog.zst file
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-metrics-addr string  Serve Prometheus metrics on this address
//	-interactive          Start the interactive console (default true)
//
// Examples:
//
//	# Two clients on 1.20.1, capturing to a compressed file
//	glow-sim -protocol 763 -capture session.glog.zst alice bob
//
//	# Settings from a file, metrics on :9100
//	glow-sim -config sim.yaml -metrics-addr :9100
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/glowkit/glow-go/cmd/glow-sim/interactive"
	"github.com/glowkit/glow-go/cmd/glow-sim/sim"
	"github.com/glowkit/glow-go/pkg/log"
	"github.com/glowkit/glow-go/pkg/metrics"
)

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	level, _ := parseLevel(cfg.LogLevel)
	logOut := &switchWriter{w: os.Stderr}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	simCfg := cfg.simConfig()
	simCfg.Engine.Logger = logger

	// Capture: file plus debug-level log lines.
	var captures []log.Logger
	if cfg.Capture != "" {
		fl, err := log.NewFileLogger(cfg.Capture)
		if err != nil {
			return fmt.Errorf("failed to open capture file: %w", err)
		}
		defer func() {
			if err := fl.Close(); err != nil {
				logger.Error("closing capture file", "error", err)
			}
			if n := fl.Dropped(); n > 0 {
				logger.Warn("capture events dropped", "count", n)
			}
		}()
		captures = append(captures, fl)
		logger.Info("capturing", "file", cfg.Capture)
	}
	if level <= slog.LevelDebug {
		captures = append(captures, log.NewSlogAdapter(logger))
	}
	if len(captures) > 0 {
		simCfg.Engine.Capture = log.NewMultiLogger(captures...)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	simCfg.Engine.Metrics = metrics.New(metrics.WithRegistry(reg))
	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	world, err := sim.New(simCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := world.Close(); err != nil {
			logger.Warn("shutdown cleanup", "error", err)
		}
	}()
	logger.Info("engine started",
		"protocol", cfg.Protocol,
		"release", world.Engine().Capability().Release(),
		"blocks", world.Engine().BlockCapabilityAvailable())

	for _, name := range cfg.Clients {
		if _, err := world.Connect(name); err != nil {
			return err
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if cfg.Interactive {
		console, err := interactive.New(world)
		if err != nil {
			return err
		}
		logOut.set(console.Stdout())
		console.Run(ctx, cancel)
		logOut.set(os.Stderr)
		return nil
	}

	<-ctx.Done()
	return nil
}

// switchWriter lets log output move to the console once it is running.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) set(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}

func (s *switchWriter) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(b)
}
