package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"learnpi/interpreter-go/pkg/driver"
	"learnpi/interpreter-go/pkg/gpio"
	"learnpi/interpreter-go/pkg/interpreter"
	"learnpi/interpreter-go/pkg/runtime"
)

// execute preloads the program's libraries, runs the entry and reports its
// diagnostics. The exit code is 1 when anything went wrong.
func (c *cli) execute(program *driver.Program) int {
	board := driver.DefaultBoard()
	if program.Manifest != nil {
		board = program.Manifest.Board
	}
	log := c.log.With(zap.String("program", program.EntryPath))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	if c.metricsAddr != "" {
		stop, err := c.serveMetrics(registry)
		if err != nil {
			fmt.Fprintf(c.stderr, "failed to serve metrics: %v\n", err)
			return 1
		}
		defer stop()
	}

	backend := gpio.Instrument(gpio.NewSimulator(c.log), registry)
	interp := interpreter.New(interpreter.Config{
		Backend:    backend,
		Logger:     c.log,
		Stdout:     c.stdout,
		Sleep:      scaledSleep(board.DelayScale),
		MaxSymbols: board.MaxSymbols,
	})

	if err := interp.Preload(program.Modules()...); err != nil {
		c.reportError("preload", err)
		return 1
	}
	log.Debug("starting program", zap.Int("libraries", len(program.Libraries)), zap.String("backend", board.Backend))

	result, err := interp.Run(program.Entry)
	for _, diag := range result.Diagnostics {
		c.reportDiagnostic(diag)
	}
	if err != nil {
		c.reportError("fatal", err)
		return 1
	}
	log.Debug("program finished", zap.Int("statements", result.Statements), zap.Int("diagnostics", len(result.Diagnostics)))
	if !result.OK() {
		return 1
	}
	return 0
}

// scaledSleep multiplies delay() durations by scale; a zero scale skips
// sleeping entirely.
func scaledSleep(scale float64) func(time.Duration) {
	if scale == 0 {
		return func(time.Duration) {}
	}
	return func(d time.Duration) {
		time.Sleep(time.Duration(float64(d) * scale))
	}
}

func (c *cli) reportDiagnostic(diag interpreter.Diagnostic) {
	fmt.Fprintf(c.stderr, "line %d: %s: %v\n", diag.Line, c.paint(colorRed, "error"), diag.Err)
}

func (c *cli) reportError(stage string, err error) {
	label := c.paint(colorRed, stage+" error")
	if line := runtime.LineOf(err); line > 0 {
		fmt.Fprintf(c.stderr, "line %d: %s: %v\n", line, label, err)
		return
	}
	fmt.Fprintf(c.stderr, "%s: %v\n", label, err)
}

// serveMetrics exposes registry over HTTP until the returned stop is called.
func (c *cli) serveMetrics(registry *prometheus.Registry) (func(), error) {
	listener, err := net.Listen("tcp", c.metricsAddr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	c.log.Info("serving metrics", zap.String("addr", listener.Addr().String()))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}, nil
}
