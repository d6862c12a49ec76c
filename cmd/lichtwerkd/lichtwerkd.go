package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"dev.acmcsuf.com/lichtwerkd"
	"github.com/go-chi/httplog/v2"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"libdb.so/hserve"
)

var (
	configPath    = "lichtwerkd.yml"
	httpAddr      = "0.0.0.0:5006"
	httpAdminAddr = "127.0.0.1:5007"
	startEffect   = ""
	demo          = false
	verbose       = false
)

func init() {
	pflag.StringVarP(&configPath, "config", "c", configPath, "YAML configuration file")
	pflag.StringVarP(&httpAddr, "http-addr", "a", httpAddr, "HTTP server address")
	pflag.StringVarP(&httpAdminAddr, "http-admin-addr", "A", httpAdminAddr, "HTTP admin server address")
	pflag.StringVarP(&startEffect, "effect", "e", startEffect, "effect to start with, overriding the config")
	pflag.BoolVar(&demo, "demo", demo, "run without LED hardware")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "verbose logging")
}

func main() {
	log.SetFlags(0)
	pflag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	logHandler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05 PM", // extended time.Kitchen
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})

	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, found, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if !found {
		logger.Info(
			"config file not found, using defaults",
			"path", configPath)
	}

	state := cfg.initialState()
	if startEffect != "" {
		state.Effect = startEffect
		state.Power = true
	}

	var sink lichtwerkd.PixelSink
	if !demo {
		sink = openSink(cfg.LED, logger)
	}

	controller, err := lichtwerkd.NewController(lichtwerkd.ControllerOpts{
		Sink:     sink,
		LEDCount: cfg.LED.Count,
		Pin:      cfg.LED.Pin,
		Initial:  &state,
		Effects:  cfg.Effects,
		Logger:   logger.With("component", "controller"),
	})
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}

	server := lichtwerkd.NewServer(lichtwerkd.ServerOpts{
		Controller: controller,
		Logger:     logger.With("component", "server"),
	})

	httpLogger := &httplog.Logger{
		Logger: logger.With("component", "http"),
		Options: httplog.Options{
			LogLevel: slog.LevelDebug,
			Concise:  true,
		},
	}

	errg, ctx := errgroup.WithContext(ctx)

	errg.Go(func() error {
		return controller.Run(ctx)
	})

	errg.Go(func() error {
		<-ctx.Done()
		server.KickAllStreams("server shutting down")
		return nil
	})

	errg.Go(func() error {
		r := httpRouter(server, httpLogger)

		logger.Info(
			"starting public HTTP server",
			"addr", httpAddr,
			"leds", cfg.LED.Count,
			"demo", sink == nil)

		return hserve.ListenAndServe(ctx, httpAddr, r)
	})

	errg.Go(func() error {
		if httpAdminAddr == "" {
			return nil
		}

		admin := newAdminHandler(server, controller)

		logger.Info(
			"starting admin HTTP server",
			"addr", httpAdminAddr)

		return hserve.ListenAndServe(ctx, httpAdminAddr, admin)
	})

	return errg.Wait()
}

// openSink opens the LED strip. A strip that cannot be opened is not fatal:
// the daemon falls back to demo mode.
func openSink(cfg LEDConfig, logger *slog.Logger) lichtwerkd.PixelSink {
	if cfg.Invert {
		logger.Warn(
			"led.invert is set but not supported by the driver, ignoring")
	}
	if cfg.Channel != 0 {
		logger.Warn(
			"led.channel is set but not supported by the driver, ignoring",
			"channel", cfg.Channel)
	}

	sink, err := newWS281xSink(cfg)
	if err != nil {
		logger.Warn(
			"failed to open LED strip, running in demo mode",
			"pin", cfg.Pin,
			"error", err)
		return nil
	}

	return sink
}
