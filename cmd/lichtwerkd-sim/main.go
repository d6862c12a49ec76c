package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"dev.acmcsuf.com/lichtwerkd"
	"github.com/go-chi/chi/v5"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"libdb.so/hserve"
)

//go:embed frontend
var frontendFS embed.FS
var frontendFilesFS, _ = fs.Sub(frontendFS, "frontend")

var (
	httpAddr    = ":9001"
	ledCount    = 60
	startEffect = "rainbow"
	verbose     = false
)

func init() {
	pflag.StringVarP(&httpAddr, "http-addr", "a", httpAddr, "HTTP server address")
	pflag.IntVarP(&ledCount, "leds", "n", ledCount, "number of simulated LEDs")
	pflag.StringVarP(&startEffect, "effect", "e", startEffect, "effect to start with")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "verbose logging")
}

const frameRate = 20

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

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	state := lichtwerkd.DefaultState
	state.Power = true
	state.Effect = startEffect

	controller, err := lichtwerkd.NewController(lichtwerkd.ControllerOpts{
		Sink:    lichtwerkd.NewMemorySink(ledCount),
		Initial: &state,
		Logger:  logger.With("component", "controller"),
	})
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}

	server := lichtwerkd.NewServer(lichtwerkd.ServerOpts{
		Controller: controller,
		Logger:     logger.With("component", "server"),
		FrameRate:  frameRate,
	})

	h := &sessionsHandler{
		controller: controller,
		frameRate:  frameRate,
		logger:     logger.With("component", "sessions"),
	}

	r := chi.NewRouter()
	r.Get("/session", h.handleNewSession)
	r.Delete("/session/{token}", h.handleCloseSession)
	r.Handle("/api/*", server)
	r.Mount("/", http.FileServer(http.FS(frontendFilesFS)))

	errg, ctx := errgroup.WithContext(ctx)

	errg.Go(func() error {
		return controller.Run(ctx)
	})

	errg.Go(func() error {
		logger.Info(
			"starting HTTP server",
			"addr", httpAddr,
			"leds", ledCount)

		return hserve.ListenAndServe(ctx, httpAddr, r)
	})

	return errg.Wait()
}
