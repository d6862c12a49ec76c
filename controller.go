package lichtwerkd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"dev.acmcsuf.com/lichtwerkd/effects"
)

const (
	minTickInterval = 10 * time.Millisecond
	tickBackoff     = 100 * time.Millisecond
)

// ErrUnknownEffect is returned by SetEffect for names that are not
// registered.
var ErrUnknownEffect = effects.ErrUnknownEffect

// ErrInvalidColorMode is returned by SetColorMode for unknown modes.
var ErrInvalidColorMode = errors.New("invalid color mode")

// State is the externally controllable state of the strip.
type State struct {
	Power          bool
	Effect         string
	Brightness     int
	Speed          int
	Color          effects.RGB
	TheaterRainbow bool
	ColorMode      string
}

// DefaultState is the state a controller starts in unless told otherwise.
var DefaultState = State{
	Power:          false,
	Effect:         "solid",
	Brightness:     100,
	Speed:          50,
	Color:          effects.RGB{R: 255, G: 255, B: 255},
	TheaterRainbow: true,
	ColorMode:      effects.ColorModeChanging,
}

// Status is a snapshot of the controller, as reported to clients.
type Status struct {
	Power          bool        `json:"power"`
	Effect         string      `json:"effect"`
	Brightness     int         `json:"brightness"`
	Speed          int         `json:"speed"`
	Color          effects.RGB `json:"color"`
	TheaterRainbow bool        `json:"theaterRainbow"`
	ColorMode      string      `json:"colorMode"`
	LEDCount       int         `json:"ledCount"`
	Pin            int         `json:"pin"`
	Demo           bool        `json:"demo"`
}

// ControllerOpts are options for a controller.
type ControllerOpts struct {
	// Sink is the LED strip to draw to. If nil, the controller runs in demo
	// mode: everything works, but nothing is displayed.
	Sink PixelSink
	// LEDCount is the strip length used in demo mode. It is ignored if Sink
	// is set.
	LEDCount int
	// Pin is the GPIO pin of the strip. It is only reported in the status.
	Pin int
	// Initial is the starting state. Its zero value is replaced by
	// DefaultState.
	Initial *State
	// Effects configures the built-in effects.
	Effects effects.Config
	// Registry overrides the built-in effects.
	Registry *effects.Registry
	// Rand is the source for randomized effects.
	Rand *rand.Rand
	// Clock returns the current time. It defaults to time.Now.
	Clock func() time.Time
	// Logger is the logger to use for the controller.
	Logger *slog.Logger
}

// Controller owns the strip state and runs the render loop. All methods are
// safe for concurrent use.
type Controller struct {
	logger *slog.Logger
	clock  func() time.Time
	pin    int

	// mu guards the state, the effects' internal state and the strip.
	mu       sync.Mutex
	state    State
	registry *effects.Registry
	strip    effects.Strip

	// sinkMu guards the sink and the last frame. If both locks are needed,
	// mu is acquired first.
	sinkMu   sync.Mutex
	sink     PixelSink
	frame    []effects.RGB
	frameSeq uint64
}

// NewController creates a new controller.
func NewController(opts ControllerOpts) (*Controller, error) {
	n := opts.LEDCount
	if opts.Sink != nil {
		n = opts.Sink.PixelCount()
	}
	if n <= 0 {
		return nil, fmt.Errorf("invalid LED count %d", n)
	}

	state := DefaultState
	if opts.Initial != nil {
		state = *opts.Initial
	}
	state.Brightness = clamp(state.Brightness, 0, 255)
	state.Speed = clamp(state.Speed, 1, 100)
	if state.ColorMode == "" {
		state.ColorMode = effects.ColorModeChanging
	}

	registry := opts.Registry
	if registry == nil {
		registry = effects.NewRegistry(opts.Effects, opts.Rand)
	}

	effect, err := registry.Lookup(state.Effect)
	if err != nil {
		return nil, err
	}
	effect.Reset(n)

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		logger:   logger,
		clock:    clock,
		pin:      opts.Pin,
		state:    state,
		registry: registry,
		strip:    effects.NewStrip(n),
		sink:     opts.Sink,
		frame:    make([]effects.RGB, n),
	}, nil
}

// Run runs the render loop until ctx is cancelled, then blacks out the strip.
// Errors from a single frame are logged and never stop the loop.
func (c *Controller) Run(ctx context.Context) error {
	defer c.blackout()

	c.logger.InfoContext(ctx,
		"render loop started",
		"leds", len(c.strip),
		"demo", c.sink == nil)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx,
				"render loop stopped")
			return nil
		case <-timer.C:
		}

		delay := c.interval()
		if err := c.Tick(); err != nil {
			c.logger.ErrorContext(ctx,
				"effect tick failed",
				"error", err)
			delay = tickBackoff
		}

		timer.Reset(delay)
	}
}

// interval returns the time between two ticks at the current speed.
func (c *Controller) interval() time.Duration {
	c.mu.Lock()
	speed := c.state.Speed
	c.mu.Unlock()

	return tickInterval(speed)
}

func tickInterval(speed int) time.Duration {
	return max(minTickInterval, time.Duration(101-speed)*time.Millisecond)
}

// Tick renders a single frame and shows it on the strip.
func (c *Controller) Tick() error {
	c.mu.Lock()
	if err := c.render(); err != nil {
		c.mu.Unlock()
		return err
	}

	c.sinkMu.Lock()
	defer c.sinkMu.Unlock()

	level := uint8(c.state.Brightness)
	for i, px := range c.strip {
		c.frame[i] = px.Dim(level)
	}
	c.mu.Unlock()

	return c.flush()
}

// render draws the current effect into the strip. c.mu must be held.
func (c *Controller) render() (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("effect %q panicked: %v", c.state.Effect, v)
		}
	}()

	if !c.state.Power {
		c.strip.Clear()
		return nil
	}

	effect, err := c.registry.Lookup(c.state.Effect)
	if err != nil {
		return err
	}

	effect.Tick(c.strip, effects.Params{
		Color:          c.state.Color,
		Speed:          c.state.Speed,
		TheaterRainbow: c.state.TheaterRainbow,
		ColorMode:      c.state.ColorMode,
		Now:            c.clock(),
	})
	return nil
}

// flush writes the last frame to the sink. c.sinkMu must be held.
func (c *Controller) flush() error {
	c.frameSeq++
	if c.sink == nil {
		return nil
	}

	n := min(len(c.frame), c.sink.PixelCount())
	for i := 0; i < n; i++ {
		c.sink.SetPixel(i, c.frame[i])
	}
	if err := c.sink.Show(); err != nil {
		return fmt.Errorf("failed to show frame: %w", err)
	}
	return nil
}

// clearLocked blacks out the strip and the sink. c.mu must be held; it is
// released before the sink is written.
func (c *Controller) clearLocked() error {
	c.strip.Clear()

	c.sinkMu.Lock()
	defer c.sinkMu.Unlock()
	c.mu.Unlock()

	clear(c.frame)
	c.frameSeq++
	if c.sink == nil {
		return nil
	}

	c.sink.Clear()
	if err := c.sink.Show(); err != nil {
		return fmt.Errorf("failed to clear strip: %w", err)
	}
	return nil
}

func (c *Controller) blackout() {
	c.mu.Lock()
	if err := c.clearLocked(); err != nil {
		c.logger.Warn(
			"failed to clear strip on shutdown",
			"error", err)
	}
}

// Frame copies the last rendered frame into dst and returns it along with a
// sequence number that changes whenever a new frame is produced.
func (c *Controller) Frame(dst []effects.RGB) ([]effects.RGB, uint64) {
	c.sinkMu.Lock()
	defer c.sinkMu.Unlock()

	return append(dst[:0], c.frame...), c.frameSeq
}

// Status returns the current status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Status{
		Power:          c.state.Power,
		Effect:         c.state.Effect,
		Brightness:     c.state.Brightness,
		Speed:          c.state.Speed,
		Color:          c.state.Color,
		TheaterRainbow: c.state.TheaterRainbow,
		ColorMode:      c.state.ColorMode,
		LEDCount:       len(c.strip),
		Pin:            c.pin,
		Demo:           c.sink == nil,
	}
}

// Effects returns the names of all effects.
func (c *Controller) Effects() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.registry.Names()
}

// SetPower turns the strip on or off. Turning it off blacks out the strip
// right away instead of waiting for the next tick.
func (c *Controller) SetPower(on bool) error {
	c.mu.Lock()
	c.state.Power = on
	if on {
		c.mu.Unlock()
		return nil
	}
	return c.clearLocked()
}

// SetBrightness sets the global brightness, clamped to [0, 255].
func (c *Controller) SetBrightness(brightness int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Brightness = clamp(brightness, 0, 255)
	return c.state.Brightness
}

// SetSpeed sets the global speed, clamped to [1, 100].
func (c *Controller) SetSpeed(speed int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Speed = clamp(speed, 1, 100)
	return c.state.Speed
}

// SetColor sets the primary color. Each channel is clamped to [0, 255].
func (c *Controller) SetColor(r, g, b int) effects.RGB {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Color = effects.RGB{
		R: uint8(clamp(r, 0, 255)),
		G: uint8(clamp(g, 0, 255)),
		B: uint8(clamp(b, 0, 255)),
	}
	return c.state.Color
}

// SetEffect switches to the named effect and resets its state. The state is
// left untouched if the effect does not exist.
func (c *Controller) SetEffect(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	effect, err := c.registry.Lookup(name)
	if err != nil {
		return err
	}

	effect.Reset(len(c.strip))
	c.state.Effect = name

	c.logger.Info(
		"effect changed",
		"effect", name)

	return nil
}

// SetTheaterMode selects rainbow or solid colors for the theater effect.
func (c *Controller) SetTheaterMode(rainbow bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.TheaterRainbow = rainbow
}

// SetColorMode sets the color mode of the advanced meteor effect.
func (c *Controller) SetColorMode(mode string) error {
	switch mode {
	case effects.ColorModeStatic, effects.ColorModeChanging:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidColorMode, mode)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.ColorMode = mode
	return nil
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
