// Package effects implements the LED animations and the registry that selects
// them by name.
package effects

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"
)

// Strip is an in-memory LED buffer. Effects draw into it; the controller
// copies it to the hardware once per tick.
type Strip []RGB

// NewStrip allocates a black strip of n pixels.
func NewStrip(n int) Strip {
	return make(Strip, n)
}

// Len returns the number of pixels.
func (s Strip) Len() int { return len(s) }

// Set sets the pixel at i. Out-of-range indices are ignored.
func (s Strip) Set(i int, c RGB) {
	if i >= 0 && i < len(s) {
		s[i] = c
	}
}

// Fill sets every pixel to c.
func (s Strip) Fill(c RGB) {
	for i := range s {
		s[i] = c
	}
}

// Clear sets every pixel to black.
func (s Strip) Clear() { s.Fill(Black) }

// Params is the snapshot of the control state handed to an effect on every
// tick.
type Params struct {
	// Color is the primary color.
	Color RGB
	// Speed is the global speed in [1, 100].
	Speed int
	// TheaterRainbow selects rainbow colors for the theater effect.
	TheaterRainbow bool
	// ColorMode is either ColorModeStatic or ColorModeChanging.
	ColorMode string
	// Now is the wall-clock time of the tick.
	Now time.Time
}

// Color modes used by the advanced meteor effect.
const (
	ColorModeStatic   = "static"
	ColorModeChanging = "changing"
)

// Effect is a single animation. Its persistent state lives inside the value.
type Effect interface {
	// Reset reinitializes the effect's state for a strip of n pixels.
	Reset(n int)
	// Tick renders one frame into strip and advances the effect's state.
	Tick(strip Strip, p Params)
}

// ErrUnknownEffect is returned when looking up an effect that is not
// registered.
var ErrUnknownEffect = errors.New("unknown effect")

// Config holds the per-effect defaults read from the configuration file.
type Config struct {
	Chase   ChaseConfig   `yaml:"chase"`
	Sparkle SparkleConfig `yaml:"sparkle"`
	Fire    FireConfig    `yaml:"fire"`
}

// ChaseConfig configures the chase effect.
type ChaseConfig struct {
	// SegmentSize is the number of lit pixels. Zero means 5% of the strip.
	SegmentSize int `yaml:"segment_size"`
}

// SparkleConfig configures the sparkle effect.
type SparkleConfig struct {
	// Density is the fraction of the strip that may spawn a sparkle per tick.
	Density float64 `yaml:"density"`
}

// FireConfig configures the fire effect.
type FireConfig struct {
	Cooling  int `yaml:"cooling"`
	Sparking int `yaml:"sparking"`
}

// DefaultConfig is the configuration used when none is given.
var DefaultConfig = Config{
	Sparkle: SparkleConfig{Density: 0.02},
	Fire:    FireConfig{Cooling: 55, Sparking: 120},
}

// Registry maps effect names to effects. It is built once at startup and is
// not safe for concurrent use on its own; the controller serializes access.
type Registry struct {
	effects map[string]Effect
}

// NewRegistry creates a registry holding every built-in effect. rng drives
// all randomized effects; pass a seeded source for reproducible output.
func NewRegistry(cfg Config, rng *rand.Rand) *Registry {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Sparkle.Density <= 0 {
		cfg.Sparkle.Density = DefaultConfig.Sparkle.Density
	}
	if cfg.Fire.Cooling <= 0 {
		cfg.Fire.Cooling = DefaultConfig.Fire.Cooling
	}
	if cfg.Fire.Sparking <= 0 {
		cfg.Fire.Sparking = DefaultConfig.Fire.Sparking
	}

	r := &Registry{effects: make(map[string]Effect)}
	r.Register("solid", &Solid{})
	r.Register("rainbow", &Rainbow{})
	r.Register("pulse", NewPulse())
	r.Register("chase", &Chase{SegmentSize: cfg.Chase.SegmentSize})
	r.Register("sparkle", &Sparkle{Density: cfg.Sparkle.Density, rng: rng})
	r.Register("strobe", &Strobe{})
	r.Register("meteor", &Meteor{rng: rng})
	r.Register("meteor_adv", &MeteorAdv{rng: rng})
	r.Register("breathe", NewBreathe())
	r.Register("sinelon", &Sinelon{})
	r.Register("juggle", &Juggle{})
	r.Register("theater", &Theater{})
	r.Register("gradient", &Gradient{rng: rng})
	r.Register("fire", &Fire{Cooling: cfg.Fire.Cooling, Sparking: cfg.Fire.Sparking, rng: rng})
	return r
}

// Register adds or replaces an effect.
func (r *Registry) Register(name string, e Effect) {
	r.effects[name] = e
}

// Lookup returns the effect registered under name.
func (r *Registry) Lookup(name string) (Effect, error) {
	e, ok := r.effects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEffect, name)
	}
	return e, nil
}

// Names returns the registered effect names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.effects))
	for name := range r.effects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
