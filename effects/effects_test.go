package effects

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(DefaultConfig, rand.New(rand.NewSource(1)))
}

func lookup(t *testing.T, reg *Registry, name string) Effect {
	t.Helper()
	e, err := reg.Lookup(name)
	require.NoError(t, err)
	return e
}

func litPixels(strip Strip) []int {
	var lit []int
	for i, c := range strip {
		if c != Black {
			lit = append(lit, i)
		}
	}
	return lit
}

var testParams = Params{
	Color: RGB{200, 100, 50},
	Speed: 100,
	Now:   time.Unix(0, 0),
}

func TestRegistryLookup(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.Lookup("bogus")
	assert.ErrorIs(t, err, ErrUnknownEffect)

	assert.Equal(t, []string{
		"breathe", "chase", "fire", "gradient", "juggle", "meteor", "meteor_adv",
		"pulse", "rainbow", "sinelon", "solid", "sparkle", "strobe", "theater",
	}, reg.Names())
}

func TestEffectsRunOnTinyStrips(t *testing.T) {
	reg := newTestRegistry(t)

	for _, name := range reg.Names() {
		for _, n := range []int{0, 1, 2, 3} {
			e := lookup(t, reg, name)
			strip := NewStrip(n)
			e.Reset(n)
			assert.NotPanics(t, func() {
				for i := 0; i < 50; i++ {
					e.Tick(strip, testParams)
				}
			}, "%s on %d pixels", name, n)
		}
	}
}

func TestChaseScenario(t *testing.T) {
	e := &Chase{}
	strip := NewStrip(10)
	e.Reset(strip.Len())

	for i := 0; i < 3; i++ {
		e.Tick(strip, testParams)
	}
	assert.Equal(t, []int{3}, litPixels(strip))

	for i := 0; i < 7; i++ {
		e.Tick(strip, testParams)
	}
	assert.Equal(t, []int{0}, litPixels(strip), "position wraps around the strip")
}

func TestChaseSegmentWraps(t *testing.T) {
	e := &Chase{}
	strip := NewStrip(100)
	e.Reset(strip.Len())

	for i := 0; i < 98; i++ {
		e.Tick(strip, testParams)
	}
	assert.Equal(t, []int{0, 1, 2, 98, 99}, litPixels(strip))
}

func TestTheaterScenario(t *testing.T) {
	e := &Theater{}
	strip := NewStrip(9)
	e.Reset(strip.Len())

	p := Params{Color: RGB{10, 20, 30}}
	e.Tick(strip, p)

	assert.Equal(t, RGB{10, 20, 30}, strip[0])
	assert.Equal(t, Black, strip[1])
	assert.Equal(t, Black, strip[2])
	assert.Equal(t, []int{0, 3, 6}, litPixels(strip))

	e.Tick(strip, p)
	assert.Equal(t, []int{1, 4, 7}, litPixels(strip))

	e.Tick(strip, p)
	assert.Equal(t, 0, e.Q)
	assert.Equal(t, 1, e.J, "hue advances once per full cycle")
}

func TestTheaterRainbow(t *testing.T) {
	e := &Theater{}
	strip := NewStrip(6)
	e.Reset(strip.Len())

	e.Tick(strip, Params{TheaterRainbow: true})
	assert.Equal(t, Wheel(0), strip[0])
	assert.Equal(t, Wheel(3), strip[3])
}

func TestRainbowOffsetWraps(t *testing.T) {
	e := &Rainbow{}
	strip := NewStrip(4)
	e.Reset(strip.Len())

	for i := 0; i < 256; i++ {
		e.Tick(strip, testParams)
	}
	assert.Equal(t, 0, e.Offset)

	e.Tick(strip, testParams)
	assert.Equal(t, Wheel(0), strip[0])
	assert.Equal(t, Wheel(3), strip[3])
}

func TestOscillatorBounds(t *testing.T) {
	tests := []struct {
		name     string
		effect   Effect
		osc      func(Effect) *Oscillator
		min, max float64
	}{
		{
			name:   "pulse",
			effect: NewPulse(),
			osc:    func(e Effect) *Oscillator { return &e.(*Pulse).Oscillator },
			min:    0.1,
			max:    1.0,
		},
		{
			name:   "breathe",
			effect: NewBreathe(),
			osc:    func(e Effect) *Oscillator { return &e.(*Breathe).Oscillator },
			min:    0.05,
			max:    1.0,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			strip := NewStrip(3)
			osc := test.osc(test.effect)

			var hitMax, hitMin bool
			for i := 0; i < 1000; i++ {
				test.effect.Tick(strip, testParams)
				assert.GreaterOrEqual(t, osc.Level, test.min)
				assert.LessOrEqual(t, osc.Level, test.max)

				switch osc.Level {
				case test.max:
					hitMax = true
					assert.Equal(t, -1.0, osc.Direction)
				case test.min:
					hitMin = true
					assert.Equal(t, 1.0, osc.Direction)
				}
			}
			assert.True(t, hitMax, "never reached the upper bound")
			assert.True(t, hitMin, "never reached the lower bound")

			test.effect.Reset(3)
			assert.Equal(t, 0.1, osc.Level)
			assert.Equal(t, 1.0, osc.Direction)
		})
	}
}

func TestSparkle(t *testing.T) {
	reg := newTestRegistry(t)
	e := lookup(t, reg, "sparkle").(*Sparkle)
	strip := NewStrip(100)
	e.Reset(strip.Len())

	e.Tick(strip, testParams)
	// Speed 100 spawns on every attempt; 2% of 100 pixels is 2 attempts.
	assert.Len(t, e.Pixels, 2)
	for _, px := range e.Pixels {
		assert.Equal(t, 1.0, px.Brightness)
		assert.Equal(t, testParams.Color, strip[px.Index])
	}

	quiet := testParams
	quiet.Speed = 0
	for i := 0; i < 60; i++ {
		e.Tick(strip, quiet)
	}
	assert.Empty(t, e.Pixels, "sparkles must decay away")
	assert.Empty(t, litPixels(strip))

	e.Tick(strip, testParams)
	e.Reset(strip.Len())
	assert.Empty(t, e.Pixels)
}

func TestMeteorNeverExceedsCap(t *testing.T) {
	for _, speed := range []int{1, 50, 100} {
		e := &Meteor{rng: rand.New(rand.NewSource(int64(speed)))}
		strip := NewStrip(60)
		e.Reset(strip.Len())

		p := testParams
		p.Speed = speed

		var peak int
		for i := 0; i < 20000; i++ {
			e.Tick(strip, p)
			require.LessOrEqual(t, len(e.Particles), MaxMeteors, "speed %d tick %d", speed, i)
			peak = max(peak, len(e.Particles))
		}
		if speed == 100 {
			assert.Positive(t, peak, "expected at least one meteor at full speed")
		}
	}
}

func TestMeteorSpawnSpacing(t *testing.T) {
	e := &Meteor{rng: rand.New(rand.NewSource(7))}
	strip := NewStrip(300)
	e.Reset(strip.Len())

	var spawns []int
	for i := 1; i <= 20000; i++ {
		e.Tick(strip, Params{Color: RGB{255, 255, 255}, Speed: 100})
		if e.lastSpawn == i {
			spawns = append(spawns, i)
		}
	}

	require.NotEmpty(t, spawns)
	for i := 1; i < len(spawns); i++ {
		assert.GreaterOrEqual(t, spawns[i]-spawns[i-1], 100)
	}
}

func TestMeteorBrightness(t *testing.T) {
	m := MeteorParticle{Size: 10, TrailLength: 30}
	assert.Equal(t, 1.0, meteorBrightness(m, 0))
	assert.InDelta(t, 0.55, meteorBrightness(m, 9), 1e-9)
	assert.InDelta(t, 0.8, meteorBrightness(m, 10), 1e-9)
	assert.Equal(t, 0.05, meteorBrightness(m, 29))
}

func TestMeteorRetiresParticles(t *testing.T) {
	e := &Meteor{rng: rand.New(rand.NewSource(1))}
	strip := NewStrip(10)
	e.Reset(strip.Len())
	e.Particles = append(e.Particles, MeteorParticle{Size: 10, Speed: 2, TrailLength: 30})

	// 40 pixels to travel at 2 pixels per tick.
	quiet := Params{Color: RGB{255, 0, 0}}
	for i := 0; i < 19; i++ {
		e.Tick(strip, quiet)
	}
	assert.Len(t, e.Particles, 1)

	e.Tick(strip, quiet)
	assert.Empty(t, e.Particles)
}

func TestFireHeatStaysInRange(t *testing.T) {
	e := &Fire{Cooling: 55, Sparking: 255, rng: rand.New(rand.NewSource(3))}
	strip := NewStrip(30)
	e.Reset(strip.Len())

	for i := 0; i < 5000; i++ {
		e.Tick(strip, testParams)
		for _, h := range e.Heat {
			// uint8 cannot leave the range, but make sure arithmetic saturates
			// instead of wrapping: a wrapped cell would flicker to white.
			require.LessOrEqual(t, int(h), 255)
		}
	}

	var hot bool
	for _, h := range e.Heat {
		hot = hot || h > 0
	}
	assert.True(t, hot, "fire never ignited")
}

func TestFireSaturatesSparks(t *testing.T) {
	e := &Fire{Cooling: 1, Sparking: 255, rng: rand.New(rand.NewSource(3))}
	strip := NewStrip(8)
	e.Reset(strip.Len())
	for i := range e.Heat {
		e.Heat[i] = 250
	}

	e.Tick(strip, testParams)
	for _, h := range e.Heat {
		assert.GreaterOrEqual(t, int(h), 200, "a saturated spark must not wrap around")
	}
}

func TestFireSparkHeatRange(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 5000; i++ {
		h := sparkHeat(rng)
		require.GreaterOrEqual(t, h, 160)
		require.Less(t, h, 255)
	}
}

func TestFireDiffusionOrder(t *testing.T) {
	heat := []uint8{90, 60, 30, 0, 0}
	diffuse(heat)
	assert.Equal(t, []uint8{90, 60, 80, 50, 20}, heat)
}

func TestFireOutputIsReversed(t *testing.T) {
	e := &Fire{Cooling: 55, Sparking: 0, rng: rand.New(rand.NewSource(1))}
	strip := NewStrip(5)
	e.Reset(strip.Len())
	e.Heat[0] = 255

	e.Tick(strip, Params{})
	assert.Equal(t, HeatColor(e.Heat[0]), strip[4])
	assert.Equal(t, HeatColor(e.Heat[4]), strip[0])
}

func TestHeatColorBands(t *testing.T) {
	assert.Equal(t, Black, HeatColor(0))
	assert.Equal(t, RGB{255, 255, 252}, HeatColor(255))

	c := HeatColor(60)
	assert.Zero(t, c.G)
	assert.Zero(t, c.B)

	c = HeatColor(150)
	assert.Equal(t, uint8(255), c.R)
	assert.Zero(t, c.B)
}

func TestSinelonOverwritesDot(t *testing.T) {
	e := &Sinelon{}
	strip := NewStrip(11)
	e.Reset(strip.Len())

	e.Tick(strip, Params{Color: RGB{100, 100, 100}, Speed: 50})
	assert.Equal(t, RGB{100, 100, 100}, strip[5], "sin(0) lands in the middle")
	assert.InDelta(t, 0.1, e.Phase, 1e-9)

	for i := 0; i < 1000; i++ {
		e.Tick(strip, Params{Color: RGB{255, 255, 255}, Speed: 100})
	}
	assert.Greater(t, e.Phase, 6.28, "phase is not wrapped")
}

func TestJuggleSaturates(t *testing.T) {
	e := &Juggle{}
	strip := NewStrip(1)
	e.Reset(strip.Len())

	// On a single pixel every dot coincides, so the additive blend saturates.
	for i := 0; i < 5; i++ {
		e.Tick(strip, testParams)
	}
	assert.Equal(t, uint8(255), strip[0].R)
}

func TestGradientFillsAndRestarts(t *testing.T) {
	e := &Gradient{rng: rand.New(rand.NewSource(5))}
	strip := NewStrip(20)
	e.Reset(strip.Len())

	span := e.span()
	assert.GreaterOrEqual(t, span, 60.0/360-1e-9)
	assert.LessOrEqual(t, span, 180.0/360+1e-9)

	p := Params{Speed: 50} // 5 pixels per tick
	e.Tick(strip, p)
	assert.Equal(t, []int{0}, litPixels(strip))
	assert.Equal(t, 5, e.Position)

	e.Tick(strip, p)
	assert.Len(t, litPixels(strip), 6)
	assert.Equal(t, HSVToRGB(e.Hue1, 1, 1), strip[0])

	hue1 := e.Hue1
	for i := 0; i < 2; i++ {
		e.Tick(strip, p)
	}
	assert.Equal(t, 0, e.Position, "wipe restarts at the end")
	assert.NotEqual(t, hue1, e.Hue1, "new hues are drawn on restart")
}

func TestStrobeFollowsWallClock(t *testing.T) {
	e := &Strobe{}
	strip := NewStrip(3)

	p := Params{Color: RGB{1, 2, 3}, Speed: 50} // 100ms period, 50ms on
	p.Now = time.Unix(0, int64(20*time.Millisecond))
	e.Tick(strip, p)
	assert.Equal(t, []int{0, 1, 2}, litPixels(strip))

	p.Now = time.Unix(0, int64(70*time.Millisecond))
	e.Tick(strip, p)
	assert.Empty(t, litPixels(strip))

	p.Speed = 100
	assert.NotPanics(t, func() { e.Tick(strip, p) })
}

func TestStrobeOnWindowIsFixed(t *testing.T) {
	e := &Strobe{}
	strip := NewStrip(3)

	// 80ms period: 45ms into it is still inside the 50ms on window.
	p := Params{Color: RGB{1, 2, 3}, Speed: 60}
	p.Now = time.UnixMilli(80*1000 + 45)
	e.Tick(strip, p)
	assert.Equal(t, []int{0, 1, 2}, litPixels(strip))

	p.Now = time.UnixMilli(80*1000 + 55)
	e.Tick(strip, p)
	assert.Empty(t, litPixels(strip))
}

func TestStrobeStaysLitAtHighSpeed(t *testing.T) {
	e := &Strobe{}
	strip := NewStrip(3)

	for _, speed := range []int{75, 90, 100} {
		p := Params{Color: RGB{1, 2, 3}, Speed: speed}
		for ms := int64(0); ms < 200; ms++ {
			p.Now = time.UnixMilli(ms)
			e.Tick(strip, p)
			require.Equal(t, []int{0, 1, 2}, litPixels(strip), "speed %d at %dms", speed, ms)
		}
	}
}

func TestStrobePeriod(t *testing.T) {
	period, on := strobePeriod(50)
	assert.Equal(t, 100*time.Millisecond, period)
	assert.Equal(t, 50*time.Millisecond, on)

	period, _ = strobePeriod(100)
	assert.Equal(t, time.Millisecond, period)
}

func TestResetIsIdempotent(t *testing.T) {
	reg := newTestRegistry(t)
	strip := NewStrip(30)

	chase := lookup(t, reg, "chase").(*Chase)
	rainbow := lookup(t, reg, "rainbow").(*Rainbow)

	chase.Reset(strip.Len())
	for i := 0; i < 7; i++ {
		chase.Tick(strip, testParams)
	}
	rainbow.Reset(strip.Len())
	rainbow.Tick(strip, testParams)

	assert.Equal(t, 7, chase.Position, "switching away leaves chase untouched")

	chase.Reset(strip.Len())
	chase.Reset(strip.Len())
	assert.Equal(t, 0, chase.Position)
	assert.Equal(t, 1, rainbow.Offset, "resetting chase leaves rainbow untouched")
}

func TestBuffersFollowStripLength(t *testing.T) {
	e := &Sinelon{}
	e.Reset(10)
	strip := NewStrip(25)
	e.Tick(strip, testParams)
	assert.Len(t, e.Pixels, 25)
}

type fadeIn struct{}

func (fadeIn) Reset(int) {}

func (fadeIn) Tick(strip Strip, p Params) {
	for i := range strip {
		strip[i] = FadeToward(strip[i], p.Color, 64)
	}
}

func TestRegisteredEffectFadesIn(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Register("fade_in", fadeIn{})

	e := lookup(t, reg, "fade_in")
	strip := NewStrip(4)

	e.Tick(strip, testParams)
	assert.Equal(t, RGB{64, 64, 50}, strip[0])

	for i := 0; i < 3; i++ {
		e.Tick(strip, testParams)
	}
	for _, c := range strip {
		assert.Equal(t, testParams.Color, c)
	}
}
