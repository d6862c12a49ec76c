package effects

import (
	"math"
	"math/rand"
)

// Sparkle spawns short-lived twinkles at random pixels.
type Sparkle struct {
	// Density is the fraction of the strip that may spawn per tick.
	Density float64

	Pixels []Twinkle

	rng *rand.Rand
}

// Twinkle is a single decaying sparkle.
type Twinkle struct {
	Index      int
	Brightness float64
}

const (
	sparkleDecay  = 0.9
	sparkleCutoff = 0.01
)

func (e *Sparkle) Reset(int) { e.Pixels = e.Pixels[:0] }

func (e *Sparkle) Tick(strip Strip, p Params) {
	n := strip.Len()
	if n == 0 {
		return
	}

	alive := e.Pixels[:0]
	for _, px := range e.Pixels {
		px.Brightness *= sparkleDecay
		if px.Brightness >= sparkleCutoff {
			alive = append(alive, px)
		}
	}
	e.Pixels = alive

	density := max(1, int(float64(n)*e.Density))
	for i := 0; i < density; i++ {
		if e.rng.Float64() < float64(p.Speed)/100 {
			e.Pixels = append(e.Pixels, Twinkle{
				Index:      e.rng.Intn(n),
				Brightness: 1,
			})
		}
	}

	strip.Clear()
	for _, px := range e.Pixels {
		strip.Set(px.Index, p.Color.Scale(px.Brightness))
	}
}

// Meteor shoots comets with fading tails down the strip.
type Meteor struct {
	Particles []MeteorParticle
	// Pixels holds the faded trail left behind by particles.
	Pixels []RGB

	tick      int
	lastSpawn int
	rng       *rand.Rand
}

// MeteorParticle is a single comet.
type MeteorParticle struct {
	Position    float64
	Size        int
	Speed       float64
	TrailLength int
}

const (
	// MaxMeteors caps the number of comets in flight.
	MaxMeteors        = 2
	meteorSpawnGap    = 100
	meteorFade        = 0.92
	meteorMinBright   = 0.05
	meteorTailBright  = 0.8
	meteorHeadFalloff = 0.05
)

func (e *Meteor) Reset(n int) {
	e.Particles = e.Particles[:0]
	e.Pixels = make([]RGB, n)
	e.tick = 0
	e.lastSpawn = -meteorSpawnGap
}

func (e *Meteor) Tick(strip Strip, p Params) {
	n := strip.Len()
	if len(e.Pixels) != n {
		e.Reset(n)
	}

	for i, px := range e.Pixels {
		e.Pixels[i] = RGB{
			R: uint8(float64(px.R) * meteorFade),
			G: uint8(float64(px.G) * meteorFade),
			B: uint8(float64(px.B) * meteorFade),
		}
	}

	e.tick++
	if len(e.Particles) < MaxMeteors && e.tick-e.lastSpawn >= meteorSpawnGap {
		if e.rng.Float64() < float64(p.Speed)/5000 {
			size := 10 + e.rng.Intn(11)
			e.Particles = append(e.Particles, MeteorParticle{
				Size:        size,
				Speed:       1.5 + e.rng.Float64(),
				TrailLength: size * 3,
			})
			e.lastSpawn = e.tick
		}
	}

	active := e.Particles[:0]
	for _, m := range e.Particles {
		m.Position += m.Speed

		for i := 0; i < m.TrailLength; i++ {
			pos := int(m.Position - float64(i))
			if pos < 0 || pos >= n {
				continue
			}
			e.Pixels[pos] = p.Color.Scale(meteorBrightness(m, i))
		}

		if m.Position < float64(n+m.TrailLength) {
			active = append(active, m)
		}
	}
	e.Particles = active

	copy(strip, e.Pixels)
}

// meteorBrightness returns the brightness of the i-th pixel behind the
// particle's front.
func meteorBrightness(m MeteorParticle, i int) float64 {
	if i < m.Size {
		return math.Max(meteorMinBright, 1-float64(i)*meteorHeadFalloff)
	}
	tailPos := float64(i - m.Size)
	tailLen := float64(m.TrailLength - m.Size)
	return math.Max(meteorMinBright, meteorTailBright*(1-tailPos/tailLen))
}

// MeteorAdv bounces several colored comets back and forth with organic,
// randomized decay.
type MeteorAdv struct {
	Channels []MeteorChannel
	Pixels   []RGB

	rng *rand.Rand
}

// MeteorChannel is one bouncing comet.
type MeteorChannel struct {
	Position float64
	Hue      float64 // degrees
	Reverse  bool
	Speed    float64
	Size     int
}

const meteorAdvCount = 4

func (e *MeteorAdv) Reset(n int) {
	e.Pixels = make([]RGB, n)
	e.Channels = e.Channels[:0]
	for i := 0; i < meteorAdvCount; i++ {
		e.Channels = append(e.Channels, MeteorChannel{
			Position: float64(n) / meteorAdvCount * float64(i),
			Hue:      360 / meteorAdvCount * float64(i),
			Reverse:  i%2 == 0,
			Speed:    0.5 + e.rng.Float64()*1.5,
			Size:     4 + e.rng.Intn(5),
		})
	}
}

func (e *MeteorAdv) Tick(strip Strip, p Params) {
	n := strip.Len()
	if len(e.Pixels) != n || len(e.Channels) == 0 {
		e.Reset(n)
	}

	for i, px := range e.Pixels {
		if e.rng.Float64() > 0.2 {
			e.Pixels[i] = RGB{
				R: uint8(float64(px.R) * 0.85),
				G: uint8(float64(px.G) * 0.85),
				B: uint8(float64(px.B) * 0.85),
			}
		}
	}

	for c := range e.Channels {
		m := &e.Channels[c]

		step := m.Speed * float64(p.Speed) / 50
		if m.Reverse {
			m.Position -= step
		} else {
			m.Position += step
		}

		switch {
		case m.Position < float64(m.Size):
			m.Reverse = false
			m.Position = float64(m.Size)
		case m.Position >= float64(n):
			m.Reverse = true
			m.Position = float64(n - 1)
		}

		if p.ColorMode != ColorModeStatic {
			m.Hue += 0.5
			if m.Hue > 360 {
				m.Hue -= 360
			}
		}

		color := p.Color
		if p.ColorMode != ColorModeStatic {
			color = HSVToRGB(m.Hue/360, 1, 1)
		}

		for j := 0; j < m.Size; j++ {
			pos := int(m.Position) - j
			if pos < 0 || pos >= n {
				continue
			}
			head := color.Scale(math.Max(0.1, 1-float64(j)/float64(m.Size)*0.5))
			old := e.Pixels[pos]
			e.Pixels[pos] = RGB{
				R: uint8(float64(head.R)*0.75 + float64(old.R)*0.25),
				G: uint8(float64(head.G)*0.75 + float64(old.G)*0.25),
				B: uint8(float64(head.B)*0.75 + float64(old.B)*0.25),
			}
		}
	}

	copy(strip, e.Pixels)
}

// Sinelon sweeps a single dot back and forth on a sine wave, leaving a
// fading trail.
type Sinelon struct {
	Phase  float64
	Pixels []floatRGB
}

const sinelonFade = 0.95

func (e *Sinelon) Reset(n int) {
	e.Phase = 0
	e.Pixels = make([]floatRGB, n)
}

func (e *Sinelon) Tick(strip Strip, p Params) {
	n := strip.Len()
	if len(e.Pixels) != n {
		e.Reset(n)
	}
	if n == 0 {
		return
	}

	for i := range e.Pixels {
		e.Pixels[i] = e.Pixels[i].scale(sinelonFade)
	}

	e.Pixels[sinePosition(e.Phase, n)] = toFloatRGB(p.Color)
	e.Phase += float64(p.Speed) / 500

	for i, px := range e.Pixels {
		strip[i] = px.rgb()
	}
}

// Juggle weaves eight colored dots in and out of each other.
type Juggle struct {
	Phase  float64
	Pixels []floatRGB
}

const (
	juggleDots = 8
	juggleFade = 0.92
)

func (e *Juggle) Reset(n int) {
	e.Phase = 0
	e.Pixels = make([]floatRGB, n)
}

func (e *Juggle) Tick(strip Strip, p Params) {
	n := strip.Len()
	if len(e.Pixels) != n {
		e.Reset(n)
	}
	if n == 0 {
		return
	}

	for i := range e.Pixels {
		e.Pixels[i] = e.Pixels[i].scale(juggleFade)
	}

	for d := 0; d < juggleDots; d++ {
		pos := sinePosition(float64(d+7)*e.Phase*1.2, n)
		dot := HSVToRGB(float64(d*32)/255, 1, 1)
		blended := addRGB(e.Pixels[pos].rgb(), dot)
		e.Pixels[pos] = toFloatRGB(blended)
	}
	e.Phase += float64(p.Speed) / 300

	for i, px := range e.Pixels {
		strip[i] = px.rgb()
	}
}

// sinePosition maps sin(x) onto a pixel index in [0, n-1].
func sinePosition(x float64, n int) int {
	pos := int(math.Round((math.Sin(x) + 1) / 2 * float64(n-1)))
	return max(0, min(pos, n-1))
}
