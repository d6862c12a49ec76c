package effects

import "math/rand"

// Gradient wipes a two-hue gradient across the strip, then starts over with
// a fresh pair of hues.
type Gradient struct {
	Position int
	// Hue1 and Hue2 are in turns. Hue2 is always 60 to 180 degrees ahead of
	// Hue1, measured around the wheel.
	Hue1, Hue2 float64

	rng *rand.Rand
}

func (e *Gradient) Reset(int) {
	e.Position = 0
	e.pickHues()
}

func (e *Gradient) pickHues() {
	e.Hue1 = e.rng.Float64()
	e.Hue2 = wrapHue(e.Hue1 + (60+e.rng.Float64()*120)/360)
}

// span returns how far Hue2 is ahead of Hue1, in (0, 1).
func (e *Gradient) span() float64 {
	return wrapHue(e.Hue2 - e.Hue1)
}

func (e *Gradient) Tick(strip Strip, p Params) {
	n := strip.Len()
	if n == 0 {
		return
	}

	span := e.span()
	for i := range strip {
		if i > e.Position {
			strip[i] = Black
			continue
		}
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		strip[i] = HSVToRGB(wrapHue(e.Hue1+t*span), 1, 1)
	}

	e.Position += max(1, p.Speed/10)
	if e.Position >= n {
		e.Position = 0
		e.pickHues()
	}
}

func wrapHue(h float64) float64 {
	for h < 0 {
		h++
	}
	for h >= 1 {
		h--
	}
	return h
}
