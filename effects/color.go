package effects

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB is a single 24-bit LED color.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Black is the zero color.
var Black = RGB{}

// Scale multiplies every channel by f, truncating toward zero. f is clamped
// to [0, 1].
func (c RGB) Scale(f float64) RGB {
	f = clampf(f, 0, 1)
	return RGB{
		R: uint8(float64(c.R) * f),
		G: uint8(float64(c.G) * f),
		B: uint8(float64(c.B) * f),
	}
}

// Dim scales every channel by level/255 using integer math, so that a level
// of 255 leaves the color untouched.
func (c RGB) Dim(level uint8) RGB {
	return RGB{
		R: uint8(uint16(c.R) * uint16(level) / 255),
		G: uint8(uint16(c.G) * uint16(level) / 255),
		B: uint8(uint16(c.B) * uint16(level) / 255),
	}
}

// Wheel maps a position on a 256-step color wheel to a color. The wheel goes
// red -> green -> blue -> red in three bands of 85 steps. Positions outside
// [0, 255] are black.
func Wheel(pos int) RGB {
	switch {
	case pos < 0 || pos > 255:
		return Black
	case pos < 85:
		return RGB{R: uint8(pos * 3), G: uint8(255 - pos*3)}
	case pos < 170:
		pos -= 85
		return RGB{R: uint8(255 - pos*3), B: uint8(pos * 3)}
	default:
		pos -= 170
		return RGB{G: uint8(pos * 3), B: uint8(255 - pos*3)}
	}
}

// HSVToRGB converts a hue in turns ([0, 1), wrapped), saturation and value
// to a color. Channels are rounded to the nearest integer.
func HSVToRGB(h, s, v float64) RGB {
	h = math.Mod(h, 1)
	if h < 0 {
		h++
	}
	c := colorful.Hsv(h*360, clampf(s, 0, 1), clampf(v, 0, 1))
	r, g, b := c.Clamped().RGB255()
	return RGB{R: r, G: g, B: b}
}

// FadeToward steps every channel of cur toward target by at most amount. It
// never overshoots target, so repeated calls settle exactly on it.
//
// None of the built-in effects use it; the trail effects decay
// multiplicatively toward black instead. It is exported for custom effects
// registered through Registry.Register.
func FadeToward(cur, target RGB, amount uint8) RGB {
	return RGB{
		R: fadeChannel(cur.R, target.R, amount),
		G: fadeChannel(cur.G, target.G, amount),
		B: fadeChannel(cur.B, target.B, amount),
	}
}

func fadeChannel(cur, target, amount uint8) uint8 {
	switch {
	case cur < target:
		if target-cur <= amount {
			return target
		}
		return cur + amount
	case cur > target:
		if cur-target <= amount {
			return target
		}
		return cur - amount
	default:
		return cur
	}
}

// addRGB adds two colors channel-wise, saturating at 255.
func addRGB(a, b RGB) RGB {
	return RGB{
		R: uint8(min(int(a.R)+int(b.R), 255)),
		G: uint8(min(int(a.G)+int(b.G), 255)),
		B: uint8(min(int(a.B)+int(b.B), 255)),
	}
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// floatRGB is an unclamped color used by effects that decay smoothly.
type floatRGB struct{ R, G, B float64 }

func (c floatRGB) scale(f float64) floatRGB {
	return floatRGB{c.R * f, c.G * f, c.B * f}
}

func (c floatRGB) rgb() RGB {
	return RGB{
		R: uint8(clampf(c.R, 0, 255)),
		G: uint8(clampf(c.G, 0, 255)),
		B: uint8(clampf(c.B, 0, 255)),
	}
}

func toFloatRGB(c RGB) floatRGB {
	return floatRGB{float64(c.R), float64(c.G), float64(c.B)}
}
