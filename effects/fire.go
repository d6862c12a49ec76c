package effects

import "math/rand"

// Fire is a one-dimensional heat simulation. Each tick the cells cool, heat
// drifts away from the base, and new sparks ignite near the base. The strip
// is drawn reversed so the flames rise from the far end.
type Fire struct {
	// Cooling controls how fast cells lose heat. Higher means shorter flames.
	Cooling int
	// Sparking is the chance out of 255 that a new spark ignites each tick.
	Sparking int

	Heat []uint8

	rng *rand.Rand
}

// fireSparkZone is the number of cells at the base where sparks can ignite.
const fireSparkZone = 8

func (e *Fire) Reset(n int) {
	e.Heat = make([]uint8, n)
}

func (e *Fire) Tick(strip Strip, p Params) {
	n := strip.Len()
	if len(e.Heat) != n {
		e.Reset(n)
	}
	if n == 0 {
		return
	}

	// Cool down every cell a little.
	maxCool := e.Cooling*10/n + 2
	for i, h := range e.Heat {
		e.Heat[i] = qsub8(h, e.rng.Intn(maxCool))
	}

	diffuse(e.Heat)

	// Randomly ignite new sparks near the bottom.
	if e.rng.Intn(255) < e.Sparking {
		y := e.rng.Intn(min(fireSparkZone, n))
		e.Heat[y] = qadd8(e.Heat[y], sparkHeat(e.rng))
	}

	for i, h := range e.Heat {
		strip[n-1-i] = HeatColor(h)
	}
}

// sparkHeat returns the heat of a new spark, in [160, 255).
func sparkHeat(rng *rand.Rand) int {
	return 160 + rng.Intn(95)
}

// diffuse drifts heat away from the base. It runs from the top down so that
// each cell reads neighbors that have not been updated yet in this pass.
func diffuse(heat []uint8) {
	for k := len(heat) - 1; k >= 2; k-- {
		heat[k] = uint8((int(heat[k-1]) + 2*int(heat[k-2])) / 3)
	}
}

// HeatColor maps a temperature to a black-body-ish color: black, red,
// yellow, then white.
func HeatColor(temp uint8) RGB {
	// Scale down to 0..191 so that the three bands are 64 steps each.
	t192 := uint8(int(temp) * 191 / 255)

	ramp := (t192 & 0x3F) << 2
	switch {
	case t192&0x80 != 0:
		return RGB{R: 255, G: 255, B: ramp}
	case t192&0x40 != 0:
		return RGB{R: 255, G: ramp}
	default:
		return RGB{R: ramp}
	}
}

func qadd8(a uint8, b int) uint8 {
	return uint8(min(int(a)+b, 255))
}

func qsub8(a uint8, b int) uint8 {
	return uint8(max(int(a)-b, 0))
}
