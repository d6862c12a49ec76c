package effects

import "time"

// Solid lights every pixel with the primary color.
type Solid struct{}

func (*Solid) Reset(int) {}

func (*Solid) Tick(strip Strip, p Params) {
	strip.Fill(p.Color)
}

// Rainbow spreads the color wheel along the strip and rotates it by one step
// per tick.
type Rainbow struct {
	Offset int
}

func (e *Rainbow) Reset(int) { e.Offset = 0 }

func (e *Rainbow) Tick(strip Strip, p Params) {
	for i := range strip {
		strip[i] = Wheel((i + e.Offset) % 256)
	}
	e.Offset = (e.Offset + 1) % 256
}

// Oscillator is a triangle wave bouncing between Min and Max.
type Oscillator struct {
	Min, Max float64
	// Divisor converts the global speed into a per-tick step.
	Divisor float64

	Level     float64
	Direction float64
}

func (o *Oscillator) reset() {
	o.Level = 0.1
	if o.Level < o.Min {
		o.Level = o.Min
	}
	o.Direction = 1
}

func (o *Oscillator) step(speed int) {
	o.Level += o.Direction * float64(speed) / o.Divisor
	switch {
	case o.Level >= o.Max:
		o.Level = o.Max
		o.Direction = -1
	case o.Level <= o.Min:
		o.Level = o.Min
		o.Direction = 1
	}
}

// Pulse fades the primary color up and down between 10% and 100%.
type Pulse struct{ Oscillator }

// NewPulse returns a reset Pulse.
func NewPulse() *Pulse {
	e := &Pulse{Oscillator{Min: 0.1, Max: 1.0, Divisor: 1000}}
	e.reset()
	return e
}

func (e *Pulse) Reset(int) { e.reset() }

func (e *Pulse) Tick(strip Strip, p Params) {
	strip.Fill(p.Color.Scale(e.Level))
	e.step(p.Speed)
}

// Breathe is a slower Pulse that dims further down.
type Breathe struct{ Oscillator }

// NewBreathe returns a reset Breathe.
func NewBreathe() *Breathe {
	e := &Breathe{Oscillator{Min: 0.05, Max: 1.0, Divisor: 2000}}
	e.reset()
	return e
}

func (e *Breathe) Reset(int) { e.reset() }

func (e *Breathe) Tick(strip Strip, p Params) {
	strip.Fill(p.Color.Scale(e.Level))
	e.step(p.Speed)
}

// Chase moves a short lit segment along the strip, wrapping at the end.
type Chase struct {
	// SegmentSize overrides the default segment of 5% of the strip.
	SegmentSize int

	Position int
}

func (e *Chase) Reset(int) { e.Position = 0 }

func (e *Chase) segment(n int) int {
	if e.SegmentSize > 0 {
		return min(e.SegmentSize, n)
	}
	return max(1, n*5/100)
}

func (e *Chase) Tick(strip Strip, p Params) {
	n := strip.Len()
	if n == 0 {
		return
	}

	strip.Clear()
	e.Position = (e.Position + 1) % n
	for i := 0; i < e.segment(n); i++ {
		strip[(e.Position+i)%n] = p.Color
	}
}

// Theater lights every third pixel and shifts the pattern by one pixel per
// tick. The hue of the rainbow variant advances once per full cycle.
type Theater struct {
	Q int
	J int
}

func (e *Theater) Reset(int) {
	e.Q = 0
	e.J = 0
}

func (e *Theater) Tick(strip Strip, p Params) {
	strip.Clear()
	for i := e.Q; i < strip.Len(); i += 3 {
		if p.TheaterRainbow {
			strip[i] = Wheel((i + e.J) % 256)
		} else {
			strip[i] = p.Color
		}
	}

	e.Q = (e.Q + 1) % 3
	if e.Q == 0 {
		e.J = (e.J + 1) % 256
	}
}

// Strobe flashes the primary color. It follows the wall clock rather than
// the tick counter.
type Strobe struct{}

const strobeOnWindow = 50 * time.Millisecond

func (*Strobe) Reset(int) {}

// strobePeriod returns the flash period and the length of its on phase. The
// on phase is fixed; speed only shortens the dark part, so from speed 75 up
// the period fits inside the on phase and the strip stays lit.
func strobePeriod(speed int) (period, on time.Duration) {
	period = max(time.Millisecond, time.Duration(200-2*speed)*time.Millisecond)
	return period, strobeOnWindow
}

func (*Strobe) Tick(strip Strip, p Params) {
	period, on := strobePeriod(p.Speed)
	phase := time.Duration(p.Now.UnixNano()) % period
	if phase < on {
		strip.Fill(p.Color)
	} else {
		strip.Clear()
	}
}
