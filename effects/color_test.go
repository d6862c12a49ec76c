package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWheel(t *testing.T) {
	tests := []struct {
		pos  int
		want RGB
	}{
		{0, RGB{0, 255, 0}},
		{84, RGB{252, 3, 0}},
		{85, RGB{255, 0, 0}},
		{169, RGB{3, 0, 252}},
		{170, RGB{0, 0, 255}},
		{255, RGB{0, 255, 0}},
		{-1, Black},
		{256, Black},
	}

	for _, test := range tests {
		assert.Equal(t, test.want, Wheel(test.pos), "Wheel(%d)", test.pos)
	}
}

func TestWheelIsContinuous(t *testing.T) {
	for pos := 1; pos <= 255; pos++ {
		a, b := Wheel(pos-1), Wheel(pos)
		assert.LessOrEqual(t, absDiff(a.R, b.R), 3, "red jump at %d", pos)
		assert.LessOrEqual(t, absDiff(a.G, b.G), 3, "green jump at %d", pos)
		assert.LessOrEqual(t, absDiff(a.B, b.B), 3, "blue jump at %d", pos)
	}
}

func TestHSVToRGB(t *testing.T) {
	tests := []struct {
		name    string
		h, s, v float64
		want    RGB
	}{
		{"red", 0, 1, 1, RGB{255, 0, 0}},
		{"green", 1.0 / 3, 1, 1, RGB{0, 255, 0}},
		{"blue", 2.0 / 3, 1, 1, RGB{0, 0, 255}},
		{"wrapped red", 1, 1, 1, RGB{255, 0, 0}},
		{"negative hue", -1.0 / 3, 1, 1, RGB{0, 0, 255}},
		{"gray", 0.5, 0, 0.5, RGB{128, 128, 128}},
		{"black", 0.2, 1, 0, Black},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, HSVToRGB(test.h, test.s, test.v))
		})
	}
}

func TestFadeToward(t *testing.T) {
	bg := RGB{10, 20, 30}

	c := RGB{255, 0, 30}
	c = FadeToward(c, bg, 100)
	assert.Equal(t, RGB{155, 20, 30}, c)

	for i := 0; i < 10; i++ {
		c = FadeToward(c, bg, 100)
	}
	assert.Equal(t, bg, c, "fade must settle exactly on the target")
}

func TestRGBDim(t *testing.T) {
	c := RGB{10, 20, 30}
	assert.Equal(t, c, c.Dim(255))
	assert.Equal(t, Black, c.Dim(0))
	assert.Equal(t, RGB{5, 10, 15}, RGB{10, 20, 30}.Dim(128))
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
