package main

import (
	"fmt"
	"sync"

	"dev.acmcsuf.com/lichtwerkd"
	"dev.acmcsuf.com/lichtwerkd/effects"
	"golang.org/x/exp/constraints"
	"libdb.so/ledctl"
)

// RGBController is a controller for RGB LEDs.
type RGBController interface {
	SetRGBAt(i int, color ledctl.RGB)
	Flush() error
}

// ws281xSink drives a WS281x strip. The hardware brightness from the
// configuration is applied here, on top of the controller's own brightness.
type ws281xSink struct {
	ctrl       RGBController
	ctrlMu     sync.Mutex
	numPixels  int
	brightness uint8
}

var _ lichtwerkd.PixelSink = (*ws281xSink)(nil)

var ws281xConfig = ledctl.WS281xConfig{
	ColorOrder: ledctl.BGROrder,
	ColorModel: ledctl.RGBModel,
}

func newWS281xSink(cfg LEDConfig) (*ws281xSink, error) {
	ws281xCfg := ws281xConfig
	ws281xCfg.GPIOPins = append(ws281xCfg.GPIOPins[:0], 0)
	setInt(&ws281xCfg.PWMFrequency, cfg.FreqHz)
	setInt(&ws281xCfg.DMAChannel, cfg.DMA)
	setInt(&ws281xCfg.GPIOPins[0], cfg.Pin)
	setInt(&ws281xCfg.NumPixels, cfg.Count)

	ws281x, err := ledctl.NewWS281x(ws281xCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create a WS281x controller: %w", err)
	}

	return newRGBSink(ws281x, cfg.Count, uint8(cfg.Brightness)), nil
}

// setInt assigns an int to a hardware config field of any integer type.
func setInt[T constraints.Integer](dst *T, v int) {
	*dst = T(v)
}

func newRGBSink(ctrl RGBController, numPixels int, brightness uint8) *ws281xSink {
	return &ws281xSink{
		ctrl:       ctrl,
		numPixels:  numPixels,
		brightness: brightness,
	}
}

func (s *ws281xSink) SetPixel(i int, color effects.RGB) {
	if i < 0 || i >= s.numPixels {
		return
	}

	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()

	s.ctrl.SetRGBAt(i, ledctl.RGB(color.Dim(s.brightness)))
}

func (s *ws281xSink) Show() error {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()

	return s.ctrl.Flush()
}

func (s *ws281xSink) Clear() {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()

	for i := 0; i < s.numPixels; i++ {
		s.ctrl.SetRGBAt(i, ledctl.RGB{})
	}
}

func (s *ws281xSink) PixelCount() int {
	return s.numPixels
}
