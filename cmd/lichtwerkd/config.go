package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"dev.acmcsuf.com/lichtwerkd"
	"dev.acmcsuf.com/lichtwerkd/effects"
	"gopkg.in/yaml.v3"
)

// Config is the daemon's configuration file.
type Config struct {
	LED      LEDConfig      `yaml:"led"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Effects  effects.Config `yaml:"effects"`
}

// LEDConfig describes the strip hardware.
type LEDConfig struct {
	Count      int  `yaml:"count"`
	Pin        int  `yaml:"pin"`
	FreqHz     int  `yaml:"freq_hz"`
	DMA        int  `yaml:"dma"`
	Invert     bool `yaml:"invert"`
	Brightness int  `yaml:"brightness"`
	Channel    int  `yaml:"channel"`
}

// DefaultsConfig is the state the strip starts in.
type DefaultsConfig struct {
	Power          bool   `yaml:"power"`
	Effect         string `yaml:"effect"`
	Brightness     int    `yaml:"brightness"`
	Speed          int    `yaml:"speed"`
	Color          [3]int `yaml:"color"`
	TheaterRainbow bool   `yaml:"theater_rainbow"`
}

var defaultConfig = Config{
	LED: LEDConfig{
		Count:      600,
		Pin:        21,
		FreqHz:     800000,
		DMA:        10,
		Brightness: 255,
	},
	Defaults: DefaultsConfig{
		Effect:         "solid",
		Brightness:     100,
		Speed:          50,
		Color:          [3]int{255, 255, 255},
		TheaterRainbow: true,
	},
	Effects: effects.DefaultConfig,
}

// loadConfig reads the configuration file at path. Keys missing from the
// file keep their defaults. If the file does not exist, the defaults are
// returned and found is false.
func loadConfig(path string) (cfg Config, found bool, err error) {
	cfg = defaultConfig

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, false, nil
		}
		return cfg, false, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, true, fmt.Errorf("failed to parse config %q: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, true, fmt.Errorf("invalid config %q: %w", path, err)
	}

	return cfg, true, nil
}

func (c Config) validate() error {
	if c.LED.Count <= 0 {
		return fmt.Errorf("led.count must be positive, got %d", c.LED.Count)
	}
	if c.LED.Brightness < 0 || c.LED.Brightness > 255 {
		return fmt.Errorf("led.brightness must be in [0, 255], got %d", c.LED.Brightness)
	}
	if c.LED.FreqHz <= 0 {
		return fmt.Errorf("led.freq_hz must be positive, got %d", c.LED.FreqHz)
	}
	return nil
}

// initialState converts the defaults section into the controller's
// starting state. Out-of-range values are clamped by the controller.
func (c Config) initialState() lichtwerkd.State {
	state := lichtwerkd.DefaultState
	state.Power = c.Defaults.Power
	state.Effect = c.Defaults.Effect
	state.Brightness = c.Defaults.Brightness
	state.Speed = c.Defaults.Speed
	state.Color = effects.RGB{
		R: channel(c.Defaults.Color[0]),
		G: channel(c.Defaults.Color[1]),
		B: channel(c.Defaults.Color[2]),
	}
	state.TheaterRainbow = c.Defaults.TheaterRainbow
	return state
}

func channel(v int) uint8 {
	return uint8(max(0, min(v, 255)))
}
