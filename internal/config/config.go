package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/ws2812c/model"
	"github.com/coreman2200/ws2812c/pattern"
	"github.com/coreman2200/ws2812c/ws2812"
)

var ErrInvalid = errors.New("config: invalid")

// Timing either derives pulse values from a timer clock or spells them out.
// Explicit values win when Period is set.
type Timing struct {
	TimerHz int `yaml:"timer_hz,omitempty"` // e.g. 48000000
	ResetUs int `yaml:"reset_us,omitempty"` // e.g. 375

	Period      int `yaml:"period,omitempty"`
	High        int `yaml:"high,omitempty"`
	Low         int `yaml:"low,omitempty"`
	ResetPulses int `yaml:"reset_pulses,omitempty"`
}

type SPI struct {
	Dev     string `yaml:"dev"`      // e.g. /dev/spidev0.0, empty for the first port
	SpeedHz int    `yaml:"speed_hz"` // e.g. 2400000
}

type Button struct {
	Pin        string `yaml:"pin"` // e.g. GPIO17, empty to disable
	DebounceMs int    `yaml:"debounce_ms"`
}

type Preview struct {
	Addr string `yaml:"addr"` // e.g. :8080, empty to disable
}

type Config struct {
	LEDs       int  `yaml:"leds"`
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Serpentine bool `yaml:"serpentine"`

	Timing Timing `yaml:"timing"`
	// TransmitTimeoutMs bounds one transfer. 0 derives it from the strip
	// length.
	TransmitTimeoutMs int `yaml:"transmit_timeout_ms"`

	Patterns       []string `yaml:"patterns"`
	DwellMs        int      `yaml:"dwell_ms"`
	StepMs         int      `yaml:"step_ms"`
	GradientStepMs int      `yaml:"gradient_step_ms"`
	GradientSpread int      `yaml:"gradient_spread"`

	Driver  string  `yaml:"driver"` // "spi" | "screen" | "sim"
	SPI     SPI     `yaml:"spi,omitempty"`
	Button  Button  `yaml:"button,omitempty"`
	Preview Preview `yaml:"preview,omitempty"`

	LogLevel string `yaml:"log_level"`
}

// Default is the 3x3 reference panel on a 48MHz timer.
func Default() *Config {
	return &Config{
		LEDs:              9,
		Width:             3,
		Height:            3,
		Timing:            Timing{TimerHz: 48000000, ResetUs: 375},
		Patterns:          []string{"cycle", "rainbow", "gradient"},
		DwellMs:           500,
		StepMs:            2,
		GradientStepMs:    20,
		GradientSpread:    40,
		Driver:            "sim",
		SPI:               SPI{SpeedHz: 2400000},
		Button:            Button{DebounceMs: 50},
		LogLevel:          "info",
	}
}

// Load reads path on top of Default, so a partial file only overrides what
// it names.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Validate checks the values that would otherwise fail deep inside the
// engine or the drivers.
func (c *Config) Validate() error {
	if c.LEDs <= 0 {
		return fmt.Errorf("%w: leds must be positive, got %d", ErrInvalid, c.LEDs)
	}
	if c.Width != 0 || c.Height != 0 {
		if c.Width <= 0 || c.Height <= 0 || c.Width*c.Height != c.LEDs {
			return fmt.Errorf("%w: %dx%d panel does not hold %d leds", ErrInvalid, c.Width, c.Height, c.LEDs)
		}
	}
	if _, err := c.PulseTiming(); err != nil {
		return err
	}
	if c.TransmitTimeoutMs < 0 {
		return fmt.Errorf("%w: negative transmit_timeout_ms", ErrInvalid)
	}
	if len(c.Patterns) == 0 {
		return fmt.Errorf("%w: no patterns", ErrInvalid)
	}
	reg := pattern.Builtin()
	for _, p := range c.Patterns {
		if _, ok := reg.Get(p); !ok {
			return fmt.Errorf("%w: unknown pattern %q", ErrInvalid, p)
		}
	}
	switch c.Driver {
	case "spi", "screen", "sim":
	default:
		return fmt.Errorf("%w: unknown driver %q", ErrInvalid, c.Driver)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalid, err)
	}
	return nil
}

// PulseTiming builds the encoder timing.
func (c *Config) PulseTiming() (ws2812.Timing, error) {
	t := c.Timing
	if t.Period != 0 {
		if t.Period < 0 || t.Period > 0xffff || t.High < 0 || t.Low < 0 {
			return ws2812.Timing{}, fmt.Errorf("%w: timing out of range", ErrInvalid)
		}
		out := ws2812.Timing{
			Period: uint16(t.Period),
			High:   uint16(t.High),
			Low:    uint16(t.Low),
			Reset:  t.ResetPulses,
		}
		if err := out.Validate(); err != nil {
			return ws2812.Timing{}, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		return out, nil
	}
	if t.TimerHz == 0 && t.ResetUs == 0 {
		return ws2812.DefaultTiming, nil
	}
	out, err := ws2812.TimingFor(physic.Frequency(t.TimerHz)*physic.Hertz, time.Duration(t.ResetUs)*time.Microsecond)
	if err != nil {
		return ws2812.Timing{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return out, nil
}

// Layout is the panel geometry, or a single row when no panel is set.
func (c *Config) Layout() model.Layout {
	if c.Width == 0 && c.Height == 0 {
		return model.Linear(c.LEDs)
	}
	return model.Layout{Width: c.Width, Height: c.Height, Serpentine: c.Serpentine}
}

func (c *Config) TransmitTimeout() time.Duration {
	return time.Duration(c.TransmitTimeoutMs) * time.Millisecond
}

// PatternOptions maps the timing fields onto engine options. Zero values
// leave the engine defaults in place.
func (c *Config) PatternOptions() pattern.Options {
	return pattern.Options{
		Dwell:          time.Duration(c.DwellMs) * time.Millisecond,
		Step:           time.Duration(c.StepMs) * time.Millisecond,
		GradientStep:   time.Duration(c.GradientStepMs) * time.Millisecond,
		GradientSpread: c.GradientSpread,
		Layout:         c.Layout(),
	}
}

func (c *Config) SPIFreq() physic.Frequency {
	return physic.Frequency(c.SPI.SpeedHz) * physic.Hertz
}

func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Button.DebounceMs) * time.Millisecond
}
