package app

import (
	"fmt"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/display"

	"github.com/coreman2200/ws2812c/internal/config"
	"github.com/coreman2200/ws2812c/model"
	"github.com/coreman2200/ws2812c/pattern"
	"github.com/coreman2200/ws2812c/spi"
	"github.com/coreman2200/ws2812c/transmit"
	"github.com/coreman2200/ws2812c/ws2812"
)

// Core is the strip pipeline: frame, encoder, hardware port, synchronizer
// and pattern engine, plus the two signals that tie them together.
type Core struct {
	Frame    model.Frame
	Encoder  *ws2812.Encoder
	Port     *spi.Port
	Sync     *transmit.Synchronizer
	Engine   *pattern.Engine
	Playlist *pattern.Playlist

	// Done is raised by the port when a transfer completes.
	Done *transmit.Signal
	// Cancel is raised by the button or shutdown and ends the running pattern.
	Cancel *transmit.Signal

	log zerolog.Logger
}

func InitCore(cfg *config.Config, log zerolog.Logger, sinks ...display.Drawer) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t, err := cfg.PulseTiming()
	if err != nil {
		return nil, err
	}

	// 1) Frame + encoder
	frame := model.NewFrame(cfg.LEDs)
	enc, err := ws2812.NewEncoder(cfg.LEDs, t)
	if err != nil {
		return nil, err
	}

	// 2) Port raises done, synchronizer waits on it
	done := &transmit.Signal{}
	port := spi.NewPort(t, done.Set, sinks...)
	port.SetLogger(log.With().Str("component", "port").Logger())
	timeout := cfg.TransmitTimeout()
	if timeout == 0 {
		timeout = transmit.TimeoutFor(enc.WireTime())
	}
	sync := transmit.NewSynchronizer(port, done, timeout)

	// 3) Engine + playlist
	cancel := &transmit.Signal{}
	eng, err := pattern.NewEngine(frame, enc, sync, cancel, cfg.PatternOptions())
	if err != nil {
		return nil, err
	}
	eng.SetLogger(log.With().Str("component", "engine").Logger())
	pl, err := pattern.NewPlaylist(pattern.Builtin(), cfg.Patterns...)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	log.Info().
		Int("leds", cfg.LEDs).
		Uint16("period", t.Period).
		Uint16("high", t.High).
		Uint16("low", t.Low).
		Int("reset", t.Reset).
		Dur("timeout", sync.Timeout()).
		Strs("patterns", cfg.Patterns).
		Msg("core ready")

	return &Core{
		Frame:    frame,
		Encoder:  enc,
		Port:     port,
		Sync:     sync,
		Engine:   eng,
		Playlist: pl,
		Done:     done,
		Cancel:   cancel,
		log:      log,
	}, nil
}

// Blank turns every LED off.
func (c *Core) Blank() error {
	c.Frame.Clear()
	return c.Engine.Show()
}

// Close waits for a transfer in flight and halts the sinks.
func (c *Core) Close() error {
	return c.Port.Close()
}
