package app

import (
	"io"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/display"
	"periph.io/x/extra/devices/screen"

	"github.com/coreman2200/ws2812c/internal/config"
	"github.com/coreman2200/ws2812c/internal/preview"
	"github.com/coreman2200/ws2812c/spi"
)

// Outputs are the display sinks a Port draws on.
type Outputs struct {
	Sinks   []display.Drawer
	Preview *preview.Server
	// Driver is the hardware output actually in use, after any fallback.
	Driver  string
	closers []io.Closer
}

// Close releases the SPI port, if one was opened.
func (o *Outputs) Close() error {
	var first error
	for _, c := range o.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenOutputs selects the sinks named by cfg. driver=spi falls back to the
// console when no SPI port exists; sim draws nowhere. A preview server is
// added on top whenever preview.addr is set.
func OpenOutputs(cfg *config.Config, log zerolog.Logger) (*Outputs, error) {
	o := &Outputs{Driver: cfg.Driver}
	switch cfg.Driver {
	case "spi":
		d, c, ok, err := spi.NewDrawer(cfg.SPI.Dev, cfg.LEDs, cfg.SPIFreq(), log)
		if err != nil {
			return nil, err
		}
		if !ok {
			o.Driver = "screen"
		}
		o.Sinks = append(o.Sinks, d)
		if c != nil {
			o.closers = append(o.closers, c)
		}
	case "screen":
		o.Sinks = append(o.Sinks, screen.New(cfg.LEDs))
	case "sim":
	default:
		log.Warn().Str("driver", cfg.Driver).Msg("unknown driver; using SIM")
		o.Driver = "sim"
	}
	if cfg.Preview.Addr != "" {
		o.Preview = preview.NewServer(cfg.Layout(), o.Driver, log.With().Str("component", "preview").Logger())
		o.Sinks = append(o.Sinks, o.Preview)
	}
	log.Info().Str("driver", o.Driver).Int("sinks", len(o.Sinks)).Msg("outputs ready")
	return o, nil
}
