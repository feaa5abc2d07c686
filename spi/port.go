// Package spi provides a host-side stand-in for the PWM timer/DMA channel
// that streams pulse buffers to the strip. A Port decodes each buffer back
// into colours and pushes them to periph display sinks: an nrzled device on a
// SPI bus, the console, or a preview server. When a transfer is done the
// completion callback fires, the same way the DMA-complete interrupt would.
package spi

import (
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"

	"github.com/coreman2200/ws2812c/ws2812"
)

// DefaultFreq is the SPI clock nrzled needs to produce 800kHz NRZ bits.
const DefaultFreq = 2400 * physic.KiloHertz

// Port implements transmit.Hardware.
type Port struct {
	timing   ws2812.Timing
	sinks    []display.Drawer
	complete func()
	log      zerolog.Logger

	wg sync.WaitGroup
}

// NewPort returns a Port that draws on sinks and calls complete after every
// transfer that reached all of them.
func NewPort(t ws2812.Timing, complete func(), sinks ...display.Drawer) *Port {
	return &Port{
		timing:   t,
		sinks:    sinks,
		complete: complete,
		log:      zerolog.Nop(),
	}
}

// SetLogger replaces the port's logger.
func (p *Port) SetLogger(l zerolog.Logger) { p.log = l }

// StartTransfer begins streaming pulses and returns immediately.
func (p *Port) StartTransfer(pulses []uint16) {
	p.wg.Add(1)
	go p.stream(pulses)
}

// stream runs in place of the DMA engine. A buffer that cannot be decoded or
// a sink that fails leaves the transfer unfinished: completion is not
// signalled, which the caller sees as a stalled bus.
func (p *Port) stream(pulses []uint16) {
	defer p.wg.Done()
	f, err := ws2812.Decode(pulses, p.timing)
	if err != nil {
		p.log.Error().Err(err).Int("pulses", len(pulses)).Msg("transfer dropped")
		return
	}
	img := f.Image()
	for _, s := range p.sinks {
		if err := s.Draw(s.Bounds(), img, image.Point{}); err != nil {
			p.log.Error().Err(err).Str("sink", s.String()).Msg("transfer stalled")
			return
		}
	}
	p.complete()
}

// Wait blocks until no transfer is running.
func (p *Port) Wait() { p.wg.Wait() }

// Close waits for the running transfer and halts every sink.
func (p *Port) Close() error {
	p.wg.Wait()
	var first error
	for _, s := range p.sinks {
		if err := s.Halt(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewDrawer opens the named SPI port (empty for the first one available) and
// wraps it in an nrzled driver for leds pixels. If no SPI port can be found
// the console is used instead and ok is false. The returned closer releases
// the SPI port and is nil for the console.
func NewDrawer(dev string, leds int, freq physic.Frequency, log zerolog.Logger) (d display.Drawer, c io.Closer, ok bool, err error) {
	if freq == 0 {
		freq = DefaultFreq
	}
	port, err := spireg.Open(dev)
	if err != nil {
		log.Warn().Err(err).Str("dev", dev).Msg("no SPI port, printing at the console")
		return screen.New(leds), nil, false, nil
	}
	opts := nrzled.Opts{
		NumPixels: leds,
		Channels:  3,
		Freq:      freq,
	}
	nd, err := nrzled.NewSPI(port, &opts)
	if err != nil {
		_ = port.Close()
		return nil, nil, false, fmt.Errorf("spi: nrzled on %q: %w", dev, err)
	}
	return nd, port, true, nil
}
