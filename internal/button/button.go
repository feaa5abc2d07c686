// Package button turns presses of a push button wired between a GPIO and
// ground into calls of a press callback.
package button

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

var ErrNoPin = errors.New("button: no such pin")

// poll bounds how long Run can take to notice ctx is done.
const poll = 100 * time.Millisecond

// Open looks up a pin by name, e.g. "GPIO17".
func Open(name string) (gpio.PinIn, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoPin, name)
	}
	return p, nil
}

type Watcher struct {
	pin      gpio.PinIn
	debounce time.Duration
	press    func()
	log      zerolog.Logger
}

// NewWatcher calls press on every falling edge of pin, ignoring edges less
// than debounce after the last accepted one.
func NewWatcher(pin gpio.PinIn, debounce time.Duration, press func()) *Watcher {
	return &Watcher{
		pin:      pin,
		debounce: debounce,
		press:    press,
		log:      zerolog.Nop(),
	}
}

func (w *Watcher) SetLogger(l zerolog.Logger) { w.log = l }

// Run configures the pin with a pull-up and waits for presses until ctx is
// done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.arm(); err != nil {
		return err
	}
	w.watch(ctx)
	return nil
}

func (w *Watcher) arm() error {
	if err := w.pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return fmt.Errorf("button: %s: %w", w.pin, err)
	}
	w.log.Info().Str("pin", w.pin.Name()).Dur("debounce", w.debounce).Msg("button armed")
	return nil
}

func (w *Watcher) watch(ctx context.Context) {
	var last time.Time
	for ctx.Err() == nil {
		if !w.pin.WaitForEdge(poll) {
			continue
		}
		if w.pin.Read() != gpio.Low {
			continue
		}
		now := time.Now()
		if !last.IsZero() && now.Sub(last) < w.debounce {
			w.log.Debug().Str("pin", w.pin.Name()).Msg("bounce ignored")
			continue
		}
		last = now
		w.log.Info().Str("pin", w.pin.Name()).Msg("button pressed")
		w.press()
	}
}
