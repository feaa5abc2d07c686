// Package pattern runs colour animations on a frame. Each pattern loops
// forever, mutating the frame and transmitting it, and returns when the
// cancellation signal is seen at one of its checkpoints. Checkpoints come
// after a full transmission and its delay, so a transfer in flight always
// completes first.
package pattern

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/ws2812c/model"
	"github.com/coreman2200/ws2812c/transmit"
	"github.com/coreman2200/ws2812c/ws2812"
)

// Transmitter blocks until an encoded buffer has been streamed out.
type Transmitter interface {
	Transmit(pulses []uint16) error
}

// Options tune the animation speeds. Zero values pick the defaults below.
type Options struct {
	// Dwell is how long Cycle holds each colour.
	Dwell time.Duration
	// Step is the delay between Rainbow hue steps.
	Step time.Duration
	// GradientStep is the delay between Gradient frames.
	GradientStep time.Duration
	// GradientSpread is the hue offset between neighbouring diagonals.
	GradientSpread int
	// SweepStep is the delay between Sweep positions.
	SweepStep time.Duration
	// Layout addresses the frame as a panel. Defaults to a single row.
	Layout model.Layout
	// Delay waits between steps. Defaults to time.Sleep.
	Delay func(time.Duration)
}

const (
	DefaultDwell          = 500 * time.Millisecond
	DefaultStep           = 2 * time.Millisecond
	DefaultGradientStep   = 20 * time.Millisecond
	DefaultGradientSpread = 40
	DefaultSweepStep      = 100 * time.Millisecond
)

// Engine owns the frame for the duration of a pattern run.
type Engine struct {
	frame  model.Frame
	enc    *ws2812.Encoder
	tx     Transmitter
	cancel *transmit.Signal
	opts   Options
	log    zerolog.Logger

	frames uint64
}

// NewEngine wires a frame to an encoder and transmitter. cancel is observed
// at every checkpoint and never cleared by the engine.
func NewEngine(frame model.Frame, enc *ws2812.Encoder, tx Transmitter, cancel *transmit.Signal, opts Options) (*Engine, error) {
	if len(frame) != enc.Count() {
		return nil, fmt.Errorf("pattern: %w: frame has %d LEDs, encoder %d", ws2812.ErrFrameSize, len(frame), enc.Count())
	}
	if opts.Layout.Count() == 0 {
		opts.Layout = model.Linear(len(frame))
	}
	if opts.Layout.Count() != len(frame) {
		return nil, fmt.Errorf("pattern: %w: layout %dx%d does not cover %d LEDs",
			ws2812.ErrFrameSize, opts.Layout.Width, opts.Layout.Height, len(frame))
	}
	if opts.Dwell <= 0 {
		opts.Dwell = DefaultDwell
	}
	if opts.Step <= 0 {
		opts.Step = DefaultStep
	}
	if opts.GradientStep <= 0 {
		opts.GradientStep = DefaultGradientStep
	}
	if opts.GradientSpread == 0 {
		opts.GradientSpread = DefaultGradientSpread
	}
	if opts.SweepStep <= 0 {
		opts.SweepStep = DefaultSweepStep
	}
	if opts.Delay == nil {
		opts.Delay = time.Sleep
	}
	return &Engine{
		frame:  frame,
		enc:    enc,
		tx:     tx,
		cancel: cancel,
		opts:   opts,
		log:    zerolog.Nop(),
	}, nil
}

// SetLogger replaces the engine's logger.
func (e *Engine) SetLogger(l zerolog.Logger) { e.log = l }

// Frame returns the frame the engine draws into.
func (e *Engine) Frame() model.Frame { return e.frame }

// Frames is the number of frames transmitted so far.
func (e *Engine) Frames() uint64 { return e.frames }

// Show encodes the current frame and blocks until it has been sent.
func (e *Engine) Show() error {
	pulses, err := e.enc.Encode(e.frame)
	if err != nil {
		return fmt.Errorf("pattern: encode: %w", err)
	}
	if err := e.tx.Transmit(pulses); err != nil {
		return fmt.Errorf("pattern: transmit frame %d: %w", e.frames, err)
	}
	e.frames++
	return nil
}

// step shows the frame, waits d and reports whether the run should stop.
func (e *Engine) step(d time.Duration) (bool, error) {
	if err := e.Show(); err != nil {
		return true, err
	}
	e.opts.Delay(d)
	return e.cancel.IsSet(), nil
}

// Run executes p until it is cancelled or fails.
func (e *Engine) Run(name string, p Pattern) error {
	start := e.frames
	e.log.Debug().Str("pattern", name).Int("leds", len(e.frame)).Msg("pattern start")
	err := p(e)
	ev := e.log.Debug()
	if err != nil {
		ev = e.log.Error().Err(err)
	}
	ev.Str("pattern", name).Uint64("frames", e.frames-start).Msg("pattern stop")
	return err
}
