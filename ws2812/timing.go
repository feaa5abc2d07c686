// Package ws2812 encodes frames into the pulse-width sequence a WS2812-class
// LED strip expects when driven from a PWM timer fed by DMA.
//
// Each data bit occupies one timer period. A 1 bit is a long high pulse
// (about half the period), a 0 bit a short one (about a quarter). The data
// is framed on both sides by a run of zero-duty periods that hold the line
// low long enough for the strip to latch.
//
// Datasheet
//
// https://cdn-shop.adafruit.com/datasheets/WS2812.pdf
package ws2812

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"
)

// BitsPerLED is the number of bits sent per LED: 8 per channel, G R B.
const BitsPerLED = 24

// BitRate is the data rate of the protocol, one bit every 1.25µs.
const BitRate = 800 * physic.KiloHertz

// Pulse widths accepted by the LEDs.
const (
	minT0H = 200 * time.Nanosecond
	maxT0H = 500 * time.Nanosecond
	minT1H = 550 * time.Nanosecond
	maxT1H = 850 * time.Nanosecond
)

// MinReset is the shortest low interval the strip treats as a latch.
const MinReset = 50 * time.Microsecond

var (
	ErrTiming    = errors.New("ws2812: invalid timing")
	ErrFrameSize = errors.New("ws2812: frame size mismatch")
	ErrBadPulse  = errors.New("ws2812: unexpected duty value")
)

// Timing holds duty values in timer ticks. Period is the number of ticks per
// bit, High and Low the compare values for a 1 and a 0 bit, and Reset the
// number of zero-duty periods sent before and after the data.
type Timing struct {
	Period uint16
	High   uint16
	Low    uint16
	Reset  int
}

// DefaultTiming is the reference timing for a 48MHz timer clock: a 60 tick
// period with 30/15 tick pulses, and 300 reset periods (375µs).
var DefaultTiming = Timing{Period: 60, High: 30, Low: 15, Reset: 300}

// TimingFor derives a Timing from the timer input clock and the required
// reset-low interval. High is half the period and Low a quarter of it; the
// pulse widths that result are checked against the protocol window.
func TimingFor(clock physic.Frequency, reset time.Duration) (Timing, error) {
	if clock < BitRate {
		return Timing{}, fmt.Errorf("%w: timer clock %s is below the %s bit rate", ErrTiming, clock, BitRate)
	}
	period := int64(clock / BitRate)
	if period > 0xFFFF {
		return Timing{}, fmt.Errorf("%w: %d ticks per bit does not fit a 16 bit timer", ErrTiming, period)
	}
	t := Timing{
		Period: uint16(period),
		High:   uint16(period / 2),
		Low:    uint16(period / 4),
	}
	bit := BitRate.Period()
	t.Reset = int((reset + bit - 1) / bit)
	if err := t.Check(clock); err != nil {
		return Timing{}, err
	}
	return t, nil
}

// Validate checks the structural invariants: a non-zero period, a 0 pulse
// shorter than a 1 pulse, neither longer than the period, and a
// non-negative reset count.
func (t Timing) Validate() error {
	switch {
	case t.Period == 0:
		return fmt.Errorf("%w: zero period", ErrTiming)
	case t.Low == 0 || t.Low >= t.High:
		return fmt.Errorf("%w: low %d must be in (0, high %d)", ErrTiming, t.Low, t.High)
	case t.High > t.Period:
		return fmt.Errorf("%w: high %d exceeds period %d", ErrTiming, t.High, t.Period)
	case t.Reset < 0:
		return fmt.Errorf("%w: negative reset count %d", ErrTiming, t.Reset)
	}
	return nil
}

// Check validates t and additionally that, at the given timer clock, both
// pulse widths fall inside the LED's tolerance window and the reset run is
// long enough to latch.
func (t Timing) Check(clock physic.Frequency) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if clock <= 0 {
		return fmt.Errorf("%w: no timer clock", ErrTiming)
	}
	hi, lo, reset := t.Durations(clock)
	if lo < minT0H || lo > maxT0H {
		return fmt.Errorf("%w: 0 pulse %s outside [%s,%s]", ErrTiming, lo, minT0H, maxT0H)
	}
	if hi < minT1H || hi > maxT1H {
		return fmt.Errorf("%w: 1 pulse %s outside [%s,%s]", ErrTiming, hi, minT1H, maxT1H)
	}
	if reset < MinReset {
		return fmt.Errorf("%w: reset %s shorter than %s", ErrTiming, reset, MinReset)
	}
	return nil
}

// Durations converts the tick counts to wall time at the given timer clock.
func (t Timing) Durations(clock physic.Frequency) (high, low, reset time.Duration) {
	tick := clock.Period()
	high = time.Duration(t.High) * tick
	low = time.Duration(t.Low) * tick
	reset = time.Duration(t.Reset) * time.Duration(t.Period) * tick
	return high, low, reset
}

// BufferLen is the pulse count for n LEDs: 2*Reset + 24*n.
func (t Timing) BufferLen(n int) int {
	return 2*t.Reset + BitsPerLED*n
}
