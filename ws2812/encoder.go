package ws2812

import (
	"fmt"
	"time"

	"github.com/coreman2200/ws2812c/model"
)

// Encoder turns frames of a fixed LED count into pulse buffers. The buffer is
// allocated once by NewEncoder and reused by every Encode call, so the slice
// returned by Encode is only valid until the next call.
type Encoder struct {
	timing Timing
	count  int
	buf    []uint16
}

// NewEncoder prepares an encoder for count LEDs.
func NewEncoder(count int, t Timing) (*Encoder, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: invalid LED count %d", ErrFrameSize, count)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Encoder{
		timing: t,
		count:  count,
		buf:    make([]uint16, t.BufferLen(count)),
	}, nil
}

// Count returns the LED count the encoder was sized for.
func (e *Encoder) Count() int { return e.count }

// Timing returns the duty values in use.
func (e *Encoder) Timing() Timing { return e.timing }

// Len is the length of every buffer Encode returns.
func (e *Encoder) Len() int { return len(e.buf) }

// WireTime is how long one buffer takes to stream at BitRate, reset runs
// included.
func (e *Encoder) WireTime() time.Duration {
	return time.Duration(len(e.buf)) * BitRate.Period()
}

// Encode writes the pulse sequence for f: Reset zero-duty entries, then for
// every LED in wiring order its GRB word MSB first, one duty value per bit,
// then Reset zero-duty entries again.
func (e *Encoder) Encode(f model.Frame) ([]uint16, error) {
	if len(f) != e.count {
		return nil, fmt.Errorf("%w: frame has %d LEDs, encoder expects %d", ErrFrameSize, len(f), e.count)
	}
	buf := e.buf
	reset := e.timing.Reset

	for i := 0; i < reset; i++ {
		buf[i] = 0
	}
	idx := reset
	for _, c := range f {
		grb := c.GRB()
		for bit := BitsPerLED - 1; bit >= 0; bit-- {
			if grb&(1<<uint(bit)) != 0 {
				buf[idx] = e.timing.High
			} else {
				buf[idx] = e.timing.Low
			}
			idx++
		}
	}
	for i := 0; i < reset; i++ {
		buf[idx+i] = 0
	}
	return buf, nil
}

// Decode recovers the frame carried by a pulse buffer produced with timing t.
// It is the inverse of Encode and rejects buffers whose reset runs are not
// all zero or whose data entries are neither t.High nor t.Low.
func Decode(pulses []uint16, t Timing) (model.Frame, error) {
	data := len(pulses) - 2*t.Reset
	if data < 0 || data%BitsPerLED != 0 {
		return nil, fmt.Errorf("%w: %d pulses is not 2*%d reset + a multiple of %d", ErrFrameSize, len(pulses), t.Reset, BitsPerLED)
	}
	for i := 0; i < t.Reset; i++ {
		if pulses[i] != 0 || pulses[len(pulses)-1-i] != 0 {
			return nil, fmt.Errorf("%w: non-zero duty in reset run", ErrBadPulse)
		}
	}
	f := model.NewFrame(data / BitsPerLED)
	idx := t.Reset
	for i := range f {
		var grb uint32
		for bit := 0; bit < BitsPerLED; bit++ {
			grb <<= 1
			switch pulses[idx] {
			case t.High:
				grb |= 1
			case t.Low:
			default:
				return nil, fmt.Errorf("%w: %d at pulse %d", ErrBadPulse, pulses[idx], idx)
			}
			idx++
		}
		f[i] = model.ColourFromGRB(grb)
	}
	return f, nil
}
