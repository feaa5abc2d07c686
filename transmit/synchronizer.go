// Package transmit hands encoded pulse buffers to the streaming hardware and
// blocks until the hardware reports the transfer complete.
package transmit

import (
	"errors"
	"runtime"
	"time"
)

// ErrTransmissionTimeout is returned when the hardware does not report a
// finished transfer within the configured bound.
var ErrTransmissionTimeout = errors.New("transmit: timeout waiting for transfer completion")

// DefaultTimeout bounds a transfer when no timeout is configured. A 300 LED
// strip streams in well under 10ms. It is also the floor of TimeoutFor.
const DefaultTimeout = 50 * time.Millisecond

// timeoutSlack is added on top of twice the wire time.
const timeoutSlack = 10 * time.Millisecond

// TimeoutFor bounds a transfer that takes wire to stream: twice the wire time
// plus 10ms, and never less than DefaultTimeout.
func TimeoutFor(wire time.Duration) time.Duration {
	d := 2*wire + timeoutSlack
	if d < DefaultTimeout {
		return DefaultTimeout
	}
	return d
}

// Hardware is the timer/DMA streaming primitive. StartTransfer begins sending
// pulses and returns immediately; completion is reported out of band by
// setting the Signal the Synchronizer was built with. The buffer must not be
// retained after completion is signalled.
type Hardware interface {
	StartTransfer(pulses []uint16)
}

// Synchronizer serialises transfers on one Hardware. It is used from a single
// goroutine; only the completion Signal is shared with the hardware side.
type Synchronizer struct {
	hw      Hardware
	done    *Signal
	timeout time.Duration
	yield   func()
}

// NewSynchronizer returns a Synchronizer for hw. done is the flag the
// hardware raises when a transfer finishes. A timeout <= 0 selects
// DefaultTimeout.
func NewSynchronizer(hw Hardware, done *Signal, timeout time.Duration) *Synchronizer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Synchronizer{
		hw:      hw,
		done:    done,
		timeout: timeout,
		yield:   runtime.Gosched,
	}
}

// Timeout returns the bound applied to each transfer.
func (s *Synchronizer) Timeout() time.Duration { return s.timeout }

// Transmit streams pulses and returns once the hardware has signalled
// completion. The completion flag is cleared before the transfer starts, so a
// stale notification from an earlier transfer never satisfies this one, and
// cleared again after it is observed.
//
// On ErrTransmissionTimeout the flag is left cleared, but the hardware may
// still raise it later if the stalled transfer finishes. The next Transmit
// discards that late completion before starting.
func (s *Synchronizer) Transmit(pulses []uint16) error {
	s.done.Clear()
	s.hw.StartTransfer(pulses)

	dl := newDeadline(s.timeout)
	for !s.done.Take() {
		if dl.expired() {
			s.done.Clear()
			return ErrTransmissionTimeout
		}
		s.yield()
	}
	return nil
}

type deadline struct {
	t time.Time
}

func newDeadline(d time.Duration) deadline {
	return deadline{t: time.Now().Add(d)}
}

func (dl deadline) expired() bool {
	return time.Since(dl.t) > 0
}
