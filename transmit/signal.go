package transmit

import "sync/atomic"

// Signal is a one-bit flag shared between an interrupt-style notifier and
// the main loop. Set and Clear are single atomic stores and IsSet a single
// atomic load, so a store made before Set is visible to the reader that
// observes it.
type Signal struct {
	v atomic.Bool
}

// Set raises the flag. It is safe to call from any goroutine and is the
// intended completion/cancellation callback.
func (s *Signal) Set() { s.v.Store(true) }

// Clear lowers the flag.
func (s *Signal) Clear() { s.v.Store(false) }

// IsSet reports whether the flag is raised.
func (s *Signal) IsSet() bool { return s.v.Load() }

// Take lowers the flag and reports whether it was raised, in one step.
func (s *Signal) Take() bool { return s.v.Swap(false) }
