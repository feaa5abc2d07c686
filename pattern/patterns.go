package pattern

import "github.com/coreman2200/ws2812c/model"

// Pattern is an animation routine. It returns nil when cancelled and an
// error if a frame could not be shown.
type Pattern func(e *Engine) error

// Cycle fills the strip red, green then blue, holding each for Dwell, and
// checks for cancellation after every colour.
func Cycle(e *Engine) error {
	colours := [...]model.Colour{model.Red, model.Green, model.Blue}
	for {
		for _, c := range colours {
			e.frame.Fill(c)
			if stop, err := e.step(e.opts.Dwell); stop {
				return err
			}
		}
	}
}

// Rainbow walks the whole strip around the hue wheel one channel step at a
// time (red, yellow, green, cyan, blue, magenta and back to red), checking
// for cancellation after every step.
func Rainbow(e *Engine) error {
	for hue := 0; ; hue = (hue + 1) % model.HueSteps {
		e.frame.Fill(model.HueToRGB(hue))
		if stop, err := e.step(e.opts.Step); stop {
			return err
		}
	}
}

// Gradient scrolls a diagonal rainbow across the panel. Each LED is offset
// round the wheel by GradientSpread per diagonal, counted from the bottom
// left corner.
func Gradient(e *Engine) error {
	l := e.opts.Layout
	offsets := make([]int, len(e.frame))
	for i := range offsets {
		x, y, err := l.Coord(i)
		if err != nil {
			return err
		}
		offsets[i] = e.opts.GradientSpread * (x + (l.Height - 1 - y))
	}
	for hue := 0; ; hue = (hue + 1) % model.HueSteps {
		for i, off := range offsets {
			e.frame[i] = model.HueToRGB(hue + off)
		}
		if stop, err := e.step(e.opts.GradientStep); stop {
			return err
		}
	}
}

// Sweep lights one LED white at a time in wiring order, for checking how a
// strip or panel is wired.
func Sweep(e *Engine) error {
	for i := 0; ; i = (i + 1) % len(e.frame) {
		e.frame.Clear()
		if err := e.frame.SetPixel(i, model.White); err != nil {
			return err
		}
		if stop, err := e.step(e.opts.SweepStep); stop {
			return err
		}
	}
}
