package model

import "fmt"

// Layout maps (x, y) coordinates of a rectangular panel onto the linear
// wiring order of the strip. Rows are wired one after the other; with
// Serpentine set every odd row runs right to left.
type Layout struct {
	Width      int
	Height     int
	Serpentine bool
}

// Linear returns the layout of a plain strip of n LEDs.
func Linear(n int) Layout {
	return Layout{Width: n, Height: 1}
}

// Count is the total LED count, Width*Height.
func (l Layout) Count() int {
	return l.Width * l.Height
}

// Index maps x,y -> linear LED index (0..N-1).
func (l Layout) Index(x, y int) (int, error) {
	if x < 0 || x >= l.Width || y < 0 || y >= l.Height {
		return 0, fmt.Errorf("%w: (%d,%d) outside %dx%d", ErrIndexOutOfRange, x, y, l.Width, l.Height)
	}
	xx := x
	if l.Serpentine && y%2 == 1 {
		xx = l.Width - 1 - x
	}
	return y*l.Width + xx, nil
}

// Coord is the inverse of Index.
func (l Layout) Coord(i int) (x, y int, err error) {
	if i < 0 || i >= l.Count() {
		return 0, 0, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, l.Count())
	}
	y = i / l.Width
	x = i % l.Width
	if l.Serpentine && y%2 == 1 {
		x = l.Width - 1 - x
	}
	return x, y, nil
}

// Set writes c at (x, y) of f.
func (l Layout) Set(f Frame, x, y int, c Colour) error {
	i, err := l.Index(x, y)
	if err != nil {
		return err
	}
	return f.SetPixel(i, c)
}
