package model

import (
	"errors"
	"fmt"
	"image"
)

// ErrIndexOutOfRange is returned when a pixel index or coordinate falls
// outside the frame.
var ErrIndexOutOfRange = errors.New("model: index out of range")

// Frame holds one colour per LED in wiring order. Its length is fixed when
// it is created and never changes; the mutators below only write in place.
type Frame []Colour

// NewFrame returns a frame of n LEDs, all black.
func NewFrame(n int) Frame {
	if n < 0 {
		n = 0
	}
	return make(Frame, n)
}

// Len returns the LED count.
func (f Frame) Len() int {
	return len(f)
}

// Clear sets every LED to black.
func (f Frame) Clear() {
	f.Fill(Black)
}

// Fill sets every LED to c.
func (f Frame) Fill(c Colour) {
	for i := range f {
		f[i] = c
	}
}

// SetPixel sets LED i to c. Out of range indices leave the frame untouched
// and return ErrIndexOutOfRange.
func (f Frame) SetPixel(i int, c Colour) error {
	if i < 0 || i >= len(f) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, len(f))
	}
	f[i] = c
	return nil
}

// Pixel returns the colour of LED i.
func (f Frame) Pixel(i int) (Colour, error) {
	if i < 0 || i >= len(f) {
		return Colour{}, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, len(f))
	}
	return f[i], nil
}

// Image renders the frame as a single row image, one pixel per LED, the
// shape periph display drivers expect for a strip.
func (f Frame) Image() *image.NRGBA {
	im := image.NewNRGBA(image.Rect(0, 0, len(f), 1))
	for x := range f {
		im.SetNRGBA(x, 0, f[x].NRGBA())
	}
	return im
}

// FrameFromImage reads the first row of src into a new frame of n LEDs.
// Missing pixels stay black.
func FrameFromImage(src image.Image, n int) Frame {
	f := NewFrame(n)
	b := src.Bounds()
	for i := 0; i < n && b.Min.X+i < b.Max.X; i++ {
		f[i] = ColourModel.Convert(src.At(b.Min.X+i, b.Min.Y)).(Colour)
	}
	return f
}
