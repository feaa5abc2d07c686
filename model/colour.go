package model

import "image/color"

// Bit offsets of each channel inside a packed 24-bit GRB word, the order
// WS2812-class LEDs clock data in.
const (
	GREEN_OFFSET uint8 = 0x10
	RED_OFFSET   uint8 = 0x08
	BLUE_OFFSET  uint8 = 0x0
)

// Colour is an 8-bit-per-channel RGB value. It is copied by value.
type Colour struct {
	R uint8
	G uint8
	B uint8
}

var (
	Black = Colour{}
	White = Colour{R: 255, G: 255, B: 255}
	Red   = Colour{R: 255}
	Green = Colour{G: 255}
	Blue  = Colour{B: 255}
)

// NewColour builds a Colour. No clamping or validation is done.
func NewColour(r, g, b uint8) Colour {
	return Colour{R: r, G: g, B: b}
}

// GRB packs the colour into the 24-bit word sent on the wire, green in
// bits 23-16, red in 15-8 and blue in 7-0.
func (c Colour) GRB() uint32 {
	return uint32(c.G)<<GREEN_OFFSET | uint32(c.R)<<RED_OFFSET | uint32(c.B)<<BLUE_OFFSET
}

// ColourFromGRB is the inverse of GRB. Bits above 23 are ignored.
func ColourFromGRB(grb uint32) Colour {
	return Colour{
		R: getcolor(grb, RED_OFFSET),
		G: getcolor(grb, GREEN_OFFSET),
		B: getcolor(grb, BLUE_OFFSET),
	}
}

func getcolor(c uint32, off uint8) uint8 {
	var mask uint32 = 0xFF << off
	return uint8((c & mask) >> off)
}

// NRGBA converts to an opaque image/color value.
func (c Colour) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// RGBA implements color.Color.
func (c Colour) RGBA() (r, g, b, a uint32) {
	return c.NRGBA().RGBA()
}

// ColourModel converts any color.Color into a Colour, dropping alpha after
// un-premultiplying.
var ColourModel = color.ModelFunc(func(c color.Color) color.Color {
	if cc, ok := c.(Colour); ok {
		return cc
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Colour{R: n.R, G: n.G, B: n.B}
})
