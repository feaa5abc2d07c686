package model

// HueSteps is the length of one full turn of the hue wheel: six sectors of
// 256 steps each.
const HueSteps = 6 * 256

// HueToRGB maps a hue on the 1536 step wheel to a fully saturated colour.
//
// The wheel is split into six sectors where one channel ramps while another
// sits at 255:
//
//	red -> yellow -> green -> cyan -> blue -> magenta -> red
//
// Any integer is accepted; hue is reduced with a true modulo first, so
// negative values and values several turns past the end wrap correctly.
func HueToRGB(hue int) Colour {
	hue %= HueSteps
	if hue < 0 {
		hue += HueSteps
	}
	bin := hue / 256
	x := uint8(hue % 256)

	switch bin {
	case 0:
		return Colour{R: 255, G: x}
	case 1:
		return Colour{R: 255 - x, G: 255}
	case 2:
		return Colour{G: 255, B: x}
	case 3:
		return Colour{G: 255 - x, B: 255}
	case 4:
		return Colour{R: x, B: 255}
	case 5:
		return Colour{R: 255, B: 255 - x}
	default:
		// unreachable after the modulo above
		return White
	}
}
