// Package display provides the text-oriented panel surface used by the panel
// programs: a GFX-style cursor, color and text size on top of any
// tinygo.org/x/drivers Displayer.
package display

import "image/color"

// Display is the subset of a graphics panel the programs draw with. Text is
// laid out line by line from the cursor; there is no pixel-level access.
type Display interface {
	// Begin reports whether the panel is ready to draw.
	Begin() bool
	FillScreen(c color.RGBA)
	SetCursor(x, y int16)
	// SetTextColor sets the foreground and draws text with a transparent background.
	SetTextColor(fg color.RGBA)
	// SetTextColors sets the foreground and paints bg behind each line.
	SetTextColors(fg, bg color.RGBA)
	// SetTextSize sets the integer glyph scale. Zero is treated as one.
	SetTextSize(scale uint8)
	Println(s string)
	Printf(format string, args ...any)
	Width() int16
	Height() int16
}

var (
	Black  = color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xff}
	White  = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	Red    = color.RGBA{R: 0xff, G: 0x00, B: 0x00, A: 0xff}
	Green  = color.RGBA{R: 0x00, G: 0xff, B: 0x00, A: 0xff}
	Orange = color.RGBA{R: 0xff, G: 0xa5, B: 0x00, A: 0xff}
	Gray   = color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}
)

// RGB565 packs c into the 16-bit rrrrrggggggbbbbb panel format.
func RGB565(c color.RGBA) uint16 {
	rr := uint16(c.R>>3) & 0x1F
	gg := uint16(c.G>>2) & 0x3F
	bb := uint16(c.B>>3) & 0x1F
	return (rr << 11) | (gg << 5) | bb
}

// FromRGB565 expands a 16-bit panel pixel back to an opaque color.
func FromRGB565(p uint16) color.RGBA {
	rr := (p >> 11) & 0x1F
	gg := (p >> 5) & 0x3F
	bb := p & 0x1F
	return color.RGBA{
		R: uint8((rr * 255) / 31),
		G: uint8((gg * 255) / 63),
		B: uint8((bb * 255) / 31),
		A: 0xff,
	}
}
