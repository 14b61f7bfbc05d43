package board

// PicoW is the wiring of the Pico W device build: an ST7789 SPI panel on SPI0
// and an FT-series touch controller on I2C0 with its interrupt line on GP21.
var PicoW = PicoWPins{
	SPISCK: 18,
	SPISDO: 19,
	LCDCS:  17,
	LCDDC:  16,
	LCDRST: 20,
	LCDBL:  22,

	TouchSDA: 4,
	TouchSCL: 5,
	TouchInt: TPInt,

	PanelWidth:  240,
	PanelHeight: 320,
}

// PicoWPins are GPIO numbers (GPn) on the Pico W header.
type PicoWPins struct {
	SPISCK, SPISDO uint8
	LCDCS, LCDDC   uint8
	LCDRST, LCDBL  uint8

	TouchSDA, TouchSCL uint8
	TouchInt           uint8

	PanelWidth, PanelHeight int16
}

// TouchAddr is the 7-bit I2C address shared by the FT3168/FT6336 family.
const TouchAddr = 0x38
