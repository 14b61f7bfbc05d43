// Package board holds the pin map and panel geometry of the AMOLED touch board
// the panel firmware was designed for, plus the Pico W wiring used by the
// TinyGo device builds.
//
// Constants are plain integers so host builds can use the geometry without
// importing machine.
package board

// QSPI AMOLED panel (SH8601).
const (
	LCDSDIO0 = 4
	LCDSDIO1 = 5
	LCDSDIO2 = 6
	LCDSDIO3 = 7
	LCDSCLK  = 11
	LCDCS    = 12

	LCDWidth  = 368
	LCDHeight = 448
)

// Capacitive touch controller on I2C.
const (
	IICSDA = 15
	IICSCL = 14
	TPInt  = 21
)

// ES8311 audio codec. Not used by the panel programs.
const (
	I2SMCK = 16
	I2SBCK = 9
	I2SDI  = 10
	I2SWS  = 45
	I2SDO  = 8

	MCLKPin = 16
	BCLKPin = 9
	WSPin   = 45
	DOPin   = 10
	DIPin   = 8
	PAPin   = 46 // power amplifier enable
)

// SD card in 1-bit SDMMC mode.
const (
	SDMMCCLK  = 2
	SDMMCCMD  = 1
	SDMMCData = 3
)

// PMUChip names the power management IC fitted to the board.
const PMUChip = "AXP2101"
