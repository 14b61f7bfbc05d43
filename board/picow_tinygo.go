//go:build tinygo

package board

import (
	"errors"
	"machine"
	"time"

	"tinygo.org/x/drivers/st7789"
)

// ftChipID is the chip ID register of the FT touch family.
const ftChipID = 0xA3

// ConfigurePanel brings up SPI0 and the ST7789 panel with the backlight on.
func ConfigurePanel() (*st7789.Device, error) {
	p := PicoW
	err := machine.SPI0.Configure(machine.SPIConfig{
		Frequency: 16 * machine.MHz,
		SCK:       machine.Pin(p.SPISCK),
		SDO:       machine.Pin(p.SPISDO),
		Mode:      0,
	})
	if err != nil {
		return nil, errors.New("configure SPI0:" + err.Error())
	}
	dev := st7789.New(machine.SPI0,
		machine.Pin(p.LCDRST),
		machine.Pin(p.LCDDC),
		machine.Pin(p.LCDCS),
		machine.Pin(p.LCDBL),
	)
	dev.Configure(st7789.Config{
		Width:  p.PanelWidth,
		Height: p.PanelHeight,
	})
	return &dev, nil
}

// SetBrightness drives the backlight with PWM, 0 off to 255 full. The
// backlight pin GP22 sits on PWM slice 3.
func SetBrightness(level uint8) error {
	pwm := machine.PWM3
	err := pwm.Configure(machine.PWMConfig{
		// 1kHz is well above visible flicker.
		Period: uint64(time.Second) / 1000,
	})
	if err != nil {
		return errors.New("configure backlight PWM:" + err.Error())
	}
	ch, err := pwm.Channel(machine.Pin(PicoW.LCDBL))
	if err != nil {
		return errors.New("backlight PWM channel:" + err.Error())
	}
	pwm.Set(ch, pwm.Top()*uint32(level)/255)
	return nil
}

// TouchController answers Begin once the controller responds on I2C0.
type TouchController struct {
	bus *machine.I2C
}

// ConfigureTouch sets up I2C0 for the touch controller.
func ConfigureTouch() (*TouchController, error) {
	err := machine.I2C0.Configure(machine.I2CConfig{
		SDA:       machine.Pin(PicoW.TouchSDA),
		SCL:       machine.Pin(PicoW.TouchSCL),
		Frequency: 400 * machine.KHz,
	})
	if err != nil {
		return nil, errors.New("configure I2C0:" + err.Error())
	}
	return &TouchController{bus: machine.I2C0}, nil
}

func (t *TouchController) Begin() bool {
	var id [1]byte
	if err := t.bus.ReadRegister(TouchAddr, ftChipID, id[:]); err != nil {
		return false
	}
	return id[0] != 0x00 && id[0] != 0xFF
}

// OnTouch calls fn on every falling edge of the touch interrupt line. fn runs
// in interrupt context.
func OnTouch(fn func()) error {
	pin := machine.Pin(PicoW.TouchInt)
	pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return pin.SetInterrupt(machine.PinFalling, func(machine.Pin) { fn() })
}
