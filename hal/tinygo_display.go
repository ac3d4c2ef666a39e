//go:build tinygo && baremetal

package hal

import (
	"machine"

	"tinygo.org/x/drivers/ssd1306"
)

// newPanelDisplay brings up the SSD1306 status panel on I2C0.
func newPanelDisplay() Display {
	bus := machine.I2C0
	err := bus.Configure(machine.I2CConfig{
		SDA:       machine.GP8,
		SCL:       machine.GP9,
		Frequency: 400_000,
	})
	if err != nil {
		return nil
	}

	dev := ssd1306.NewI2C(bus)
	dev.Configure(ssd1306.Config{
		Width:   128,
		Height:  64,
		Address: 0x3C,
	})
	dev.ClearDisplay()
	return &dev
}
