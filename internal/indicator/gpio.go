package indicator

import (
	"fmt"

	"github.com/hjkoskel/govattu"
)

// GPIO implements Indicator with LEDs on Raspberry Pi GPIO pins, driven
// through memory-mapped registers.
type GPIO struct {
	hw        govattu.Vattu
	greenPin  *uint8
	yellowPin *uint8
	redPin    *uint8
}

// NewGPIO creates a new GPIO-based indicator.
func NewGPIO(greenPin, yellowPin, redPin *uint8) (*GPIO, error) {
	hw, err := govattu.Open()
	if err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}

	g := &GPIO{
		hw:        hw,
		greenPin:  greenPin,
		yellowPin: yellowPin,
		redPin:    redPin,
	}
	for _, p := range g.pins() {
		hw.PinMode(p, govattu.ALToutput)
		hw.PinClear(p)
	}
	return g, nil
}

func (g *GPIO) pins() []uint8 {
	var out []uint8
	for _, p := range []*uint8{g.greenPin, g.yellowPin, g.redPin} {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

func (g *GPIO) light(pins ...*uint8) {
	g.allOff()
	for _, p := range pins {
		if p != nil {
			g.hw.PinSet(*p)
		}
	}
}

// Idle implements Indicator.
func (g *GPIO) Idle() { g.allOff() }

// Pending implements Indicator.
func (g *GPIO) Pending() { g.light(g.yellowPin) }

// Accepted implements Indicator.
func (g *GPIO) Accepted() { g.light(g.greenPin) }

// Rejected implements Indicator.
func (g *GPIO) Rejected() { g.light(g.redPin) }

// Fault lights yellow and red together.
func (g *GPIO) Fault() { g.light(g.yellowPin, g.redPin) }

// Release implements Indicator.
func (g *GPIO) Release() error {
	g.allOff()
	return g.hw.Close()
}

func (g *GPIO) allOff() {
	for _, p := range g.pins() {
		g.hw.PinClear(p)
	}
}
