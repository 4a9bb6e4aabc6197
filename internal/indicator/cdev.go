//go:build linux

package indicator

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Cdev implements Indicator through the Linux GPIO character device, for
// boards where register access is not available.
type Cdev struct {
	green, yellow, red *gpiocdev.Line
}

// NewCdev requests the configured lines on chip as outputs, initially off.
func NewCdev(chip string, greenPin, yellowPin, redPin *uint8) (*Cdev, error) {
	if chip == "" {
		chip = "gpiochip0"
	}
	c := &Cdev{}
	request := func(pin *uint8) (*gpiocdev.Line, error) {
		if pin == nil {
			return nil, nil
		}
		l, err := gpiocdev.RequestLine(chip, int(*pin), gpiocdev.AsOutput(0), gpiocdev.WithConsumer("keyfob"))
		if err != nil {
			return nil, fmt.Errorf("request %s line %d: %w", chip, *pin, err)
		}
		return l, nil
	}
	var err error
	if c.green, err = request(greenPin); err != nil {
		return nil, err
	}
	if c.yellow, err = request(yellowPin); err != nil {
		_ = c.Release()
		return nil, err
	}
	if c.red, err = request(redPin); err != nil {
		_ = c.Release()
		return nil, err
	}
	return c, nil
}

func (c *Cdev) lines() []*gpiocdev.Line {
	var out []*gpiocdev.Line
	for _, l := range []*gpiocdev.Line{c.green, c.yellow, c.red} {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

func (c *Cdev) light(on ...*gpiocdev.Line) {
	for _, l := range c.lines() {
		_ = l.SetValue(0)
	}
	for _, l := range on {
		if l != nil {
			_ = l.SetValue(1)
		}
	}
}

// Idle implements Indicator.
func (c *Cdev) Idle() { c.light() }

// Pending implements Indicator.
func (c *Cdev) Pending() { c.light(c.yellow) }

// Accepted implements Indicator.
func (c *Cdev) Accepted() { c.light(c.green) }

// Rejected implements Indicator.
func (c *Cdev) Rejected() { c.light(c.red) }

// Fault implements Indicator.
func (c *Cdev) Fault() { c.light(c.yellow, c.red) }

// Release turns the LEDs off and frees the lines.
func (c *Cdev) Release() error {
	var lastErr error
	for _, l := range c.lines() {
		_ = l.SetValue(0)
		if err := l.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
