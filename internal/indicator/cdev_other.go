//go:build !linux

package indicator

import "errors"

// ErrNotSupported is returned by NewCdev outside Linux.
var ErrNotSupported = errors.New("gpio character device not supported on this platform")

// Cdev is a stub for non-linux platforms.
type Cdev struct{}

// NewCdev always fails on this platform.
func NewCdev(chip string, greenPin, yellowPin, redPin *uint8) (*Cdev, error) {
	return nil, ErrNotSupported
}

func (c *Cdev) Idle()          {}
func (c *Cdev) Pending()       {}
func (c *Cdev) Accepted()      {}
func (c *Cdev) Rejected()      {}
func (c *Cdev) Fault()         {}
func (c *Cdev) Release() error { return nil }
