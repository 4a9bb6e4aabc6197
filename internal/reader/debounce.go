package reader

import "time"

// Debouncer drops repeated reads of the same UID inside a window. Readers
// report a card many times while it rests on the antenna.
type Debouncer struct {
	window  time.Duration
	lastUID uint64
	lastAt  time.Time
}

// NewDebouncer returns a Debouncer for the given window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Accept reports whether a read of uid at now should be processed. A dropped
// repeat extends the window, so a card held in place is read once.
func (d *Debouncer) Accept(uid uint64, now time.Time) bool {
	if uid == d.lastUID && !d.lastAt.IsZero() && now.Sub(d.lastAt) < d.window {
		d.lastAt = now
		return false
	}
	d.lastUID = uid
	d.lastAt = now
	return true
}

// Reset forgets the last UID so the next read is always accepted.
func (d *Debouncer) Reset() {
	d.lastUID = 0
	d.lastAt = time.Time{}
}
