package indicator

// Multi combines multiple Indicator implementations.
type Multi struct {
	indicators []Indicator
}

// NewMulti fans every call out to all of ind.
func NewMulti(ind ...Indicator) *Multi {
	return &Multi{indicators: ind}
}

// Idle implements Indicator.Idle.
func (m *Multi) Idle() {
	for _, ind := range m.indicators {
		ind.Idle()
	}
}

// Pending implements Indicator.Pending.
func (m *Multi) Pending() {
	for _, ind := range m.indicators {
		ind.Pending()
	}
}

// Accepted implements Indicator.Accepted.
func (m *Multi) Accepted() {
	for _, ind := range m.indicators {
		ind.Accepted()
	}
}

// Rejected implements Indicator.Rejected.
func (m *Multi) Rejected() {
	for _, ind := range m.indicators {
		ind.Rejected()
	}
}

// Fault implements Indicator.Fault.
func (m *Multi) Fault() {
	for _, ind := range m.indicators {
		ind.Fault()
	}
}

// Release implements Indicator.Release.
func (m *Multi) Release() error {
	var lastErr error
	for _, ind := range m.indicators {
		if err := ind.Release(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
