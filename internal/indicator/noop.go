package indicator

// Noop implements Indicator but does nothing.
// Used when no indicators are configured.
type Noop struct{}

func (n *Noop) Idle()          {}
func (n *Noop) Pending()       {}
func (n *Noop) Accepted()      {}
func (n *Noop) Rejected()      {}
func (n *Noop) Fault()         {}
func (n *Noop) Release() error { return nil }
