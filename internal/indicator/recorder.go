package indicator

import "sync"

// Recorder is an Indicator that remembers the calls it received. The mock
// panel and tests use it to show what the LEDs would do.
type Recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *Recorder) add(s string) {
	r.mu.Lock()
	r.calls = append(r.calls, s)
	r.mu.Unlock()
}

func (r *Recorder) Idle()          { r.add("idle") }
func (r *Recorder) Pending()       { r.add("pending") }
func (r *Recorder) Accepted()      { r.add("accepted") }
func (r *Recorder) Rejected()      { r.add("rejected") }
func (r *Recorder) Fault()         { r.add("fault") }
func (r *Recorder) Release() error { r.add("release"); return nil }

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Last returns the most recent call, or "".
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return ""
	}
	return r.calls[len(r.calls)-1]
}
