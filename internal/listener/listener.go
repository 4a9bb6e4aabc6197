// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

// Package listener runs the reader loop: it polls the reader, feeds taps to
// the engine and reports the outcome on the indicator, over MQTT and to
// whoever watches Events.
package listener

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/toeirei/keyfob/internal/engine"
	"github.com/toeirei/keyfob/internal/indicator"
	"github.com/toeirei/keyfob/internal/logging"
	"github.com/toeirei/keyfob/internal/reader"
)

// Publisher receives every tap result. *notify.Client implements it.
type Publisher interface {
	Publish(res engine.Result)
}

// Event is one thing the loop observed.
type Event struct {
	// Result is set for processed taps.
	Result *engine.Result
	// Expired is set when a session window lapsed without a tap.
	Expired bool
	// ReaderErr is set when the reader failed. The loop keeps retrying.
	ReaderErr error
	At        time.Time
}

// Options tune a Listener. Zero values select the defaults.
type Options struct {
	Indicator indicator.Indicator
	Publisher Publisher
	Clock     engine.Clock
	// ReadTimeout bounds each poll of the reader. Default 500ms.
	ReadTimeout time.Duration
	// RetryDelay is the back-off after a reader failure. Default 1s.
	RetryDelay time.Duration
	// Debounce drops repeats of the same card inside this window. Default 1s.
	Debounce time.Duration
	// Flash is how long an accepted or rejected signal stays lit. Default 2s.
	Flash time.Duration
}

// Listener owns the reader while it runs. Other users borrow it with
// WithReader.
type Listener struct {
	rd     reader.TagReader
	engine *engine.Engine
	opts   Options
	events chan Event

	readMu sync.Mutex // held around every reader access

	mu          sync.Mutex
	debounce    *reader.Debouncer
	flashUntil  time.Time
	faulted     bool
	steadyPhase engine.Phase
	steadyOn    bool
}

// New returns a Listener for rd and eng.
func New(rd reader.TagReader, eng *engine.Engine, opts Options) *Listener {
	if opts.Indicator == nil {
		opts.Indicator = &indicator.Noop{}
	}
	if opts.Clock == nil {
		opts.Clock = engine.SystemClock{}
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 500 * time.Millisecond
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.Debounce <= 0 {
		opts.Debounce = time.Second
	}
	if opts.Flash <= 0 {
		opts.Flash = 2 * time.Second
	}
	return &Listener{
		rd:       rd,
		engine:   eng,
		opts:     opts,
		events:   make(chan Event, 32),
		debounce: reader.NewDebouncer(opts.Debounce),
	}
}

// Events delivers what the loop observed. Events are dropped when nobody
// drains the channel.
func (l *Listener) Events() <-chan Event { return l.events }

// Engine returns the state machine driven by the loop.
func (l *Listener) Engine() *engine.Engine { return l.engine }

// Run polls until ctx is done. Reader failures are logged and retried;
// store failures are reported per tap and do not stop the loop.
func (l *Listener) Run(ctx context.Context) error {
	defer l.opts.Indicator.Idle()
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		l.tick()

		ev, err := l.poll(ctx)
		switch {
		case err == nil:
			l.handle(ctx, ev)
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, context.DeadlineExceeded):
			// Nothing on the antenna.
		default:
			l.readerFailed(err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(l.opts.RetryDelay):
			}
		}
	}
}

func (l *Listener) poll(ctx context.Context) (reader.TagEvent, error) {
	l.readMu.Lock()
	defer l.readMu.Unlock()
	rctx, cancel := context.WithTimeout(ctx, l.opts.ReadTimeout)
	defer cancel()
	return l.rd.Read(rctx)
}

// tick expires the session and settles the indicator once a flash is over.
func (l *Listener) tick() {
	now := l.opts.Clock.Now()
	if l.engine.Expire(now) {
		l.emit(Event{Expired: true, At: now})
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.faulted || now.Before(l.flashUntil) {
		return
	}
	l.steady(now)
}

// steady shows the session state, touching the LEDs only on change.
func (l *Listener) steady(now time.Time) {
	phase := l.engine.State(now).Phase
	if phase == engine.PhaseHoldingKeys {
		phase = engine.PhaseAwaitingKey
	}
	if l.steadyOn && l.steadyPhase == phase {
		return
	}
	l.steadyOn, l.steadyPhase = true, phase
	if phase == engine.PhaseIdle {
		l.opts.Indicator.Idle()
	} else {
		l.opts.Indicator.Pending()
	}
}

func (l *Listener) readerFailed(err error) {
	now := l.opts.Clock.Now()
	if errors.Is(err, reader.ErrNoTag) {
		logging.Debugf("reader: %v", err)
	} else {
		logging.Warnf("reader failed, retrying in %s: %v", l.opts.RetryDelay, err)
	}
	l.mu.Lock()
	l.faulted = true
	l.steadyOn = false
	l.opts.Indicator.Fault()
	l.mu.Unlock()
	l.emit(Event{ReaderErr: err, At: now})
}

func (l *Listener) handle(ctx context.Context, ev reader.TagEvent) {
	now := l.opts.Clock.Now()
	l.mu.Lock()
	l.faulted = false
	accept := l.debounce.Accept(ev.UID, now)
	l.mu.Unlock()
	if !accept {
		return
	}
	l.Process(ctx, ev)
}

// Process runs one tap through the engine and signals the outcome. Run
// calls it for every debounced read.
func (l *Listener) Process(ctx context.Context, ev reader.TagEvent) engine.Result {
	res, err := l.engine.ProcessTag(ctx, ev)
	if err != nil {
		logging.Errorf("tap of %d: %v", ev.UID, err)
	}
	logging.Debugf("tap of %d: %s", ev.UID, res.Outcome)

	l.mu.Lock()
	switch {
	case res.Outcome == engine.OutcomeError:
		l.opts.Indicator.Fault()
	case res.Accepted():
		l.opts.Indicator.Accepted()
	default:
		l.opts.Indicator.Rejected()
	}
	l.flashUntil = res.At.Add(l.opts.Flash)
	l.steadyOn = false
	l.mu.Unlock()

	if l.opts.Publisher != nil {
		l.opts.Publisher.Publish(res)
	}
	l.emit(Event{Result: &res, At: res.At})
	return res
}

// WithReader lends the reader to fn. The loop does not poll until fn
// returns.
func (l *Listener) WithReader(fn func(rd reader.TagReader) error) error {
	l.readMu.Lock()
	defer l.readMu.Unlock()
	return fn(l.rd)
}

// Suppress treats uid as just read, so a card left on the antenna after
// registration is not taken as a tap.
func (l *Listener) Suppress(uid uint64) {
	l.mu.Lock()
	l.debounce.Accept(uid, l.opts.Clock.Now())
	l.mu.Unlock()
}

func (l *Listener) emit(ev Event) {
	select {
	case l.events <- ev:
	default:
		logging.Debugf("listener: event dropped, nobody listening")
	}
}
