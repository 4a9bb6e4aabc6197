// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

// Package engine is the tap state machine. An employee tap opens a short
// window in which key taps check keys out; every checked-out key extends
// the window. A tap of a checked-out key returns it once it has been held
// for the minimum time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/toeirei/keyfob/internal/db"
	"github.com/toeirei/keyfob/internal/logging"
	"github.com/toeirei/keyfob/internal/model"
	"github.com/toeirei/keyfob/internal/reader"
)

// Store is the subset of db.Store the engine records through.
type Store interface {
	GetTag(ctx context.Context, uid uint64) (*model.Tag, error)
	OpenCheckout(ctx context.Context, keyUID uint64) (*model.CheckEvent, error)
	CheckOut(ctx context.Context, keyUID, employeeUID uint64, at time.Time) (*model.CheckEvent, error)
	CheckIn(ctx context.Context, keyUID uint64, at time.Time) (*model.CheckEvent, error)
}

// Timing holds the windows of the state machine.
type Timing struct {
	// CheckoutWindow runs from an employee tap to the first key tap.
	CheckoutWindow time.Duration
	// HoldWindow runs from each key check-out to the next key tap.
	HoldWindow time.Duration
	// MinHold is how long a key stays out before a return is accepted.
	MinHold time.Duration
}

// DefaultTiming returns 20s / 2m / 2m.
func DefaultTiming() Timing {
	return Timing{
		CheckoutWindow: 20 * time.Second,
		HoldWindow:     2 * time.Minute,
		MinHold:        2 * time.Minute,
	}
}

func (t Timing) withDefaults() Timing {
	d := DefaultTiming()
	if t.CheckoutWindow <= 0 {
		t.CheckoutWindow = d.CheckoutWindow
	}
	if t.HoldWindow <= 0 {
		t.HoldWindow = d.HoldWindow
	}
	if t.MinHold < 0 {
		t.MinHold = d.MinHold
	}
	return t
}

type session struct {
	employee uint64
	deadline time.Time
	holding  bool
	keys     []uint64
}

// live reports whether now is still inside the window. The deadline
// itself counts as inside.
func (s *session) live(now time.Time) bool {
	return s != nil && !now.After(s.deadline)
}

// Engine runs the tap state machine. It is safe for concurrent use.
type Engine struct {
	mu      sync.Mutex
	store   Store
	clock   Clock
	timing  Timing
	session *session
}

// New returns an Engine. A nil clock means the system clock.
func New(store Store, clock Clock, timing Timing) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{store: store, clock: clock, timing: timing.withDefaults()}
}

// Timing returns the effective windows.
func (e *Engine) Timing() Timing { return e.timing }

// ProcessTag classifies one tap and applies it. Invalid taps are reported
// through the Result, not as errors. An error means the store failed.
func (e *Engine) ProcessTag(ctx context.Context, ev reader.TagEvent) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	res := Result{UID: ev.UID, At: now}

	tag, err := e.store.GetTag(ctx, ev.UID)
	if err != nil {
		return e.fail(res, fmt.Errorf("look up tag %d: %w", ev.UID, err))
	}
	if tag == nil {
		res.Outcome = OutcomeUnregistered
		return res, nil
	}
	res.Kind = tag.Kind
	if !tag.Active {
		res.Outcome = OutcomeInactive
		return res, nil
	}
	// UID-only readers cannot present the card content.
	if ev.HasText && ev.Text != tag.ContentUUID {
		logging.Warnf("tag %d presented unexpected content, possible tampering", ev.UID)
		res.Outcome = OutcomeTampered
		return res, nil
	}

	switch tag.Kind {
	case model.KindEmployee:
		return e.employeeTap(res, now), nil
	case model.KindKey:
		return e.keyTap(ctx, res, now)
	default:
		return e.fail(res, fmt.Errorf("tag %d has unknown kind %q", ev.UID, tag.Kind))
	}
}

func (e *Engine) fail(res Result, err error) (Result, error) {
	res.Outcome = OutcomeError
	res.Err = err
	return res, err
}

func (e *Engine) employeeTap(res Result, now time.Time) Result {
	res.Employee = res.UID
	if e.session.live(now) && e.session.employee == res.UID {
		e.session = nil
		res.Outcome = OutcomeSessionCancelled
		logging.Infof("session of employee %d cancelled", res.UID)
		return res
	}
	if e.session.live(now) {
		logging.Infof("session of employee %d replaced by %d", e.session.employee, res.UID)
	}
	e.session = &session{employee: res.UID, deadline: now.Add(e.timing.CheckoutWindow)}
	res.Outcome = OutcomeSessionStarted
	res.Deadline = e.session.deadline
	res.Remaining = e.timing.CheckoutWindow
	return res
}

func (e *Engine) keyTap(ctx context.Context, res Result, now time.Time) (Result, error) {
	open, err := e.store.OpenCheckout(ctx, res.UID)
	if err != nil {
		return e.fail(res, fmt.Errorf("look up open check-out of key %d: %w", res.UID, err))
	}

	if open != nil {
		res.Employee = open.EmployeeUID
		held := now.Sub(open.OccurredAt)
		if held < e.timing.MinHold {
			res.Outcome = OutcomeTooSoon
			res.Remaining = e.timing.MinHold - held
			res.Deadline = open.OccurredAt.Add(e.timing.MinHold)
			return res, nil
		}
		in, err := e.store.CheckIn(ctx, res.UID, now)
		if err != nil {
			if errors.Is(err, db.ErrNotCheckedOut) {
				res.Outcome = OutcomeRejected
				res.Err = err
				return res, nil
			}
			return e.fail(res, fmt.Errorf("check in key %d: %w", res.UID, err))
		}
		res.Outcome = OutcomeCheckedIn
		res.Event = in
		logging.Infof("key %d checked in after %s", res.UID, held.Truncate(time.Second))
		return res, nil
	}

	if !e.session.live(now) {
		// A lapsed session is gone for good.
		e.session = nil
		res.Outcome = OutcomeNoSession
		return res, nil
	}

	res.Employee = e.session.employee
	out, err := e.store.CheckOut(ctx, res.UID, e.session.employee, now)
	if err != nil {
		if errors.Is(err, db.ErrAlreadyCheckedOut) {
			res.Outcome = OutcomeRejected
			res.Err = err
			return res, nil
		}
		return e.fail(res, fmt.Errorf("check out key %d: %w", res.UID, err))
	}
	e.session.holding = true
	e.session.deadline = now.Add(e.timing.HoldWindow)
	e.session.keys = append(e.session.keys, res.UID)

	res.Outcome = OutcomeCheckedOut
	res.Event = out
	res.Deadline = e.session.deadline
	res.Remaining = e.timing.HoldWindow
	logging.Infof("key %d checked out by employee %d", res.UID, e.session.employee)
	return res, nil
}

// State returns the session as of now. An expired session reads as idle.
func (e *Engine) State(now time.Time) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.session.live(now) {
		return Snapshot{Phase: PhaseIdle}
	}
	s := Snapshot{
		Phase:     PhaseAwaitingKey,
		Employee:  e.session.employee,
		Deadline:  e.session.deadline,
		Remaining: e.session.deadline.Sub(now),
		Keys:      append([]uint64(nil), e.session.keys...),
	}
	if e.session.holding {
		s.Phase = PhaseHoldingKeys
	}
	return s
}

// Expire discards the session if its window has passed and reports whether
// it did.
func (e *Engine) Expire(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil || e.session.live(now) {
		return false
	}
	logging.Debugf("session of employee %d expired", e.session.employee)
	e.session = nil
	return true
}

// Reset drops any session.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.session = nil
	e.mu.Unlock()
}
