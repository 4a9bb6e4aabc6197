// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package engine

import (
	"time"

	"github.com/toeirei/keyfob/internal/model"
)

// Outcome classifies what a tap did.
type Outcome int

const (
	OutcomeUnregistered Outcome = iota
	OutcomeInactive
	OutcomeTampered
	OutcomeSessionStarted
	OutcomeSessionCancelled
	OutcomeCheckedOut
	OutcomeCheckedIn
	OutcomeTooSoon
	OutcomeNoSession
	OutcomeRejected
	OutcomeError
)

var outcomeNames = map[Outcome]string{
	OutcomeUnregistered:     "unregistered",
	OutcomeInactive:         "inactive",
	OutcomeTampered:         "tampered",
	OutcomeSessionStarted:   "session_started",
	OutcomeSessionCancelled: "session_cancelled",
	OutcomeCheckedOut:       "checked_out",
	OutcomeCheckedIn:        "checked_in",
	OutcomeTooSoon:          "too_soon",
	OutcomeNoSession:        "no_session",
	OutcomeRejected:         "rejected",
	OutcomeError:            "error",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return "unknown"
}

// Result describes the effect of one tap.
type Result struct {
	Outcome  Outcome
	UID      uint64
	Kind     model.TagKind
	Employee uint64
	// Event is the recorded check event for CheckedOut and CheckedIn.
	Event *model.CheckEvent
	// Remaining is the time left in the session window, or for TooSoon the
	// time until the key may be returned.
	Remaining time.Duration
	Deadline  time.Time
	At        time.Time
	Err       error
}

// Accepted reports whether the tap did what the user intended.
func (r Result) Accepted() bool {
	switch r.Outcome {
	case OutcomeSessionStarted, OutcomeSessionCancelled, OutcomeCheckedOut, OutcomeCheckedIn:
		return true
	}
	return false
}

// Recorded reports whether the tap wrote a check event.
func (r Result) Recorded() bool {
	return r.Event != nil
}

// Phase is the session state of the tap state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingKey
	PhaseHoldingKeys
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingKey:
		return "awaiting_key"
	case PhaseHoldingKeys:
		return "holding_keys"
	default:
		return "idle"
	}
}

// Snapshot is a point-in-time copy of the session state for display.
type Snapshot struct {
	Phase     Phase
	Employee  uint64
	Deadline  time.Time
	Remaining time.Duration
	Keys      []uint64
}
