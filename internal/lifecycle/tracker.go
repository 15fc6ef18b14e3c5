// Package lifecycle decides when a result announcement is final.
//
// Announcements are posted provisionally with a clock glyph while the round is
// dealt, then edited into their final form. The Tracker holds provisional
// messages until an edit finalizes or discards them, so that only the final
// text is ever counted.
package lifecycle

import (
	"strings"

	"github.com/lox/cardcounter/internal/outcome"
)

// Action is what the caller should do after an event.
type Action int

const (
	// Ignore means the event needs no processing.
	Ignore Action = iota
	// Hold means the message is pending; nothing to count yet.
	Hold
	// Count means the message is final; Result.Text must be counted.
	Count
	// Drop means a pending message was edited into a non-final form.
	Drop
)

func (a Action) String() string {
	switch a {
	case Ignore:
		return "ignore"
	case Hold:
		return "hold"
	case Count:
		return "count"
	case Drop:
		return "drop"
	}
	return "unknown"
}

// Result is the outcome of feeding one event to the Tracker.
type Result struct {
	Action Action
	Text   string // final text, set when Action is Count
}

// IsPending reports whether text carries a waiting glyph.
func IsPending(text string) bool {
	return strings.Contains(text, outcome.AlarmClock) || strings.Contains(text, outcome.ClockFace)
}

// IsFinal reports whether text carries a checkmark or tie glyph.
func IsFinal(text string) bool {
	return strings.Contains(text, outcome.Checkmark) || strings.Contains(text, outcome.TieGlyph)
}

type record struct {
	text string
}

// Tracker owns the pending messages of one source channel. It is not safe
// for concurrent use; callers serialize events.
type Tracker struct {
	pending map[int]*record
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{pending: make(map[int]*record)}
}

// OnCreate handles a newly posted message.
func (t *Tracker) OnCreate(id int, text string) Result {
	if IsPending(text) {
		t.pending[id] = &record{text: text}
		return Result{Action: Hold}
	}
	if IsFinal(text) {
		return Result{Action: Count, Text: text}
	}
	return Result{Action: Ignore}
}

// OnEdit handles an edit of a previously posted message. Edits of messages
// that are not pending are ignored.
func (t *Tracker) OnEdit(id int, text string) Result {
	rec, ok := t.pending[id]
	if !ok {
		return Result{Action: Ignore}
	}
	if IsPending(text) {
		rec.text = text
		return Result{Action: Hold}
	}

	delete(t.pending, id)
	if IsFinal(text) {
		return Result{Action: Count, Text: text}
	}
	return Result{Action: Drop}
}

// Lookup returns the stored text of a pending message.
func (t *Tracker) Lookup(id int) (string, bool) {
	rec, ok := t.pending[id]
	if !ok {
		return "", false
	}
	return rec.text, true
}

// Pending returns the number of messages awaiting a final edit.
func (t *Tracker) Pending() int {
	return len(t.pending)
}
