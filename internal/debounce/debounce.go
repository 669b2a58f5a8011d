// Package debounce turns per-frame contact booleans into stable alerts.
//
// Onset is delayed by a per-region dwell time so single-frame tracking noise
// never alerts. Release is immediate.
package debounce

import (
	"math"
	"time"

	"github.com/ayusman/mindfultouch/internal/region"
)

// Phase is the debounce state of one region.
type Phase string

const (
	Idle     Phase = "idle"
	Pending  Phase = "contact_pending"
	Alerting Phase = "alerting"
)

// State is the per-region debounce record.
type State struct {
	ContactStart *time.Time
	AlertActive  bool
	LastAlert    time.Time
}

// Phase derives the phase from the record.
func (s State) Phase() Phase {
	switch {
	case s.AlertActive:
		return Alerting
	case s.ContactStart != nil:
		return Pending
	default:
		return Idle
	}
}

// Duration is how long contact has persisted at now, or zero.
func (s State) Duration(now time.Time) time.Duration {
	if s.ContactStart == nil {
		return 0
	}
	return now.Sub(*s.ContactStart)
}

// Transition describes what changed in one Update.
type Transition struct {
	Started bool // alert went active this frame
	Ended   bool // alert cleared this frame
}

// Tracker holds State for a set of regions. It is not safe for concurrent use.
type Tracker struct {
	order  []region.Name
	states map[region.Name]*State
}

// NewTracker creates a tracker with an idle state for each region.
func NewTracker(regions []region.Name) *Tracker {
	t := &Tracker{states: make(map[region.Name]*State, len(regions))}
	for _, n := range regions {
		t.ensure(n)
	}
	return t
}

func (t *Tracker) ensure(n region.Name) *State {
	s, ok := t.states[n]
	if !ok {
		s = &State{}
		t.states[n] = s
		t.order = append(t.order, n)
	}
	return s
}

// Update advances one region by one frame.
func (t *Tracker) Update(n region.Name, contact bool, now time.Time, minDwell time.Duration) Transition {
	s := t.ensure(n)
	wasActive := s.AlertActive

	if !contact {
		s.ContactStart = nil
		s.AlertActive = false
		return Transition{Ended: wasActive}
	}

	if s.ContactStart == nil {
		start := now
		s.ContactStart = &start
	}

	s.AlertActive = now.Sub(*s.ContactStart) >= minDwell
	if s.AlertActive && !wasActive {
		s.LastAlert = now
		return Transition{Started: true}
	}
	return Transition{}
}

// State returns a copy of a region's state.
func (t *Tracker) State(n region.Name) State {
	if s, ok := t.states[n]; ok {
		return *s
	}
	return State{}
}

// Alerting lists regions with an active alert in registration order.
func (t *Tracker) Alerting() []region.Name {
	var out []region.Name
	for _, n := range t.order {
		if t.states[n].AlertActive {
			out = append(out, n)
		}
	}
	return out
}

// Reset returns every region to idle. LastAlert is kept.
func (t *Tracker) Reset() {
	for _, s := range t.states {
		s.ContactStart = nil
		s.AlertActive = false
	}
}

// Seconds converts a dwell in seconds to a duration.
func Seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
