package appointments

import "hospital-management/internal/civil"

const (
	// DefaultDuration is the appointment length in minutes when clients omit it.
	DefaultDuration = 30
	// MaxDuration is the longest appointment accepted, in minutes.
	MaxDuration = 8 * 60
)

var (
	endOfDay = civil.NewClock(24, 0)

	workdayStart = civil.NewClock(8, 0)
	workdayEnd   = civil.NewClock(18, 0)
)

// Slot is a half-open interval [Start, Start+Duration) within a day.
type Slot struct {
	Start    civil.Clock
	Duration int
}

// End returns the first minute after the slot.
func (s Slot) End() civil.Clock {
	return s.Start.Add(s.Duration)
}

// Overlaps reports whether both slots share at least one minute. Back-to-back slots, where
// one ends exactly when the other starts, do not overlap.
func (s Slot) Overlaps(other Slot) bool {
	return s.Start < other.End() && other.Start < s.End()
}

// blocks reports whether the appointment occupies its slot for conflict purposes.
func blocks(appointment *Appointment, excludeID string) bool {
	if appointment.Status == StatusCancelled {
		return false
	}
	return excludeID == "" || appointment.ID != excludeID
}

// HasConflict reports whether the proposed slot overlaps any of the given appointments of
// the same doctor and day. Cancelled appointments and the one identified by excludeID are
// ignored, so an appointment re-checked against itself never conflicts.
func HasConflict(existing []*Appointment, proposed Slot, excludeID string) bool {
	for _, appointment := range existing {
		if !blocks(appointment, excludeID) {
			continue
		}
		if appointment.Slot().Overlaps(proposed) {
			return true
		}
	}
	return false
}

// FreeSlots lists the start times between from and to, stepping by duration, at which a
// slot of that duration would not conflict with the given appointments.
func FreeSlots(existing []*Appointment, duration int, from, to civil.Clock) []civil.Clock {
	slots := make([]civil.Clock, 0)
	if duration <= 0 {
		return slots
	}
	for start := from; start.Add(duration) <= to; start = start.Add(duration) {
		if !HasConflict(existing, Slot{Start: start, Duration: duration}, "") {
			slots = append(slots, start)
		}
	}
	return slots
}
