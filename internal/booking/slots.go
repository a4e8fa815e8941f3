package booking

import "fmt"

// SlotGrid describes the bookable times of a working day. Every doctor
// currently shares the same grid; the type exists so business hours are a
// parameter rather than something baked into the availability computation.
type SlotGrid struct {
	OpenHour    int // first bookable slot, inclusive
	CloseHour   int // last bookable slot starts at this hour, inclusive
	BreakStart  int // hour the lunch break starts
	BreakEnd    int // hour the lunch break ends
	StepMinutes int
}

// DefaultGrid is 08:00-17:00 in 30-minute steps with a 12:00-13:00 break,
// 17:00 itself being the last bookable slot.
func DefaultGrid() SlotGrid {
	return SlotGrid{
		OpenHour:    8,
		CloseHour:   17,
		BreakStart:  12,
		BreakEnd:    13,
		StepMinutes: 30,
	}
}

// Slots returns every bookable time marker of the grid in order.
func (g SlotGrid) Slots() []string {
	var slots []string
	for m := g.OpenHour * 60; m <= g.CloseHour*60; m += g.StepMinutes {
		if m >= g.BreakStart*60 && m < g.BreakEnd*60 {
			continue
		}
		slots = append(slots, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return slots
}

// Contains reports whether t is a valid slot marker of the grid.
func (g SlotGrid) Contains(t string) bool {
	for _, s := range g.Slots() {
		if s == t {
			return true
		}
	}
	return false
}

// Available derives the free slots given the day's appointments: the full
// grid minus every slot held by a blocking (pending or confirmed)
// appointment. Pure function, no state of its own.
func (g SlotGrid) Available(appointments []Appointment) []string {
	occupied := make(map[string]bool, len(appointments))
	for _, a := range appointments {
		if a.Status.Blocking() {
			occupied[a.TimeSlot] = true
		}
	}

	var free []string
	for _, s := range g.Slots() {
		if !occupied[s] {
			free = append(free, s)
		}
	}
	return free
}
