package forecast

import "time"

const (
	// SlotMinutes is the width of a slot.
	SlotMinutes = 5
	// SlotsPerHour is the number of slots in an hour.
	SlotsPerHour = 60 / SlotMinutes
	// SlotsPerDay is the number of slots covering a calendar day.
	SlotsPerDay = 24 * SlotsPerHour
)

// SlotOf returns the five-minute slot of the day that t falls in, using the
// wall clock of t's location. Slot 0 starts at 00:00 and slot 287 at 23:55.
func SlotOf(t time.Time) int {
	return t.Hour()*SlotsPerHour + t.Minute()/SlotMinutes
}

// SlotStart returns the start time of slot on the calendar day of day.
func SlotStart(day time.Time, slot int) time.Time {
	return StartOfDay(day).Add(time.Duration(slot*SlotMinutes) * time.Minute)
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
