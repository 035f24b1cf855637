package projector

import (
	"fmt"
	"math"
	"time"
)

// absoluteAfter is the lead time beyond which a clock time is shown
const absoluteAfter = 15

// MinutesUntil returns whole minutes from now until the delay-adjusted departure
func MinutesUntil(planned time.Time, delayMinutes int, now time.Time) int {
	departs := planned.Add(time.Duration(delayMinutes) * time.Minute)
	return int(math.Round(departs.Sub(now).Minutes()))
}

// DepartureLabel renders the departure cell text:
// "now", "<n> minutes ago", "HH:MM" or "in <n> minutes".
func DepartureLabel(planned time.Time, delayMinutes int, now time.Time) string {
	m := MinutesUntil(planned, delayMinutes, now)
	switch {
	case m == 0:
		return "now"
	case m < 0:
		return fmt.Sprintf("%d minutes ago", -m)
	case m > absoluteAfter:
		return ClockTime(planned, delayMinutes, now.Location())
	default:
		return fmt.Sprintf("in %d minutes", m)
	}
}

// ClockTime formats the delay-adjusted departure as HH:MM in loc
func ClockTime(planned time.Time, delayMinutes int, loc *time.Location) string {
	departs := planned.Add(time.Duration(delayMinutes) * time.Minute)
	if loc != nil {
		departs = departs.In(loc)
	}
	return departs.Format("15:04")
}
