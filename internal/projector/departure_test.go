package projector

import (
	"testing"
	"time"
)

func clock(hour, minute, second int) time.Time {
	return time.Date(2024, 5, 1, hour, minute, second, 0, time.UTC)
}

func TestDepartureLabel(t *testing.T) {
	planned := clock(14, 0, 0)

	tests := []struct {
		name     string
		delay    int
		now      time.Time
		expected string
	}{
		{"departing now", 0, clock(14, 0, 0), "now"},
		{"five minutes ahead", 0, clock(13, 55, 0), "in 5 minutes"},
		{"twenty minutes ahead", 0, clock(13, 40, 0), "14:00"},
		{"five minutes past", 0, clock(14, 5, 0), "5 minutes ago"},
		{"exactly fifteen", 0, clock(13, 45, 0), "in 15 minutes"},
		{"sixteen minutes", 0, clock(13, 44, 0), "14:00"},
		{"one minute ahead", 0, clock(13, 59, 0), "in 1 minutes"},
		{"delay pushes into future", 5, clock(14, 3, 0), "in 2 minutes"},
		{"delay makes it now", 5, clock(14, 5, 0), "now"},
		{"delay-adjusted clock time", 10, clock(13, 40, 0), "14:10"},
		{"rounds half minute up", 0, clock(13, 54, 30), "in 6 minutes"},
		{"rounds small offset to now", 0, clock(13, 59, 40), "now"},
		{"long ago", 0, clock(15, 0, 0), "60 minutes ago"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DepartureLabel(planned, tc.delay, tc.now)
			if got != tc.expected {
				t.Errorf("DepartureLabel(14:00, +%d, %s) = %q, expected %q",
					tc.delay, tc.now.Format("15:04:05"), got, tc.expected)
			}
		})
	}
}

func TestClockTimeUsesLocation(t *testing.T) {
	berlin := time.FixedZone("CEST", 2*60*60)
	if got := ClockTime(clock(12, 30, 0), 0, berlin); got != "14:30" {
		t.Errorf("ClockTime() = %q, expected 14:30", got)
	}
	if got := ClockTime(clock(23, 55, 0), 10, time.UTC); got != "00:05" {
		t.Errorf("ClockTime() = %q, expected 00:05", got)
	}
}
