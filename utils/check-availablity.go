package utils

import (
	"time"

	"github.com/meinhoongagan/medicnote/models"
)

// CheckAvailability reports whether [start, start+duration) is free of the
// given appointments. Cancelled appointments never block a slot.
func CheckAvailability(existing []models.Appointment, start time.Time, duration time.Duration) bool {
	end := start.Add(duration)
	for _, a := range existing {
		if a.Status == models.AppointmentCancelled {
			continue
		}
		if a.AppointmentDate.Before(end) && a.End().After(start) {
			return false
		}
	}
	return true
}
