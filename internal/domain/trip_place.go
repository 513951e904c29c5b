package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TripPlace is an ordered association of one Place to one Trip.
//
// Within one trip VisitOrder values are unique and contiguous from 0.
// Place holds the joined Place row so callers never need a second lookup;
// it is populated by reads and ignored by writes (except AddPlaceToTrip,
// which creates it).
type TripPlace struct {
	ID            uuid.UUID  `json:"id"`
	TripID        uuid.UUID  `json:"trip_id"`
	PlaceID       uuid.UUID  `json:"place_id"`
	VisitOrder    int        `json:"visit_order"`
	ArrivalDate   *time.Time `json:"arrival_date,omitempty"`
	DepartureDate *time.Time `json:"departure_date,omitempty"`
	IsAlertActive bool       `json:"is_alert_active"`
	Note          string     `json:"note,omitempty"`
	Place         Place      `json:"place"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Validate enforces the rules shared by trip place create and update.
func (tp TripPlace) Validate() error {
	if tp.TripID == uuid.Nil {
		return fmt.Errorf("%w: trip_id is required", ErrValidation)
	}
	if tp.ArrivalDate != nil && tp.DepartureDate != nil && tp.DepartureDate.Before(*tp.ArrivalDate) {
		return fmt.Errorf("%w: departure_date must not be before arrival_date", ErrValidation)
	}
	return nil
}

// WantsReminder reports whether a reminder should exist for this trip place.
func (tp TripPlace) WantsReminder() bool {
	return tp.IsAlertActive && tp.ArrivalDate != nil
}

// Covers reports whether the civil date d falls within the stay at this place.
// A missing departure date means a single-day stay on the arrival date.
func (tp TripPlace) Covers(d time.Time) bool {
	if tp.ArrivalDate == nil {
		return false
	}
	day := CivilDate(d)
	from := CivilDate(*tp.ArrivalDate)
	to := from
	if tp.DepartureDate != nil {
		to = CivilDate(*tp.DepartureDate)
	}
	return !day.Before(from) && !day.After(to)
}

// CivilDate truncates t to midnight UTC of its calendar date.
func CivilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
