package domain

import "time"

// ExportRow is a single row in the itinerary export.
// It is a flat, denormalized view: one row per trip place, with trip fields
// repeated for every place on that trip. Trips with no places yield one row
// with zero values for all place fields.
type ExportRow struct {
	// Trip fields, repeated for every place on the trip.
	TripID        string
	TripName      string
	TripStartDate string // "2006-01-02"; empty string when nil
	TripEndDate   string // empty string when nil

	// Place fields: zero values when the trip has no places.
	VisitOrder    int
	PlaceName     string
	Latitude      float64
	Longitude     float64
	ArrivalDate   *time.Time
	DepartureDate *time.Time
	Note          string
	AlertActive   bool
}
