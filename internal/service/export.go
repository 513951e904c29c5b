// Package service holds read-side use cases composed on top of the trip
// synchronization service.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/tripsync"
)

// ItinerarySource is the part of the sync service the export reads from.
// Both calls degrade to cached data, so an export works offline.
type ItinerarySource interface {
	Trips(ctx context.Context) tripsync.Snapshot[domain.Trip]
	TripPlaces(ctx context.Context, tripID uuid.UUID) tripsync.Snapshot[domain.TripPlace]
}

// ExportService assembles a flat export of every trip and its places.
type ExportService struct {
	source ItinerarySource
}

// NewExportService constructs an ExportService reading from source.
func NewExportService(source ItinerarySource) *ExportService {
	return &ExportService{source: source}
}

// Export returns one ExportRow per trip place across all trips, in trip list
// order and then visit order. Trips with no places contribute one row with
// empty place fields.
func (s *ExportService) Export(ctx context.Context) ([]domain.ExportRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows := []domain.ExportRow{}
	for _, trip := range s.source.Trips(ctx).Items {
		base := domain.ExportRow{
			TripID:        trip.ID.String(),
			TripName:      trip.Name,
			TripStartDate: formatDate(trip.StartDate),
			TripEndDate:   formatDate(trip.EndDate),
		}

		places := s.source.TripPlaces(ctx, trip.ID).Items
		if len(places) == 0 {
			rows = append(rows, base)
			continue
		}
		for _, tp := range places {
			row := base
			row.VisitOrder = tp.VisitOrder
			row.PlaceName = tp.Place.Name
			row.Latitude = tp.Place.Latitude
			row.Longitude = tp.Place.Longitude
			row.ArrivalDate = tp.ArrivalDate
			row.DepartureDate = tp.DepartureDate
			row.Note = tp.Note
			row.AlertActive = tp.IsAlertActive
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(domain.DateLayout)
}
