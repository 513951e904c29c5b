package tripsync

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/travel-journal/internal/domain"
)

// requireOnline is the single mode check of every write.
func (s *Service) requireOnline() error {
	if s.network.Mode() != domain.ModeOnline {
		return domain.ErrOffline
	}
	return nil
}

// ---- trips -----------------------------------------------------------------

// CreateTrip validates and inserts a trip, then refreshes the trip list.
func (s *Service) CreateTrip(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	if err := s.requireOnline(); err != nil {
		return domain.Trip{}, err
	}
	if err := trip.Validate(); err != nil {
		return domain.Trip{}, err
	}
	created, err := s.tripRepo.Create(ctx, trip)
	if err != nil {
		return domain.Trip{}, err
	}
	s.refreshTrips(ctx)
	return created, nil
}

// UpdateTrip validates and saves a trip, then refreshes the trip list.
func (s *Service) UpdateTrip(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	if err := s.requireOnline(); err != nil {
		return domain.Trip{}, err
	}
	if err := trip.Validate(); err != nil {
		return domain.Trip{}, err
	}
	updated, err := s.tripRepo.Update(ctx, trip)
	if err != nil {
		return domain.Trip{}, err
	}
	s.refreshTrips(ctx)
	return updated, nil
}

// DeleteTrip removes every trip place of the trip (cancelling their
// reminders) and then the trip itself. The trip's entry is dropped and its
// cached place list overwritten with an empty one.
func (s *Service) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	if err := s.requireOnline(); err != nil {
		return err
	}

	places, err := s.tripPlaceRepo.ListByTripID(ctx, id)
	if err != nil {
		return err
	}
	// Deleting from the end keeps the remaining visit_order values untouched.
	for i := len(places) - 1; i >= 0; i-- {
		tp := places[i]
		s.reminders.Cancel(ctx, tp.ID)
		if err := s.tripPlaceRepo.Delete(ctx, id, tp.ID); err != nil {
			return err
		}
	}
	if err := s.tripRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.dropEntry(id)
	s.cache.CacheTripPlaces(ctx, id, []domain.TripPlace{})
	s.refreshTrips(ctx)
	return nil
}

func (s *Service) dropEntry(tripID uuid.UUID) {
	s.mu.Lock()
	entry, ok := s.entries[tripID]
	delete(s.entries, tripID)
	s.mu.Unlock()
	if ok {
		entry.reset(domain.StateLoaded)
	}
}

// ---- places ----------------------------------------------------------------

// CreatePlace validates and inserts a place into the catalogue.
func (s *Service) CreatePlace(ctx context.Context, place domain.Place) (domain.Place, error) {
	if err := s.requireOnline(); err != nil {
		return domain.Place{}, err
	}
	if err := place.Validate(); err != nil {
		return domain.Place{}, err
	}
	return s.placeRepo.Create(ctx, place)
}

// UpdatePlace saves a place and refreshes every loaded trip that visits it.
func (s *Service) UpdatePlace(ctx context.Context, place domain.Place) (domain.Place, error) {
	if err := s.requireOnline(); err != nil {
		return domain.Place{}, err
	}
	if err := place.Validate(); err != nil {
		return domain.Place{}, err
	}
	updated, err := s.placeRepo.Update(ctx, place)
	if err != nil {
		return domain.Place{}, err
	}

	visits, err := s.tripPlaceRepo.ListByPlaceID(ctx, updated.ID)
	if err != nil {
		s.log.WarnContext(ctx, "list visits of updated place failed", "place_id", updated.ID, "error", err)
		return updated, nil
	}
	for _, tripID := range tripIDs(visits) {
		s.refreshTripPlaces(ctx, tripID)
	}
	return updated, nil
}

// DeletePlace removes a place and every trip place that visits it. Each visit
// is deleted through the trip place path so reminders are cancelled and the
// owning trip's order stays contiguous.
func (s *Service) DeletePlace(ctx context.Context, id uuid.UUID) error {
	if err := s.requireOnline(); err != nil {
		return err
	}

	visits, err := s.tripPlaceRepo.ListByPlaceID(ctx, id)
	if err != nil {
		return err
	}
	for _, tp := range visits {
		s.reminders.Cancel(ctx, tp.ID)
		if err := s.tripPlaceRepo.Delete(ctx, tp.TripID, tp.ID); err != nil {
			return err
		}
	}
	if err := s.placeRepo.Delete(ctx, id); err != nil {
		return err
	}

	for _, tripID := range tripIDs(visits) {
		s.refreshTripPlaces(ctx, tripID)
	}
	if len(visits) > 0 {
		s.refreshTrips(ctx)
	}
	return nil
}

func tripIDs(tps []domain.TripPlace) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, tp := range tps {
		if !seen[tp.TripID] {
			seen[tp.TripID] = true
			ids = append(ids, tp.TripID)
		}
	}
	return ids
}

// ---- trip places -----------------------------------------------------------

// CreateTripPlace appends an existing place to a trip and schedules its
// reminder when the alert is on.
func (s *Service) CreateTripPlace(ctx context.Context, tp domain.TripPlace) (domain.TripPlace, error) {
	if err := s.requireOnline(); err != nil {
		return domain.TripPlace{}, err
	}
	if err := validateNewTripPlace(tp); err != nil {
		return domain.TripPlace{}, err
	}
	created, err := s.tripPlaceRepo.Create(ctx, tp)
	if err != nil {
		return domain.TripPlace{}, err
	}
	s.afterTripPlaceCreated(ctx, created)
	return created, nil
}

// AddPlaceToTrip creates a new place and appends it to the trip in one call.
// If the trip place cannot be created the new place is removed again.
func (s *Service) AddPlaceToTrip(ctx context.Context, place domain.Place, tp domain.TripPlace) (domain.TripPlace, error) {
	if err := s.requireOnline(); err != nil {
		return domain.TripPlace{}, err
	}
	if err := place.Validate(); err != nil {
		return domain.TripPlace{}, err
	}
	if err := tp.Validate(); err != nil {
		return domain.TripPlace{}, err
	}

	createdPlace, err := s.placeRepo.Create(ctx, place)
	if err != nil {
		return domain.TripPlace{}, err
	}
	tp.PlaceID = createdPlace.ID
	created, err := s.tripPlaceRepo.Create(ctx, tp)
	if err != nil {
		if derr := s.placeRepo.Delete(ctx, createdPlace.ID); derr != nil {
			s.log.WarnContext(ctx, "remove orphaned place failed", "place_id", createdPlace.ID, "error", derr)
		}
		return domain.TripPlace{}, err
	}
	s.afterTripPlaceCreated(ctx, created)
	return created, nil
}

func validateNewTripPlace(tp domain.TripPlace) error {
	if err := tp.Validate(); err != nil {
		return err
	}
	if tp.PlaceID == uuid.Nil {
		return fmt.Errorf("%w: place_id is required", domain.ErrValidation)
	}
	return nil
}

func (s *Service) afterTripPlaceCreated(ctx context.Context, tp domain.TripPlace) {
	if tp.WantsReminder() {
		s.reminders.Schedule(ctx, tp)
	}
	s.refreshTripPlaces(ctx, tp.TripID)
	s.refreshTrips(ctx)
}

// UpdateTripPlace saves dates, alert flag and note, then replaces the
// reminder: it is cancelled and scheduled again if still wanted.
func (s *Service) UpdateTripPlace(ctx context.Context, tp domain.TripPlace) (domain.TripPlace, error) {
	if err := s.requireOnline(); err != nil {
		return domain.TripPlace{}, err
	}
	if err := tp.Validate(); err != nil {
		return domain.TripPlace{}, err
	}
	updated, err := s.tripPlaceRepo.Update(ctx, tp)
	if err != nil {
		return domain.TripPlace{}, err
	}
	s.reminders.Reschedule(ctx, updated)
	s.refreshTripPlaces(ctx, updated.TripID)
	s.refreshTrips(ctx)
	return updated, nil
}

// DeleteTripPlace removes a trip place and cancels its reminder.
func (s *Service) DeleteTripPlace(ctx context.Context, tripID, id uuid.UUID) error {
	if err := s.requireOnline(); err != nil {
		return err
	}
	if err := s.tripPlaceRepo.Delete(ctx, tripID, id); err != nil {
		return err
	}
	s.reminders.Cancel(ctx, id)
	s.refreshTripPlaces(ctx, tripID)
	s.refreshTrips(ctx)
	return nil
}

// ReorderTripPlaces sets the visit order of a trip to the order of ids and
// refreshes the trip's place list once.
func (s *Service) ReorderTripPlaces(ctx context.Context, tripID uuid.UUID, ids []uuid.UUID) error {
	if err := s.requireOnline(); err != nil {
		return err
	}
	if err := s.tripPlaceRepo.Reorder(ctx, tripID, ids); err != nil {
		return err
	}
	s.refreshTripPlaces(ctx, tripID)
	return nil
}
