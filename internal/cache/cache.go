// Package cache keeps the last-known-good snapshot of trips and per-trip
// place lists for use while the remote backend is unreachable.
//
// The cache is a best-effort optimization: every failure is logged and
// swallowed, and a read that fails for any reason reports "no snapshot".
package cache

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/storage"
)

const (
	keyPrefix     = "cached_"
	tripsKey      = keyPrefix + "trips"
	tripPlacesKey = keyPrefix + "trip_places_"
)

// Store reads and writes cached snapshots in the local key-value namespace.
type Store struct {
	kv  *storage.KV
	log *slog.Logger
}

// NewStore constructs a Store over kv. A nil logger discards warnings.
func NewStore(kv *storage.KV, log *slog.Logger) *Store {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Store{kv: kv, log: log}
}

// CacheTrips overwrites the cached trip list.
func (s *Store) CacheTrips(ctx context.Context, trips []domain.Trip) {
	if err := storage.SetJSON(ctx, s.kv, tripsKey, nonNil(trips)); err != nil {
		s.log.WarnContext(ctx, "cache write failed", "key", tripsKey, "error", err)
	}
}

// CachedTrips returns the cached trip list. ok is false when there is no
// usable snapshot.
func (s *Store) CachedTrips(ctx context.Context) (trips []domain.Trip, ok bool) {
	return read[[]domain.Trip](ctx, s, tripsKey)
}

// CacheTripPlaces overwrites the cached place list of one trip.
func (s *Store) CacheTripPlaces(ctx context.Context, tripID uuid.UUID, places []domain.TripPlace) {
	key := tripPlacesKey + tripID.String()
	if err := storage.SetJSON(ctx, s.kv, key, nonNil(places)); err != nil {
		s.log.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
}

// CachedTripPlaces returns the cached place list of one trip.
func (s *Store) CachedTripPlaces(ctx context.Context, tripID uuid.UUID) (places []domain.TripPlace, ok bool) {
	return read[[]domain.TripPlace](ctx, s, tripPlacesKey+tripID.String())
}

// Clear removes every cached snapshot. Diary data in the same namespace is
// left alone.
func (s *Store) Clear(ctx context.Context) {
	n, err := s.kv.DeletePrefix(ctx, keyPrefix)
	if err != nil {
		s.log.WarnContext(ctx, "cache clear failed", "error", err)
		return
	}
	s.log.InfoContext(ctx, "cache cleared", "keys", n)
}

func read[T any](ctx context.Context, s *Store, key string) (T, bool) {
	v, err := storage.GetJSON[T](ctx, s.kv, key)
	if err != nil {
		s.log.DebugContext(ctx, "cache miss", "key", key, "error", err)
		var zero T
		return zero, false
	}
	return v, true
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
