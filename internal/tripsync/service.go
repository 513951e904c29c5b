// Package tripsync is the offline-aware orchestrator over trips, places and
// trip places.
//
// Reads never fail: while online they go to the remote backend and refresh
// the local cache, and when offline or when the backend errors they fall back
// to the last cached snapshot. Writes require connectivity and fail fast with
// domain.ErrOffline otherwise; they are never queued. After a successful write
// the affected collections are refreshed and reminder side effects applied.
//
// Each collection (the trip list, and one place list per trip) carries a
// LoadState and a generation counter. Callers observe collections through
// WatchTrips and WatchTripPlaces and release per-trip entries with Release.
package tripsync

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/notify"
	"github.com/pkordes/travel-journal/internal/repo"
)

// Cache is the local snapshot store. Implementations swallow their own errors.
type Cache interface {
	CacheTrips(ctx context.Context, trips []domain.Trip)
	CachedTrips(ctx context.Context) ([]domain.Trip, bool)
	CacheTripPlaces(ctx context.Context, tripID uuid.UUID, places []domain.TripPlace)
	CachedTripPlaces(ctx context.Context, tripID uuid.UUID) ([]domain.TripPlace, bool)
	Clear(ctx context.Context)
}

// Connectivity reports the current network mode and its transitions.
type Connectivity interface {
	Mode() domain.Mode
	Subscribe(ctx context.Context) (<-chan bool, func())
}

// Reminders is the notification side of trip place writes.
type Reminders interface {
	Schedule(ctx context.Context, tp domain.TripPlace) bool
	Reschedule(ctx context.Context, tp domain.TripPlace) bool
	Cancel(ctx context.Context, tripPlaceID uuid.UUID) bool
	Sync(ctx context.Context, tripPlaces []domain.TripPlace) notify.SyncResult
}

// Config wires a Service to its collaborators. All fields except Logger are required.
type Config struct {
	Trips      repo.TripRepo
	Places     repo.PlaceRepo
	TripPlaces repo.TripPlaceRepo
	Cache      Cache
	Network    Connectivity
	Reminders  Reminders
	Logger     *slog.Logger
}

// Service is the trip synchronization service.
type Service struct {
	tripRepo      repo.TripRepo
	placeRepo     repo.PlaceRepo
	tripPlaceRepo repo.TripPlaceRepo
	cache         Cache
	network       Connectivity
	reminders     Reminders
	log           *slog.Logger

	trips *collection[domain.Trip]

	mu      sync.Mutex
	entries map[uuid.UUID]*collection[domain.TripPlace]
}

// New constructs a Service. Nothing is loaded until the first read.
func New(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{
		tripRepo:      cfg.Trips,
		placeRepo:     cfg.Places,
		tripPlaceRepo: cfg.TripPlaces,
		cache:         cfg.Cache,
		network:       cfg.Network,
		reminders:     cfg.Reminders,
		log:           log,
		trips:         newCollection[domain.Trip](),
		entries:       make(map[uuid.UUID]*collection[domain.TripPlace]),
	}
}

// Mode is the network mode as currently reported.
func (s *Service) Mode() domain.Mode {
	return s.network.Mode()
}

// ---- trip list -------------------------------------------------------------

// Trips refreshes the trip list and returns the resulting snapshot.
func (s *Service) Trips(ctx context.Context) Snapshot[domain.Trip] {
	s.refreshTrips(ctx)
	return s.trips.snapshot()
}

// CurrentTrips returns the trip list as last loaded, without refreshing.
func (s *Service) CurrentTrips() Snapshot[domain.Trip] {
	return s.trips.snapshot()
}

// WatchTrips calls fn with the current trip list and again after every
// applied refresh until the returned function is called.
func (s *Service) WatchTrips(fn func(Snapshot[domain.Trip])) func() {
	return s.trips.watch(fn)
}

func (s *Service) refreshTrips(ctx context.Context) {
	gen := s.trips.begin()
	mode := s.network.Mode()

	if mode == domain.ModeOnline {
		trips, err := s.tripRepo.List(ctx)
		if err == nil {
			if s.trips.apply(gen, trips, domain.StateLoaded) {
				s.trips.persist(gen, func() { s.cache.CacheTrips(ctx, trips) })
			}
			return
		}
		s.log.WarnContext(ctx, "trip list refresh failed, using cache", "error", err)
	}

	cached, _ := s.cache.CachedTrips(ctx)
	s.trips.apply(gen, cached, domain.StateLoadedFromCache)
}

// ---- per-trip place lists --------------------------------------------------

// TripPlaces returns the place list of tripID after refreshing it. The entry
// for tripID is created on first use and kept until Release.
func (s *Service) TripPlaces(ctx context.Context, tripID uuid.UUID) Snapshot[domain.TripPlace] {
	entry := s.entry(tripID)
	s.refreshEntry(ctx, tripID, entry)
	return entry.snapshot()
}

// CurrentTripPlaces returns the place list of tripID as last loaded, without
// refreshing. It reports false if the trip has no entry.
func (s *Service) CurrentTripPlaces(tripID uuid.UUID) (Snapshot[domain.TripPlace], bool) {
	entry, ok := s.lookupEntry(tripID)
	if !ok {
		return Snapshot[domain.TripPlace]{Items: []domain.TripPlace{}}, false
	}
	return entry.snapshot(), true
}

// WatchTripPlaces calls fn with the current place list of tripID and again
// after every applied refresh until the returned function is called.
func (s *Service) WatchTripPlaces(tripID uuid.UUID, fn func(Snapshot[domain.TripPlace])) func() {
	return s.entry(tripID).watch(fn)
}

// Release evicts the entry for tripID if nobody is watching it. It reports
// whether the entry is gone.
func (s *Service) Release(tripID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[tripID]
	if !ok {
		return true
	}
	if entry.watched() {
		return false
	}
	delete(s.entries, tripID)
	return true
}

func (s *Service) entry(tripID uuid.UUID) *collection[domain.TripPlace] {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[tripID]
	if !ok {
		entry = newCollection[domain.TripPlace]()
		s.entries[tripID] = entry
	}
	return entry
}

func (s *Service) lookupEntry(tripID uuid.UUID) (*collection[domain.TripPlace], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[tripID]
	return entry, ok
}

func (s *Service) entryIDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

// refreshTripPlaces refreshes tripID only if somebody has loaded it before.
func (s *Service) refreshTripPlaces(ctx context.Context, tripID uuid.UUID) {
	if entry, ok := s.lookupEntry(tripID); ok {
		s.refreshEntry(ctx, tripID, entry)
	}
}

func (s *Service) refreshEntry(ctx context.Context, tripID uuid.UUID, entry *collection[domain.TripPlace]) {
	gen := entry.begin()
	mode := s.network.Mode()

	if mode == domain.ModeOnline {
		places, err := s.tripPlaceRepo.ListByTripID(ctx, tripID)
		if err == nil {
			if entry.apply(gen, places, domain.StateLoaded) {
				entry.persist(gen, func() { s.cache.CacheTripPlaces(ctx, tripID, places) })
			}
			return
		}
		s.log.WarnContext(ctx, "trip place refresh failed, using cache", "trip_id", tripID, "error", err)
	}

	cached, _ := s.cache.CachedTripPlaces(ctx, tripID)
	entry.apply(gen, cached, domain.StateLoadedFromCache)
}

// refreshAll reloads the trip list and every per-trip entry.
func (s *Service) refreshAll(ctx context.Context) {
	s.refreshTrips(ctx)
	for _, id := range s.entryIDs() {
		s.refreshTripPlaces(ctx, id)
	}
}

// AllTripPlaces returns every known trip place across all trips. Collections
// that were never loaded are loaded first; loaded ones are used as they are.
func (s *Service) AllTripPlaces(ctx context.Context) []domain.TripPlace {
	trips := s.trips.snapshot()
	if trips.State == domain.StateUninitialized {
		trips = s.Trips(ctx)
	}

	out := []domain.TripPlace{}
	for _, t := range trips.Items {
		entry := s.entry(t.ID)
		snap := entry.snapshot()
		if snap.State == domain.StateUninitialized {
			s.refreshEntry(ctx, t.ID, entry)
			snap = entry.snapshot()
		}
		out = append(out, snap.Items...)
	}
	return out
}

// ---- single-record reads ---------------------------------------------------

// GetTrip returns one trip. Offline, or when the backend fails with anything
// other than not-found, the cached trip list is searched instead.
func (s *Service) GetTrip(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	if s.network.Mode() == domain.ModeOnline {
		trip, err := s.tripRepo.GetByID(ctx, id)
		if err == nil || errors.Is(err, domain.ErrNotFound) {
			return trip, err
		}
		s.log.WarnContext(ctx, "get trip failed, using cache", "trip_id", id, "error", err)
	}

	trips := s.trips.snapshot().Items
	if len(trips) == 0 {
		trips, _ = s.cache.CachedTrips(ctx)
	}
	for _, t := range trips {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Trip{}, domain.ErrNotFound
}

// GetTripPlace returns one trip place of tripID, falling back to the cached
// place list of that trip.
func (s *Service) GetTripPlace(ctx context.Context, tripID, id uuid.UUID) (domain.TripPlace, error) {
	if s.network.Mode() == domain.ModeOnline {
		tp, err := s.tripPlaceRepo.GetByID(ctx, tripID, id)
		if err == nil || errors.Is(err, domain.ErrNotFound) {
			return tp, err
		}
		s.log.WarnContext(ctx, "get trip place failed, using cache", "trip_place_id", id, "error", err)
	}

	var places []domain.TripPlace
	if entry, ok := s.lookupEntry(tripID); ok {
		places = entry.snapshot().Items
	}
	if len(places) == 0 {
		places, _ = s.cache.CachedTripPlaces(ctx, tripID)
	}
	for _, tp := range places {
		if tp.ID == id {
			return tp, nil
		}
	}
	return domain.TripPlace{}, domain.ErrNotFound
}

// GetPlace returns one place. Places have no cache of their own; offline they
// are found through the trip places loaded so far.
func (s *Service) GetPlace(ctx context.Context, id uuid.UUID) (domain.Place, error) {
	if s.network.Mode() == domain.ModeOnline {
		p, err := s.placeRepo.GetByID(ctx, id)
		if err == nil || errors.Is(err, domain.ErrNotFound) {
			return p, err
		}
		s.log.WarnContext(ctx, "get place failed, using loaded trip places", "place_id", id, "error", err)
	}

	for _, p := range s.knownPlaces() {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Place{}, domain.ErrNotFound
}

// ListPlaces returns the place catalogue, or while offline the distinct
// places of the trip places loaded so far.
func (s *Service) ListPlaces(ctx context.Context) []domain.Place {
	if s.network.Mode() == domain.ModeOnline {
		places, err := s.placeRepo.List(ctx)
		if err == nil {
			return places
		}
		s.log.WarnContext(ctx, "list places failed, using loaded trip places", "error", err)
	}
	return s.knownPlaces()
}

func (s *Service) knownPlaces() []domain.Place {
	seen := make(map[uuid.UUID]bool)
	out := []domain.Place{}
	for _, id := range s.entryIDs() {
		entry, ok := s.lookupEntry(id)
		if !ok {
			continue
		}
		for _, tp := range entry.snapshot().Items {
			if !seen[tp.Place.ID] {
				seen[tp.Place.ID] = true
				out = append(out, tp.Place)
			}
		}
	}
	return out
}

// ---- lifecycle -------------------------------------------------------------

// Run refreshes every loaded collection whenever connectivity comes back.
// The subscription carries transitions only, so every true is a reconnect.
// It blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	changes, stop := s.network.Subscribe(ctx)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-changes:
			if !ok {
				return
			}
			if online {
				s.log.InfoContext(ctx, "back online, refreshing")
				s.refreshAll(ctx)
			}
		}
	}
}

// SyncReminders reconciles pending reminders with the backend's alerting trip places.
func (s *Service) SyncReminders(ctx context.Context) (notify.SyncResult, error) {
	if err := s.requireOnline(); err != nil {
		return notify.SyncResult{}, err
	}
	alerting, err := s.tripPlaceRepo.ListWithAlerts(ctx)
	if err != nil {
		return notify.SyncResult{}, err
	}
	res := s.reminders.Sync(ctx, alerting)
	s.log.InfoContext(ctx, "reminders synced", "cancelled", res.Cancelled, "scheduled", res.Scheduled)
	return res, nil
}

// ClearCache drops every cached snapshot. In-memory collections are untouched.
func (s *Service) ClearCache(ctx context.Context) {
	s.cache.Clear(ctx)
}
