package tripsync_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/notify"
	"github.com/pkordes/travel-journal/internal/repo"
	"github.com/pkordes/travel-journal/internal/tripsync"
)

// Hand-written test doubles. Each method is a function field; set only the
// ones a test needs. newBackend wires them to a small in-memory store.

type mockTripRepo struct {
	create  func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	getByID func(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	list    func(ctx context.Context) ([]domain.Trip, error)
	update  func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	delete  func(ctx context.Context, id uuid.UUID) error
}

func (m *mockTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	return m.create(ctx, trip)
}
func (m *mockTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	return m.getByID(ctx, id)
}
func (m *mockTripRepo) List(ctx context.Context) ([]domain.Trip, error) { return m.list(ctx) }
func (m *mockTripRepo) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	return m.update(ctx, trip)
}
func (m *mockTripRepo) Delete(ctx context.Context, id uuid.UUID) error { return m.delete(ctx, id) }

type mockPlaceRepo struct {
	create  func(ctx context.Context, p domain.Place) (domain.Place, error)
	getByID func(ctx context.Context, id uuid.UUID) (domain.Place, error)
	list    func(ctx context.Context) ([]domain.Place, error)
	update  func(ctx context.Context, p domain.Place) (domain.Place, error)
	delete  func(ctx context.Context, id uuid.UUID) error
}

func (m *mockPlaceRepo) Create(ctx context.Context, p domain.Place) (domain.Place, error) {
	return m.create(ctx, p)
}
func (m *mockPlaceRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Place, error) {
	return m.getByID(ctx, id)
}
func (m *mockPlaceRepo) List(ctx context.Context) ([]domain.Place, error) { return m.list(ctx) }
func (m *mockPlaceRepo) Update(ctx context.Context, p domain.Place) (domain.Place, error) {
	return m.update(ctx, p)
}
func (m *mockPlaceRepo) Delete(ctx context.Context, id uuid.UUID) error { return m.delete(ctx, id) }

type mockTripPlaceRepo struct {
	create         func(ctx context.Context, tp domain.TripPlace) (domain.TripPlace, error)
	getByID        func(ctx context.Context, tripID, id uuid.UUID) (domain.TripPlace, error)
	listByTripID   func(ctx context.Context, tripID uuid.UUID) ([]domain.TripPlace, error)
	listByPlaceID  func(ctx context.Context, placeID uuid.UUID) ([]domain.TripPlace, error)
	listWithAlerts func(ctx context.Context) ([]domain.TripPlace, error)
	update         func(ctx context.Context, tp domain.TripPlace) (domain.TripPlace, error)
	delete         func(ctx context.Context, tripID, id uuid.UUID) error
	reorder        func(ctx context.Context, tripID uuid.UUID, ids []uuid.UUID) error
}

func (m *mockTripPlaceRepo) Create(ctx context.Context, tp domain.TripPlace) (domain.TripPlace, error) {
	return m.create(ctx, tp)
}
func (m *mockTripPlaceRepo) GetByID(ctx context.Context, tripID, id uuid.UUID) (domain.TripPlace, error) {
	return m.getByID(ctx, tripID, id)
}
func (m *mockTripPlaceRepo) ListByTripID(ctx context.Context, tripID uuid.UUID) ([]domain.TripPlace, error) {
	return m.listByTripID(ctx, tripID)
}
func (m *mockTripPlaceRepo) ListByPlaceID(ctx context.Context, placeID uuid.UUID) ([]domain.TripPlace, error) {
	return m.listByPlaceID(ctx, placeID)
}
func (m *mockTripPlaceRepo) ListWithAlerts(ctx context.Context) ([]domain.TripPlace, error) {
	return m.listWithAlerts(ctx)
}
func (m *mockTripPlaceRepo) Update(ctx context.Context, tp domain.TripPlace) (domain.TripPlace, error) {
	return m.update(ctx, tp)
}
func (m *mockTripPlaceRepo) Delete(ctx context.Context, tripID, id uuid.UUID) error {
	return m.delete(ctx, tripID, id)
}
func (m *mockTripPlaceRepo) Reorder(ctx context.Context, tripID uuid.UUID, ids []uuid.UUID) error {
	return m.reorder(ctx, tripID, ids)
}

// compile-time checks: the mocks must satisfy the repo interfaces.
var (
	_ repo.TripRepo      = (*mockTripRepo)(nil)
	_ repo.PlaceRepo     = (*mockPlaceRepo)(nil)
	_ repo.TripPlaceRepo = (*mockTripPlaceRepo)(nil)
)

// ---- cache, network, notifications ------------------------------------------

type mapCache struct {
	mu         sync.Mutex
	trips      []domain.Trip
	hasTrips   bool
	tripPlaces map[uuid.UUID][]domain.TripPlace
	writes     int
}

func newMapCache() *mapCache {
	return &mapCache{tripPlaces: make(map[uuid.UUID][]domain.TripPlace)}
}

func (c *mapCache) CacheTrips(_ context.Context, trips []domain.Trip) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trips, c.hasTrips = trips, true
	c.writes++
}
func (c *mapCache) CachedTrips(context.Context) ([]domain.Trip, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trips, c.hasTrips
}
func (c *mapCache) CacheTripPlaces(_ context.Context, tripID uuid.UUID, places []domain.TripPlace) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tripPlaces[tripID] = places
	c.writes++
}
func (c *mapCache) CachedTripPlaces(_ context.Context, tripID uuid.UUID) ([]domain.TripPlace, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	places, ok := c.tripPlaces[tripID]
	return places, ok
}
func (c *mapCache) Clear(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trips, c.hasTrips = nil, false
	c.tripPlaces = make(map[uuid.UUID][]domain.TripPlace)
	c.writes++
}

type fakeNetwork struct {
	mu     sync.Mutex
	online bool
	ch     chan bool
}

func newFakeNetwork(online bool) *fakeNetwork {
	return &fakeNetwork{online: online, ch: make(chan bool, 4)}
}

func (n *fakeNetwork) Mode() domain.Mode {
	n.mu.Lock()
	defer n.mu.Unlock()
	return domain.ModeFor(n.online)
}
func (n *fakeNetwork) Subscribe(context.Context) (<-chan bool, func()) { return n.ch, func() {} }

// set flips the mode and publishes the change, like network.Monitor.
func (n *fakeNetwork) set(online bool) {
	n.mu.Lock()
	n.online = online
	n.mu.Unlock()
	n.ch <- online
}

type fakePlatform struct {
	mu      sync.Mutex
	pending map[uuid.UUID]notify.Reminder
}

func (f *fakePlatform) Schedule(_ context.Context, r notify.Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[r.ID] = r
	return nil
}
func (f *fakePlatform) Cancel(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, id)
	return nil
}
func (f *fakePlatform) Pending(context.Context) ([]notify.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []notify.Reminder{}
	for _, r := range f.pending {
		out = append(out, r)
	}
	return out, nil
}
func (f *fakePlatform) PermissionGranted(context.Context) (bool, error) { return true, nil }

var (
	_ tripsync.Cache        = (*mapCache)(nil)
	_ tripsync.Connectivity = (*fakeNetwork)(nil)
	_ notify.Platform       = (*fakePlatform)(nil)
)

// ---- in-memory backend -----------------------------------------------------

var clock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// backend is a tiny in-memory stand-in for the remote tables.
type backend struct {
	mu         sync.Mutex
	trips      map[uuid.UUID]domain.Trip
	places     map[uuid.UUID]domain.Place
	tripPlaces map[uuid.UUID]domain.TripPlace
	seq        int

	tripRepo      *mockTripRepo
	placeRepo     *mockPlaceRepo
	tripPlaceRepo *mockTripPlaceRepo
}

func newBackend() *backend {
	b := &backend{
		trips:      make(map[uuid.UUID]domain.Trip),
		places:     make(map[uuid.UUID]domain.Place),
		tripPlaces: make(map[uuid.UUID]domain.TripPlace),
	}
	notFound := func(op string) error { return domain.NewRemoteError(op, domain.ErrNotFound) }

	b.tripRepo = &mockTripRepo{
		create: func(_ context.Context, t domain.Trip) (domain.Trip, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.seq++
			t.ID = uuid.New()
			t.CreatedAt = clock.Add(time.Duration(b.seq) * time.Second)
			b.trips[t.ID] = t
			return t, nil
		},
		getByID: func(_ context.Context, id uuid.UUID) (domain.Trip, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			t, ok := b.trips[id]
			if !ok {
				return domain.Trip{}, notFound("GetByID")
			}
			return b.withCount(t), nil
		},
		list: func(context.Context) ([]domain.Trip, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			out := []domain.Trip{}
			for _, t := range b.trips {
				out = append(out, b.withCount(t))
			}
			sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
			return out, nil
		},
		update: func(_ context.Context, t domain.Trip) (domain.Trip, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.trips[t.ID]; !ok {
				return domain.Trip{}, notFound("Update")
			}
			b.trips[t.ID] = t
			return t, nil
		},
		delete: func(_ context.Context, id uuid.UUID) error {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.trips[id]; !ok {
				return notFound("Delete")
			}
			delete(b.trips, id)
			return nil
		},
	}

	b.placeRepo = &mockPlaceRepo{
		create: func(_ context.Context, p domain.Place) (domain.Place, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			p.ID = uuid.New()
			b.places[p.ID] = p
			return p, nil
		},
		getByID: func(_ context.Context, id uuid.UUID) (domain.Place, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			p, ok := b.places[id]
			if !ok {
				return domain.Place{}, notFound("GetByID")
			}
			return p, nil
		},
		list: func(context.Context) ([]domain.Place, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			out := []domain.Place{}
			for _, p := range b.places {
				out = append(out, p)
			}
			sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
			return out, nil
		},
		update: func(_ context.Context, p domain.Place) (domain.Place, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.places[p.ID] = p
			return p, nil
		},
		delete: func(_ context.Context, id uuid.UUID) error {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.places[id]; !ok {
				return notFound("Delete")
			}
			delete(b.places, id)
			return nil
		},
	}

	b.tripPlaceRepo = &mockTripPlaceRepo{
		create: func(_ context.Context, tp domain.TripPlace) (domain.TripPlace, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			tp.ID = uuid.New()
			tp.VisitOrder = len(b.byTrip(tp.TripID))
			tp.Place = b.places[tp.PlaceID]
			b.tripPlaces[tp.ID] = tp
			return tp, nil
		},
		getByID: func(_ context.Context, tripID, id uuid.UUID) (domain.TripPlace, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			tp, ok := b.tripPlaces[id]
			if !ok || tp.TripID != tripID {
				return domain.TripPlace{}, notFound("GetByID")
			}
			return tp, nil
		},
		listByTripID: func(_ context.Context, tripID uuid.UUID) ([]domain.TripPlace, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			return b.byTrip(tripID), nil
		},
		listByPlaceID: func(_ context.Context, placeID uuid.UUID) ([]domain.TripPlace, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			out := []domain.TripPlace{}
			for _, tp := range b.tripPlaces {
				if tp.PlaceID == placeID {
					out = append(out, tp)
				}
			}
			return out, nil
		},
		listWithAlerts: func(context.Context) ([]domain.TripPlace, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			out := []domain.TripPlace{}
			for _, tp := range b.tripPlaces {
				if tp.WantsReminder() {
					out = append(out, tp)
				}
			}
			return out, nil
		},
		update: func(_ context.Context, tp domain.TripPlace) (domain.TripPlace, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			cur, ok := b.tripPlaces[tp.ID]
			if !ok {
				return domain.TripPlace{}, notFound("Update")
			}
			cur.ArrivalDate, cur.DepartureDate = tp.ArrivalDate, tp.DepartureDate
			cur.IsAlertActive, cur.Note = tp.IsAlertActive, tp.Note
			b.tripPlaces[tp.ID] = cur
			return cur, nil
		},
		delete: func(_ context.Context, tripID, id uuid.UUID) error {
			b.mu.Lock()
			defer b.mu.Unlock()
			tp, ok := b.tripPlaces[id]
			if !ok || tp.TripID != tripID {
				return notFound("Delete")
			}
			delete(b.tripPlaces, id)
			for _, other := range b.byTrip(tripID) {
				if other.VisitOrder > tp.VisitOrder {
					other.VisitOrder--
					b.tripPlaces[other.ID] = other
				}
			}
			return nil
		},
		reorder: func(_ context.Context, tripID uuid.UUID, ids []uuid.UUID) error {
			b.mu.Lock()
			defer b.mu.Unlock()
			if len(ids) != len(b.byTrip(tripID)) {
				return fmt.Errorf("%w: not a permutation", domain.ErrValidation)
			}
			for i, id := range ids {
				tp := b.tripPlaces[id]
				tp.VisitOrder = i
				b.tripPlaces[id] = tp
			}
			return nil
		},
	}
	return b
}

func (b *backend) byTrip(tripID uuid.UUID) []domain.TripPlace {
	out := []domain.TripPlace{}
	for _, tp := range b.tripPlaces {
		if tp.TripID == tripID {
			out = append(out, tp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VisitOrder < out[j].VisitOrder })
	return out
}

func (b *backend) withCount(t domain.Trip) domain.Trip {
	t.PlaceCount = len(b.byTrip(t.ID))
	return t
}

// ---- fixture ---------------------------------------------------------------

type fixture struct {
	svc      *tripsync.Service
	backend  *backend
	cache    *mapCache
	network  *fakeNetwork
	platform *fakePlatform
}

func newFixture(online bool) *fixture {
	f := &fixture{
		backend:  newBackend(),
		cache:    newMapCache(),
		network:  newFakeNetwork(online),
		platform: &fakePlatform{pending: make(map[uuid.UUID]notify.Reminder)},
	}
	scheduler := notify.NewScheduler(f.platform, notify.Config{
		Hour:     9,
		Location: time.UTC,
		Clock:    func() time.Time { return clock },
	}, nil)
	f.svc = tripsync.New(tripsync.Config{
		Trips:      f.backend.tripRepo,
		Places:     f.backend.placeRepo,
		TripPlaces: f.backend.tripPlaceRepo,
		Cache:      f.cache,
		Network:    f.network,
		Reminders:  scheduler,
	})
	return f
}
