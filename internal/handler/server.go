// Package handler implements the HTTP API of the Travel Journal server.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, trip.go, diary.go, etc.) but share the same Server struct
// so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/notify"
	"github.com/pkordes/travel-journal/internal/tripsync"
)

// TripSyncer is the part of the trip synchronization service the trip and
// trip place handlers depend on. Defining it here, in the consumer package,
// lets handler tests inject a mock without a database or cache.
type TripSyncer interface {
	Mode() domain.Mode
	Trips(ctx context.Context) tripsync.Snapshot[domain.Trip]
	WatchTrips(fn func(tripsync.Snapshot[domain.Trip])) func()
	GetTrip(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	CreateTrip(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	UpdateTrip(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	DeleteTrip(ctx context.Context, id uuid.UUID) error

	TripPlaces(ctx context.Context, tripID uuid.UUID) tripsync.Snapshot[domain.TripPlace]
	GetTripPlace(ctx context.Context, tripID, id uuid.UUID) (domain.TripPlace, error)
	CreateTripPlace(ctx context.Context, tp domain.TripPlace) (domain.TripPlace, error)
	AddPlaceToTrip(ctx context.Context, place domain.Place, tp domain.TripPlace) (domain.TripPlace, error)
	UpdateTripPlace(ctx context.Context, tp domain.TripPlace) (domain.TripPlace, error)
	DeleteTripPlace(ctx context.Context, tripID, id uuid.UUID) error
	ReorderTripPlaces(ctx context.Context, tripID uuid.UUID, ids []uuid.UUID) error
}

// PlaceSyncer covers the place catalogue.
type PlaceSyncer interface {
	ListPlaces(ctx context.Context) []domain.Place
	GetPlace(ctx context.Context, id uuid.UUID) (domain.Place, error)
	CreatePlace(ctx context.Context, place domain.Place) (domain.Place, error)
	UpdatePlace(ctx context.Context, place domain.Place) (domain.Place, error)
	DeletePlace(ctx context.Context, id uuid.UUID) error
}

// Maintainer covers the housekeeping endpoints.
type Maintainer interface {
	SyncReminders(ctx context.Context) (notify.SyncResult, error)
	ClearCache(ctx context.Context)
}

// Diarist is the local diary.
type Diarist interface {
	Entries(ctx context.Context) ([]domain.DiaryEntry, error)
	ResolvedEntries(ctx context.Context) ([]domain.ResolvedEntry, error)
	EntryByDate(ctx context.Context, date string) (domain.DiaryEntry, error)
	EntryByID(ctx context.Context, id uuid.UUID) (domain.DiaryEntry, error)
	CreateEntry(ctx context.Context, date, title string) (domain.DiaryEntry, error)
	UpdateEntryTitle(ctx context.Context, id uuid.UUID, title string) (domain.DiaryEntry, error)
	DeleteEntry(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) error
	AddNote(ctx context.Context, date, content string, tripPlaceIDs []uuid.UUID) (domain.DiaryEntry, domain.DiaryNote, error)
	UpdateNote(ctx context.Context, entryID, noteID uuid.UUID, content string, tripPlaceIDs []uuid.UUID) (domain.DiaryNote, error)
	DeleteNote(ctx context.Context, entryID, noteID uuid.UUID) error
	SuggestPlaces(ctx context.Context, date string) ([]domain.TripPlace, error)
}

// ExportServicer defines the export operation the export handler depends on.
type ExportServicer interface {
	Export(ctx context.Context) ([]domain.ExportRow, error)
}

// Deps are the Server's collaborators. A nil dependency leaves its routes
// unregistered.
type Deps struct {
	Trips       TripSyncer
	Places      PlaceSyncer
	Maintenance Maintainer
	Diary       Diarist
	Export      ExportServicer
	Logger      *slog.Logger
}

// Server holds the dependencies shared by every handler.
type Server struct {
	trips       TripSyncer
	places      PlaceSyncer
	maintenance Maintainer
	diary       Diarist
	export      ExportServicer
	log         *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Server{
		trips:       deps.Trips,
		places:      deps.Places,
		maintenance: deps.Maintenance,
		diary:       deps.Diary,
		export:      deps.Export,
		log:         log,
	}
}

// Routes returns the API router. Cross-cutting middleware is applied by the
// caller.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)

	if s.trips != nil {
		r.Get("/status", s.GetStatus)
		r.Route("/trips", func(r chi.Router) {
			r.Get("/", s.ListTrips)
			r.Post("/", s.CreateTrip)
			r.Get("/watch", s.WatchTrips)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetTrip)
				r.Put("/", s.UpdateTrip)
				r.Delete("/", s.DeleteTrip)

				r.Get("/places", s.ListTripPlaces)
				r.Post("/places", s.CreateTripPlace)
				r.Put("/places/order", s.ReorderTripPlaces)
				r.Get("/places/{tpid}", s.GetTripPlace)
				r.Put("/places/{tpid}", s.UpdateTripPlace)
				r.Delete("/places/{tpid}", s.DeleteTripPlace)
			})
		})
	}

	if s.places != nil {
		r.Route("/places", func(r chi.Router) {
			r.Get("/", s.ListPlaces)
			r.Post("/", s.CreatePlace)
			r.Get("/{id}", s.GetPlace)
			r.Put("/{id}", s.UpdatePlace)
			r.Delete("/{id}", s.DeletePlace)
		})
	}

	if s.maintenance != nil {
		r.Delete("/cache", s.ClearCache)
		r.Post("/reminders/sync", s.SyncReminders)
	}

	if s.diary != nil {
		r.Route("/diary", func(r chi.Router) {
			r.Get("/", s.ListDiaryEntries)
			r.Post("/", s.CreateDiaryEntry)
			r.Delete("/", s.DeleteAllDiaryEntries)
			r.Get("/suggestions", s.SuggestDiaryPlaces)
			r.Get("/dates/{date}", s.GetDiaryEntryByDate)
			r.Post("/dates/{date}/notes", s.AddDiaryNote)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetDiaryEntry)
				r.Put("/", s.UpdateDiaryEntry)
				r.Delete("/", s.DeleteDiaryEntry)
				r.Put("/notes/{noteid}", s.UpdateDiaryNote)
				r.Delete("/notes/{noteid}", s.DeleteDiaryNote)
			})
		})
	}

	if s.export != nil {
		r.Get("/export", s.GetExport)
	}

	return r
}
