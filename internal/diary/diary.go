// Package diary stores the local travel diary: date-keyed entries holding
// free-text notes that may point at trip places.
//
// The whole diary is one JSON list under a single key of the local
// key-value store. References from notes into trip places are soft: a note
// whose trip place has since been deleted keeps the id, and the resolved
// view simply leaves it out.
package diary

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/storage"
)

const entriesKey = "diary_entries"

// TripPlaceSource lists the trip places notes can be resolved against.
type TripPlaceSource interface {
	AllTripPlaces(ctx context.Context) []domain.TripPlace
}

// Service reads and writes diary entries.
type Service struct {
	kv     *storage.KV
	places TripPlaceSource
	now    func() time.Time

	// mu serializes read-modify-write cycles on the single diary key.
	mu sync.Mutex
}

// NewService constructs a Service over kv.
func NewService(kv *storage.KV, places TripPlaceSource) *Service {
	return &Service{kv: kv, places: places, now: time.Now}
}

// Entries returns every entry, newest date first.
func (s *Service) Entries(ctx context.Context) ([]domain.DiaryEntry, error) {
	entries, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("diary.Service.Entries: %w", err)
	}
	sortEntries(entries)
	return entries, nil
}

// EntryByDate returns the first entry recorded for date.
func (s *Service) EntryByDate(ctx context.Context, date string) (domain.DiaryEntry, error) {
	if _, err := domain.ParseDiaryDate(date); err != nil {
		return domain.DiaryEntry{}, err
	}
	entries, err := s.load(ctx)
	if err != nil {
		return domain.DiaryEntry{}, fmt.Errorf("diary.Service.EntryByDate: %w", err)
	}
	if i := indexByDate(entries, strings.TrimSpace(date)); i >= 0 {
		return entries[i], nil
	}
	return domain.DiaryEntry{}, fmt.Errorf("diary.Service.EntryByDate %s: %w", date, domain.ErrNotFound)
}

// EntryByID returns the entry with id.
func (s *Service) EntryByID(ctx context.Context, id uuid.UUID) (domain.DiaryEntry, error) {
	entries, err := s.load(ctx)
	if err != nil {
		return domain.DiaryEntry{}, fmt.Errorf("diary.Service.EntryByID: %w", err)
	}
	if i := indexByID(entries, id); i >= 0 {
		return entries[i], nil
	}
	return domain.DiaryEntry{}, fmt.Errorf("diary.Service.EntryByID %s: %w", id, domain.ErrNotFound)
}

// CreateEntry adds an empty entry for date.
func (s *Service) CreateEntry(ctx context.Context, date, title string) (domain.DiaryEntry, error) {
	if _, err := domain.ParseDiaryDate(date); err != nil {
		return domain.DiaryEntry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return domain.DiaryEntry{}, fmt.Errorf("diary.Service.CreateEntry: %w", err)
	}
	entry, err := s.newEntry(date, title)
	if err != nil {
		return domain.DiaryEntry{}, fmt.Errorf("diary.Service.CreateEntry: %w", err)
	}
	entries = append(entries, entry)
	if err := s.save(ctx, entries); err != nil {
		return domain.DiaryEntry{}, fmt.Errorf("diary.Service.CreateEntry: %w", err)
	}
	return entry, nil
}

// UpdateEntryTitle changes the title of an entry.
func (s *Service) UpdateEntryTitle(ctx context.Context, id uuid.UUID, title string) (domain.DiaryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return domain.DiaryEntry{}, fmt.Errorf("diary.Service.UpdateEntryTitle: %w", err)
	}
	i := indexByID(entries, id)
	if i < 0 {
		return domain.DiaryEntry{}, fmt.Errorf("diary.Service.UpdateEntryTitle %s: %w", id, domain.ErrNotFound)
	}
	entries[i].Title = strings.TrimSpace(title)
	entries[i].UpdatedAt = s.now().UTC()
	if err := s.save(ctx, entries); err != nil {
		return domain.DiaryEntry{}, fmt.Errorf("diary.Service.UpdateEntryTitle: %w", err)
	}
	return entries[i], nil
}

// DeleteEntry removes an entry and its notes.
func (s *Service) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("diary.Service.DeleteEntry: %w", err)
	}
	i := indexByID(entries, id)
	if i < 0 {
		return fmt.Errorf("diary.Service.DeleteEntry %s: %w", id, domain.ErrNotFound)
	}
	entries = append(entries[:i], entries[i+1:]...)
	if err := s.save(ctx, entries); err != nil {
		return fmt.Errorf("diary.Service.DeleteEntry: %w", err)
	}
	return nil
}

// DeleteAll removes the whole diary.
func (s *Service) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, entriesKey); err != nil {
		return fmt.Errorf("diary.Service.DeleteAll: %w", err)
	}
	return nil
}

// AddNote appends a note to the entry for date, creating the entry first if
// the day has none yet. It returns the entry as saved and the new note.
func (s *Service) AddNote(ctx context.Context, date, content string, tripPlaceIDs []uuid.UUID) (domain.DiaryEntry, domain.DiaryNote, error) {
	if _, err := domain.ParseDiaryDate(date); err != nil {
		return domain.DiaryEntry{}, domain.DiaryNote{}, err
	}
	if err := domain.ValidateNoteContent(content); err != nil {
		return domain.DiaryEntry{}, domain.DiaryNote{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return domain.DiaryEntry{}, domain.DiaryNote{}, fmt.Errorf("diary.Service.AddNote: %w", err)
	}
	i := indexByDate(entries, strings.TrimSpace(date))
	if i < 0 {
		entry, err := s.newEntry(date, "")
		if err != nil {
			return domain.DiaryEntry{}, domain.DiaryNote{}, fmt.Errorf("diary.Service.AddNote: %w", err)
		}
		entries = append(entries, entry)
		i = len(entries) - 1
	}

	id, err := uuid.NewV7()
	if err != nil {
		return domain.DiaryEntry{}, domain.DiaryNote{}, fmt.Errorf("diary.Service.AddNote: new id: %w", err)
	}
	now := s.now().UTC()
	note := domain.DiaryNote{
		ID:           id,
		Content:      strings.TrimSpace(content),
		TripPlaceIDs: dedupe(tripPlaceIDs),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	entries[i].Notes = append(entries[i].Notes, note)
	entries[i].UpdatedAt = now

	if err := s.save(ctx, entries); err != nil {
		return domain.DiaryEntry{}, domain.DiaryNote{}, fmt.Errorf("diary.Service.AddNote: %w", err)
	}
	return entries[i], note, nil
}

// UpdateNote replaces the content and trip place references of a note.
func (s *Service) UpdateNote(ctx context.Context, entryID, noteID uuid.UUID, content string, tripPlaceIDs []uuid.UUID) (domain.DiaryNote, error) {
	if err := domain.ValidateNoteContent(content); err != nil {
		return domain.DiaryNote{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return domain.DiaryNote{}, fmt.Errorf("diary.Service.UpdateNote: %w", err)
	}
	i, j, err := locateNote(entries, entryID, noteID)
	if err != nil {
		return domain.DiaryNote{}, fmt.Errorf("diary.Service.UpdateNote: %w", err)
	}

	now := s.now().UTC()
	note := &entries[i].Notes[j]
	note.Content = strings.TrimSpace(content)
	note.TripPlaceIDs = dedupe(tripPlaceIDs)
	note.UpdatedAt = now
	entries[i].UpdatedAt = now

	if err := s.save(ctx, entries); err != nil {
		return domain.DiaryNote{}, fmt.Errorf("diary.Service.UpdateNote: %w", err)
	}
	return *note, nil
}

// DeleteNote removes a note. The entry stays even when it becomes empty.
func (s *Service) DeleteNote(ctx context.Context, entryID, noteID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("diary.Service.DeleteNote: %w", err)
	}
	i, j, err := locateNote(entries, entryID, noteID)
	if err != nil {
		return fmt.Errorf("diary.Service.DeleteNote: %w", err)
	}
	entries[i].Notes = append(entries[i].Notes[:j], entries[i].Notes[j+1:]...)
	entries[i].UpdatedAt = s.now().UTC()

	if err := s.save(ctx, entries); err != nil {
		return fmt.Errorf("diary.Service.DeleteNote: %w", err)
	}
	return nil
}

// ResolvedEntries returns every entry with each note joined to the trip
// places it references. References that no longer resolve are omitted.
func (s *Service) ResolvedEntries(ctx context.Context) ([]domain.ResolvedEntry, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]domain.TripPlace)
	for _, tp := range s.places.AllTripPlaces(ctx) {
		byID[tp.ID] = tp
	}

	out := make([]domain.ResolvedEntry, 0, len(entries))
	for _, e := range entries {
		notes := make([]domain.ResolvedNote, 0, len(e.Notes))
		for _, n := range e.Notes {
			places := []domain.TripPlace{}
			for _, id := range n.TripPlaceIDs {
				if tp, ok := byID[id]; ok {
					places = append(places, tp)
				}
			}
			notes = append(notes, domain.ResolvedNote{DiaryNote: n, Places: places})
		}
		out = append(out, domain.ResolvedEntry{
			ID:        e.ID,
			Date:      e.Date,
			Title:     e.Title,
			Notes:     notes,
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.UpdatedAt,
		})
	}
	return out, nil
}

// SuggestPlaces returns the trip places whose stay covers date, ordered by
// arrival. They are the natural candidates to reference from that day's notes.
func (s *Service) SuggestPlaces(ctx context.Context, date string) ([]domain.TripPlace, error) {
	day, err := domain.ParseDiaryDate(date)
	if err != nil {
		return nil, err
	}
	out := []domain.TripPlace{}
	for _, tp := range s.places.AllTripPlaces(ctx) {
		if tp.Covers(day) {
			out = append(out, tp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ArrivalDate.Before(*out[j].ArrivalDate) })
	return out, nil
}

// ---- storage ---------------------------------------------------------------

func (s *Service) load(ctx context.Context) ([]domain.DiaryEntry, error) {
	entries, err := storage.GetJSON[[]domain.DiaryEntry](ctx, s.kv, entriesKey)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.DiaryEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.DiaryEntry{}
	}
	return entries, nil
}

func (s *Service) save(ctx context.Context, entries []domain.DiaryEntry) error {
	return storage.SetJSON(ctx, s.kv, entriesKey, entries)
}

func (s *Service) newEntry(date, title string) (domain.DiaryEntry, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return domain.DiaryEntry{}, fmt.Errorf("new id: %w", err)
	}
	now := s.now().UTC()
	return domain.DiaryEntry{
		ID:        id,
		Date:      strings.TrimSpace(date),
		Title:     strings.TrimSpace(title),
		Notes:     []domain.DiaryNote{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ---- helpers ---------------------------------------------------------------

func sortEntries(entries []domain.DiaryEntry) {
	// DateLayout sorts lexically in date order.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date > entries[j].Date
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}

func indexByDate(entries []domain.DiaryEntry, date string) int {
	for i, e := range entries {
		if e.Date == date {
			return i
		}
	}
	return -1
}

func indexByID(entries []domain.DiaryEntry, id uuid.UUID) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func locateNote(entries []domain.DiaryEntry, entryID, noteID uuid.UUID) (int, int, error) {
	i := indexByID(entries, entryID)
	if i < 0 {
		return 0, 0, fmt.Errorf("entry %s: %w", entryID, domain.ErrNotFound)
	}
	for j, n := range entries[i].Notes {
		if n.ID == noteID {
			return i, j, nil
		}
	}
	return 0, 0, fmt.Errorf("note %s: %w", noteID, domain.ErrNotFound)
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != uuid.Nil && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
