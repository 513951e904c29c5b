package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/handler"
)

// mockDiarist is a test double for handler.Diarist.
type mockDiarist struct {
	entries         func(ctx context.Context) ([]domain.DiaryEntry, error)
	resolvedEntries func(ctx context.Context) ([]domain.ResolvedEntry, error)
	entryByDate     func(ctx context.Context, date string) (domain.DiaryEntry, error)
	entryByID       func(ctx context.Context, id uuid.UUID) (domain.DiaryEntry, error)
	createEntry     func(ctx context.Context, date, title string) (domain.DiaryEntry, error)
	updateTitle     func(ctx context.Context, id uuid.UUID, title string) (domain.DiaryEntry, error)
	deleteEntry     func(ctx context.Context, id uuid.UUID) error
	deleteAll       func(ctx context.Context) error
	addNote         func(ctx context.Context, date, content string, ids []uuid.UUID) (domain.DiaryEntry, domain.DiaryNote, error)
	updateNote      func(ctx context.Context, entryID, noteID uuid.UUID, content string, ids []uuid.UUID) (domain.DiaryNote, error)
	deleteNote      func(ctx context.Context, entryID, noteID uuid.UUID) error
	suggest         func(ctx context.Context, date string) ([]domain.TripPlace, error)
}

func (m *mockDiarist) Entries(ctx context.Context) ([]domain.DiaryEntry, error) {
	return m.entries(ctx)
}
func (m *mockDiarist) ResolvedEntries(ctx context.Context) ([]domain.ResolvedEntry, error) {
	return m.resolvedEntries(ctx)
}
func (m *mockDiarist) EntryByDate(ctx context.Context, date string) (domain.DiaryEntry, error) {
	return m.entryByDate(ctx, date)
}
func (m *mockDiarist) EntryByID(ctx context.Context, id uuid.UUID) (domain.DiaryEntry, error) {
	return m.entryByID(ctx, id)
}
func (m *mockDiarist) CreateEntry(ctx context.Context, date, title string) (domain.DiaryEntry, error) {
	return m.createEntry(ctx, date, title)
}
func (m *mockDiarist) UpdateEntryTitle(ctx context.Context, id uuid.UUID, title string) (domain.DiaryEntry, error) {
	return m.updateTitle(ctx, id, title)
}
func (m *mockDiarist) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	return m.deleteEntry(ctx, id)
}
func (m *mockDiarist) DeleteAll(ctx context.Context) error { return m.deleteAll(ctx) }
func (m *mockDiarist) AddNote(ctx context.Context, date, content string, ids []uuid.UUID) (domain.DiaryEntry, domain.DiaryNote, error) {
	return m.addNote(ctx, date, content, ids)
}
func (m *mockDiarist) UpdateNote(ctx context.Context, entryID, noteID uuid.UUID, content string, ids []uuid.UUID) (domain.DiaryNote, error) {
	return m.updateNote(ctx, entryID, noteID, content, ids)
}
func (m *mockDiarist) DeleteNote(ctx context.Context, entryID, noteID uuid.UUID) error {
	return m.deleteNote(ctx, entryID, noteID)
}
func (m *mockDiarist) SuggestPlaces(ctx context.Context, date string) ([]domain.TripPlace, error) {
	return m.suggest(ctx, date)
}

var _ handler.Diarist = (*mockDiarist)(nil)

func TestListDiaryEntries_plainAndResolved(t *testing.T) {
	d := &mockDiarist{
		entries: func(context.Context) ([]domain.DiaryEntry, error) {
			return []domain.DiaryEntry{{ID: uuid.New(), Date: "2025-06-03"}}, nil
		},
		resolvedEntries: func(context.Context) ([]domain.ResolvedEntry, error) {
			return []domain.ResolvedEntry{{
				ID:   uuid.New(),
				Date: "2025-06-04",
				Notes: []domain.ResolvedNote{{
					DiaryNote: domain.DiaryNote{Content: "fondue"},
					Places:    []domain.TripPlace{{Place: domain.Place{Name: "Bern"}}},
				}},
			}}, nil
		},
	}

	rec := serve(t, handler.Deps{Diary: d}, http.MethodGet, "/diary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var plain []domain.DiaryEntry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&plain))
	require.Len(t, plain, 1)
	assert.Equal(t, "2025-06-03", plain[0].Date)

	rec = serve(t, handler.Deps{Diary: d}, http.MethodGet, "/diary?resolved=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resolved []domain.ResolvedEntry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resolved))
	require.Len(t, resolved, 1)
	assert.Equal(t, "Bern", resolved[0].Notes[0].Places[0].Place.Name)
}

func TestCreateDiaryEntry_badDate_returns422(t *testing.T) {
	d := &mockDiarist{
		createEntry: func(_ context.Context, date, _ string) (domain.DiaryEntry, error) {
			_, err := domain.ParseDiaryDate(date)
			return domain.DiaryEntry{}, err
		},
	}

	rec := serve(t, handler.Deps{Diary: d}, http.MethodPost, "/diary",
		jsonBody(t, handler.DiaryEntryRequest{Date: "June 3"}))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "date must be formatted as YYYY-MM-DD", decodeError(t, rec).Message)
}

func TestAddDiaryNote_usesPathDate(t *testing.T) {
	ref := uuid.New()
	d := &mockDiarist{
		addNote: func(_ context.Context, date, content string, ids []uuid.UUID) (domain.DiaryEntry, domain.DiaryNote, error) {
			assert.Equal(t, "2025-06-03", date)
			assert.Equal(t, "Matterhorn", content)
			assert.Equal(t, []uuid.UUID{ref}, ids)
			note := domain.DiaryNote{ID: uuid.New(), Content: content, TripPlaceIDs: ids}
			return domain.DiaryEntry{ID: uuid.New(), Date: date, Notes: []domain.DiaryNote{note}}, note, nil
		},
	}

	rec := serve(t, handler.Deps{Diary: d}, http.MethodPost, "/diary/dates/2025-06-03/notes",
		jsonBody(t, handler.DiaryNoteRequest{Content: "Matterhorn", TripPlaceIDs: []uuid.UUID{ref}}))

	require.Equal(t, http.StatusCreated, rec.Code)
	var got handler.DiaryNoteCreated
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "2025-06-03", got.Entry.Date)
	assert.Equal(t, "Matterhorn", got.Note.Content)
}

func TestGetDiaryEntryByDate_notFound_returns404(t *testing.T) {
	d := &mockDiarist{
		entryByDate: func(context.Context, string) (domain.DiaryEntry, error) {
			return domain.DiaryEntry{}, domain.ErrNotFound
		},
	}

	rec := serve(t, handler.Deps{Diary: d}, http.MethodGet, "/diary/dates/2025-06-03", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "diary entry not found", decodeError(t, rec).Message)
}

func TestUpdateDiaryEntry_title(t *testing.T) {
	id := uuid.New()
	d := &mockDiarist{
		updateTitle: func(_ context.Context, got uuid.UUID, title string) (domain.DiaryEntry, error) {
			assert.Equal(t, id, got)
			return domain.DiaryEntry{ID: got, Title: title}, nil
		},
	}

	rec := serve(t, handler.Deps{Diary: d}, http.MethodPut, "/diary/"+id.String(),
		jsonBody(t, handler.DiaryTitleRequest{Title: "Lake day"}))

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.DiaryEntry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "Lake day", got.Title)
}

func TestUpdateAndDeleteDiaryNote(t *testing.T) {
	entryID, noteID := uuid.New(), uuid.New()
	d := &mockDiarist{
		updateNote: func(_ context.Context, e, n uuid.UUID, content string, _ []uuid.UUID) (domain.DiaryNote, error) {
			assert.Equal(t, entryID, e)
			assert.Equal(t, noteID, n)
			return domain.DiaryNote{ID: n, Content: content}, nil
		},
		deleteNote: func(_ context.Context, e, n uuid.UUID) error {
			assert.Equal(t, entryID, e)
			return domain.ErrNotFound
		},
	}
	path := "/diary/" + entryID.String() + "/notes/" + noteID.String()

	rec := serve(t, handler.Deps{Diary: d}, http.MethodPut, path, jsonBody(t, handler.DiaryNoteRequest{Content: "final"}))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, handler.Deps{Diary: d}, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "diary note not found", decodeError(t, rec).Message)
}

func TestDeleteDiaryEntries(t *testing.T) {
	var all, one int
	d := &mockDiarist{
		deleteAll:   func(context.Context) error { all++; return nil },
		deleteEntry: func(context.Context, uuid.UUID) error { one++; return nil },
	}

	rec := serve(t, handler.Deps{Diary: d}, http.MethodDelete, "/diary", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = serve(t, handler.Deps{Diary: d}, http.MethodDelete, "/diary/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, 1, all)
	assert.Equal(t, 1, one)
}

func TestSuggestDiaryPlaces(t *testing.T) {
	d := &mockDiarist{
		suggest: func(_ context.Context, date string) ([]domain.TripPlace, error) {
			assert.Equal(t, "2025-06-04", date)
			return []domain.TripPlace{{Place: domain.Place{Name: "Aosta"}}}, nil
		},
	}

	rec := serve(t, handler.Deps{Diary: d}, http.MethodGet, "/diary/suggestions?date=2025-06-04", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Aosta")
}

func TestSuggestDiaryPlaces_missingDate_returns422(t *testing.T) {
	rec := serve(t, handler.Deps{Diary: &mockDiarist{}}, http.MethodGet, "/diary/suggestions", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDiary_storageFailure_returns500(t *testing.T) {
	d := &mockDiarist{
		entries: func(context.Context) ([]domain.DiaryEntry, error) {
			return nil, errors.New("disk I/O error")
		},
	}

	rec := serve(t, handler.Deps{Diary: d}, http.MethodGet, "/diary", nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decodeError(t, rec).Code)
}
