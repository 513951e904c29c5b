package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/handler"
)

// mockPlaceSyncer is a test double for handler.PlaceSyncer.
type mockPlaceSyncer struct {
	list   func(ctx context.Context) []domain.Place
	get    func(ctx context.Context, id uuid.UUID) (domain.Place, error)
	create func(ctx context.Context, p domain.Place) (domain.Place, error)
	update func(ctx context.Context, p domain.Place) (domain.Place, error)
	delete func(ctx context.Context, id uuid.UUID) error
}

func (m *mockPlaceSyncer) ListPlaces(ctx context.Context) []domain.Place { return m.list(ctx) }
func (m *mockPlaceSyncer) GetPlace(ctx context.Context, id uuid.UUID) (domain.Place, error) {
	return m.get(ctx, id)
}
func (m *mockPlaceSyncer) CreatePlace(ctx context.Context, p domain.Place) (domain.Place, error) {
	return m.create(ctx, p)
}
func (m *mockPlaceSyncer) UpdatePlace(ctx context.Context, p domain.Place) (domain.Place, error) {
	return m.update(ctx, p)
}
func (m *mockPlaceSyncer) DeletePlace(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}

var _ handler.PlaceSyncer = (*mockPlaceSyncer)(nil)

func TestListPlaces_returns200(t *testing.T) {
	svc := &mockPlaceSyncer{
		list: func(context.Context) []domain.Place {
			return []domain.Place{{ID: uuid.New(), Name: "Bern"}}
		},
	}

	rec := serve(t, handler.Deps{Places: svc}, http.MethodGet, "/places", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.Place
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "Bern", got[0].Name)
}

func TestCreatePlace_returns201(t *testing.T) {
	svc := &mockPlaceSyncer{
		create: func(_ context.Context, p domain.Place) (domain.Place, error) {
			assert.Equal(t, uuid.Nil, p.ID)
			p.ID = uuid.New()
			return p, nil
		},
	}

	rec := serve(t, handler.Deps{Places: svc}, http.MethodPost, "/places",
		jsonBody(t, handler.PlaceRequest{Name: "Bern", Latitude: 46.95, Longitude: 7.45}))

	require.Equal(t, http.StatusCreated, rec.Code)
	var got domain.Place
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.NotEqual(t, uuid.Nil, got.ID)
}

func TestCreatePlace_outOfRange_returns422(t *testing.T) {
	svc := &mockPlaceSyncer{
		create: func(_ context.Context, p domain.Place) (domain.Place, error) {
			return domain.Place{}, p.Validate()
		},
	}

	rec := serve(t, handler.Deps{Places: svc}, http.MethodPost, "/places",
		jsonBody(t, handler.PlaceRequest{Name: "Nowhere", Latitude: 123}))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "latitude must be between -90 and 90", decodeError(t, rec).Message)
}

func TestGetPlace_notFound_returns404(t *testing.T) {
	svc := &mockPlaceSyncer{
		get: func(context.Context, uuid.UUID) (domain.Place, error) { return domain.Place{}, domain.ErrNotFound },
	}

	rec := serve(t, handler.Deps{Places: svc}, http.MethodGet, "/places/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdatePlace_passesPathID(t *testing.T) {
	id := uuid.New()
	svc := &mockPlaceSyncer{
		update: func(_ context.Context, p domain.Place) (domain.Place, error) {
			assert.Equal(t, id, p.ID)
			return p, nil
		},
	}

	rec := serve(t, handler.Deps{Places: svc}, http.MethodPut, "/places/"+id.String(),
		jsonBody(t, handler.PlaceRequest{Name: "Bern"}))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeletePlace_offline_returns503(t *testing.T) {
	svc := &mockPlaceSyncer{
		delete: func(context.Context, uuid.UUID) error { return domain.ErrOffline },
	}

	rec := serve(t, handler.Deps{Places: svc}, http.MethodDelete, "/places/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDeletePlace_returns204(t *testing.T) {
	svc := &mockPlaceSyncer{
		delete: func(context.Context, uuid.UUID) error { return nil },
	}

	rec := serve(t, handler.Deps{Places: svc}, http.MethodDelete, "/places/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
