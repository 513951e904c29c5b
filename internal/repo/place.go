package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/travel-journal/internal/domain"
)

// PlaceRepo defines the persistence operations for Places.
type PlaceRepo interface {
	// Create inserts a new place and returns the persisted record.
	Create(ctx context.Context, place domain.Place) (domain.Place, error)

	// GetByID retrieves a single place by its UUID.
	// Returns an error wrapping domain.ErrNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Place, error)

	// List returns all places ordered by name.
	List(ctx context.Context) ([]domain.Place, error)

	// Update overwrites the name and coordinates of a place.
	Update(ctx context.Context, place domain.Place) (domain.Place, error)

	// Delete removes a place; its trip associations are removed by the schema.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgPlaceRepo is the Postgres implementation of PlaceRepo.
type pgPlaceRepo struct {
	db db
}

// NewPlaceRepo constructs a PlaceRepo backed by the provided db connection.
func NewPlaceRepo(db db) PlaceRepo {
	return &pgPlaceRepo{db: db}
}

const placeColumns = `id, name, latitude, longitude, created_at`

func (r *pgPlaceRepo) Create(ctx context.Context, place domain.Place) (domain.Place, error) {
	const q = `
		INSERT INTO places (name, latitude, longitude)
		VALUES (@name, @latitude, @longitude)
		RETURNING ` + placeColumns

	args := pgx.NamedArgs{
		"name":      place.Name,
		"latitude":  place.Latitude,
		"longitude": place.Longitude,
	}

	result, err := scanPlace(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Place{}, domain.NewRemoteError("repo.PlaceRepo.Create", err)
	}
	return result, nil
}

func (r *pgPlaceRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Place, error) {
	const q = `SELECT ` + placeColumns + ` FROM places WHERE id = @id`

	result, err := scanPlace(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Place{}, domain.NewRemoteError("repo.PlaceRepo.GetByID", err)
	}
	return result, nil
}

func (r *pgPlaceRepo) List(ctx context.Context) ([]domain.Place, error) {
	const q = `SELECT ` + placeColumns + ` FROM places ORDER BY name, id`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, domain.NewRemoteError("repo.PlaceRepo.List", err)
	}
	defer rows.Close()

	places := []domain.Place{}
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, domain.NewRemoteError("repo.PlaceRepo.List: scan", err)
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewRemoteError("repo.PlaceRepo.List: rows", err)
	}
	return places, nil
}

func (r *pgPlaceRepo) Update(ctx context.Context, place domain.Place) (domain.Place, error) {
	const q = `
		UPDATE places
		SET name      = @name,
		    latitude  = @latitude,
		    longitude = @longitude
		WHERE id = @id
		RETURNING ` + placeColumns

	args := pgx.NamedArgs{
		"id":        place.ID,
		"name":      place.Name,
		"latitude":  place.Latitude,
		"longitude": place.Longitude,
	}

	result, err := scanPlace(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Place{}, domain.NewRemoteError("repo.PlaceRepo.Update", err)
	}
	return result, nil
}

func (r *pgPlaceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM places WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return domain.NewRemoteError("repo.PlaceRepo.Delete", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewRemoteError("repo.PlaceRepo.Delete", domain.ErrNotFound)
	}
	return nil
}

func scanPlace(s scanner) (domain.Place, error) {
	var (
		p  domain.Place
		id pgtype.UUID
	)
	err := s.Scan(&id, &p.Name, &p.Latitude, &p.Longitude, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Place{}, domain.ErrNotFound
		}
		return domain.Place{}, err
	}
	p.ID = uuid.UUID(id.Bytes)
	return p, nil
}
