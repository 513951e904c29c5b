package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/travel-journal/internal/domain"
)

// TripPlaceRepo defines the persistence operations for the trip_places join
// table. Every read joins the referenced place row. Single-row operations are
// scoped by tripID to enforce ownership.
type TripPlaceRepo interface {
	// Create appends a trip place at the end of its trip (visit_order = count)
	// and returns the persisted record with the place joined.
	Create(ctx context.Context, tp domain.TripPlace) (domain.TripPlace, error)

	// GetByID retrieves a single trip place, scoped to the given tripID.
	GetByID(ctx context.Context, tripID, id uuid.UUID) (domain.TripPlace, error)

	// ListByTripID returns a trip's places ordered by visit_order ascending.
	ListByTripID(ctx context.Context, tripID uuid.UUID) ([]domain.TripPlace, error)

	// ListByPlaceID returns every trip place, across all trips, that visits placeID.
	ListByPlaceID(ctx context.Context, placeID uuid.UUID) ([]domain.TripPlace, error)

	// ListWithAlerts returns every trip place, across all trips, that has its
	// alert flag set and an arrival date.
	ListWithAlerts(ctx context.Context) ([]domain.TripPlace, error)

	// Update overwrites the dates, alert flag, and note of a trip place.
	// visit_order is only changed through Reorder.
	Update(ctx context.Context, tp domain.TripPlace) (domain.TripPlace, error)

	// Delete removes a trip place and shifts the later ones down so the
	// trip's visit_order values stay contiguous from 0.
	Delete(ctx context.Context, tripID, id uuid.UUID) error

	// Reorder sets visit_order to each id's index in ids. ids must be a
	// permutation of the trip's current trip place ids.
	Reorder(ctx context.Context, tripID uuid.UUID, ids []uuid.UUID) error
}

// pgTripPlaceRepo is the Postgres implementation of TripPlaceRepo.
type pgTripPlaceRepo struct {
	db db
}

// NewTripPlaceRepo constructs a TripPlaceRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripPlaceRepo(db db) TripPlaceRepo {
	return &pgTripPlaceRepo{db: db}
}

const tripPlaceSelect = `
	SELECT tp.id, tp.trip_id, tp.place_id, tp.visit_order, tp.arrival_date,
	       tp.departure_date, tp.is_alert_active, tp.note, tp.created_at,
	       p.name, p.latitude, p.longitude, p.created_at
	FROM %s tp
	JOIN places p ON p.id = tp.place_id`

func (r *pgTripPlaceRepo) Create(ctx context.Context, tp domain.TripPlace) (domain.TripPlace, error) {
	q := `
		WITH tp AS (
			INSERT INTO trip_places (trip_id, place_id, visit_order, arrival_date, departure_date, is_alert_active, note)
			VALUES (
				@trip_id, @place_id,
				(SELECT COALESCE(MAX(visit_order) + 1, 0) FROM trip_places WHERE trip_id = @trip_id),
				@arrival_date, @departure_date, @is_alert_active, @note)
			RETURNING *
		)` + fmt.Sprintf(tripPlaceSelect, "tp")

	args := pgx.NamedArgs{
		"trip_id":         tp.TripID,
		"place_id":        tp.PlaceID,
		"arrival_date":    tp.ArrivalDate,
		"departure_date":  tp.DepartureDate,
		"is_alert_active": tp.IsAlertActive,
		"note":            tp.Note,
	}

	result, err := scanTripPlace(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.TripPlace{}, domain.NewRemoteError("repo.TripPlaceRepo.Create", missingReference(err))
	}
	return result, nil
}

// foreignKeyViolation is the Postgres SQLSTATE for a dangling reference.
const foreignKeyViolation = "23503"

// missingReference turns an insert that points at a trip or place that does
// not exist into ErrNotFound.
func missingReference(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != foreignKeyViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case "trip_places_trip_id_fkey":
		return fmt.Errorf("trip: %w", domain.ErrNotFound)
	case "trip_places_place_id_fkey":
		return fmt.Errorf("place: %w", domain.ErrNotFound)
	}
	return err
}

func (r *pgTripPlaceRepo) GetByID(ctx context.Context, tripID, id uuid.UUID) (domain.TripPlace, error) {
	q := fmt.Sprintf(tripPlaceSelect, "trip_places") + ` WHERE tp.id = @id AND tp.trip_id = @trip_id`

	result, err := scanTripPlace(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "trip_id": tripID}))
	if err != nil {
		return domain.TripPlace{}, domain.NewRemoteError("repo.TripPlaceRepo.GetByID", err)
	}
	return result, nil
}

func (r *pgTripPlaceRepo) ListByTripID(ctx context.Context, tripID uuid.UUID) ([]domain.TripPlace, error) {
	q := fmt.Sprintf(tripPlaceSelect, "trip_places") + ` WHERE tp.trip_id = @trip_id ORDER BY tp.visit_order`

	result, err := r.list(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, domain.NewRemoteError("repo.TripPlaceRepo.ListByTripID", err)
	}
	return result, nil
}

func (r *pgTripPlaceRepo) ListByPlaceID(ctx context.Context, placeID uuid.UUID) ([]domain.TripPlace, error) {
	q := fmt.Sprintf(tripPlaceSelect, "trip_places") + ` WHERE tp.place_id = @place_id ORDER BY tp.trip_id, tp.visit_order`

	result, err := r.list(ctx, q, pgx.NamedArgs{"place_id": placeID})
	if err != nil {
		return nil, domain.NewRemoteError("repo.TripPlaceRepo.ListByPlaceID", err)
	}
	return result, nil
}

func (r *pgTripPlaceRepo) ListWithAlerts(ctx context.Context) ([]domain.TripPlace, error) {
	q := fmt.Sprintf(tripPlaceSelect, "trip_places") + `
		WHERE tp.is_alert_active AND tp.arrival_date IS NOT NULL
		ORDER BY tp.arrival_date, tp.id`

	result, err := r.list(ctx, q, pgx.NamedArgs{})
	if err != nil {
		return nil, domain.NewRemoteError("repo.TripPlaceRepo.ListWithAlerts", err)
	}
	return result, nil
}

func (r *pgTripPlaceRepo) list(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.TripPlace, error) {
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.TripPlace{}
	for rows.Next() {
		tp, err := scanTripPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, tp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *pgTripPlaceRepo) Update(ctx context.Context, tp domain.TripPlace) (domain.TripPlace, error) {
	q := `
		WITH tp AS (
			UPDATE trip_places
			SET arrival_date    = @arrival_date,
			    departure_date  = @departure_date,
			    is_alert_active = @is_alert_active,
			    note            = @note
			WHERE id = @id AND trip_id = @trip_id
			RETURNING *
		)` + fmt.Sprintf(tripPlaceSelect, "tp")

	args := pgx.NamedArgs{
		"id":              tp.ID,
		"trip_id":         tp.TripID,
		"arrival_date":    tp.ArrivalDate,
		"departure_date":  tp.DepartureDate,
		"is_alert_active": tp.IsAlertActive,
		"note":            tp.Note,
	}

	result, err := scanTripPlace(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.TripPlace{}, domain.NewRemoteError("repo.TripPlaceRepo.Update", err)
	}
	return result, nil
}

func (r *pgTripPlaceRepo) Delete(ctx context.Context, tripID, id uuid.UUID) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var removed int
		err := tx.QueryRow(ctx,
			`DELETE FROM trip_places WHERE id = @id AND trip_id = @trip_id RETURNING visit_order`,
			pgx.NamedArgs{"id": id, "trip_id": tripID},
		).Scan(&removed)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE trip_places SET visit_order = visit_order - 1 WHERE trip_id = @trip_id AND visit_order > @removed`,
			pgx.NamedArgs{"trip_id": tripID, "removed": removed},
		)
		return err
	})
	if err != nil {
		return domain.NewRemoteError("repo.TripPlaceRepo.Delete", err)
	}
	return nil
}

// Reorder runs one UPDATE per row whose position changes, all inside a single
// transaction, so a failure part-way leaves the previous order intact.
func (r *pgTripPlaceRepo) Reorder(ctx context.Context, tripID uuid.UUID, ids []uuid.UUID) error {
	var invalid error
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		current, err := currentOrder(ctx, tx, tripID)
		if err != nil {
			return err
		}
		if invalid = checkPermutation(current, ids); invalid != nil {
			return invalid
		}

		for index, id := range ids {
			if current[id] == index {
				continue
			}
			_, err := tx.Exec(ctx,
				`UPDATE trip_places SET visit_order = @visit_order WHERE id = @id AND trip_id = @trip_id`,
				pgx.NamedArgs{"visit_order": index, "id": id, "trip_id": tripID},
			)
			if err != nil {
				return fmt.Errorf("update %s: %w", id, err)
			}
		}
		return nil
	})
	if invalid != nil {
		return fmt.Errorf("repo.TripPlaceRepo.Reorder: %w", invalid)
	}
	if err != nil {
		return domain.NewRemoteError("repo.TripPlaceRepo.Reorder", err)
	}
	return nil
}

// currentOrder locks the trip's rows and returns id -> visit_order.
func currentOrder(ctx context.Context, tx pgx.Tx, tripID uuid.UUID) (map[uuid.UUID]int, error) {
	rows, err := tx.Query(ctx,
		`SELECT id, visit_order FROM trip_places WHERE trip_id = @trip_id FOR UPDATE`,
		pgx.NamedArgs{"trip_id": tripID},
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	current := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			id    pgtype.UUID
			order int
		)
		if err := rows.Scan(&id, &order); err != nil {
			return nil, err
		}
		current[uuid.UUID(id.Bytes)] = order
	}
	return current, rows.Err()
}

// checkPermutation reports a validation error unless ids names every key of
// current exactly once.
func checkPermutation(current map[uuid.UUID]int, ids []uuid.UUID) error {
	if len(ids) != len(current) {
		return fmt.Errorf("%w: expected %d trip place ids, got %d", domain.ErrValidation, len(current), len(ids))
	}
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if _, ok := current[id]; !ok {
			return fmt.Errorf("%w: trip place %s does not belong to the trip", domain.ErrValidation, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: trip place %s listed twice", domain.ErrValidation, id)
		}
		seen[id] = true
	}
	return nil
}

func scanTripPlace(s scanner) (domain.TripPlace, error) {
	var (
		tp                  domain.TripPlace
		id, tripID, placeID pgtype.UUID
		arrival, departure  pgtype.Timestamptz
	)
	err := s.Scan(
		&id, &tripID, &placeID, &tp.VisitOrder, &arrival,
		&departure, &tp.IsAlertActive, &tp.Note, &tp.CreatedAt,
		&tp.Place.Name, &tp.Place.Latitude, &tp.Place.Longitude, &tp.Place.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TripPlace{}, domain.ErrNotFound
		}
		return domain.TripPlace{}, err
	}
	tp.ID = uuid.UUID(id.Bytes)
	tp.TripID = uuid.UUID(tripID.Bytes)
	tp.PlaceID = uuid.UUID(placeID.Bytes)
	tp.Place.ID = tp.PlaceID
	tp.ArrivalDate = optionalTime(arrival)
	tp.DepartureDate = optionalTime(departure)
	return tp, nil
}
