// Package domain contains the core data types for the Travel Journal sync layer.
// This package depends only on google/uuid and is imported by every other
// internal package (repo, cache, tripsync, diary, handler).
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Trip represents a named travel itinerary with optional date bounds.
// A trip is the top-level aggregate; trip places belong to a trip.
type Trip struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Note      string     `json:"note,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	// PlaceCount is derived from the trip's places on every read; writes ignore it.
	PlaceCount int       `json:"place_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Validate enforces the business rules shared by trip create and update.
//   - Name must be non-empty (whitespace-only names are rejected).
//   - EndDate, if both dates are set, must not be before StartDate.
func (t Trip) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if t.StartDate != nil && t.EndDate != nil && t.EndDate.Before(*t.StartDate) {
		return fmt.Errorf("%w: end_date must not be before start_date", ErrValidation)
	}
	return nil
}
