package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the civil date format used for diary entry dates.
const DateLayout = "2006-01-02"

// DiaryEntry is a locally stored, date-keyed journal page.
// One entry per date is intended but not enforced; lookups by date return the
// first match.
type DiaryEntry struct {
	ID        uuid.UUID   `json:"id"`
	Date      string      `json:"date"`
	Title     string      `json:"title,omitempty"`
	Notes     []DiaryNote `json:"notes"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// DiaryNote is a free-text note inside an entry. TripPlaceIDs are soft
// references into remote data with no referential integrity.
type DiaryNote struct {
	ID           uuid.UUID   `json:"id"`
	Content      string      `json:"content"`
	TripPlaceIDs []uuid.UUID `json:"trip_place_ids"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// ResolvedNote is a DiaryNote joined with the trip places it still resolves to.
// References that no longer exist are omitted from Places.
type ResolvedNote struct {
	DiaryNote
	Places []TripPlace `json:"places"`
}

// ResolvedEntry is a DiaryEntry whose notes have been joined with trip data.
type ResolvedEntry struct {
	ID        uuid.UUID      `json:"id"`
	Date      string         `json:"date"`
	Title     string         `json:"title,omitempty"`
	Notes     []ResolvedNote `json:"notes"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ParseDiaryDate validates a "2006-01-02" date string.
func ParseDiaryDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be formatted as YYYY-MM-DD", ErrValidation)
	}
	return d, nil
}

// ValidateNoteContent rejects blank note content.
func ValidateNoteContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content is required", ErrValidation)
	}
	return nil
}
