// Package notify schedules local reminder notifications one day before a trip
// place's arrival date.
//
// The reminder id is the trip place id, so there is at most one pending
// reminder per trip place and scheduling again replaces the previous one.
// Platform failures never propagate: they are logged and reported as false.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/travel-journal/internal/domain"
)

// Reminder is a local notification request.
type Reminder struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	FireAt time.Time `json:"fire_at"`
}

// Platform is the device-local notification capability.
type Platform interface {
	// Schedule arms r, replacing any pending reminder with the same ID.
	Schedule(ctx context.Context, r Reminder) error
	// Cancel removes the pending reminder with id, if any.
	Cancel(ctx context.Context, id uuid.UUID) error
	// Pending lists reminders that have not fired yet.
	Pending(ctx context.Context) ([]Reminder, error)
	// PermissionGranted reports whether reminders may be shown at all.
	PermissionGranted(ctx context.Context) (bool, error)
}

// Config controls when reminders fire.
type Config struct {
	// Hour is the local hour of day (0-23) at which reminders fire.
	Hour int
	// Location is the time zone of Hour. Defaults to time.Local.
	Location *time.Location
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// Scheduler turns trip places into platform reminders.
type Scheduler struct {
	platform Platform
	hour     int
	loc      *time.Location
	now      func() time.Time
	log      *slog.Logger
}

// NewScheduler constructs a Scheduler. Out-of-range hours fall back to 9.
func NewScheduler(p Platform, cfg Config, log *slog.Logger) *Scheduler {
	s := &Scheduler{platform: p, hour: cfg.Hour, loc: cfg.Location, now: cfg.Clock, log: log}
	if s.hour < 0 || s.hour > 23 {
		s.hour = 9
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	return s
}

// TriggerTime is the calendar day before arrival, at the configured hour.
func (s *Scheduler) TriggerTime(arrival time.Time) time.Time {
	a := arrival.In(s.loc)
	return time.Date(a.Year(), a.Month(), a.Day()-1, s.hour, 0, 0, 0, s.loc)
}

// reminderFor builds the reminder for tp. ok is false when tp does not want
// one or the trigger instant has already passed.
func (s *Scheduler) reminderFor(tp domain.TripPlace) (Reminder, bool) {
	if !tp.WantsReminder() {
		return Reminder{}, false
	}
	fireAt := s.TriggerTime(*tp.ArrivalDate)
	if !fireAt.After(s.now()) {
		return Reminder{}, false
	}
	name := tp.Place.Name
	if name == "" {
		name = "your next stop"
	}
	return Reminder{
		ID:     tp.ID,
		Title:  "Upcoming visit",
		Body:   fmt.Sprintf("Tomorrow you arrive at %s.", name),
		FireAt: fireAt,
	}, true
}

// Schedule arms a reminder for tp if it wants one. It reports whether a
// reminder is now pending.
func (s *Scheduler) Schedule(ctx context.Context, tp domain.TripPlace) bool {
	r, ok := s.reminderFor(tp)
	if !ok {
		return false
	}
	granted, err := s.platform.PermissionGranted(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "notification permission check failed", "error", err)
		return false
	}
	if !granted {
		s.log.DebugContext(ctx, "notification permission not granted", "trip_place_id", tp.ID)
		return false
	}
	if err := s.platform.Schedule(ctx, r); err != nil {
		s.log.WarnContext(ctx, "schedule reminder failed", "trip_place_id", tp.ID, "error", err)
		return false
	}
	s.log.DebugContext(ctx, "reminder scheduled", "trip_place_id", tp.ID, "fire_at", r.FireAt)
	return true
}

// Reschedule cancels any pending reminder for tp and schedules a new one
// under the same conditions as Schedule.
func (s *Scheduler) Reschedule(ctx context.Context, tp domain.TripPlace) bool {
	s.Cancel(ctx, tp.ID)
	return s.Schedule(ctx, tp)
}

// Cancel removes the reminder for a trip place. It reports success.
func (s *Scheduler) Cancel(ctx context.Context, tripPlaceID uuid.UUID) bool {
	if err := s.platform.Cancel(ctx, tripPlaceID); err != nil {
		s.log.WarnContext(ctx, "cancel reminder failed", "trip_place_id", tripPlaceID, "error", err)
		return false
	}
	return true
}

// SyncResult counts the changes made by Sync.
type SyncResult struct {
	Cancelled int `json:"cancelled"`
	Scheduled int `json:"scheduled"`
}

// Sync reconciles pending reminders with the current trip places: pending
// reminders whose trip place is gone or no longer alerting are cancelled, and
// alerting trip places without a pending reminder are scheduled.
func (s *Scheduler) Sync(ctx context.Context, tripPlaces []domain.TripPlace) SyncResult {
	var res SyncResult

	pending, err := s.platform.Pending(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "list pending reminders failed", "error", err)
		return res
	}

	active := make(map[uuid.UUID]domain.TripPlace, len(tripPlaces))
	for _, tp := range tripPlaces {
		if tp.WantsReminder() {
			active[tp.ID] = tp
		}
	}

	isPending := make(map[uuid.UUID]bool, len(pending))
	for _, r := range pending {
		if _, ok := active[r.ID]; !ok {
			if s.Cancel(ctx, r.ID) {
				res.Cancelled++
			}
			continue
		}
		isPending[r.ID] = true
	}

	for id, tp := range active {
		if isPending[id] {
			continue
		}
		if s.Schedule(ctx, tp) {
			res.Scheduled++
		}
	}

	s.log.InfoContext(ctx, "reminders synchronized", "cancelled", res.Cancelled, "scheduled", res.Scheduled)
	return res
}
