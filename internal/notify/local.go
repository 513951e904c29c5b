package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// pendingReminder persists an armed reminder so it survives restarts.
type pendingReminder struct {
	ID     string    `gorm:"column:id;primaryKey;size:36"`
	Title  string    `gorm:"column:title;not null"`
	Body   string    `gorm:"column:body;not null"`
	FireAt time.Time `gorm:"column:fire_at;not null;index"`
}

func (pendingReminder) TableName() string {
	return "pending_reminders"
}

type armed struct {
	timer *time.Timer
	seq   uint64
}

// LocalPlatform is an in-process Platform: reminders are stored in the local
// SQLite file and fired by timers. Reminders that came due while the process
// was down fire as soon as it restarts.
type LocalPlatform struct {
	db      *gorm.DB
	deliver func(Reminder)
	log     *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	timers  map[uuid.UUID]armed
	seq     uint64
	granted bool
}

// NewLocalPlatform migrates the pending_reminders table, re-arms every stored
// reminder, and returns the platform. deliver is called once per fired reminder.
// log may be nil.
func NewLocalPlatform(ctx context.Context, db *gorm.DB, deliver func(Reminder), log *slog.Logger) (*LocalPlatform, error) {
	if err := db.WithContext(ctx).AutoMigrate(&pendingReminder{}); err != nil {
		return nil, fmt.Errorf("notify.NewLocalPlatform: migrate: %w", err)
	}
	p := &LocalPlatform{
		db:      db,
		deliver: deliver,
		log:     log,
		now:     time.Now,
		timers:  make(map[uuid.UUID]armed),
		granted: true,
	}
	if p.log == nil {
		p.log = slog.New(slog.DiscardHandler)
	}

	pending, err := p.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("notify.NewLocalPlatform: %w", err)
	}
	p.mu.Lock()
	for _, r := range pending {
		p.armLocked(r)
	}
	p.mu.Unlock()
	return p, nil
}

// LogDelivery returns a deliver func that writes one log line per reminder.
func LogDelivery(log *slog.Logger) func(Reminder) {
	return func(r Reminder) {
		log.Info("reminder due", "trip_place_id", r.ID, "title", r.Title, "body", r.Body, "fire_at", r.FireAt)
	}
}

// SetPermission toggles whether reminders may be scheduled.
func (p *LocalPlatform) SetPermission(granted bool) {
	p.mu.Lock()
	p.granted = granted
	p.mu.Unlock()
}

func (p *LocalPlatform) PermissionGranted(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.granted, nil
}

// Schedule stores r and arms its timer, replacing any reminder with the same
// id. The row and the timer change together under mu, so an older timer that
// fires meanwhile can never remove the new row.
func (p *LocalPlatform) Schedule(ctx context.Context, r Reminder) error {
	row := pendingReminder{ID: r.ID.String(), Title: r.Title, Body: r.Body, FireAt: r.FireAt.UTC()}

	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "body", "fire_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("notify.LocalPlatform.Schedule: %w", err)
	}
	p.armLocked(r)
	return nil
}

func (p *LocalPlatform) Cancel(ctx context.Context, id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disarmLocked(id)
	if err := p.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&pendingReminder{}).Error; err != nil {
		return fmt.Errorf("notify.LocalPlatform.Cancel: %w", err)
	}
	return nil
}

func (p *LocalPlatform) Pending(ctx context.Context) ([]Reminder, error) {
	var rows []pendingReminder
	if err := p.db.WithContext(ctx).Order("fire_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notify.LocalPlatform.Pending: %w", err)
	}
	out := make([]Reminder, 0, len(rows))
	for _, row := range rows {
		id, err := uuid.Parse(row.ID)
		if err != nil {
			continue
		}
		out = append(out, Reminder{ID: id, Title: row.Title, Body: row.Body, FireAt: row.FireAt})
	}
	return out, nil
}

// Close stops every timer. Stored reminders are re-armed by the next
// NewLocalPlatform.
func (p *LocalPlatform) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.timers {
		p.disarmLocked(id)
	}
}

func (p *LocalPlatform) armLocked(r Reminder) {
	p.disarmLocked(r.ID)
	p.seq++
	seq := p.seq
	delay := r.FireAt.Sub(p.now())
	if delay < 0 {
		delay = 0
	}
	p.timers[r.ID] = armed{
		timer: time.AfterFunc(delay, func() { p.fire(r, seq) }),
		seq:   seq,
	}
}

func (p *LocalPlatform) disarmLocked(id uuid.UUID) {
	if a, ok := p.timers[id]; ok {
		a.timer.Stop()
		delete(p.timers, id)
	}
}

// fire delivers r unless it was replaced or cancelled after its timer started.
func (p *LocalPlatform) fire(r Reminder, seq uint64) {
	p.mu.Lock()
	a, ok := p.timers[r.ID]
	if !ok || a.seq != seq {
		p.mu.Unlock()
		return
	}
	delete(p.timers, r.ID)
	err := p.db.Where("id = ?", r.ID.String()).Delete(&pendingReminder{}).Error
	p.mu.Unlock()

	if err != nil {
		// The row stays, so the reminder fires again after a restart.
		p.log.Warn("remove fired reminder", "trip_place_id", r.ID, "error", err)
	}
	if p.deliver != nil {
		p.deliver(r)
	}
}
