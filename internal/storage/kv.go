package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pkordes/travel-journal/internal/domain"
)

// kvEntry is one row of the flat key-value namespace. Values are opaque
// serialized text.
type kvEntry struct {
	Key       string    `gorm:"column:entry_key;primaryKey;size:255"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (kvEntry) TableName() string {
	return "kv_entries"
}

// KV is a flat string key-value store. Every Set overwrites the prior value.
type KV struct {
	db  *gorm.DB
	now func() time.Time
}

// NewKV wraps a handle returned by Open.
func NewKV(db *gorm.DB) *KV {
	return &KV{db: db, now: time.Now}
}

// Get returns the value stored under key, or an error wrapping
// domain.ErrNotFound when the key is absent.
func (s *KV) Get(ctx context.Context, key string) (string, error) {
	var entry kvEntry
	err := s.db.WithContext(ctx).Where("entry_key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("storage.KV.Get %q: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("storage.KV.Get %q: %w", key, err)
	}
	return entry.Value, nil
}

// Set stores value under key, replacing any previous value.
func (s *KV) Set(ctx context.Context, key, value string) error {
	entry := kvEntry{Key: key, Value: value, UpdatedAt: s.now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("storage.KV.Set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *KV) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("entry_key = ?", key).Delete(&kvEntry{}).Error; err != nil {
		return fmt.Errorf("storage.KV.Delete %q: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix and returns how many
// keys were removed.
func (s *KV) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	// substr instead of LIKE: prefixes contain '_', a LIKE wildcard.
	res := s.db.WithContext(ctx).
		Where("substr(entry_key, 1, ?) = ?", len(prefix), prefix).
		Delete(&kvEntry{})
	if res.Error != nil {
		return 0, fmt.Errorf("storage.KV.DeletePrefix %q: %w", prefix, res.Error)
	}
	return res.RowsAffected, nil
}

// GetJSON decodes the JSON value stored under key into a T.
func GetJSON[T any](ctx context.Context, s *KV, key string) (T, error) {
	var out T
	raw, err := s.Get(ctx, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("storage.GetJSON %q: decode: %w", key, err)
	}
	return out, nil
}

// SetJSON encodes v as JSON and stores it under key.
func SetJSON[T any](ctx context.Context, s *KV, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage.SetJSON %q: encode: %w", key, err)
	}
	return s.Set(ctx, key, string(raw))
}
